package servicebus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"crosspost/infrastructure/servicebus"
)

// TestNewOutcomeNotifier tests the creation of a new outcome notifier
func TestNewOutcomeNotifier(t *testing.T) {
	// This is a simple test to ensure the function exists and returns an object
	// We can't do much more without mocking the Azure Service Bus client
	notifier := servicebus.NewOutcomeNotifier(nil, "publish-outcomes")
	assert.NotNil(t, notifier)
}
