package configuration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestConfiguration tests the configuration package basic functionality
func TestConfiguration(t *testing.T) {
	t.Run("configuration_struct_exists", func(t *testing.T) {
		require.NotNil(t, &C, "Configuration should not be nil")

		require.NotNil(t, &C.App, "App configuration should exist")
		require.NotNil(t, &C.Database, "Database configuration should exist")
	})

	t.Run("configuration_has_required_fields", func(t *testing.T) {
		config := &C

		require.NotNil(t, config.App, "App config should be present")
		require.NotNil(t, config.Database, "Database config should be present")
		require.NotNil(t, config.Database.Psql, "PostgreSQL config should be present")
		require.NotNil(t, config.Database.Mssql, "MSSQL config should be present")
		require.NotNil(t, config.Database.Mongo, "MongoDB config should be present")
		require.NotNil(t, config.OAuth, "OAuth config should be present")
	})
}

func TestDurationDefaults(t *testing.T) {
	var s Scheduler
	require.Equal(t, 2*time.Hour, s.ImmediateThresholdDuration())
	require.Equal(t, 10*time.Minute, s.ScanIntervalDuration())
	require.Equal(t, 10*time.Minute, s.ScanWindowDuration())

	var w Worker
	require.Equal(t, 5, w.MaxAttemptsOrDefault())
	require.Equal(t, 5*time.Second, w.BaseBackoffDuration())
	require.Equal(t, 60*time.Second, w.PublishTimeoutDuration())
	require.Equal(t, 15*time.Minute, w.RefreshThresholdDuration())
}

func TestDurationOverrides(t *testing.T) {
	s := Scheduler{ImmediateThreshold: "30m", ScanInterval: "1m", ScanWindow: "bogus"}
	require.Equal(t, 30*time.Minute, s.ImmediateThresholdDuration())
	require.Equal(t, time.Minute, s.ScanIntervalDuration())
	require.Equal(t, 10*time.Minute, s.ScanWindowDuration(), "unparseable durations fall back to the default")

	w := Worker{MaxAttempts: 3, BaseBackoff: "2s"}
	require.Equal(t, 3, w.MaxAttemptsOrDefault())
	require.Equal(t, 2*time.Second, w.BaseBackoffDuration())
}
