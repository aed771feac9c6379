package persistence

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestWrapExistingConnection verifies an already-open connection can be handed
// to an ORM session for ad hoc reporting queries without reconnecting.
func TestWrapExistingConnection(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	defer db.Close()

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to wrap connection: %v", err)
	}

	if gormDB == nil {
		t.Error("Expected gormDB to be non-nil")
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		t.Fatalf("Failed to unwrap connection: %v", err)
	}
	if sqlDB != db {
		t.Error("Expected the wrapped session to reuse the existing connection")
	}
}
