package services

import (
	"path/filepath"
	"testing"

	"github.com/HikeMeet/HikeMeet-Backend-sub000/models"
	"github.com/HikeMeet/HikeMeet-Backend-sub000/storage"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Trip{},
		&models.Group{},
		&models.GroupMember{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}

	storage.DB = db
}

func createTestUser(t *testing.T, name string) models.User {
	t.Helper()
	user := models.User{FirstName: name, Email: name + "@example.com", Role: "user"}
	if err := storage.DB.Create(&user).Error; err != nil {
		t.Fatalf("creating test user: %v", err)
	}
	return user
}

func unreadCount(t *testing.T, userID uint) int {
	t.Helper()
	var user models.User
	if err := storage.DB.First(&user, userID).Error; err != nil {
		t.Fatalf("reloading user %d: %v", userID, err)
	}
	return user.UnreadNotifications
}
