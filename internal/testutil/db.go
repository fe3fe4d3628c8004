// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"ravencube/internal/database"
	"ravencube/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory SQLite database with the full schema.
// A single connection serializes transactions the way row locks do in
// Postgres.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// CreateUser inserts a user with a unique subject derived from username.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		AuthSubject: "sub|" + username,
		Email:       username + "@example.com",
		Username:    username,
		FirstName:   username,
	}
	if err := db.WithContext(context.Background()).Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

// CreatePost inserts a post owned by userID.
func CreatePost(t testing.TB, db *gorm.DB, userID uint, content string) *models.Post {
	t.Helper()
	post := &models.Post{UserID: userID, Content: content}
	if err := db.Omit("User", "Comments").Create(post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return post
}
