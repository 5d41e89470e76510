// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"warbler/internal/database"
	"warbler/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// NewTestDB returns a migrated, private in-memory SQLite database with foreign
// keys enforced. It is closed when the test ends.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=on", name, dbSeq.Add(1))

	db, err := database.Open(sqlite.Open(dsn))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// CreateUser inserts a user whose password is the bcrypt hash of password.
func CreateUser(t testing.TB, db *gorm.DB, username, password string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &models.User{
		Username: username,
		Email:    username + "@test.com",
		Password: string(hash),
	}
	if err := db.WithContext(context.Background()).Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreateMessage inserts a message owned by userID.
func CreateMessage(t testing.TB, db *gorm.DB, userID uint, text string) *models.Message {
	t.Helper()

	m := &models.Message{Text: text, UserID: userID}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("create message: %v", err)
	}
	return m
}

// CreateFollow makes follower follow followed.
func CreateFollow(t testing.TB, db *gorm.DB, followerID, followedID uint) {
	t.Helper()

	f := &models.Follow{UserFollowingID: followerID, UserBeingFollowedID: followedID}
	if err := db.Create(f).Error; err != nil {
		t.Fatalf("create follow: %v", err)
	}
}

// CreateLike records userID liking messageID.
func CreateLike(t testing.TB, db *gorm.DB, userID, messageID uint) {
	t.Helper()

	if err := db.Create(&models.Like{UserID: userID, MessageID: messageID}).Error; err != nil {
		t.Fatalf("create like: %v", err)
	}
}
