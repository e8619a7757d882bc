// Package testutil provides an in-memory SQL store for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"vidtube/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB opens a private in-memory SQLite database with the comment engine schema.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:vidtube_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and serialises access
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Comment{}, &model.Reply{}, &model.Like{}))
	return db
}

// CreateUser inserts a user and returns its id.
func CreateUser(t testing.TB, db *gorm.DB, userName string) string {
	t.Helper()

	user := model.User{
		ID:       uuid.New().String(),
		UserName: userName,
		FullName: "Full " + userName,
		Avatar:   "https://cdn.example.com/" + userName + ".png",
	}
	require.NoError(t, db.Create(&user).Error)
	return user.ID
}

// Count returns the number of rows of m matching the optional condition.
func Count(t testing.TB, db *gorm.DB, m interface{}, query ...interface{}) int64 {
	t.Helper()

	var n int64
	tx := db.Model(m)
	if len(query) > 0 {
		tx = tx.Where(query[0], query[1:]...)
	}
	require.NoError(t, tx.Count(&n).Error)
	return n
}
