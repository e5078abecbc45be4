package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/AbhishekPandey12345/CampusHub/internal/domain"
	"github.com/AbhishekPandey12345/CampusHub/pkg/database"
)

// setupDB opens an isolated in-memory sqlite database with the full schema.
// MaxOpenConns is pinned to 1 so every query sees the same in-memory store.
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		FilePath:     ":memory:",
		MaxIdleConns: 1,
		MaxOpenConns: 1,
	})
	require.NoError(t, err)

	require.NoError(t, database.AutoMigrate(db,
		&domain.ConversationModel{},
		&domain.ParticipantModel{},
		&domain.MessageModel{},
		&domain.FollowModel{},
		&domain.UserModel{},
	))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

func seedUser(t *testing.T, db *gorm.DB, id, username string) {
	t.Helper()
	require.NoError(t, db.Create(&domain.UserModel{
		ID:            id,
		Username:      username,
		AllowChat:     true,
		AllowGroupAdd: true,
	}).Error)
}
