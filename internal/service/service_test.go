package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/AbhishekPandey12345/CampusHub/internal/domain"
	"github.com/AbhishekPandey12345/CampusHub/internal/repository"
	"github.com/AbhishekPandey12345/CampusHub/pkg/database"
)

// memCountStore is an in-memory stand-in for the Redis count cache.
type memCountStore struct {
	mu        sync.Mutex
	followers map[string]int64
	following map[string]int64
}

func newMemCountStore() *memCountStore {
	return &memCountStore{
		followers: make(map[string]int64),
		following: make(map[string]int64),
	}
}

func (s *memCountStore) get(m map[string]int64, userID string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count, ok := m[userID]
	return count, ok, nil
}

func (s *memCountStore) set(m map[string]int64, userID string, count int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m[userID] = count
	return nil
}

func (s *memCountStore) condAdd(m map[string]int64, userID string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if count, ok := m[userID]; ok {
		if next := count + delta; next >= 0 {
			m[userID] = next
		}
	}
	return nil
}

func (s *memCountStore) GetFollowersCount(_ context.Context, userID string) (int64, bool, error) {
	return s.get(s.followers, userID)
}

func (s *memCountStore) SetFollowersCount(_ context.Context, userID string, count int64) error {
	return s.set(s.followers, userID, count)
}

func (s *memCountStore) CondIncrFollowersCount(_ context.Context, userID string) error {
	return s.condAdd(s.followers, userID, 1)
}

func (s *memCountStore) CondDecrFollowersCount(_ context.Context, userID string) error {
	return s.condAdd(s.followers, userID, -1)
}

func (s *memCountStore) GetFollowingCount(_ context.Context, userID string) (int64, bool, error) {
	return s.get(s.following, userID)
}

func (s *memCountStore) SetFollowingCount(_ context.Context, userID string, count int64) error {
	return s.set(s.following, userID, count)
}

func (s *memCountStore) CondIncrFollowingCount(_ context.Context, userID string) error {
	return s.condAdd(s.following, userID, 1)
}

func (s *memCountStore) CondDecrFollowingCount(_ context.Context, userID string) error {
	return s.condAdd(s.following, userID, -1)
}

func (s *memCountStore) Close() error { return nil }

// testEnv wires real repositories over an in-memory sqlite database.
type testEnv struct {
	db            *gorm.DB
	users         repository.UserRepository
	conversations ConversationService
	social        SocialGraphService
	counts        *memCountStore
}

func setupEnv(t *testing.T) *testEnv {
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

	conversationRepo := repository.NewGormConversationRepository(db)
	messageRepo := repository.NewGormMessageRepository(db)
	followRepo := repository.NewGormFollowRepository(db)
	userRepo := repository.NewGormUserRepository(db)

	counts := newMemCountStore()
	access := NewAccessEvaluator(userRepo)

	return &testEnv{
		db:            db,
		users:         userRepo,
		conversations: NewConversationService(conversationRepo, messageRepo, userRepo, access),
		social:        NewSocialGraphService(followRepo, userRepo, counts),
		counts:        counts,
	}
}

func (e *testEnv) seedUser(t *testing.T, id, username string, allowChat, allowGroupAdd bool) {
	t.Helper()
	require.NoError(t, e.users.Upsert(context.Background(), &domain.User{
		ID:            id,
		Username:      username,
		AllowChat:     allowChat,
		AllowGroupAdd: allowGroupAdd,
	}))
}
