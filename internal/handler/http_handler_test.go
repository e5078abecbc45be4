package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhishekPandey12345/CampusHub/internal/domain"
	"github.com/AbhishekPandey12345/CampusHub/internal/repository"
	"github.com/AbhishekPandey12345/CampusHub/internal/service"
	"github.com/AbhishekPandey12345/CampusHub/pkg/database"
	"github.com/AbhishekPandey12345/CampusHub/pkg/jwt"
	"github.com/AbhishekPandey12345/CampusHub/pkg/middleware"
	"github.com/AbhishekPandey12345/CampusHub/pkg/response"
	"github.com/AbhishekPandey12345/CampusHub/pkg/storage"
)

// countStoreStub keeps follower counts in memory for handler tests.
type countStoreStub struct {
	mu        sync.Mutex
	followers map[string]int64
	following map[string]int64
}

func newCountStoreStub() *countStoreStub {
	return &countStoreStub{
		followers: make(map[string]int64),
		following: make(map[string]int64),
	}
}

func (s *countStoreStub) get(m map[string]int64, userID string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count, ok := m[userID]
	return count, ok, nil
}

func (s *countStoreStub) set(m map[string]int64, userID string, count int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m[userID] = count
	return nil
}

func (s *countStoreStub) condAdd(m map[string]int64, userID string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if count, ok := m[userID]; ok && count+delta >= 0 {
		m[userID] = count + delta
	}
	return nil
}

func (s *countStoreStub) GetFollowersCount(_ context.Context, id string) (int64, bool, error) {
	return s.get(s.followers, id)
}
func (s *countStoreStub) SetFollowersCount(_ context.Context, id string, n int64) error {
	return s.set(s.followers, id, n)
}
func (s *countStoreStub) CondIncrFollowersCount(_ context.Context, id string) error {
	return s.condAdd(s.followers, id, 1)
}
func (s *countStoreStub) CondDecrFollowersCount(_ context.Context, id string) error {
	return s.condAdd(s.followers, id, -1)
}
func (s *countStoreStub) GetFollowingCount(_ context.Context, id string) (int64, bool, error) {
	return s.get(s.following, id)
}
func (s *countStoreStub) SetFollowingCount(_ context.Context, id string, n int64) error {
	return s.set(s.following, id, n)
}
func (s *countStoreStub) CondIncrFollowingCount(_ context.Context, id string) error {
	return s.condAdd(s.following, id, 1)
}
func (s *countStoreStub) CondDecrFollowingCount(_ context.Context, id string) error {
	return s.condAdd(s.following, id, -1)
}
func (s *countStoreStub) Close() error { return nil }

type apiEnv struct {
	router *gin.Engine
	tokens *jwt.Manager
	users  repository.UserRepository
}

func setupAPI(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	access := service.NewAccessEvaluator(userRepo)
	conversationSvc := service.NewConversationService(conversationRepo, messageRepo, userRepo, access)
	socialSvc := service.NewSocialGraphService(followRepo, userRepo, newCountStoreStub())

	mediaStorage, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)

	tokens, err := jwt.NewManager(time.Hour, "campushub-test")
	require.NoError(t, err)
	authMiddleware := middleware.NewAuthMiddleware(tokens)

	router := gin.New()
	NewHandler(conversationSvc, socialSvc, mediaStorage, authMiddleware).RegisterRoutes(router)

	return &apiEnv{router: router, tokens: tokens, users: userRepo}
}

func (e *apiEnv) seedUser(t *testing.T, id, username string, allowChat, allowGroupAdd bool) {
	t.Helper()
	require.NoError(t, e.users.Upsert(context.Background(), &domain.User{
		ID:            id,
		Username:      username,
		AllowChat:     allowChat,
		AllowGroupAdd: allowGroupAdd,
	}))
}

func (e *apiEnv) request(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := e.tokens.GenerateAccessToken(userID, userID+"@example.com", userID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var envelope response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func TestAuthRequired(t *testing.T) {
	env := setupAPI(t)

	w := env.request(t, http.MethodGet, "/api/v1/conversations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.request(t, http.MethodPost, "/api/v1/users/u2/follow/toggle", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateDirectEndpoint(t *testing.T) {
	env := setupAPI(t)
	env.seedUser(t, "alice", "alice", true, true)
	env.seedUser(t, "bob", "bob", true, true)
	env.seedUser(t, "hermit", "hermit", false, true)

	w := env.request(t, http.MethodPost, "/api/v1/conversations/direct", "alice",
		domain.CreateDirectRequest{TargetID: "bob"})
	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.True(t, envelope.Success)

	// Denials map to the documented statuses.
	w = env.request(t, http.MethodPost, "/api/v1/conversations/direct", "alice",
		domain.CreateDirectRequest{TargetID: "alice"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.request(t, http.MethodPost, "/api/v1/conversations/direct", "alice",
		domain.CreateDirectRequest{TargetID: "hermit"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, http.MethodPost, "/api/v1/conversations/direct", "alice",
		domain.CreateDirectRequest{TargetID: "ghost"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateGroupEndpoint_Multipart(t *testing.T) {
	env := setupAPI(t)
	env.seedUser(t, "carol", "carol", true, true)
	env.seedUser(t, "dave", "dave", true, true)
	env.seedUser(t, "erin", "erin", true, true)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("name", "study group"))
	require.NoError(t, form.WriteField("member_ids", "dave"))
	require.NoError(t, form.WriteField("member_ids", "erin"))
	avatar, err := form.CreateFormFile("avatar", "avatar.png")
	require.NoError(t, err)
	_, err = avatar.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/group", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	token, err := env.tokens.GenerateAccessToken("carol", "carol@example.com", "carol")
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var envelope struct {
		Success bool                    `json:"success"`
		Data    domain.ConversationView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, "study group", envelope.Data.DisplayName)
	assert.NotEmpty(t, envelope.Data.AvatarURL)
	assert.True(t, strings.Contains(envelope.Data.AvatarURL, "avatars/"))
}

func TestRenameEndpoint_NonAdminForbidden(t *testing.T) {
	env := setupAPI(t)
	env.seedUser(t, "carol", "carol", true, true)
	env.seedUser(t, "dave", "dave", true, true)
	env.seedUser(t, "erin", "erin", true, true)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("name", "g"))
	require.NoError(t, form.WriteField("member_ids", "dave"))
	require.NoError(t, form.WriteField("member_ids", "erin"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/group", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	token, err := env.tokens.GenerateAccessToken("carol", "carol@example.com", "carol")
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data domain.ConversationView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	groupID := envelope.Data.ID

	path := fmt.Sprintf("/api/v1/conversations/%s/name", groupID)
	w = env.request(t, http.MethodPatch, path, "dave", domain.RenameRequest{Name: "nope"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, http.MethodPatch, path, "carol", domain.RenameRequest{Name: "renamed"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMessagesEndpoints(t *testing.T) {
	env := setupAPI(t)
	env.seedUser(t, "alice", "alice", true, true)
	env.seedUser(t, "bob", "bob", true, true)
	env.seedUser(t, "mallory", "mallory", true, true)

	w := env.request(t, http.MethodPost, "/api/v1/conversations/direct", "alice",
		domain.CreateDirectRequest{TargetID: "bob"})
	require.Equal(t, http.StatusOK, w.Code)
	var created struct {
		Data domain.ConversationView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	convID := created.Data.ID

	path := fmt.Sprintf("/api/v1/conversations/%s/messages", convID)
	w = env.request(t, http.MethodPost, path, "alice", domain.AppendMessageRequest{Content: "hello"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = env.request(t, http.MethodPost, path, "mallory", domain.AppendMessageRequest{Content: "intrusion"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, http.MethodPost, path, "alice", domain.AppendMessageRequest{Content: ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.request(t, http.MethodGet, path, "bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var messages struct {
		Data []domain.MessageView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &messages))
	require.Len(t, messages.Data, 1)
	assert.Equal(t, "hello", messages.Data[0].Content)
}

func TestFollowEndpoints(t *testing.T) {
	env := setupAPI(t)
	env.seedUser(t, "alice", "alice", true, true)
	env.seedUser(t, "bob", "bob", true, true)

	w := env.request(t, http.MethodPost, "/api/v1/users/bob/follow/toggle", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var toggled struct {
		Data domain.FollowToggleResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &toggled))
	assert.True(t, toggled.Data.IsFollowing)
	assert.EqualValues(t, 1, toggled.Data.Followers)

	// Count reads are public.
	w = env.request(t, http.MethodGet, "/api/v1/users/bob/followers/count", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.True(t, envelope.Success)

	w = env.request(t, http.MethodPost, "/api/v1/users/alice/follow/toggle", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
