package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhishekPandey12345/CampusHub/internal/domain"
	"github.com/AbhishekPandey12345/CampusHub/internal/repository"
)

// racingConversationRepo simulates losing the direct-creation race: the
// first CreateDirect inserts the concurrent winner's row through the real
// repository, then reports the unique-constraint conflict to the caller.
type racingConversationRepo struct {
	repository.ConversationRepository
	winnerID string
}

func (r *racingConversationRepo) CreateDirect(ctx context.Context, conv *domain.Conversation) error {
	if r.winnerID == "" {
		winner := &domain.Conversation{Kind: domain.KindDirect, Participants: conv.Participants}
		if err := r.ConversationRepository.CreateDirect(ctx, winner); err != nil {
			return err
		}
		r.winnerID = winner.ID
		return repository.ErrConversationExists
	}
	return r.ConversationRepository.CreateDirect(ctx, conv)
}

func TestFindOrCreateDirect_Idempotent(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice", "alice", true, true)
	env.seedUser(t, "bob", "bob", true, true)

	first, err := env.conversations.FindOrCreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	assert.Equal(t, domain.KindDirect, first.Kind)
	require.Len(t, first.Peers, 1)
	assert.Equal(t, "bob", first.Peers[0].ID)

	// The same call, and the mirrored call, both return the same record.
	again, err := env.conversations.FindOrCreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	mirrored, err := env.conversations.FindOrCreateDirect(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, mirrored.ID)
	require.Len(t, mirrored.Peers, 1)
	assert.Equal(t, "alice", mirrored.Peers[0].ID)
}

func TestFindOrCreateDirect_Denials(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice", "alice", true, true)
	env.seedUser(t, "hermit", "hermit", false, true)

	_, err := env.conversations.FindOrCreateDirect(ctx, "alice", "alice")
	assert.ErrorIs(t, err, ErrSelfChat)

	_, err = env.conversations.FindOrCreateDirect(ctx, "alice", "hermit")
	assert.ErrorIs(t, err, ErrChatDisabled)

	_, err = env.conversations.FindOrCreateDirect(ctx, "alice", "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestFindOrCreateDirect_LostCreateRaceReturnsWinner(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice", "alice", true, true)
	env.seedUser(t, "bob", "bob", true, true)

	racing := &racingConversationRepo{ConversationRepository: repository.NewGormConversationRepository(env.db)}
	svc := NewConversationService(racing, repository.NewGormMessageRepository(env.db), env.users, NewAccessEvaluator(env.users))

	// The loser of the insert race sees success, not a conflict, and lands
	// on the winner's conversation.
	view, err := svc.FindOrCreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, racing.winnerID, view.ID)

	again, err := env.conversations.FindOrCreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, racing.winnerID, again.ID)
}

func TestCreateGroup(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	env.seedUser(t, "carol", "carol", true, true)
	env.seedUser(t, "dave", "dave", true, true)
	env.seedUser(t, "erin", "erin", true, true)

	view, err := env.conversations.CreateGroup(ctx, "carol", "study group", "", []string{"dave", "erin"})
	require.NoError(t, err)
	assert.Equal(t, domain.KindGroup, view.Kind)
	assert.Equal(t, "study group", view.DisplayName)
	require.NotNil(t, view.Admin)
	assert.Equal(t, "carol", view.Admin.ID)
	require.Len(t, view.Peers, 2)
}

func TestCreateGroup_MemberValidation(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	env.seedUser(t, "carol", "carol", true, true)
	env.seedUser(t, "dave", "dave", true, true)
	env.seedUser(t, "loner", "loner", true, false)

	// One member besides the creator is not enough; duplicates and the
	// creator's own id do not count.
	_, err := env.conversations.CreateGroup(ctx, "carol", "g", "", []string{"dave", "dave", "carol"})
	assert.ErrorIs(t, err, ErrTooFewMembers)

	_, err = env.conversations.CreateGroup(ctx, "carol", "g", "", []string{"dave", "ghost"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = env.conversations.CreateGroup(ctx, "carol", "g", "", []string{"dave", "loner"})
	assert.ErrorIs(t, err, ErrGroupAddDisabled)
}

func TestRename_AdminOnly(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	env.seedUser(t, "carol", "carol", true, true)
	env.seedUser(t, "dave", "dave", true, true)
	env.seedUser(t, "erin", "erin", true, true)
	env.seedUser(t, "alice", "alice", true, true)
	env.seedUser(t, "bob", "bob", true, true)

	group, err := env.conversations.CreateGroup(ctx, "carol", "before", "", []string{"dave", "erin"})
	require.NoError(t, err)

	assert.ErrorIs(t, env.conversations.Rename(ctx, "dave", group.ID, "nope"), ErrNotAdmin)
	assert.ErrorIs(t, env.conversations.Rename(ctx, "alice", group.ID, "nope"), ErrNotParticipant)

	require.NoError(t, env.conversations.Rename(ctx, "carol", group.ID, "after"))
	view, err := env.conversations.GetByID(ctx, "carol", group.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", view.DisplayName)

	// Direct conversations have no admin to rename them.
	direct, err := env.conversations.FindOrCreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.ErrorIs(t, env.conversations.Rename(ctx, "alice", direct.ID, "nope"), ErrNotGroup)
}

func TestDelete_RemovesConversationAndHistory(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	env.seedUser(t, "carol", "carol", true, true)
	env.seedUser(t, "dave", "dave", true, true)
	env.seedUser(t, "erin", "erin", true, true)

	group, err := env.conversations.CreateGroup(ctx, "carol", "doomed", "", []string{"dave", "erin"})
	require.NoError(t, err)

	_, err = env.conversations.AppendMessage(ctx, "dave", group.ID, "last words")
	require.NoError(t, err)

	assert.ErrorIs(t, env.conversations.Delete(ctx, "dave", group.ID), ErrNotAdmin)
	require.NoError(t, env.conversations.Delete(ctx, "carol", group.ID))

	_, err = env.conversations.GetByID(ctx, "carol", group.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	_, err = env.conversations.ListMessages(ctx, "carol", group.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	list, err := env.conversations.ListForUser(ctx, "dave")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAddMember(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	env.seedUser(t, "carol", "carol", true, true)
	env.seedUser(t, "dave", "dave", true, true)
	env.seedUser(t, "erin", "erin", true, true)
	env.seedUser(t, "frank", "frank", true, true)
	env.seedUser(t, "loner", "loner", true, false)

	group, err := env.conversations.CreateGroup(ctx, "carol", "g", "", []string{"dave", "erin"})
	require.NoError(t, err)

	assert.ErrorIs(t, env.conversations.AddMember(ctx, "dave", group.ID, "frank"), ErrNotAdmin)
	assert.ErrorIs(t, env.conversations.AddMember(ctx, "carol", group.ID, "loner"), ErrGroupAddDisabled)

	require.NoError(t, env.conversations.AddMember(ctx, "carol", group.ID, "frank"))
	// Re-adding an existing member succeeds without effect.
	require.NoError(t, env.conversations.AddMember(ctx, "carol", group.ID, "frank"))

	view, err := env.conversations.GetByID(ctx, "carol", group.ID)
	require.NoError(t, err)
	assert.Len(t, view.Peers, 3)
}

func TestRemoveMember(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	env.seedUser(t, "carol", "carol", true, true)
	env.seedUser(t, "dave", "dave", true, true)
	env.seedUser(t, "erin", "erin", true, true)

	group, err := env.conversations.CreateGroup(ctx, "carol", "g", "", []string{"dave", "erin"})
	require.NoError(t, err)

	assert.ErrorIs(t, env.conversations.RemoveMember(ctx, "dave", group.ID, "erin"), ErrNotAdmin)

	require.NoError(t, env.conversations.RemoveMember(ctx, "carol", group.ID, "erin"))
	// Removing an already-absent member is a no-op.
	require.NoError(t, env.conversations.RemoveMember(ctx, "carol", group.ID, "erin"))

	view, err := env.conversations.GetByID(ctx, "carol", group.ID)
	require.NoError(t, err)
	require.Len(t, view.Peers, 1)
	assert.Equal(t, "dave", view.Peers[0].ID)

	// The removed member can no longer read the conversation.
	_, err = env.conversations.GetByID(ctx, "erin", group.ID)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestAppendMessage_ParticipantsOnly(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice", "alice", true, true)
	env.seedUser(t, "bob", "bob", true, true)
	env.seedUser(t, "mallory", "mallory", true, true)

	direct, err := env.conversations.FindOrCreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)

	sent, err := env.conversations.AppendMessage(ctx, "alice", direct.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, "alice", sent.Sender.ID)

	_, err = env.conversations.AppendMessage(ctx, "mallory", direct.ID, "intrusion")
	assert.ErrorIs(t, err, ErrNotParticipant)

	// The rejected append left no trace on the latest-message pointer.
	view, err := env.conversations.GetByID(ctx, "alice", direct.ID)
	require.NoError(t, err)
	require.NotNil(t, view.LatestMessage)
	assert.Equal(t, sent.ID, view.LatestMessage.ID)

	messages, err := env.conversations.ListMessages(ctx, "bob", direct.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, "alice", messages[0].Sender.Username)
}

func TestListForUser_HydratedAndOrdered(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	env.seedUser(t, "alice", "alice", true, true)
	env.seedUser(t, "bob", "bob", true, true)
	env.seedUser(t, "carol", "carol", true, true)

	withBob, err := env.conversations.FindOrCreateDirect(ctx, "alice", "bob")
	require.NoError(t, err)
	withCarol, err := env.conversations.FindOrCreateDirect(ctx, "alice", "carol")
	require.NoError(t, err)

	_, err = env.conversations.AppendMessage(ctx, "bob", withBob.ID, "ping")
	require.NoError(t, err)

	list, err := env.conversations.ListForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)

	// Most recent activity first.
	assert.Equal(t, withBob.ID, list[0].ID)
	assert.Equal(t, withCarol.ID, list[1].ID)

	require.NotNil(t, list[0].LatestMessage)
	assert.Equal(t, "ping", list[0].LatestMessage.Content)
	assert.Equal(t, "bob", list[0].LatestMessage.Sender.Username)
	assert.Nil(t, list[1].LatestMessage)
}
