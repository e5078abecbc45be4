package service

import (
	"context"
	"errors"

	"github.com/AbhishekPandey12345/CampusHub/internal/audit"
	"github.com/AbhishekPandey12345/CampusHub/internal/domain"
	"github.com/AbhishekPandey12345/CampusHub/internal/repository"
	pkglog "github.com/AbhishekPandey12345/CampusHub/pkg/log"
)

// conversationService implements ConversationService.
type conversationService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	users         repository.UserRepository
	access        *AccessEvaluator
}

// NewConversationService creates a new ConversationService instance.
func NewConversationService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	users repository.UserRepository,
	access *AccessEvaluator,
) ConversationService {
	return &conversationService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		access:        access,
	}
}

// FindOrCreateDirect returns the direct conversation between userID and
// targetID, creating it if none exists. An existing conversation is an
// idempotent read; the access evaluator is consulted only before creation.
// Concurrent first calls converge on a single conversation: the loser of
// the insert race re-reads the winner's row.
func (s *conversationService) FindOrCreateDirect(ctx context.Context, userID, targetID string) (*domain.ConversationView, error) {
	l := pkglog.Ctx(ctx)

	conv, err := s.conversations.GetDirectByPair(ctx, userID, targetID)
	if err == nil {
		return s.buildView(ctx, conv, userID)
	}
	if !errors.Is(err, repository.ErrConversationNotFound) {
		return nil, err
	}

	if err := s.access.CanStartDirect(ctx, userID, targetID); err != nil {
		return nil, err
	}

	conv = &domain.Conversation{
		Kind:         domain.KindDirect,
		Participants: []string{userID, targetID},
	}
	if err := s.conversations.CreateDirect(ctx, conv); err != nil {
		if errors.Is(err, repository.ErrConversationExists) {
			conv, err = s.conversations.GetDirectByPair(ctx, userID, targetID)
			if err != nil {
				return nil, err
			}
			return s.buildView(ctx, conv, userID)
		}
		l.Error().Err(err).
			Str(pkglog.FieldUserID, userID).
			Str(pkglog.FieldTargetID, targetID).
			Msg("failed to create direct conversation")
		return nil, err
	}

	audit.LogWithDetail(ctx, audit.ActionCreateDirect, userID, conv.ID, "direct conversation created")
	return s.buildView(ctx, conv, userID)
}

// CreateGroup creates a group conversation administered by adminID. The
// member list is deduplicated, must contain at least two users besides the
// creator, and every member must exist and accept group invitations.
func (s *conversationService) CreateGroup(ctx context.Context, adminID, name, avatarURL string, memberIDs []string) (*domain.ConversationView, error) {
	l := pkglog.Ctx(ctx)

	members := dedupe(memberIDs, adminID)
	if len(members) < 2 {
		return nil, ErrTooFewMembers
	}

	known, err := s.users.GetByIDs(ctx, members)
	if err != nil {
		return nil, err
	}
	for _, id := range members {
		user, ok := known[id]
		if !ok {
			return nil, ErrUserNotFound
		}
		if !user.AllowGroupAdd {
			return nil, ErrGroupAddDisabled
		}
	}

	conv := &domain.Conversation{
		Kind:         domain.KindGroup,
		AdminID:      adminID,
		DisplayName:  name,
		AvatarURL:    avatarURL,
		Participants: append([]string{adminID}, members...),
	}
	if err := s.conversations.CreateGroup(ctx, conv); err != nil {
		l.Error().Err(err).Str(pkglog.FieldUserID, adminID).Msg("failed to create group conversation")
		return nil, err
	}

	audit.LogWithDetail(ctx, audit.ActionCreateGroup, adminID, conv.ID, "group conversation created")
	return s.buildView(ctx, conv, adminID)
}

// ListForUser returns the caller's conversations, most recently active
// first, fully hydrated.
func (s *conversationService) ListForUser(ctx context.Context, userID string) ([]domain.ConversationView, error) {
	conversations, err := s.conversations.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildViews(ctx, conversations, userID)
}

// GetByID returns a single hydrated conversation. Callers who are not
// participants are rejected.
func (s *conversationService) GetByID(ctx context.Context, userID, conversationID string) (*domain.ConversationView, error) {
	conv, err := s.getParticipating(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, conv, userID)
}

// Rename changes a group conversation's display name. Admin only.
func (s *conversationService) Rename(ctx context.Context, userID, conversationID, name string) error {
	conv, err := s.getAdministered(ctx, userID, conversationID)
	if err != nil {
		return err
	}

	if err := s.conversations.UpdateName(ctx, conv.ID, name); err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return ErrConversationNotFound
		}
		return err
	}

	audit.LogWithDetail(ctx, audit.ActionRenameGroup, userID, conv.ID, "group conversation renamed")
	return nil
}

// Delete removes a group conversation along with its membership and message
// history. Admin only; subsequent reads see the conversation as gone.
func (s *conversationService) Delete(ctx context.Context, userID, conversationID string) error {
	conv, err := s.getAdministered(ctx, userID, conversationID)
	if err != nil {
		return err
	}

	if err := s.conversations.Delete(ctx, conv.ID); err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return ErrConversationNotFound
		}
		return err
	}

	audit.LogWithDetail(ctx, audit.ActionDeleteGroup, userID, conv.ID, "group conversation deleted")
	return nil
}

// AddMember adds memberID to a group conversation. Admin only; adding an
// existing member is a no-op. The target's group-add setting is honored.
func (s *conversationService) AddMember(ctx context.Context, userID, conversationID, memberID string) error {
	conv, err := s.getAdministered(ctx, userID, conversationID)
	if err != nil {
		return err
	}

	if conv.HasParticipant(memberID) {
		return nil
	}
	if err := s.access.CanAddToGroup(ctx, memberID); err != nil {
		return err
	}

	if err := s.conversations.AddParticipant(ctx, conv.ID, memberID); err != nil {
		return err
	}

	audit.LogWithDetail(ctx, audit.ActionAddMember, userID, memberID, "group member added")
	return nil
}

// RemoveMember removes memberID from a group conversation. Admin only;
// removing an absent member is a no-op.
func (s *conversationService) RemoveMember(ctx context.Context, userID, conversationID, memberID string) error {
	conv, err := s.getAdministered(ctx, userID, conversationID)
	if err != nil {
		return err
	}

	if err := s.conversations.RemoveParticipant(ctx, conv.ID, memberID); err != nil {
		return err
	}

	audit.LogWithDetail(ctx, audit.ActionRemoveMember, userID, memberID, "group member removed")
	return nil
}

// AppendMessage appends a message from senderID to the conversation. The
// sender must be a current participant; the conversation's latest-message
// pointer advances atomically with the insert.
func (s *conversationService) AppendMessage(ctx context.Context, senderID, conversationID, content string) (*domain.MessageView, error) {
	l := pkglog.Ctx(ctx)

	conv, err := s.getParticipating(ctx, senderID, conversationID)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        content,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return nil, ErrConversationNotFound
		}
		l.Error().Err(err).
			Str(pkglog.FieldConversationID, conv.ID).
			Msg("failed to append message")
		return nil, err
	}

	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	view := messageView(msg, sender)
	return &view, nil
}

// ListMessages returns the conversation's messages in send order, hydrated
// with sender summaries. Participants only.
func (s *conversationService) ListMessages(ctx context.Context, userID, conversationID string) ([]domain.MessageView, error) {
	conv, err := s.getParticipating(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	messages, err := s.messages.ListByConversation(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	senderIDs := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, m := range messages {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			senderIDs = append(senderIDs, m.SenderID)
		}
	}

	senders, err := s.users.GetByIDs(ctx, senderIDs)
	if err != nil {
		return nil, err
	}

	views := make([]domain.MessageView, len(messages))
	for i := range messages {
		sender, ok := senders[messages[i].SenderID]
		if ok {
			views[i] = messageView(&messages[i], &sender)
		} else {
			views[i] = messageView(&messages[i], nil)
		}
	}
	return views, nil
}

// getParticipating loads a conversation and verifies userID belongs to it.
func (s *conversationService) getParticipating(ctx context.Context, userID, conversationID string) (*domain.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

// getAdministered loads a group conversation and verifies userID is its
// admin.
func (s *conversationService) getAdministered(ctx context.Context, userID, conversationID string) (*domain.Conversation, error) {
	conv, err := s.getParticipating(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.Kind != domain.KindGroup {
		return nil, ErrNotGroup
	}
	if !conv.IsAdmin(userID) {
		return nil, ErrNotAdmin
	}
	return conv, nil
}

// buildView hydrates a single conversation for the given caller.
func (s *conversationService) buildView(ctx context.Context, conv *domain.Conversation, callerID string) (*domain.ConversationView, error) {
	views, err := s.buildViews(ctx, []domain.Conversation{*conv}, callerID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// buildViews hydrates conversations in bulk: one batch user load covers all
// participants and latest-message senders.
func (s *conversationService) buildViews(ctx context.Context, conversations []domain.Conversation, callerID string) ([]domain.ConversationView, error) {
	latest := make(map[string]*domain.Message, len(conversations))
	userIDs := make([]string, 0, len(conversations)*2)
	seen := make(map[string]struct{})
	collect := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			userIDs = append(userIDs, id)
		}
	}

	for i := range conversations {
		conv := &conversations[i]
		for _, p := range conv.Participants {
			collect(p)
		}
		if conv.LatestMessageID != "" {
			msg, err := s.messages.GetByID(ctx, conv.LatestMessageID)
			if err != nil {
				if errors.Is(err, repository.ErrMessageNotFound) {
					continue
				}
				return nil, err
			}
			latest[conv.ID] = msg
			collect(msg.SenderID)
		}
	}

	users, err := s.users.GetByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	views := make([]domain.ConversationView, len(conversations))
	for i := range conversations {
		conv := &conversations[i]

		view := domain.ConversationView{
			ID:          conv.ID,
			Kind:        conv.Kind,
			DisplayName: conv.DisplayName,
			AvatarURL:   conv.AvatarURL,
			Peers:       make([]domain.UserSummary, 0, len(conv.Participants)),
			CreatedAt:   conv.CreatedAt,
			UpdatedAt:   conv.UpdatedAt,
		}
		for _, p := range conv.Participants {
			if p == callerID {
				continue
			}
			if u, ok := users[p]; ok {
				view.Peers = append(view.Peers, u.Summary())
			} else {
				view.Peers = append(view.Peers, domain.UserSummary{ID: p})
			}
		}
		if conv.AdminID != "" {
			if u, ok := users[conv.AdminID]; ok {
				summary := u.Summary()
				view.Admin = &summary
			} else {
				view.Admin = &domain.UserSummary{ID: conv.AdminID}
			}
		}
		if msg, ok := latest[conv.ID]; ok {
			var mv domain.MessageView
			if u, found := users[msg.SenderID]; found {
				mv = messageView(msg, &u)
			} else {
				mv = messageView(msg, nil)
			}
			view.LatestMessage = &mv
		}

		views[i] = view
	}
	return views, nil
}

// messageView hydrates a message with its sender's summary. A nil sender
// falls back to the bare ID, covering users that left the projection.
func messageView(msg *domain.Message, sender *domain.User) domain.MessageView {
	view := domain.MessageView{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Content:        msg.Content,
		Sender:         domain.UserSummary{ID: msg.SenderID},
		CreatedAt:      msg.CreatedAt,
	}
	if sender != nil {
		view.Sender = sender.Summary()
	}
	return view
}

// dedupe returns ids with duplicates and the excluded id removed, order
// preserved.
func dedupe(ids []string, exclude string) []string {
	out := make([]string, 0, len(ids))
	seen := map[string]struct{}{exclude: {}}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
