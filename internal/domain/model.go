package domain

import (
	"time"
)

// ConversationModel is the GORM model for the conversations table.
// PairKey is set only for direct conversations: the unique index on it is
// what guarantees at most one direct conversation per unordered user pair,
// even under concurrent creation. Group rows leave it NULL.
type ConversationModel struct {
	ID              string    `gorm:"type:varchar(36);primaryKey"`
	Kind            string    `gorm:"type:varchar(10);not null"`
	PairKey         *string   `gorm:"column:pair_key;type:varchar(80);uniqueIndex:uidx_direct_pair"`
	AdminID         *string   `gorm:"column:admin_id;type:varchar(36)"`
	DisplayName     string    `gorm:"type:varchar(100)"`
	AvatarURL       string    `gorm:"type:text"`
	LatestMessageID *string   `gorm:"column:latest_message_id;type:varchar(36)"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime;index"`
}

func (ConversationModel) TableName() string { return "conversations" }

// ParticipantModel is the GORM model for conversation membership rows.
// The composite unique index gives membership set semantics: a duplicate
// add is a constraint violation, not a second row.
type ParticipantModel struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	ConversationID string    `gorm:"column:conversation_id;type:varchar(36);not null;uniqueIndex:uidx_conversation_member;index"`
	UserID         string    `gorm:"column:user_id;type:varchar(36);not null;uniqueIndex:uidx_conversation_member;index"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (ParticipantModel) TableName() string { return "conversation_participants" }

// MessageModel is the GORM model for the messages table. Rows are immutable.
type MessageModel struct {
	ID             string    `gorm:"type:varchar(36);primaryKey"`
	ConversationID string    `gorm:"column:conversation_id;type:varchar(36);not null;index:idx_message_conversation_time,priority:1"`
	SenderID       string    `gorm:"column:sender_id;type:varchar(36);not null"`
	Content        string    `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index:idx_message_conversation_time,priority:2"`
}

func (MessageModel) TableName() string { return "messages" }

// FollowModel is the GORM model for the follows table. The composite
// unique index is the source of truth for edge uniqueness; the two
// single-column indexes back the follower/following counts.
type FollowModel struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	FollowerID string    `gorm:"column:follower_id;type:varchar(36);not null;uniqueIndex:uidx_follow_pair;index:idx_follow_follower"`
	FollowedID string    `gorm:"column:followed_id;type:varchar(36);not null;uniqueIndex:uidx_follow_pair;index:idx_follow_followed"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (FollowModel) TableName() string { return "follows" }

// UserModel is the local projection of the externally-owned user record.
// It is written only by the CDC consumer; the request path reads it for
// privacy flags and hydration.
type UserModel struct {
	ID            string    `gorm:"type:varchar(36);primaryKey"`
	Username      string    `gorm:"type:varchar(50);uniqueIndex"`
	DisplayName   string    `gorm:"type:varchar(100)"`
	AvatarURL     string    `gorm:"type:text"`
	AllowChat     bool      `gorm:"not null"`
	AllowGroupAdd bool      `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string { return "users" }

// ToDomain converts ConversationModel to a domain Conversation.
// Participants are stored separately and attached by the repository.
func (m *ConversationModel) ToDomain() *Conversation {
	c := &Conversation{
		ID:          m.ID,
		Kind:        ConversationKind(m.Kind),
		DisplayName: m.DisplayName,
		AvatarURL:   m.AvatarURL,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.AdminID != nil {
		c.AdminID = *m.AdminID
	}
	if m.LatestMessageID != nil {
		c.LatestMessageID = *m.LatestMessageID
	}
	return c
}

// ConversationToModel converts a domain Conversation to its GORM model.
func ConversationToModel(c *Conversation) *ConversationModel {
	m := &ConversationModel{
		ID:          c.ID,
		Kind:        string(c.Kind),
		DisplayName: c.DisplayName,
		AvatarURL:   c.AvatarURL,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	if c.Kind == KindDirect {
		key := DirectPairKey(c.Participants[0], c.Participants[1])
		m.PairKey = &key
	}
	if c.AdminID != "" {
		admin := c.AdminID
		m.AdminID = &admin
	}
	if c.LatestMessageID != "" {
		latest := c.LatestMessageID
		m.LatestMessageID = &latest
	}
	return m
}

// ToDomain converts MessageModel to a domain Message.
func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}

// MessageToModel converts a domain Message to its GORM model.
func MessageToModel(msg *Message) *MessageModel {
	return &MessageModel{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	}
}

// ToDomain converts UserModel to a domain User.
func (m *UserModel) ToDomain() *User {
	return &User{
		ID:            m.ID,
		Username:      m.Username,
		DisplayName:   m.DisplayName,
		AvatarURL:     m.AvatarURL,
		AllowChat:     m.AllowChat,
		AllowGroupAdd: m.AllowGroupAdd,
	}
}

// UserToModel converts a domain User to its GORM model.
func UserToModel(u *User) *UserModel {
	return &UserModel{
		ID:            u.ID,
		Username:      u.Username,
		DisplayName:   u.DisplayName,
		AvatarURL:     u.AvatarURL,
		AllowChat:     u.AllowChat,
		AllowGroupAdd: u.AllowGroupAdd,
	}
}
