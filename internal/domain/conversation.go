package domain

import (
	"time"
)

// ConversationKind discriminates direct and group conversations.
type ConversationKind string

const (
	KindDirect ConversationKind = "direct"
	KindGroup  ConversationKind = "group"
)

// Conversation is the domain representation of a conversation record.
// AdminID is set only for group conversations.
type Conversation struct {
	ID              string           `json:"id"`
	Kind            ConversationKind `json:"kind"`
	AdminID         string           `json:"admin_id,omitempty"`
	DisplayName     string           `json:"display_name,omitempty"`
	AvatarURL       string           `json:"avatar_url,omitempty"`
	LatestMessageID string           `json:"latest_message_id,omitempty"`
	Participants    []string         `json:"participants"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// IsAdmin reports whether userID holds admin authority over the conversation.
func (c *Conversation) IsAdmin(userID string) bool {
	return c.Kind == KindGroup && c.AdminID == userID
}

// HasParticipant reports whether userID is a current participant.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// DirectPairKey normalizes an unordered user pair into the dedup key used
// by the unique index on conversations.pair_key.
func DirectPairKey(a, b string) string {
	if a < b {
		return a + ":" + b
	}
	return b + ":" + a
}

// CreateDirectRequest is the request body for opening a direct conversation.
type CreateDirectRequest struct {
	TargetID string `json:"target_id" binding:"required"`
}

// CreateGroupRequest is the multipart form for creating a group conversation.
// The avatar file part is handled separately at the handler boundary.
type CreateGroupRequest struct {
	Name      string   `form:"name" binding:"required,min=1,max=100"`
	MemberIDs []string `form:"member_ids" binding:"required"`
}

// RenameRequest is the request body for renaming a group conversation.
type RenameRequest struct {
	Name string `form:"name" json:"name" binding:"required,min=1,max=100"`
}

// AddMemberRequest is the request body for adding a group member.
type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// UserSummary is the hydrated projection of a referenced user.
type UserSummary struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// ConversationView is the fully hydrated read model of a conversation,
// built for a specific caller: peers exclude the caller themselves.
type ConversationView struct {
	ID            string           `json:"id"`
	Kind          ConversationKind `json:"kind"`
	DisplayName   string           `json:"display_name,omitempty"`
	AvatarURL     string           `json:"avatar_url,omitempty"`
	Admin         *UserSummary     `json:"admin,omitempty"`
	Peers         []UserSummary    `json:"peers"`
	LatestMessage *MessageView     `json:"latest_message,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}
