package domain

import (
	"time"
)

// Follow is the domain representation of a directed follow edge.
type Follow struct {
	FollowerID string    `json:"follower_id"`
	FollowedID string    `json:"followed_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// FollowToggleResult is returned by a follow toggle: the resulting edge
// state plus both derived counts.
type FollowToggleResult struct {
	IsFollowing bool  `json:"is_following"`
	Followers   int64 `json:"followers"`
	Following   int64 `json:"following"`
}
