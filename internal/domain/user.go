package domain

// User is the locally projected view of an externally-owned user record.
// Only the fields this service consumes are projected: the privacy flags
// and what is needed to hydrate conversation views.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	DisplayName   string `json:"display_name,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	AllowChat     bool   `json:"allow_chat"`
	AllowGroupAdd bool   `json:"allow_group_add"`
}

// Summary reduces a User to the hydration projection embedded in views.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}
