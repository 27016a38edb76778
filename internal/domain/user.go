package domain

import "time"

// Roles carried in JWT claims by the identity service.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// NotificationPrefs are the recipient-side switches checked at emission time.
// Chat gates private messages entirely (a disabled chat channel rejects the
// send, it does not just suppress the notification).
type NotificationPrefs struct {
	Chat       bool `json:"chat" dynamodbav:"chat"`
	Email      bool `json:"email" dynamodbav:"email"`
	Newsletter bool `json:"newsletter" dynamodbav:"newsletter"`
}

// User is the profile record owned by the external identity service. This
// core only reads it: existence checks, preference gating and mention
// resolution.
type User struct {
	UserID    string            `json:"id" dynamodbav:"user_id"`
	Username  string            `json:"username" dynamodbav:"username"`
	Email     string            `json:"email" dynamodbav:"email"`
	Phone     string            `json:"phone,omitempty" dynamodbav:"phone"`
	AvatarURL string            `json:"avatar_url,omitempty" dynamodbav:"avatar_url"`
	Prefs     NotificationPrefs `json:"notification_prefs" dynamodbav:"notification_prefs"`
	Enable    bool              `json:"enable" dynamodbav:"enable"`
	CreatedAt time.Time         `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time         `json:"updated" dynamodbav:"updated_at"`
}

// UserSummary is the minimal identity attached to read-side DTOs.
type UserSummary struct {
	UserID    string `json:"id" dynamodbav:"user_id"`
	Username  string `json:"username" dynamodbav:"username"`
	AvatarURL string `json:"avatar_url,omitempty" dynamodbav:"avatar_url"`
}

// Summary projects the public fields of a user.
func (u *User) Summary() UserSummary {
	return UserSummary{UserID: u.UserID, Username: u.Username, AvatarURL: u.AvatarURL}
}
