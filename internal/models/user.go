package models

import "time"

// User represents a registered account.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Avatar       string     `json:"avatar,omitempty"`
	CanShow      bool       `json:"can_show"`     // discoverable via user search
	AgreeScreen  bool       `json:"agree_screen"` // screenshot consent flag
	LastOnline   *time.Time `json:"last_online,omitempty"`
	LastTyping   *time.Time `json:"last_typing,omitempty"`
}

// UserStatus is the presence snapshot returned by get_last_status.
type UserStatus struct {
	FromUserID int64      `json:"fromUserId"`
	LastOnline *time.Time `json:"last_online"`
	LastTyping *time.Time `json:"last_typing"`
}
