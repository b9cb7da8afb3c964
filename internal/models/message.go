package models

import "time"

// Message represents a direct message between two users.
// ReplyText and ReplyUserName are denormalized at read time by joining
// the replied-to row; a dangling ReplyTo leaves them null.
type Message struct {
	ID            int64     `json:"id"`
	SenderID      int64     `json:"sender_id"`
	ReceiverID    int64     `json:"receiver_id"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
	ReplyTo       *int64    `json:"reply_to"`
	Edited        bool      `json:"edited"`
	Read          bool      `json:"read"`
	ReplyText     *string   `json:"reply_text"`
	ReplyUserName *string   `json:"reply_user_name"`
}

// Dialog is one conversation summary: the counterpart plus the most
// recent message exchanged with them.
type Dialog struct {
	UserID      int64     `json:"id"`
	Username    string    `json:"username"`
	Avatar      string    `json:"avatar,omitempty"`
	AgreeScreen bool      `json:"agree_screen"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	SenderID    int64     `json:"sender_id"`
}
