package ws

import (
	"encoding/json"
	"strconv"
	"strings"
)

// envelope is the wire format for client-to-server events.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Inbound event names. Dispatch is a closed switch over these; unknown
// events are counted and dropped.
const (
	evRegister       = "register"
	evLogin          = "login"
	evSendMessage    = "send_message"
	evGetDialogs     = "get_dialogs"
	evGetMessages    = "get_messages"
	evSearchUsers    = "search_users"
	evSetCanShow     = "set_can_show"
	evGetCanShow     = "get_can_show"
	evGetLastStatus  = "get_last_status"
	evUpdateTyping   = "update_typing"
	evUpdateOnline   = "update_online"
	evChangePassword = "change_password"
	evUploadAvatar   = "upload_avatar"
	evGetAvatar      = "get_avatar"
	evGetUsername    = "get_username"
	evSetAgreeScreen = "set_agree_screen"
	evGetAgreeScreen = "get_agree_screen"
	evDeleteMessage  = "delete_message"
	evReadMessage    = "read_message"
	evEditMessage    = "edit_message"
	evCallUser       = "call_user"
	evAnswerCall     = "answer_call"
	evIceCandidate   = "ice_candidate"
	evEndCall        = "end_call"
)

type credentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sendMessagePayload struct {
	To      int64  `json:"to"`
	Content string `json:"content"`
	ReplyTo string `json:"reply_to"`
}

// replyToID parses the client-supplied reply reference. Empty or
// non-numeric values degrade to no reference; existence is only checked
// at read time via the join.
func (p sendMessagePayload) replyToID() *int64 {
	trimmed := strings.TrimSpace(p.ReplyTo)
	if trimmed == "" {
		return nil
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

type getMessagesPayload struct {
	WithUserID int64 `json:"withUserId"`
	Offset     int   `json:"offset"`
	Limit      int   `json:"limit"`
}

type searchUsersPayload struct {
	Query string `json:"query"`
}

type withUserPayload struct {
	WithUserID int64 `json:"withUserId"`
}

type typingPayload struct {
	To int64 `json:"to"`
}

type changePasswordPayload struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type avatarPayload struct {
	AvatarPath string `json:"avatarPath"`
}

type messageRefPayload struct {
	ID         int64 `json:"id"`
	WithUserID int64 `json:"withUserId"`
}

type editMessagePayload struct {
	ID         int64  `json:"id"`
	Content    string `json:"content"`
	WithUserID int64  `json:"withUserId"`
}

type callOfferPayload struct {
	To    int64           `json:"to"`
	Offer json.RawMessage `json:"offer"`
}

type callAnswerPayload struct {
	To     int64           `json:"to"`
	Answer json.RawMessage `json:"answer"`
}

type iceCandidatePayload struct {
	To        int64           `json:"to"`
	Candidate json.RawMessage `json:"candidate"`
}

type callEndPayload struct {
	To int64 `json:"to"`
}
