package bus

import (
	"encoding/json"
	"time"
)

// Update is one raw chat-platform update waiting to be dispatched.
type Update struct {
	Channel    string          `json:"channel"`
	UpdateID   int64           `json:"update_id"`
	Raw        json.RawMessage `json:"raw"`
	ReceivedAt time.Time       `json:"received_at"`
}

type ReplyKind string

const (
	ReplyMessage        ReplyKind = "message"
	ReplyChatAction     ReplyKind = "chat_action"
	ReplyCallbackAnswer ReplyKind = "callback_answer"
)

// Reply is an outbound call produced by a handler, for transports that render
// replies themselves instead of calling the platform API.
type Reply struct {
	Channel    string    `json:"channel"`
	Kind       ReplyKind `json:"kind"`
	ChatID     int64     `json:"chat_id,omitempty"`
	CallbackID string    `json:"callback_id,omitempty"`
	Text       string    `json:"text,omitempty"`
}
