package models

import "time"

// MessageType classifies internal messages.
type MessageType string

const (
	MessageGeneral      MessageType = "GENERAL"
	MessageAnnouncement MessageType = "ANNOUNCEMENT"
	MessageUrgent       MessageType = "URGENT"
)

// Valid reports whether the message type is one of the known kinds.
func (t MessageType) Valid() bool {
	switch t {
	case MessageGeneral, MessageAnnouncement, MessageUrgent:
		return true
	}
	return false
}

// MessagePriority orders messages in inbox views.
type MessagePriority string

const (
	PriorityLow    MessagePriority = "LOW"
	PriorityNormal MessagePriority = "NORMAL"
	PriorityHigh   MessagePriority = "HIGH"
)

// Valid reports whether the priority is one of the known values.
func (p MessagePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// Message is an internal message sent by one user to one or more recipients.
type Message struct {
	ID          int64           `db:"id" json:"id"`
	SenderID    int64           `db:"sender_id" json:"sender_id"`
	SenderName  string          `db:"sender_name" json:"sender_name,omitempty"`
	SenderEmail string          `db:"sender_email" json:"sender_email,omitempty"`
	Subject     string          `db:"subject" json:"subject"`
	Content     string          `db:"content" json:"content"`
	MessageType MessageType     `db:"message_type" json:"message_type"`
	Priority    MessagePriority `db:"priority" json:"priority"`
	IsBroadcast bool            `db:"is_broadcast" json:"is_broadcast"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`

	// Read state for the viewing recipient; nil on sender-side views.
	IsRead *bool      `db:"is_read" json:"is_read,omitempty"`
	ReadAt *time.Time `db:"read_at" json:"read_at,omitempty"`

	Recipients []MessageRecipient `db:"-" json:"recipients,omitempty"`
}

// SendMessageRequest is the payload for sending a message. Broadcast messages
// ignore RecipientIDs and reach every enabled account except the sender.
type SendMessageRequest struct {
	Subject      string          `json:"subject" validate:"required,max=200"`
	Content      string          `json:"content" validate:"required"`
	MessageType  MessageType     `json:"message_type" validate:"required"`
	Priority     MessagePriority `json:"priority" validate:"required"`
	RecipientIDs []int64         `json:"recipient_ids"`
	Broadcast    bool            `json:"broadcast"`
}

// MessageRecipient tracks per-recipient delivery and read state.
type MessageRecipient struct {
	ID             int64      `db:"id" json:"id"`
	MessageID      int64      `db:"message_id" json:"message_id"`
	RecipientID    int64      `db:"recipient_id" json:"recipient_id"`
	RecipientName  string     `db:"recipient_name" json:"recipient_name,omitempty"`
	RecipientEmail string     `db:"recipient_email" json:"recipient_email,omitempty"`
	IsRead         bool       `db:"is_read" json:"is_read"`
	ReadAt         *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}
