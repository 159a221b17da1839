// Package domain contains core concepts of the chat system.
// This file defines the Message entity and its lifecycle rules.
package domain

import "time"

// TimeFormat is the wire representation of timestamps, microsecond precision.
const TimeFormat = "2006-01-02T15:04:05.000000Z"

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// RejectReason is the closed set of reasons a message can be refused.
type RejectReason string

const (
	RejectReasonDuplicated       RejectReason = "Duplicated client_message_id."
	RejectReasonInvalidChatID    RejectReason = "An invalid chat id. Such chat does not exist in the database."
	RejectReasonNotRelatedToChat RejectReason = "The sender and/or the recipient are not related to the specified chat."
)

// Message represents a single chat communication.
//
// ID stays empty until the message is persisted and the storage key has been
// copied into it. A rejected message is never persisted: it only lives in
// memory and in the outbound publish that carries the reject reason back.
type Message struct {
	ID              string       `json:"id"`
	ClientMessageID string       `json:"client_message_id"`
	ChatID          string       `json:"chat_id"`
	SenderID        int64        `json:"sender_id"`
	RecipientID     int64        `json:"recipient_id"`
	Status          Status       `json:"status"`
	RejectReason    RejectReason `json:"reject_reason,omitempty"`
	SentAt          string       `json:"sent_at"`
	DeliveredAt     string       `json:"delivered_at"`
	Body            string       `json:"body"`
	IsEdited        bool         `json:"is_edited"`
	IsDeleted       bool         `json:"is_deleted"`
}

// NewMessage builds a pending message from validated ingestion data.
// DeliveredAt is stamped here: it marks the arrival on the backend side.
func NewMessage(clientMessageID, chatID string, senderID, recipientID int64, sentAt, body string) Message {
	return Message{
		ClientMessageID: clientMessageID,
		ChatID:          chatID,
		SenderID:        senderID,
		RecipientID:     recipientID,
		Status:          StatusPending,
		SentAt:          sentAt,
		DeliveredAt:     time.Now().UTC().Format(TimeFormat),
		Body:            body,
	}
}

// Reject marks the message refused. Calling it again overwrites the reason:
// the last failed check wins, matching the validation order of the pipeline.
func (m *Message) Reject(reason RejectReason) {
	m.Status = StatusRejected
	m.RejectReason = reason
}

func (m *Message) Accept() {
	m.Status = StatusAccepted
	m.RejectReason = ""
}
