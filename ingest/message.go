package ingest

import (
	"chat-backend/domain"
	"chat-backend/errors"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// IncomingMessage is the typed, field-checked form of a broker record.
// It carries exactly the fields required to build a pending message.
type IncomingMessage struct {
	ClientMessageID string `json:"client_message_id" validate:"required"`
	ChatID          string `json:"chat_id" validate:"required"`
	SenderID        int64  `json:"sender_id" validate:"required"`
	RecipientID     int64  `json:"recipient_id" validate:"required"`
	SentAt          string `json:"sent_at" validate:"required"`
	Body            string `json:"body" validate:"required"`
}

// FromRecord checks a decoded record against the message schema.
// Extra keys are dropped; a missing or mistyped required field is a hard
// validation failure.
func FromRecord(record Record) (IncomingMessage, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return IncomingMessage{}, fmt.Errorf("%w: %v", errors.ErrInvalidSchema, err)
	}
	var message IncomingMessage
	if err := json.Unmarshal(raw, &message); err != nil {
		return IncomingMessage{}, fmt.Errorf("%w: %v", errors.ErrInvalidSchema, err)
	}
	if err := validate.Struct(message); err != nil {
		return IncomingMessage{}, fmt.Errorf("%w: %v", errors.ErrInvalidSchema, err)
	}
	return message, nil
}

// ToDomain builds the pending domain message this payload describes.
func (m IncomingMessage) ToDomain() domain.Message {
	return domain.NewMessage(m.ClientMessageID, m.ChatID, m.SenderID, m.RecipientID, m.SentAt, m.Body)
}
