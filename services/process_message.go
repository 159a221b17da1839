package services

import (
	"chat-backend/contract"
	"chat-backend/domain"
	"chat-backend/errors"
	"context"
	"fmt"
	"log/slog"
)

// MessageProcessor runs a pending message through the acceptance pipeline:
// dedup check, chat lookup, participant check, persistence, counter update
// and outbound publish.
//
// It is driven by a single worker, so all chat counter and message writes are
// serialized through it and no locking is needed here. A store or publish
// failure propagates to the caller; the broker's at-least-once redelivery is
// the recovery mechanism.
type MessageProcessor struct {
	log       *slog.Logger
	chats     contract.ChatRepository
	messages  contract.MessageRepository
	publisher contract.Publisher
}

func NewMessageProcessor(
	log *slog.Logger,
	chats contract.ChatRepository,
	messages contract.MessageRepository,
	publisher contract.Publisher,
) *MessageProcessor {
	return &MessageProcessor{log: log, chats: chats, messages: messages, publisher: publisher}
}

// Process takes a pending message to its final state and publishes that state
// exactly once, whether the message was accepted or rejected.
func (p *MessageProcessor) Process(ctx context.Context, message domain.Message) error {
	chat, err := p.validate(ctx, &message)
	if err != nil {
		return err
	}

	if message.Status == domain.StatusPending {
		p.enforcePermissionPolicy(chat, &message)
	}

	if message.Status == domain.StatusPending {
		message, err = p.persist(ctx, message)
		if err != nil {
			return err
		}
	}

	if err := p.publisher.PublishMessage(ctx, message); err != nil {
		return fmt.Errorf("publish processed message: %w", err)
	}
	return nil
}

// validate runs the dedup check and the chat lookup. Both always run, they
// are independent checks: a duplicated message pointing at a dead chat ends
// up rejected with the chat reason, since the later check overwrites the
// earlier one.
func (p *MessageProcessor) validate(ctx context.Context, message *domain.Message) (domain.Chat, error) {
	exists, err := p.messages.Exists(ctx, message.ClientMessageID)
	if err != nil {
		return domain.Chat{}, fmt.Errorf("dedup check: %w", err)
	}
	if exists {
		message.Reject(domain.RejectReasonDuplicated)
	}

	chat, err := p.chats.GetChatByID(ctx, message.ChatID)
	if err == errors.ErrChatNotFound {
		message.Reject(domain.RejectReasonInvalidChatID)
		return domain.Chat{}, nil
	}
	if err != nil {
		return domain.Chat{}, fmt.Errorf("chat lookup: %w", err)
	}
	return chat, nil
}

// enforcePermissionPolicy accepts the message only if the chat's participant
// set is exactly {sender, recipient}.
func (p *MessageProcessor) enforcePermissionPolicy(chat domain.Chat, message *domain.Message) {
	if !chat.RelatedTo(message.SenderID, message.RecipientID) {
		message.Reject(domain.RejectReasonNotRelatedToChat)
	}
}

// persist stores the accepted message with two-phase identifier assignment
// and increments the owning chat's counter by exactly one.
func (p *MessageProcessor) persist(ctx context.Context, message domain.Message) (domain.Message, error) {
	message.Accept()

	key, err := p.messages.Create(ctx, message)
	if err != nil {
		return domain.Message{}, fmt.Errorf("create message: %w", err)
	}
	stored, err := p.messages.AssignExternalID(ctx, key)
	if err != nil {
		return domain.Message{}, fmt.Errorf("assign message id: %w", err)
	}
	if err := p.chats.IncrementMessagesCount(ctx, stored.ChatID); err != nil {
		return domain.Message{}, fmt.Errorf("increment messages count: %w", err)
	}
	return stored, nil
}
