package services

import (
	"chat-backend/contract"
	"chat-backend/domain"
	"chat-backend/errors"
	"context"
	"fmt"
	"log/slog"
)

// MessagePage is one page of a chat's history, newest first.
//
// Cursor is the externalized id of the oldest message in the page and is
// empty when the page is. PreviousMessagesExist tells whether the chat holds
// messages older than this page. The cursor is derivable purely from the last
// page, so pagination survives restarts with no server-side state.
type MessagePage struct {
	Messages              []domain.Message `json:"messages"`
	Cursor                string           `json:"cursor"`
	PreviousMessagesExist bool             `json:"previous_messages_exist"`
}

// MessageService serves cursor-paginated message retrieval.
type MessageService struct {
	log      *slog.Logger
	chats    contract.ChatRepository
	messages contract.MessageRepository
}

func NewMessageService(log *slog.Logger, chats contract.ChatRepository, messages contract.MessageRepository) *MessageService {
	return &MessageService{log: log, chats: chats, messages: messages}
}

// GetMessages returns the page of chat messages strictly older than the
// cursor (or the newest page when the cursor is empty). The requesting user
// must be a participant of the chat.
func (s *MessageService) GetMessages(ctx context.Context, chatID string, userID int64, cursor string) (MessagePage, error) {
	if err := s.enforcePermissionPolicy(ctx, chatID, userID); err != nil {
		return MessagePage{}, err
	}

	messages, err := s.messages.GetChatMessages(ctx, chatID, cursor)
	if err != nil {
		return MessagePage{}, fmt.Errorf("get chat messages: %w", err)
	}

	page := MessagePage{Messages: messages}
	if len(messages) == 0 {
		return page, nil
	}

	oldest := messages[len(messages)-1]
	previousExist, err := s.messages.PreviousMessagesExist(ctx, chatID, oldest.ID)
	if err != nil {
		return MessagePage{}, fmt.Errorf("previous messages check: %w", err)
	}

	page.Cursor = oldest.ID
	page.PreviousMessagesExist = previousExist
	return page, nil
}

// enforcePermissionPolicy denies retrieval when the chat does not exist or
// the requesting user is not one of its participants.
func (s *MessageService) enforcePermissionPolicy(ctx context.Context, chatID string, userID int64) error {
	chat, err := s.chats.GetChatByID(ctx, chatID)
	if err == errors.ErrChatNotFound || (err == nil && !chat.HasParticipant(userID)) {
		s.log.Error("An attempt to retrieve messages of a chat that request user is not related to.",
			"user_id", userID, "event_type", "Messages requested by unrelated user.")
		return errors.NewMessagesRetrievalDenied()
	}
	return err
}
