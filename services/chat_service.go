package services

import (
	"chat-backend/contract"
	"chat-backend/domain"
	"chat-backend/errors"
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/samber/lo"
)

// ChatService covers the chat-level operations of the API surface:
// idempotent creation, listing and participant-profile propagation.
type ChatService struct {
	log       *slog.Logger
	chats     contract.ChatRepository
	directory contract.UserDirectory
}

func NewChatService(log *slog.Logger, chats contract.ChatRepository, directory contract.UserDirectory) *ChatService {
	return &ChatService{log: log, chats: chats, directory: directory}
}

// CreateChat resolves the participant profiles and performs the idempotent
// find-or-insert keyed on the canonical participant list. The requesting
// user must be part of the participant set.
func (s *ChatService) CreateChat(ctx context.Context, userID int64, userIDs []int64) (domain.Chat, error) {
	if !lo.Contains(userIDs, userID) {
		s.log.Error("User attempted to create a chat that he is not related to.",
			"user_id", userID, "event_type", "Unrelated user creates chat.")
		return domain.Chat{}, errors.NewChatCreationDenied()
	}

	relatedUsers, err := s.directory.ResolveUsers(ctx, userIDs)
	if err != nil {
		return domain.Chat{}, err
	}

	chat, key, err := s.chats.GetOrCreateChat(ctx, domain.NewChat(relatedUsers))
	if err != nil {
		return domain.Chat{}, fmt.Errorf("get or create chat: %w", err)
	}

	if chat.ID == "" {
		if err := s.chats.AssignExternalID(ctx, key); err != nil {
			return domain.Chat{}, fmt.Errorf("assign chat id: %w", err)
		}
		chat.ID = strconv.FormatUint(key, 10)
	}
	return chat, nil
}

// GetChats lists the chats the user takes part in that already carry
// messages.
func (s *ChatService) GetChats(ctx context.Context, userID int64) ([]domain.Chat, error) {
	return s.chats.GetChats(ctx, userID)
}

// UpdateRelatedUser propagates a fresh profile snapshot into every chat the
// user belongs to. Only the user themself may push their own profile.
func (s *ChatService) UpdateRelatedUser(ctx context.Context, userID int64, profile domain.RelatedUser) error {
	if userID != profile.ID {
		return errors.NewChatUpdatingDenied()
	}
	return s.chats.ReplaceRelatedUser(ctx, profile.ID, profile)
}
