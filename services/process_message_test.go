package services

import (
	"chat-backend/domain"
	"chat-backend/errors"
	"chat-backend/mocks"
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func pendingMessage() domain.Message {
	return domain.NewMessage("c0ffee-1", "7", 1, 2, "2026-01-02T10:20:30.000000Z", "hello")
}

func relatedChat() domain.Chat {
	chat := domain.NewChat([]domain.RelatedUser{{ID: 1, Username: "alice"}, {ID: 2, Username: "bob"}})
	chat.ID = "7"
	return chat
}

func TestMessageProcessor_Process(t *testing.T) {
	ctx := context.Background()
	log := slog.Default()

	t.Run("should accept, persist and publish a valid message", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		chats := mocks.NewMockChatRepository(ctrl)
		messages := mocks.NewMockMessageRepository(ctrl)
		publisher := mocks.NewMockPublisher(ctrl)
		processor := NewMessageProcessor(log, chats, messages, publisher)

		message := pendingMessage()
		stored := message
		stored.Accept()
		stored.ID = "42"

		messages.EXPECT().Exists(gomock.Any(), message.ClientMessageID).Return(false, nil).Times(1)
		chats.EXPECT().GetChatByID(gomock.Any(), message.ChatID).Return(relatedChat(), nil).Times(1)
		messages.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, m domain.Message) (uint64, error) {
				req.Equal(domain.StatusAccepted, m.Status)
				return uint64(42), nil
			}).
			Times(1)
		messages.EXPECT().AssignExternalID(gomock.Any(), uint64(42)).Return(stored, nil).Times(1)
		chats.EXPECT().IncrementMessagesCount(gomock.Any(), "7").Return(nil).Times(1)

		var published domain.Message
		publisher.EXPECT().
			PublishMessage(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, m domain.Message) error {
				published = m
				return nil
			}).
			Times(1)

		err := processor.Process(ctx, message)

		req.NoError(err)
		req.Equal(domain.StatusAccepted, published.Status)
		req.Equal("42", published.ID)
		req.Empty(published.RejectReason)
	})

	t.Run("should reject a duplicated client_message_id without writing", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		chats := mocks.NewMockChatRepository(ctrl)
		messages := mocks.NewMockMessageRepository(ctrl)
		publisher := mocks.NewMockPublisher(ctrl)
		processor := NewMessageProcessor(log, chats, messages, publisher)

		message := pendingMessage()

		messages.EXPECT().Exists(gomock.Any(), message.ClientMessageID).Return(true, nil).Times(1)
		chats.EXPECT().GetChatByID(gomock.Any(), message.ChatID).Return(relatedChat(), nil).Times(1)
		messages.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
		chats.EXPECT().IncrementMessagesCount(gomock.Any(), gomock.Any()).Times(0)

		var published domain.Message
		publisher.EXPECT().
			PublishMessage(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, m domain.Message) error {
				published = m
				return nil
			}).
			Times(1)

		req.NoError(processor.Process(ctx, message))
		req.Equal(domain.StatusRejected, published.Status)
		req.Equal(domain.RejectReasonDuplicated, published.RejectReason)
		req.Empty(published.ID)
	})

	t.Run("should reject a message pointing at an unknown chat", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		chats := mocks.NewMockChatRepository(ctrl)
		messages := mocks.NewMockMessageRepository(ctrl)
		publisher := mocks.NewMockPublisher(ctrl)
		processor := NewMessageProcessor(log, chats, messages, publisher)

		message := pendingMessage()

		messages.EXPECT().Exists(gomock.Any(), message.ClientMessageID).Return(false, nil).Times(1)
		chats.EXPECT().GetChatByID(gomock.Any(), message.ChatID).Return(domain.Chat{}, errors.ErrChatNotFound).Times(1)

		var published domain.Message
		publisher.EXPECT().
			PublishMessage(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, m domain.Message) error {
				published = m
				return nil
			}).
			Times(1)

		req.NoError(processor.Process(ctx, message))
		req.Equal(domain.StatusRejected, published.Status)
		req.Equal(domain.RejectReasonInvalidChatID, published.RejectReason)
	})

	t.Run("should report the chat reason when both dedup and chat checks fail", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		chats := mocks.NewMockChatRepository(ctrl)
		messages := mocks.NewMockMessageRepository(ctrl)
		publisher := mocks.NewMockPublisher(ctrl)
		processor := NewMessageProcessor(log, chats, messages, publisher)

		message := pendingMessage()

		messages.EXPECT().Exists(gomock.Any(), message.ClientMessageID).Return(true, nil).Times(1)
		chats.EXPECT().GetChatByID(gomock.Any(), message.ChatID).Return(domain.Chat{}, errors.ErrChatNotFound).Times(1)

		var published domain.Message
		publisher.EXPECT().
			PublishMessage(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, m domain.Message) error {
				published = m
				return nil
			}).
			Times(1)

		req.NoError(processor.Process(ctx, message))
		req.Equal(domain.RejectReasonInvalidChatID, published.RejectReason)
	})

	t.Run("should reject a message whose pair is not the chat's participants", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		chats := mocks.NewMockChatRepository(ctrl)
		messages := mocks.NewMockMessageRepository(ctrl)
		publisher := mocks.NewMockPublisher(ctrl)
		processor := NewMessageProcessor(log, chats, messages, publisher)

		message := pendingMessage()
		foreignChat := domain.NewChat([]domain.RelatedUser{{ID: 1}, {ID: 3}})
		foreignChat.ID = "7"

		messages.EXPECT().Exists(gomock.Any(), message.ClientMessageID).Return(false, nil).Times(1)
		chats.EXPECT().GetChatByID(gomock.Any(), message.ChatID).Return(foreignChat, nil).Times(1)
		messages.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

		var published domain.Message
		publisher.EXPECT().
			PublishMessage(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, m domain.Message) error {
				published = m
				return nil
			}).
			Times(1)

		req.NoError(processor.Process(ctx, message))
		req.Equal(domain.StatusRejected, published.Status)
		req.Equal(domain.RejectReasonNotRelatedToChat, published.RejectReason)
	})

	t.Run("should surface a store failure without publishing", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		chats := mocks.NewMockChatRepository(ctrl)
		messages := mocks.NewMockMessageRepository(ctrl)
		publisher := mocks.NewMockPublisher(ctrl)
		processor := NewMessageProcessor(log, chats, messages, publisher)

		message := pendingMessage()
		storeErr := fmt.Errorf("disk on fire")

		messages.EXPECT().Exists(gomock.Any(), message.ClientMessageID).Return(false, nil).Times(1)
		chats.EXPECT().GetChatByID(gomock.Any(), message.ChatID).Return(relatedChat(), nil).Times(1)
		messages.EXPECT().Create(gomock.Any(), gomock.Any()).Return(uint64(0), storeErr).Times(1)
		publisher.EXPECT().PublishMessage(gomock.Any(), gomock.Any()).Times(0)

		err := processor.Process(ctx, message)
		req.ErrorIs(err, storeErr)
	})

	t.Run("should surface a publish failure", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		chats := mocks.NewMockChatRepository(ctrl)
		messages := mocks.NewMockMessageRepository(ctrl)
		publisher := mocks.NewMockPublisher(ctrl)
		processor := NewMessageProcessor(log, chats, messages, publisher)

		message := pendingMessage()
		stored := message
		stored.Accept()
		stored.ID = "42"
		publishErr := fmt.Errorf("broker is gone")

		messages.EXPECT().Exists(gomock.Any(), message.ClientMessageID).Return(false, nil).Times(1)
		chats.EXPECT().GetChatByID(gomock.Any(), message.ChatID).Return(relatedChat(), nil).Times(1)
		messages.EXPECT().Create(gomock.Any(), gomock.Any()).Return(uint64(42), nil).Times(1)
		messages.EXPECT().AssignExternalID(gomock.Any(), uint64(42)).Return(stored, nil).Times(1)
		chats.EXPECT().IncrementMessagesCount(gomock.Any(), "7").Return(nil).Times(1)
		publisher.EXPECT().PublishMessage(gomock.Any(), stored).Return(publishErr).Times(1)

		err := processor.Process(ctx, message)
		req.ErrorIs(err, publishErr)
	})
}
