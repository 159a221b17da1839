package workers

import (
	"chat-backend/domain"
	"chat-backend/ingest"
	"chat-backend/mocks"
	"chat-backend/services"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestProcessorWorker_Run(t *testing.T) {
	log := slog.Default()

	incoming := ingest.IncomingMessage{
		ClientMessageID: "c0ffee-1",
		ChatID:          "7",
		SenderID:        1,
		RecipientID:     2,
		SentAt:          "2026-01-02T10:20:30.000000Z",
		Body:            "hello",
	}

	t.Run("should drain the queue until it closes", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		chats := mocks.NewMockChatRepository(ctrl)
		messages := mocks.NewMockMessageRepository(ctrl)
		publisher := mocks.NewMockPublisher(ctrl)
		processor := services.NewMessageProcessor(log, chats, messages, publisher)

		chat := domain.NewChat([]domain.RelatedUser{{ID: 1}, {ID: 2}})
		chat.ID = "7"
		accepted := domain.Message{ID: "1", ChatID: "7", Status: domain.StatusAccepted}

		messages.EXPECT().Exists(gomock.Any(), "c0ffee-1").Return(false, nil).Times(1)
		chats.EXPECT().GetChatByID(gomock.Any(), "7").Return(chat, nil).Times(1)
		messages.EXPECT().Create(gomock.Any(), gomock.Any()).Return(uint64(1), nil).Times(1)
		messages.EXPECT().AssignExternalID(gomock.Any(), uint64(1)).Return(accepted, nil).Times(1)
		chats.EXPECT().IncrementMessagesCount(gomock.Any(), "7").Return(nil).Times(1)
		publisher.EXPECT().PublishMessage(gomock.Any(), accepted).Return(nil).Times(1)

		queue := make(chan ingest.IncomingMessage, 1)
		queue <- incoming
		close(queue)

		worker := NewProcessorWorker(log, queue, processor)
		req.NoError(worker.Run(context.Background()))
	})

	t.Run("should surface a processing failure to the supervisor", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		chats := mocks.NewMockChatRepository(ctrl)
		messages := mocks.NewMockMessageRepository(ctrl)
		publisher := mocks.NewMockPublisher(ctrl)
		processor := services.NewMessageProcessor(log, chats, messages, publisher)

		storeErr := fmt.Errorf("store down")
		messages.EXPECT().Exists(gomock.Any(), "c0ffee-1").Return(false, storeErr).Times(1)

		queue := make(chan ingest.IncomingMessage, 1)
		queue <- incoming

		worker := NewProcessorWorker(log, queue, processor)

		done := make(chan error, 1)
		go func() { done <- worker.Run(context.Background()) }()
		select {
		case err := <-done:
			req.ErrorIs(err, storeErr)
		case <-time.After(time.Second):
			req.Fail("Processor should return on failure")
		}
	})
}
