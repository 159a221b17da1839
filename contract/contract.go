//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-backend/domain"
	"context"
	"reflect"
)

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// ChatRepository is the persistence port for chat aggregates.
//
// GetOrCreateChat performs an atomic find-matching-or-insert keyed on exact
// equality of the canonical related_users list. It returns the stored chat
// together with its storage-native key; a chat whose ID is still empty was
// just inserted and needs AssignExternalID.
type ChatRepository interface {
	GetOrCreateChat(ctx context.Context, chat domain.Chat) (domain.Chat, uint64, error)
	AssignExternalID(ctx context.Context, key uint64) error
	GetChatByID(ctx context.Context, id string) (domain.Chat, error)
	GetChats(ctx context.Context, userID int64) ([]domain.Chat, error)
	IncrementMessagesCount(ctx context.Context, id string) error
	ReplaceRelatedUser(ctx context.Context, userID int64, profile domain.RelatedUser) error
}

// MessageRepository is the persistence port for messages.
//
// Create returns the storage-native key of the inserted document.
// AssignExternalID copies that key, stringified, into the externally visible
// id field and returns the updated message (two-phase identifier assignment).
// GetChatMessages returns a page of the chat's messages newest-first,
// strictly older than the cursor when one is given.
type MessageRepository interface {
	Exists(ctx context.Context, clientMessageID string) (bool, error)
	Create(ctx context.Context, message domain.Message) (uint64, error)
	AssignExternalID(ctx context.Context, key uint64) (domain.Message, error)
	GetChatMessages(ctx context.Context, chatID, cursor string) ([]domain.Message, error)
	PreviousMessagesExist(ctx context.Context, chatID, cursor string) (bool, error)
}

// Publisher delivers the final state of a processed message to its
// destination, whether it was accepted or rejected.
type Publisher interface {
	PublishMessage(ctx context.Context, message domain.Message) error
}

// UserDirectory resolves user ids to rich profile snapshots through the
// external directory collaborator.
type UserDirectory interface {
	ResolveUsers(ctx context.Context, userIDs []int64) ([]domain.RelatedUser, error)
}
