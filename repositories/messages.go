package repositories

import (
	"chat-backend/contract"
	"chat-backend/domain"
	"chat-backend/errors"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dgraph-io/badger/v4"
)

// Ensure MessageRepository satisfies its port at compile time.
var _ contract.MessageRepository = (*MessageRepository)(nil)

const (
	messageKeyPrefix     = "msg:"
	chatMessageKeyPrefix = "chatmsg:"
	dedupKeyPrefix       = "dedup:"
	messageSequenceKey   = "seq:messages"

	// sequenceBandwidth is how many keys a badger Sequence leases at once.
	sequenceBandwidth = 64
)

// MessageRepository persists messages in BadgerDB.
//
// Every message gets a storage-native key from a monotonically increasing
// sequence, zero-padded to 19 digits so lexicographical order equals
// insertion order. Three key families are maintained:
//  1. "msg:{seq}" holds the JSON document (primary key).
//  2. "chatmsg:{chat_id}:{seq}" indexes the chat's messages for reverse
//     (newest-first) pagination scans.
//  3. "dedup:{client_message_id}" enforces system-wide uniqueness of the
//     client-supplied deduplication key.
type MessageRepository struct {
	db    *badger.DB
	seq   *badger.Sequence
	log   *slog.Logger
	limit int
}

// NewMessageRepository opens the message sequence and returns the repository.
// limit is the fixed page size used by GetChatMessages.
func NewMessageRepository(db *badger.DB, log *slog.Logger, limit int) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte(messageSequenceKey), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &MessageRepository{db: db, seq: seq, log: log, limit: limit}, nil
}

// Close releases the unused part of the leased sequence band.
func (r *MessageRepository) Close() error {
	return r.seq.Release()
}

func messageKey(key uint64) []byte {
	return fmt.Appendf(nil, "%s%019d", messageKeyPrefix, key)
}

func chatMessageKey(chatID string, key uint64) []byte {
	return fmt.Appendf(nil, "%s%s:%019d", chatMessageKeyPrefix, chatID, key)
}

func dedupKey(clientMessageID string) []byte {
	return fmt.Appendf(nil, "%s%s", dedupKeyPrefix, clientMessageID)
}

// parseCursor turns an externalized message id back into a native key.
func parseCursor(cursor string) (uint64, error) {
	key, err := strconv.ParseUint(cursor, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errors.ErrInvalidCursor, cursor)
	}
	return key, nil
}

// Exists reports whether a message with this client_message_id was already
// accepted, regardless of which chat it belongs to.
func (r *MessageRepository) Exists(_ context.Context, clientMessageID string) (bool, error) {
	var exists bool
	err := r.db.View(func(txn *badger.Txn) error {
		switch _, err := txn.Get(dedupKey(clientMessageID)); err {
		case nil:
			exists = true
			return nil
		case badger.ErrKeyNotFound:
			return nil
		default:
			return err
		}
	})
	return exists, err
}

// Create inserts the message document together with its chat index and dedup
// entries in a single transaction and returns the storage-native key.
// The stored document still has an empty id field: AssignExternalID performs
// the second phase of identifier assignment.
func (r *MessageRepository) Create(_ context.Context, message domain.Message) (uint64, error) {
	key, err := r.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("next message key: %w", err)
	}
	doc, err := json.Marshal(message)
	if err != nil {
		return 0, err
	}
	seqValue := []byte(strconv.FormatUint(key, 10))

	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(messageKey(key), doc); err != nil {
			return err
		}
		if err := txn.Set(chatMessageKey(message.ChatID, key), seqValue); err != nil {
			return err
		}
		return txn.Set(dedupKey(message.ClientMessageID), seqValue)
	})
	if err != nil {
		return 0, err
	}
	return key, nil
}

// AssignExternalID copies the native key, stringified, into the document's id
// field and returns the updated message.
func (r *MessageRepository) AssignExternalID(_ context.Context, key uint64) (domain.Message, error) {
	var message domain.Message
	err := r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(messageKey(key))
		if err != nil {
			return err
		}
		if err := item.Value(func(value []byte) error {
			return json.Unmarshal(value, &message)
		}); err != nil {
			return err
		}
		message.ID = strconv.FormatUint(key, 10)
		doc, err := json.Marshal(message)
		if err != nil {
			return err
		}
		return txn.Set(messageKey(key), doc)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// GetChatMessages returns one page of the chat's messages, newest first.
//
// The reverse scan over the "chatmsg:{chat_id}:" prefix walks keys in
// descending insertion order. With a cursor the scan starts at the cursor's
// key and skips it, so only strictly older messages are returned.
func (r *MessageRepository) GetChatMessages(_ context.Context, chatID, cursor string) ([]domain.Message, error) {
	prefix := []byte(chatMessageKeyPrefix + chatID + ":")

	seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
	if cursor != "" {
		key, err := parseCursor(cursor)
		if err != nil {
			return nil, err
		}
		seekKey = chatMessageKey(chatID, key)
	}

	var messages []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		it.Seek(seekKey)
		if cursor != "" && it.ValidForPrefix(prefix) && string(it.Item().Key()) == string(seekKey) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if len(messages) == r.limit {
				break
			}
			var seq []byte
			if err := it.Item().Value(func(value []byte) error {
				seq = append([]byte{}, value...)
				return nil
			}); err != nil {
				return err
			}
			item, err := txn.Get(append([]byte(messageKeyPrefix), padSeq(seq)...))
			if err != nil {
				return err
			}
			var message domain.Message
			if err := item.Value(func(value []byte) error {
				return json.Unmarshal(value, &message)
			}); err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// PreviousMessagesExist reports whether the chat holds at least one message
// strictly older than the cursor.
func (r *MessageRepository) PreviousMessagesExist(_ context.Context, chatID, cursor string) (bool, error) {
	key, err := parseCursor(cursor)
	if err != nil {
		return false, err
	}
	prefix := []byte(chatMessageKeyPrefix + chatID + ":")
	seekKey := chatMessageKey(chatID, key)

	var exists bool
	err = r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		it.Seek(seekKey)
		if it.ValidForPrefix(prefix) && string(it.Item().Key()) == string(seekKey) {
			it.Next()
		}
		exists = it.ValidForPrefix(prefix)
		return nil
	})
	return exists, err
}

// padSeq re-pads a stored decimal sequence value to the 19-digit key form.
func padSeq(seq []byte) []byte {
	key, _ := strconv.ParseUint(string(seq), 10, 64)
	return fmt.Appendf(nil, "%019d", key)
}
