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

var _ contract.ChatRepository = (*ChatRepository)(nil)

const (
	chatKeyPrefix      = "chat:"
	chatIndexKeyPrefix = "chatkey:"
	chatSequenceKey    = "seq:chats"
)

// ChatRepository persists chat aggregates in BadgerDB.
//
// Documents live under "chat:{seq}". A second key family,
// "chatkey:{canonical related_users JSON}", maps the canonical participant
// list to the native key: exact equality of that list is the chat-matching
// key, so find-or-insert is a single indexed lookup inside one transaction.
type ChatRepository struct {
	db  *badger.DB
	seq *badger.Sequence
	log *slog.Logger
}

func NewChatRepository(db *badger.DB, log *slog.Logger) (*ChatRepository, error) {
	seq, err := db.GetSequence([]byte(chatSequenceKey), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("chat sequence: %w", err)
	}
	return &ChatRepository{db: db, seq: seq, log: log}, nil
}

func (r *ChatRepository) Close() error {
	return r.seq.Release()
}

func chatKey(key uint64) []byte {
	return fmt.Appendf(nil, "%s%019d", chatKeyPrefix, key)
}

// chatIndexKey derives the canonical-participants index key. The caller must
// pass a chat whose related_users are already in canonical order.
func chatIndexKey(relatedUsers []domain.RelatedUser) ([]byte, error) {
	canonical, err := json.Marshal(relatedUsers)
	if err != nil {
		return nil, err
	}
	return append([]byte(chatIndexKeyPrefix), canonical...), nil
}

// GetOrCreateChat atomically finds the chat matching the canonical
// related_users list or inserts a fresh one with messages_count=0.
// A returned chat with an empty ID was just inserted and still needs
// AssignExternalID.
func (r *ChatRepository) GetOrCreateChat(_ context.Context, chat domain.Chat) (domain.Chat, uint64, error) {
	indexKey, err := chatIndexKey(chat.RelatedUsers)
	if err != nil {
		return domain.Chat{}, 0, err
	}

	var stored domain.Chat
	var key uint64
	err = r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(indexKey)
		switch err {
		case nil:
			return item.Value(func(value []byte) error {
				key, err = strconv.ParseUint(string(value), 10, 64)
				if err != nil {
					return err
				}
				return r.readChat(txn, key, &stored)
			})
		case badger.ErrKeyNotFound:
			key, err = r.seq.Next()
			if err != nil {
				return fmt.Errorf("next chat key: %w", err)
			}
			stored = chat
			stored.ID = ""
			stored.MessagesCount = 0
			doc, err := json.Marshal(stored)
			if err != nil {
				return err
			}
			if err := txn.Set(chatKey(key), doc); err != nil {
				return err
			}
			return txn.Set(indexKey, []byte(strconv.FormatUint(key, 10)))
		default:
			return err
		}
	})
	if err != nil {
		return domain.Chat{}, 0, err
	}
	return stored, key, nil
}

// AssignExternalID copies the native key, stringified, into the chat's id.
func (r *ChatRepository) AssignExternalID(_ context.Context, key uint64) error {
	return r.db.Update(func(txn *badger.Txn) error {
		var chat domain.Chat
		if err := r.readChat(txn, key, &chat); err != nil {
			return err
		}
		chat.ID = strconv.FormatUint(key, 10)
		doc, err := json.Marshal(chat)
		if err != nil {
			return err
		}
		return txn.Set(chatKey(key), doc)
	})
}

func (r *ChatRepository) GetChatByID(_ context.Context, id string) (domain.Chat, error) {
	key, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		// Not a key we could ever have assigned.
		return domain.Chat{}, errors.ErrChatNotFound
	}
	var chat domain.Chat
	err = r.db.View(func(txn *badger.Txn) error {
		return r.readChat(txn, key, &chat)
	})
	if err == badger.ErrKeyNotFound {
		return domain.Chat{}, errors.ErrChatNotFound
	}
	if err != nil {
		return domain.Chat{}, err
	}
	if chat.ID == "" {
		// Lookup is by externalized id; a document that never completed the
		// second phase of identifier assignment is not addressable yet.
		return domain.Chat{}, errors.ErrChatNotFound
	}
	return chat, nil
}

// GetChats returns the user's chats that already carry at least one message.
func (r *ChatRepository) GetChats(_ context.Context, userID int64) ([]domain.Chat, error) {
	var chats []domain.Chat
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = []byte(chatKeyPrefix)
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var chat domain.Chat
			if err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &chat)
			}); err != nil {
				return err
			}
			if chat.HasParticipant(userID) && chat.MessagesCount > 0 {
				chats = append(chats, chat)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chats, nil
}

// IncrementMessagesCount increases the chat's counter by exactly one.
func (r *ChatRepository) IncrementMessagesCount(_ context.Context, id string) error {
	key, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return errors.ErrChatNotFound
	}
	return r.db.Update(func(txn *badger.Txn) error {
		var chat domain.Chat
		if err := r.readChat(txn, key, &chat); err != nil {
			if err == badger.ErrKeyNotFound {
				return errors.ErrChatNotFound
			}
			return err
		}
		chat.MessagesCount++
		doc, err := json.Marshal(chat)
		if err != nil {
			return err
		}
		return txn.Set(chatKey(key), doc)
	})
}

// ReplaceRelatedUser swaps the embedded profile snapshot in place across every
// chat the user takes part in. The canonical-participants index is rewritten
// for each touched chat so future find-or-insert lookups keep matching.
func (r *ChatRepository) ReplaceRelatedUser(_ context.Context, userID int64, profile domain.RelatedUser) error {
	return r.db.Update(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = []byte(chatKeyPrefix)
		it := txn.NewIterator(options)
		defer it.Close()

		type update struct {
			key    uint64
			chat   domain.Chat
			oldIdx []byte
		}
		var updates []update

		for it.Rewind(); it.Valid(); it.Next() {
			var chat domain.Chat
			if err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &chat)
			}); err != nil {
				return err
			}
			if !chat.HasParticipant(userID) {
				continue
			}
			oldIdx, err := chatIndexKey(chat.RelatedUsers)
			if err != nil {
				return err
			}
			for i, u := range chat.RelatedUsers {
				if u.ID == userID {
					chat.RelatedUsers[i] = profile
				}
			}
			key, err := strconv.ParseUint(string(it.Item().Key()[len(chatKeyPrefix):]), 10, 64)
			if err != nil {
				return err
			}
			updates = append(updates, update{key: key, chat: chat, oldIdx: oldIdx})
		}

		// Writes happen after the scan: badger iterators observe their own
		// transaction's writes, so mutating in the loop could revisit keys.
		for _, u := range updates {
			doc, err := json.Marshal(u.chat)
			if err != nil {
				return err
			}
			if err := txn.Set(chatKey(u.key), doc); err != nil {
				return err
			}
			newIdx, err := chatIndexKey(u.chat.RelatedUsers)
			if err != nil {
				return err
			}
			if string(newIdx) == string(u.oldIdx) {
				continue
			}
			if err := txn.Delete(u.oldIdx); err != nil {
				return err
			}
			if err := txn.Set(newIdx, []byte(strconv.FormatUint(u.key, 10))); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ChatRepository) readChat(txn *badger.Txn, key uint64, chat *domain.Chat) error {
	item, err := txn.Get(chatKey(key))
	if err != nil {
		return err
	}
	return item.Value(func(value []byte) error {
		return json.Unmarshal(value, chat)
	})
}
