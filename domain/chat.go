// Package domain contains core concepts of the chat system.
// This file defines the Chat entity and participant invariants.
package domain

import (
	"cmp"
	"slices"

	"github.com/samber/lo"
)

// RelatedUser is a denormalized snapshot of a participant profile.
// Copies embedded in chats are refreshed through profile propagation,
// not on read.
type RelatedUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// Chat is a durable relation between a fixed set of participants.
//
// RelatedUsers is always kept sorted ascending by participant id. That
// canonical order is the idempotency key of chat creation: two requests
// naming the same participant set resolve to the same chat regardless of
// input order. ID stays empty until the storage key has been assigned.
type Chat struct {
	ID            string        `json:"id"`
	RelatedUsers  []RelatedUser `json:"related_users"`
	MessagesCount int           `json:"messages_count"`
}

// NewChat builds a fresh chat with participants in canonical order.
func NewChat(relatedUsers []RelatedUser) Chat {
	users := slices.Clone(relatedUsers)
	slices.SortFunc(users, func(a, b RelatedUser) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return Chat{RelatedUsers: users, MessagesCount: 0}
}

// RelatedUserIDs returns the participant ids in canonical order.
func (c Chat) RelatedUserIDs() []int64 {
	return lo.Map(c.RelatedUsers, func(u RelatedUser, _ int) int64 {
		return u.ID
	})
}

// HasParticipant reports whether the user takes part in this chat.
func (c Chat) HasParticipant(userID int64) bool {
	return lo.ContainsBy(c.RelatedUsers, func(u RelatedUser) bool {
		return u.ID == userID
	})
}

// RelatedTo reports whether the chat's participant set is exactly the
// pair {senderID, recipientID}. A message between any other set of users
// does not belong to this chat.
func (c Chat) RelatedTo(senderID, recipientID int64) bool {
	chatUsers := map[int64]struct{}{}
	for _, u := range c.RelatedUsers {
		chatUsers[u.ID] = struct{}{}
	}
	messageUsers := map[int64]struct{}{senderID: {}, recipientID: {}}

	if len(chatUsers) != len(messageUsers) {
		return false
	}
	for id := range messageUsers {
		if _, ok := chatUsers[id]; !ok {
			return false
		}
	}
	return true
}
