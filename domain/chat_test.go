package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewChat_CanonicalOrder(t *testing.T) {
	req := require.New(t)
	alice := RelatedUser{ID: 1, Username: "alice"}
	bob := RelatedUser{ID: 2, Username: "bob"}

	forward := NewChat([]RelatedUser{alice, bob})
	backward := NewChat([]RelatedUser{bob, alice})

	req.Equal(forward.RelatedUsers, backward.RelatedUsers)
	req.Equal([]int64{1, 2}, forward.RelatedUserIDs())
	req.Zero(forward.MessagesCount)
}

func TestChat_RelatedTo(t *testing.T) {
	chat := NewChat([]RelatedUser{{ID: 1}, {ID: 2}})
	selfChat := NewChat([]RelatedUser{{ID: 5}})
	tests := []struct {
		description string
		chat        Chat
		sender      int64
		recipient   int64
		want        bool
	}{
		{"Should match the exact participant pair", chat, 1, 2, true},
		{"Should match the pair in either direction", chat, 2, 1, true},
		{"Should refuse a half-matching pair", chat, 1, 3, false},
		{"Should refuse a fully foreign pair", chat, 3, 4, false},
		{"Should match a self chat when sender equals recipient", selfChat, 5, 5, true},
		{"Should refuse a pair against a self chat", selfChat, 5, 6, false},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			require.Equal(t, tt.want, tt.chat.RelatedTo(tt.sender, tt.recipient))
		})
	}
}

func TestChat_HasParticipant(t *testing.T) {
	req := require.New(t)
	chat := NewChat([]RelatedUser{{ID: 1}, {ID: 2}})
	req.True(chat.HasParticipant(1))
	req.True(chat.HasParticipant(2))
	req.False(chat.HasParticipant(3))
}

func TestMessage_RejectOverwritesReason(t *testing.T) {
	req := require.New(t)
	message := NewMessage("c-1", "7", 1, 2, "2026-01-02T10:20:30.000000Z", "hi")
	req.Equal(StatusPending, message.Status)

	message.Reject(RejectReasonDuplicated)
	message.Reject(RejectReasonInvalidChatID)

	req.Equal(StatusRejected, message.Status)
	req.Equal(RejectReasonInvalidChatID, message.RejectReason)
}

func TestMessage_AcceptClearsReason(t *testing.T) {
	req := require.New(t)
	message := NewMessage("c-1", "7", 1, 2, "2026-01-02T10:20:30.000000Z", "hi")
	message.Accept()
	req.Equal(StatusAccepted, message.Status)
	req.Empty(message.RejectReason)
}
