package auth

import (
	"chat-backend/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVerifier_UserID(t *testing.T) {
	secret := "super-secret-test-key"
	verifier := NewVerifier(secret)

	t.Run("should return the user id of a valid token", func(t *testing.T) {
		req := require.New(t)
		token, err := Sign(secret, 42, time.Hour)
		req.NoError(err)

		userID, err := verifier.UserID(token)
		req.NoError(err)
		req.Equal(int64(42), userID)
	})

	t.Run("should fail on a missing token", func(t *testing.T) {
		req := require.New(t)
		_, err := verifier.UserID("")
		req.ErrorIs(err, errors.ErrMissingToken)
	})

	t.Run("should fail on a token signed with another key", func(t *testing.T) {
		req := require.New(t)
		token, err := Sign("some-other-key", 42, time.Hour)
		req.NoError(err)

		_, err = verifier.UserID(token)
		req.ErrorIs(err, errors.ErrInvalidToken)
	})

	t.Run("should fail on an expired token", func(t *testing.T) {
		req := require.New(t)
		token, err := Sign(secret, 42, -time.Minute)
		req.NoError(err)

		_, err = verifier.UserID(token)
		req.ErrorIs(err, errors.ErrInvalidToken)
	})

	t.Run("should fail on garbage input", func(t *testing.T) {
		req := require.New(t)
		_, err := verifier.UserID("not.a.token")
		req.ErrorIs(err, errors.ErrInvalidToken)
	})
}
