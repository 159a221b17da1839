package directory

import (
	"chat-backend/domain"
	"chat-backend/errors"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fastRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: time.Millisecond,
		Multiplier:      2,
		MaxElapsedTime:  200 * time.Millisecond,
	}
}

func TestClient_ResolveUsers(t *testing.T) {
	ctx := context.Background()
	log := slog.Default()

	profiles := []domain.RelatedUser{
		{ID: 1, Username: "alice", Email: "alice@example.com", AvatarURL: "https://cdn/a.png"},
		{ID: 2, Username: "bob", Email: "bob@example.com"},
	}

	t.Run("should return the resolved profiles", func(t *testing.T) {
		req := require.New(t)
		var gotPath string
		var gotBody usersInfoRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			require.NoError(t, json.NewEncoder(w).Encode(profiles))
		}))
		defer server.Close()

		client := NewClient(log, server.URL, fastRetryPolicy())
		users, err := client.ResolveUsers(ctx, []int64{1, 2})

		req.NoError(err)
		req.Equal(profiles, users)
		req.Equal("/users/get-users-info", gotPath)
		req.Equal([]int64{1, 2}, gotBody.UserIDs)
	})

	t.Run("should not retry a non-2xx response", func(t *testing.T) {
		req := require.New(t)
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewClient(log, server.URL, fastRetryPolicy())
		_, err := client.ResolveUsers(ctx, []int64{1})

		var appErr *errors.ApplicationError
		req.ErrorAs(err, &appErr)
		req.Equal(503, appErr.Status)
		req.Equal(1, calls)
	})

	t.Run("should not retry an unparsable body", func(t *testing.T) {
		req := require.New(t)
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.Write([]byte(`{definitely not json`))
		}))
		defer server.Close()

		client := NewClient(log, server.URL, fastRetryPolicy())
		_, err := client.ResolveUsers(ctx, []int64{1})

		var appErr *errors.ApplicationError
		req.ErrorAs(err, &appErr)
		req.Equal(503, appErr.Status)
		req.Equal(1, calls)
	})

	t.Run("should retry a connection failure until recovery", func(t *testing.T) {
		req := require.New(t)
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls < 3 {
				// Drop the connection without a response.
				hj, ok := w.(http.Hijacker)
				require.True(t, ok)
				conn, _, err := hj.Hijack()
				require.NoError(t, err)
				conn.Close()
				return
			}
			require.NoError(t, json.NewEncoder(w).Encode(profiles))
		}))
		defer server.Close()

		client := NewClient(log, server.URL, fastRetryPolicy())
		users, err := client.ResolveUsers(ctx, []int64{1, 2})

		req.NoError(err)
		req.Equal(profiles, users)
		req.Equal(3, calls)
	})

	t.Run("should give up once the elapsed-time budget is spent", func(t *testing.T) {
		req := require.New(t)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
		}))
		defer server.Close()

		policy := fastRetryPolicy()
		policy.MaxElapsedTime = 20 * time.Millisecond
		client := NewClient(log, server.URL, policy)
		_, err := client.ResolveUsers(ctx, []int64{1})

		var appErr *errors.ApplicationError
		req.ErrorAs(err, &appErr)
		req.Equal(503, appErr.Status)
		req.Equal("External server is unavailable.", appErr.Title)
	})
}
