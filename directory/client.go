// Package directory talks to the external user-directory collaborator.
package directory

import (
	"bytes"
	"chat-backend/contract"
	"chat-backend/domain"
	"chat-backend/errors"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"
)

var _ contract.UserDirectory = (*Client)(nil)

const usersInfoPath = "/users/get-users-info"

// RetryPolicy is the explicit retry shape for directory calls: exponential
// backoff with full jitter, bounded by a total elapsed time.
type RetryPolicy struct {
	InitialInterval time.Duration
	Multiplier      float64
	MaxElapsedTime  time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 500 * time.Millisecond,
		Multiplier:      2,
		MaxElapsedTime:  30 * time.Second,
	}
}

// Client resolves user ids to profile snapshots.
//
// Connection and timeout errors are retried under the policy. A non-2xx
// response or an unparsable body is a protocol mismatch, not a transient
// failure, and is surfaced immediately.
type Client struct {
	log        *slog.Logger
	httpClient *http.Client
	baseURL    string
	policy     RetryPolicy
}

func NewClient(log *slog.Logger, baseURL string, policy RetryPolicy) *Client {
	return &Client{
		log:        log,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		policy:     policy,
	}
}

type usersInfoRequest struct {
	UserIDs []int64 `json:"user_ids"`
}

// ResolveUsers fetches the profile snapshots for the given ids, retrying
// transport failures until the policy's elapsed-time budget runs out.
func (c *Client) ResolveUsers(ctx context.Context, userIDs []int64) ([]domain.RelatedUser, error) {
	deadline := time.Now().Add(c.policy.MaxElapsedTime)
	interval := c.policy.InitialInterval

	for attempt := 1; ; attempt++ {
		users, retryable, err := c.resolveOnce(ctx, userIDs)
		if err == nil {
			return users, nil
		}
		if !retryable {
			return nil, err
		}
		if time.Now().After(deadline) {
			c.log.Error("User directory still unreachable, giving up", "attempts", attempt, "err", err)
			return nil, errors.NewUserInfoServiceUnavailable()
		}

		// Full jitter: sleep a uniformly random share of the current interval.
		sleep := time.Duration(rand.Float64() * float64(interval))
		c.log.Warn("User directory request failed, retrying",
			"attempt", attempt, "sleep", sleep, "err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
		interval = time.Duration(float64(interval) * c.policy.Multiplier)
	}
}

// resolveOnce performs a single call. The second return value tells whether
// the failure is transient.
func (c *Client) resolveOnce(ctx context.Context, userIDs []int64) ([]domain.RelatedUser, bool, error) {
	body, err := json.Marshal(usersInfoRequest{UserIDs: userIDs})
	if err != nil {
		return nil, false, err
	}
	request, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+usersInfoPath, bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, true, fmt.Errorf("user directory request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, false, errors.NewUserInfoUnprocessableResponse()
	}

	var users []domain.RelatedUser
	if err := json.NewDecoder(response.Body).Decode(&users); err != nil {
		return nil, false, errors.NewUserResponseInvalid()
	}
	return users, false, nil
}
