// Package ingest turns raw broker payloads into validated messages.
//
// Each stage has its own output type: raw bytes become a Record, a Record
// becomes an IncomingMessage, and an IncomingMessage becomes a pending
// domain.Message. A value of a later stage statically guarantees the
// invariants the next stage assumes.
package ingest

import (
	"chat-backend/errors"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Record is a decoded but not yet validated broker payload.
type Record map[string]any

// Decode interprets a raw broker payload as a UTF-8 JSON object.
//
// A failure here is permanent for this broker message: redelivery cannot fix
// a malformed payload, so the caller must acknowledge it without requeue.
func Decode(body []byte) (Record, error) {
	if !utf8.Valid(body) {
		return nil, fmt.Errorf("%w: payload is not valid utf-8", errors.ErrMalformedPayload)
	}
	var record Record
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedPayload, err)
	}
	return record, nil
}
