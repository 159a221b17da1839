package errors

import "fmt"

var (
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrChatNotFound     = fmt.Errorf("chat not found")
	ErrMalformedPayload = fmt.Errorf("malformed broker payload")
	ErrInvalidSchema    = fmt.Errorf("message failed schema validation")
	ErrInvalidCursor    = fmt.Errorf("invalid pagination cursor")
	ErrMissingToken     = fmt.Errorf("no token was provided")
	ErrInvalidToken     = fmt.Errorf("invalid or expired token")
)

// ApplicationError is a structured application-layer failure carrying a
// title and a details map. The HTTP boundary renders it as a problem+json
// body with the given status. It is never retried.
type ApplicationError struct {
	Status  int
	Title   string
	Details map[string]string
}

func (e *ApplicationError) Error() string { return e.Title }

func NewChatCreationDenied() *ApplicationError {
	return &ApplicationError{
		Status: 401,
		Title:  "Chat creation is denied.",
		Details: map[string]string{
			"Authorization error.": "You are not permitted to create such chat.",
		},
	}
}

func NewMessagesRetrievalDenied() *ApplicationError {
	return &ApplicationError{
		Status: 401,
		Title:  "Message retrieval is denied.",
		Details: map[string]string{
			"Authorization error": "You are not permitted to retrieve the messages of this chat.",
		},
	}
}

func NewChatUpdatingDenied() *ApplicationError {
	return &ApplicationError{
		Status: 401,
		Title:  "Chat updating is denied.",
		Details: map[string]string{
			"Chat updating is denied.": "You are not permitted to update the chats with such info.",
		},
	}
}

func NewUserInfoServiceUnavailable() *ApplicationError {
	return &ApplicationError{
		Status: 503,
		Title:  "External server is unavailable.",
		Details: map[string]string{
			"Connection error.": "Could not connect to a server that returns required data.",
		},
	}
}

func NewUserInfoUnprocessableResponse() *ApplicationError {
	return &ApplicationError{
		Status: 503,
		Title:  "Unprocessable response was returned.",
		Details: map[string]string{
			"Unprocessable response code.": "Returned response with unprocessable code.",
		},
	}
}

func NewUserResponseInvalid() *ApplicationError {
	return &ApplicationError{
		Status: 503,
		Title:  "Invalid response received.",
		Details: map[string]string{
			"Invalid response.": "Returned response is not a valid json.",
		},
	}
}
