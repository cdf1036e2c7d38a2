package assistant

import "io"

// Message mirrors the chat payload shape of the internal assistant endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the JSON body posted to the assistant endpoint.
type chatRequest struct {
	Messages []Message `json:"messages"`
}

// errorBody is the JSON error envelope returned on non-2xx statuses.
type errorBody struct {
	Error string `json:"error"`
}

// Outcome classifies how an Ask call resolved.
type Outcome int

const (
	// OutcomeSuccess: a candidate answered 2xx and Body streams its response.
	OutcomeSuccess Outcome = iota
	// OutcomeClientError: a candidate answered 4xx; Body carries the parsed
	// error message and no further candidates were tried.
	OutcomeClientError
	// OutcomeExhausted: every candidate failed with a network error or 5xx;
	// Body carries the localized generic failure message.
	OutcomeExhausted
)

// Reply is the result of an Ask call. Body is never nil; the pipeline can
// always deliver something to the user.
type Reply struct {
	Body    io.ReadCloser
	Outcome Outcome
}

// AskRequest identifies the asking user and their message.
type AskRequest struct {
	UserID          string
	ModelPreference string
	Text            string
}
