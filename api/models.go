package api

import "time"

// ErrorResponse is the JSON body returned for any non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// SuccessResponse is a minimal acknowledgement body for actions that
// don't return a resource.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// SessionCreateRequest submits a program for compilation and
// execution.
type SessionCreateRequest struct {
	Source   string `json:"source"`
	MaxSteps uint64 `json:"maxSteps,omitempty"`
}

// SessionCreateResponse is returned once a session's program has
// compiled successfully and started running.
type SessionCreateResponse struct {
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

// SessionStatusResponse reports a session's current lifecycle state.
type SessionStatusResponse struct {
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// InputRequest feeds a line of input to a session's pending read().
type InputRequest struct {
	Text string `json:"text"`
}
