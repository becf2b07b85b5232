// Package codes defines the stable wire codes shared by the HTTP API and
// the WebSocket channels.
package codes

// Code is a stable application-level status code. Codes are part of the wire
// contract and must never be renumbered.
type Code int

const (
	Done Code = 0

	ErrAuthFailed            Code = 50
	ErrWrongTokenType        Code = 51
	ErrMeetingAlreadyStarted Code = 60
	ErrMeetingNotStarted     Code = 61
	ErrSessionDB             Code = 62
)

type description struct {
	detail string
	status int
}

var descriptions = map[Code]description{
	Done:                     {"Operation Successful.", 200},
	ErrAuthFailed:            {"Could not validate credentials", 401},
	ErrWrongTokenType:        {"Wrong token type", 401},
	ErrMeetingAlreadyStarted: {"Meeting Already Started", 400},
	ErrMeetingNotStarted:     {"Meeting Not Started", 400},
	ErrSessionDB:             {"Session Record Conflict", 400},
}

// Detail returns the human-readable description for a code.
func (c Code) Detail() string {
	if d, ok := descriptions[c]; ok {
		return d.detail
	}
	return "Unknown Status."
}

// HTTPStatus returns the HTTP status the code maps to.
func (c Code) HTTPStatus() int {
	if d, ok := descriptions[c]; ok {
		return d.status
	}
	return 200
}

// WSClose returns the WebSocket close code for an application code.
// Application close codes live in the 4000-4999 private range.
func (c Code) WSClose() int {
	return 4000 + int(c)
}

// Envelope is the JSON response body used by both the HTTP API and the
// WebSocket acceptance/rejection messages.
type Envelope struct {
	Code   Code   `json:"code"`
	Detail string `json:"detail,omitempty"`
}

// Of builds an envelope with the code's default description.
func Of(c Code) Envelope {
	return Envelope{Code: c, Detail: c.Detail()}
}
