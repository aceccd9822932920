package callflow

import (
	"time"

	"results-hotline/internal/locale"
)

// State is the call session's position in the turn protocol.
type State string

const (
	// StateWelcome is the initial state for a never-seen call id; the first
	// turn renders the welcome prompt and moves on to language selection.
	StateWelcome State = "welcome"
	// StateLanguageSelect awaits the language digit (1 english, 2 spanish).
	StateLanguageSelect State = "language_select"
	StateUsername       State = "username_prompt"
	StatePassword       State = "password_prompt"
	// StateDeliver is transient: it exists only within the turn that
	// composes and records the message, and is never persisted.
	StateDeliver State = "deliver_results"
	// StateRepeat is the idle post-delivery state; the call stays repeatable
	// until the caller hangs up.
	StateRepeat State = "repeat_message"
	// StateError is terminal for the session; every further turn renders the
	// generic fallback.
	StateError State = "error"
)

// CallSession is the ephemeral per-call conversational state. It lives in a
// TTL-bound key-value store for the duration of the call and is never
// written to durable storage.
//
// Version increments on every turn; the store's compare-and-set rejects a
// write whose version is not exactly one past the stored one, which is how
// replayed transport retries are kept from advancing the call twice.
type CallSession struct {
	CallID   string          `json:"call_id"`
	State    State           `json:"state"`
	Language locale.Language `json:"language,omitempty"`
	Username string          `json:"username,omitempty"`
	VisitID  string          `json:"visit_id,omitempty"`

	// Message caches the composed result text for idempotent replay.
	Message string `json:"message,omitempty"`

	WelcomeRetries  int `json:"welcome_retries"`
	UsernameRetries int `json:"username_retries"`
	PasswordRetries int `json:"password_retries"`
	RepeatRetries   int `json:"repeat_retries"`

	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSession(callID string) CallSession {
	return CallSession{CallID: callID, State: StateWelcome}
}

// Lang resolves the session's language, degrading to the default before a
// choice has been made.
func (s CallSession) Lang() locale.Language {
	return locale.Resolve(s.Language)
}
