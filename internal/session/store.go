package session

import (
	"errors"
	"time"

	"github.com/fjod/go_quote/internal/form"
)

var ErrSessionNotFound = errors.New("quote session not found")

// Session is one quote wizard in progress.
type Session struct {
	ID         string
	Controller *form.Controller
	Drafts     *DraftWriter
	CreatedAt  time.Time
}

// Store keeps live sessions.
type Store interface {
	// Put adds or replaces a session
	Put(s *Session) error

	// Get returns the session and marks it as recently used
	Get(id string) (*Session, error)

	Delete(id string) error

	Len() int

	// Close shuts down the store and any background processes
	Close() error
}
