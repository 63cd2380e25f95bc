package session

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_quote/internal/domain"
)

// Draft is the last saved state of a session, kept so a session can be
// restored after the process restarts. Attachments are never part of it.
type Draft struct {
	SessionID   string                `json:"sessionId"`
	Selection   domain.QuoteSelection `json:"selection"`
	Status      domain.FormStatus     `json:"status,omitempty"`
	DevisNumber string                `json:"devisNumber,omitempty"`
	SavedAt     time.Time             `json:"savedAt"`
}

type DraftCache interface {
	Get(ctx context.Context, sessionID string) (*Draft, error)
	Set(ctx context.Context, draft *Draft) error
	Delete(ctx context.Context, sessionID string) error
}

var ErrCacheMiss = errors.New("cache miss")

// NopCache is used when no Redis is configured; every read misses.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*Draft, error) { return nil, ErrCacheMiss }
func (NopCache) Set(context.Context, *Draft) error           { return nil }
func (NopCache) Delete(context.Context, string) error        { return nil }
