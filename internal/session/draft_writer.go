package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_quote/internal/domain"
)

// DraftWriter saves one session's draft, skipping writes whose content
// matches the last successful one.
type DraftWriter struct {
	cache     DraftCache
	sessionID string
	now       func() time.Time

	mu          sync.Mutex
	last        []byte
	devisNumber string
}

func NewDraftWriter(cache DraftCache, sessionID string) *DraftWriter {
	if cache == nil {
		cache = NopCache{}
	}
	return &DraftWriter{cache: cache, sessionID: sessionID, now: time.Now}
}

// Seed records a draft read back from the cache as already saved.
func (w *DraftWriter) Seed(d *Draft) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.devisNumber = d.DevisNumber
	w.last, _ = w.content(d.Selection, d.Status)
}

func (w *DraftWriter) SetDevisNumber(number string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.devisNumber = number
}

func (w *DraftWriter) DevisNumber() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.devisNumber
}

// Save writes the draft when selection, status or devis number changed.
// It reports whether the cache was written.
func (w *DraftWriter) Save(ctx context.Context, sel domain.QuoteSelection, status domain.FormStatus) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	key, err := w.content(sel, status)
	if err != nil {
		return false, err
	}
	if bytes.Equal(key, w.last) {
		return false, nil
	}

	draft := w.draft(sel, status)
	draft.SavedAt = w.now().UTC()
	if err := w.cache.Set(ctx, draft); err != nil {
		return false, err
	}
	w.last = key
	return true, nil
}

func (w *DraftWriter) draft(sel domain.QuoteSelection, status domain.FormStatus) *Draft {
	sel = sel.Clone()
	sel.Attachments = nil
	return &Draft{
		SessionID:   w.sessionID,
		Selection:   sel,
		Status:      status,
		DevisNumber: w.devisNumber,
	}
}

// content is the draft without its timestamp.
func (w *DraftWriter) content(sel domain.QuoteSelection, status domain.FormStatus) ([]byte, error) {
	payload, err := json.Marshal(w.draft(sel, status))
	if err != nil {
		return nil, fmt.Errorf("encode draft: %w", err)
	}
	return payload, nil
}

func (w *DraftWriter) SessionID() string {
	return w.sessionID
}
