package form

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fjod/go_quote/internal/domain"
	"github.com/fjod/go_quote/internal/prefill"
	"github.com/fjod/go_quote/internal/pricing"
	"github.com/fjod/go_quote/internal/validation"
)

var (
	ErrInvalid          = errors.New("quote selection is invalid")
	ErrSubmitInFlight   = errors.New("a submission is already in flight")
	ErrAlreadySubmitted = errors.New("quote already submitted, edit it before submitting again")
	ErrNotSubmitting    = errors.New("no submission in flight")
)

// InvalidError carries the field errors that blocked a submit.
type InvalidError struct {
	Errors validation.Errors
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalid, strings.Join(e.Errors.Fields(), ", "))
}

func (e *InvalidError) Unwrap() error {
	return ErrInvalid
}

// Snapshot is what observers receive. Its JSON form covers the fields that drive
// the price or identify the contact; attachments are left out, and two states
// with the same encoding are the same state for notification purposes.
type Snapshot struct {
	SiteType    domain.SiteType    `json:"siteType"`
	DesignType  domain.DesignType  `json:"designType"`
	Features    domain.FeatureSet  `json:"features"`
	Maintenance domain.Maintenance `json:"maintenance"`
	Contact     domain.Contact     `json:"contact"`
	Breakdown   *domain.Breakdown  `json:"breakdown"`

	// Selection is the full form state at notification time, attachments removed.
	Selection domain.QuoteSelection `json:"-"`
	Status    domain.FormStatus     `json:"-"`
}

// Observer must not call back into the controller synchronously.
type Observer func(Snapshot)

// State is a read-only copy of the controller.
type State struct {
	Status    domain.FormStatus     `json:"status"`
	Selection domain.QuoteSelection `json:"selection"`
	Breakdown *domain.Breakdown     `json:"breakdown"`
	Errors    validation.Errors     `json:"errors"`
	Warnings  map[string]string     `json:"warnings,omitempty"`
	CanSubmit bool                  `json:"canSubmit"`
	LastError string                `json:"lastError,omitempty"`
}

type Controller struct {
	schema   *validation.Schema
	calc     *pricing.Calculator
	observer Observer
	log      *zap.Logger

	mu        sync.Mutex
	notifyMu  sync.Mutex
	status    domain.FormStatus
	sel       domain.QuoteSelection
	breakdown *domain.Breakdown
	errs      validation.Errors
	lastErr   error
	notified  []byte
}

type Option func(*Controller)

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

func WithSchema(s *validation.Schema) Option {
	return func(c *Controller) { c.schema = s }
}

func WithCalculator(calc *pricing.Calculator) Option {
	return func(c *Controller) { c.calc = calc }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// WithSelection seeds the controller, e.g. from a saved draft. The selection goes
// through the same decoders as edits, so literals the schema does not know are dropped.
func WithSelection(sel domain.QuoteSelection) Option {
	return func(c *Controller) { c.sel = sel.Clone() }
}

// WithStatus restores a settled status. A submission cannot be restored in
// flight; submitting and unknown statuses start as editing.
func WithStatus(status domain.FormStatus) Option {
	return func(c *Controller) {
		switch status {
		case domain.FormStatusSubmittedOK, domain.FormStatusSubmittedFailed:
			c.status = status
		default:
			c.status = domain.FormStatusEditing
		}
	}
}

// New builds a controller in the editing state. The initial state is the
// notification baseline: observers hear about the first change, not the start.
func New(opts ...Option) *Controller {
	c := &Controller{
		log:    zap.NewNop(),
		status: domain.FormStatusEditing,
		sel:    domain.NewSelection(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.schema == nil {
		c.schema = validation.NewSchema(nil)
	}
	if c.calc == nil {
		c.calc = pricing.NewCalculator(nil, pricing.WithLogger(c.log))
	}
	c.sel = decode(c.sel, c.schema)
	c.recompute()
	c.notified, _ = json.Marshal(c.snapshot())
	return c
}

// NewFromQuery builds a controller whose defaults come from recognised query parameters.
func NewFromQuery(values url.Values, opts ...Option) *Controller {
	c := New(opts...)
	c.mu.Lock()
	c.sel = prefill.Parse(values, c.schema).Apply(c.sel)
	c.recompute()
	c.notified, _ = json.Marshal(c.snapshot())
	c.mu.Unlock()
	return c
}

// Apply runs changes as one batch, then re-validates, re-prices and notifies at
// most once. Editing a settled form puts it back in the editing state.
func (c *Controller) Apply(changes ...Change) State {
	c.mu.Lock()
	e := &edit{sel: &c.sel, schema: c.schema}
	for _, change := range changes {
		change(e)
	}
	if len(changes) > 0 && c.status.IsSettled() {
		c.status = domain.FormStatusEditing
		c.lastErr = nil
	}
	c.recompute()
	return c.unlockAndNotify()
}

// Submit validates the form and moves it to submitting. The returned summary is
// handed to the caller's persistence; call Resolve with the outcome.
func (c *Controller) Submit() (*domain.Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.status {
	case domain.FormStatusSubmitting:
		return nil, ErrSubmitInFlight
	case domain.FormStatusSubmittedOK:
		return nil, ErrAlreadySubmitted
	case domain.FormStatusSubmittedFailed:
		c.status = domain.FormStatusEditing
	}

	if !c.errs.Empty() {
		return nil, &InvalidError{Errors: copyErrors(c.errs)}
	}
	if !domain.CanTransitionTo(c.status, domain.FormStatusSubmitting) {
		return nil, fmt.Errorf("submit from %s", c.status)
	}

	c.status = domain.FormStatusSubmitting
	c.lastErr = nil
	c.log.Debug("quote submitting", zap.Int("total", c.breakdown.Total))

	return &domain.Summary{
		Selection: c.effectiveSelection(),
		Breakdown: c.breakdown.Clone(),
		Total:     c.breakdown.Total,
		Recurring: c.breakdown.Recurring,
	}, nil
}

// Resolve ends the in-flight submission. A nil err settles the form as submitted;
// otherwise it is marked failed and editable again. Notifications held back while
// submitting are flushed if the state moved since the last one.
func (c *Controller) Resolve(err error) error {
	c.mu.Lock()
	if c.status != domain.FormStatusSubmitting {
		c.mu.Unlock()
		return ErrNotSubmitting
	}
	if err != nil {
		c.status = domain.FormStatusSubmittedFailed
		c.lastErr = err
		c.log.Warn("quote submission failed", zap.Error(err))
	} else {
		c.status = domain.FormStatusSubmittedOK
		c.log.Debug("quote submitted")
	}
	c.unlockAndNotify()
	return nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) Status() domain.FormStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// unlockAndNotify releases mu and calls the observer if the snapshot changed.
// notifyMu is taken before mu is released so observers see states in order.
func (c *Controller) unlockAndNotify() State {
	state := c.stateLocked()

	var snap Snapshot
	notify := false
	if c.observer != nil && c.status.Notifies() {
		snap = c.snapshot()
		payload, err := json.Marshal(snap)
		if err != nil {
			c.log.Error("encode snapshot", zap.Error(err))
		} else if !bytes.Equal(payload, c.notified) {
			c.notified = payload
			notify = true
		}
	}

	if !notify {
		c.mu.Unlock()
		return state
	}
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()
	c.observer(snap)
	return state
}

func (c *Controller) recompute() {
	c.errs = c.schema.Validate(c.sel)
	c.breakdown = c.calc.ComputeTotal(c.sel)
}

func (c *Controller) snapshot() Snapshot {
	sel := c.sel.Clone()
	sel.Attachments = nil
	return Snapshot{
		SiteType:    c.sel.SiteType,
		DesignType:  c.sel.DesignType,
		Features:    c.sel.Features.Clone(),
		Maintenance: c.sel.Maintenance,
		Contact:     c.sel.Contact,
		Breakdown:   c.breakdown.Clone(),
		Selection:   sel,
		Status:      c.status,
	}
}

func (c *Controller) stateLocked() State {
	s := State{
		Status:    c.status,
		Selection: c.sel.Clone(),
		Breakdown: c.breakdown.Clone(),
		Errors:    copyErrors(c.errs),
		Warnings:  c.warnings(),
		CanSubmit: c.errs.Empty() && (c.status == domain.FormStatusEditing || c.status == domain.FormStatusSubmittedFailed),
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}

func (c *Controller) warnings() map[string]string {
	if c.breakdown == nil || len(c.breakdown.Excluded) == 0 {
		return nil
	}
	w := make(map[string]string, len(c.breakdown.Excluded))
	for _, id := range c.breakdown.Excluded {
		f, ok := c.calc.Table().Feature(id)
		if !ok {
			continue
		}
		w["features."+string(id)] = fmt.Sprintf("« %s » n'est disponible que pour un site %s et n'est pas comptée.", f.Label, f.RequiresSiteType)
	}
	return w
}

// effectiveSelection is the selection as priced: excluded features dropped, forced ones added.
func (c *Controller) effectiveSelection() domain.QuoteSelection {
	sel := c.sel.Clone()
	for _, id := range c.breakdown.Excluded {
		sel.Features.Remove(id)
	}
	for _, id := range c.breakdown.Forced {
		sel.Features.Add(id)
	}
	return sel
}

func copyErrors(errs validation.Errors) validation.Errors {
	out := make(validation.Errors, len(errs))
	for k, v := range errs {
		out[k] = v
	}
	return out
}
