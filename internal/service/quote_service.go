package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fjod/go_quote/internal/domain"
	"github.com/fjod/go_quote/internal/form"
	"github.com/fjod/go_quote/internal/pricing"
	"github.com/fjod/go_quote/internal/session"
	"github.com/fjod/go_quote/internal/validation"
)

type DevisRepository interface {
	SaveDevis(ctx context.Context, devis *domain.Devis) error
	GetDevisByNumber(ctx context.Context, number string) (*domain.Devis, error)
}

type QuoteService struct {
	sessions session.Store
	drafts   session.DraftCache
	repo     DevisRepository
	calc     *pricing.Calculator
	schema   *validation.Schema
	log      *zap.Logger
	sfg      singleflight.Group // one restore per session id

	now          func() time.Time
	cacheTimeout time.Duration
	saveTimeout  time.Duration
	workers      int
	pool         *ants.Pool
	handoffs     sync.WaitGroup
}

type Option func(*QuoteService)

// WithSubmitWorkers bounds how many submissions are persisted concurrently.
func WithSubmitWorkers(n int) Option {
	return func(s *QuoteService) {
		if n > 0 {
			s.workers = n
		}
	}
}

func NewQuoteService(sessions session.Store, drafts session.DraftCache, repo DevisRepository,
	calc *pricing.Calculator, log *zap.Logger, opts ...Option) *QuoteService {
	if drafts == nil {
		drafts = session.NopCache{}
	}
	if calc == nil {
		calc = pricing.NewCalculator(nil, pricing.WithLogger(log))
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &QuoteService{
		sessions:     sessions,
		drafts:       drafts,
		repo:         repo,
		calc:         calc,
		schema:       validation.NewSchema(calc.Table()),
		log:          log,
		now:          time.Now,
		cacheTimeout: time.Second,
		saveTimeout:  10 * time.Second,
		workers:      64,
	}
	for _, opt := range opts {
		opt(s)
	}

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		panic(fmt.Sprintf("submit pool: %v", err))
	}
	s.pool = pool
	return s
}

func (s *QuoteService) Table() *pricing.Table {
	return s.calc.Table()
}

// StartSession opens a quote session seeded from prefill query parameters.
func (s *QuoteService) StartSession(ctx context.Context, query url.Values) (*SessionView, error) {
	id := uuid.NewString()
	drafts := session.NewDraftWriter(s.drafts, id)
	ctrl := form.NewFromQuery(query, s.controllerOptions(drafts)...)

	sess := &session.Session{ID: id, Controller: ctrl, Drafts: drafts, CreatedAt: s.now()}
	if err := s.sessions.Put(sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	state := ctrl.State()
	s.saveDraft(ctx, drafts, state)
	s.log.Debug("quote session started", zap.String("session_id", id))

	return newView(sess, state), nil
}

// GetSession returns a live session, restoring it from its draft when the process
// no longer holds it. Concurrent restores of the same id share one cache read.
func (s *QuoteService) GetSession(ctx context.Context, id string) (*SessionView, error) {
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return newView(sess, sess.Controller.State()), nil
}

func (s *QuoteService) UpdateSession(ctx context.Context, id string, patch Patch) (*SessionView, error) {
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	state := sess.Controller.Apply(patch.Changes()...)

	// the observer only sees price and contact changes; the draft keeps the rest
	saveCtx, cancel := context.WithTimeout(ctx, s.cacheTimeout)
	defer cancel()
	s.saveDraft(saveCtx, sess.Drafts, state)

	return newView(sess, state), nil
}

// SubmitSession validates the session and hands the devis to persistence in the
// background. The returned summary carries the devis number; the session
// status reports the outcome once the save completes.
func (s *QuoteService) SubmitSession(ctx context.Context, id string) (*domain.Summary, error) {
	sess, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	summary, err := sess.Controller.Submit()
	if err != nil {
		return nil, err
	}

	devis := domain.NewDevis(summary, s.now())
	summary.DevisNumber = devis.Number

	s.handoffs.Add(1)
	if err := s.pool.Submit(func() { s.persist(sess, devis) }); err != nil {
		s.handoffs.Done()
		err = fmt.Errorf("hand off devis %s: %w", devis.Number, err)
		_ = sess.Controller.Resolve(err)
		return nil, err
	}

	s.log.Info("quote submitted",
		zap.String("session_id", id),
		zap.String("devis_number", devis.Number),
		zap.Int("total", summary.Total))
	return summary, nil
}

// Estimate prices a selection without opening a session.
func (s *QuoteService) Estimate(patch Patch) form.State {
	ctrl := form.New(form.WithSchema(s.schema), form.WithCalculator(s.calc), form.WithLogger(s.log))
	return ctrl.Apply(patch.Changes()...)
}

func (s *QuoteService) GetDevis(ctx context.Context, number string) (*domain.Devis, error) {
	return s.repo.GetDevisByNumber(ctx, number)
}

// Wait blocks until every in-flight submission has been persisted or has failed.
func (s *QuoteService) Wait() {
	s.handoffs.Wait()
}

// Close waits for in-flight submissions and stops the submit workers.
func (s *QuoteService) Close() {
	s.handoffs.Wait()
	s.pool.Release()
}

func (s *QuoteService) persist(sess *session.Session, devis *domain.Devis) {
	defer s.handoffs.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()

	err := s.repo.SaveDevis(ctx, devis)
	if err != nil {
		s.log.Error("failed to save devis",
			zap.String("session_id", sess.ID),
			zap.String("devis_number", devis.Number),
			zap.Error(err))
		err = fmt.Errorf("save devis %s: %w", devis.Number, err)
	} else {
		sess.Drafts.SetDevisNumber(devis.Number)
	}
	if errResolve := sess.Controller.Resolve(err); errResolve != nil {
		s.log.Warn("resolve submission", zap.String("session_id", sess.ID), zap.Error(errResolve))
	}

	draftCtx, cancelDraft := context.WithTimeout(context.Background(), s.cacheTimeout)
	defer cancelDraft()
	s.saveDraft(draftCtx, sess.Drafts, sess.Controller.State())
}

func (s *QuoteService) lookup(ctx context.Context, id string) (*session.Session, error) {
	if id == "" {
		return nil, ErrEmptySessionID
	}
	sess, err := s.sessions.Get(id)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, session.ErrSessionNotFound) {
		return nil, err
	}

	v, err, _ := s.sfg.Do(id, func() (interface{}, error) {
		if sess, err := s.sessions.Get(id); err == nil {
			return sess, nil
		}

		draft, err := s.drafts.Get(ctx, id)
		if errors.Is(err, session.ErrCacheMiss) {
			return nil, ErrSessionExpired
		}
		if err != nil {
			s.log.Warn("draft cache get error", zap.String("session_id", id), zap.Error(err))
			return nil, ErrSessionExpired
		}

		drafts := session.NewDraftWriter(s.drafts, id)
		drafts.Seed(draft)
		opts := append(s.controllerOptions(drafts),
			form.WithSelection(draft.Selection),
			form.WithStatus(draft.Status))
		sess := &session.Session{ID: id, Controller: form.New(opts...), Drafts: drafts, CreatedAt: draft.SavedAt}
		if err := s.sessions.Put(sess); err != nil {
			return nil, fmt.Errorf("store restored session: %w", err)
		}
		s.log.Debug("quote session restored from draft", zap.String("session_id", id))
		return sess, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*session.Session), nil
}

func (s *QuoteService) controllerOptions(drafts *session.DraftWriter) []form.Option {
	return []form.Option{
		form.WithSchema(s.schema),
		form.WithCalculator(s.calc),
		form.WithLogger(s.log),
		form.WithObserver(func(snap form.Snapshot) {
			ctx, cancel := context.WithTimeout(context.Background(), s.cacheTimeout)
			defer cancel()
			s.saveDraft(ctx, drafts, form.State{Selection: snap.Selection, Status: snap.Status})
		}),
	}
}

func (s *QuoteService) saveDraft(ctx context.Context, drafts *session.DraftWriter, state form.State) {
	if _, err := drafts.Save(ctx, state.Selection, state.Status); err != nil {
		s.log.Warn("draft cache set error", zap.String("session_id", drafts.SessionID()), zap.Error(err))
	}
}

func newView(sess *session.Session, state form.State) *SessionView {
	return &SessionView{ID: sess.ID, DevisNumber: sess.Drafts.DevisNumber(), State: state}
}
