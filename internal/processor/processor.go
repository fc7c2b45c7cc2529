package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/ghostrev/internal/clock"
	"github.com/MikeSquared-Agency/ghostrev/internal/engine"
	"github.com/MikeSquared-Agency/ghostrev/internal/monetize"
	"github.com/MikeSquared-Agency/ghostrev/internal/session"
	"github.com/MikeSquared-Agency/ghostrev/internal/signals"
)

var (
	ErrPageNotFound = errors.New("page not found")
	ErrPageExists   = errors.New("page already open")
	ErrMissingURL   = errors.New("url is required")
)

const DefaultPageTTL = 5 * time.Minute

type Options struct {
	Cooldown     time.Duration
	DismissAfter time.Duration
	PageTTL      time.Duration
	OnLock       monetize.LockFunc
}

// PageLoad describes a page load reported by the storefront. Empty ids are
// generated.
type PageLoad struct {
	SessionID string `json:"session_id"`
	PageID    string `json:"page_id"`
	URL       string `json:"url"`
	Referrer  string `json:"referrer"`
	UserAgent string `json:"user_agent"`
	Customer  bool   `json:"customer"`
}

// Stats summarises the live pages.
type Stats struct {
	Pages    int `json:"pages"`
	Sessions int `json:"sessions"`
}

// Processor owns the live pages. Every page of one session shares a single
// lock so that callbacks from different tabs never interleave.
type Processor struct {
	store     session.Store
	clock     clock.Clock
	presenter monetize.Presenter
	opts      Options
	logger    *slog.Logger

	mu       sync.Mutex
	pages    map[string]*livePage
	sessions map[string]*liveSession
}

// livePage is registered before engine.Open runs. ready is closed once page
// is set.
type livePage struct {
	sessionID string
	page      *engine.Page
	ready     chan struct{}
	evict     clock.Timer
}

type liveSession struct {
	mu   sync.Mutex
	refs int
}

func New(store session.Store, clk clock.Clock, presenter monetize.Presenter, opts Options, logger *slog.Logger) *Processor {
	if opts.PageTTL <= 0 {
		opts.PageTTL = DefaultPageTTL
	}
	return &Processor{
		store:     store,
		clock:     clk,
		presenter: presenter,
		opts:      opts,
		logger:    logger,
		pages:     make(map[string]*livePage),
		sessions:  make(map[string]*liveSession),
	}
}

// OpenPage runs the load-time scoring for a new page and starts its timers.
func (p *Processor) OpenPage(ctx context.Context, load PageLoad) (engine.Status, error) {
	if load.URL == "" {
		return engine.Status{}, ErrMissingURL
	}
	if load.SessionID == "" {
		load.SessionID = uuid.New().String()
	}
	if load.PageID == "" {
		load.PageID = uuid.New().String()
	}

	p.mu.Lock()
	if _, ok := p.pages[load.PageID]; ok {
		p.mu.Unlock()
		return engine.Status{}, fmt.Errorf("%w: %s", ErrPageExists, load.PageID)
	}
	ls := p.sessions[load.SessionID]
	if ls == nil {
		ls = &liveSession{}
		p.sessions[load.SessionID] = ls
	}
	ls.refs++
	lp := &livePage{sessionID: load.SessionID, ready: make(chan struct{})}
	p.pages[load.PageID] = lp
	p.mu.Unlock()

	st := session.NewState(p.store, load.SessionID, p.logger)
	snap := signals.NewSnapshot(load.URL, load.Referrer, load.UserAgent, load.Customer)
	page := engine.Open(ctx, load.PageID, st, snap, engine.Options{
		Clock:        p.clock,
		Presenter:    p.presenter,
		Cooldown:     p.opts.Cooldown,
		DismissAfter: p.opts.DismissAfter,
		OnLock:       p.opts.OnLock,
		Lock:         &ls.mu,
		Logger:       p.logger,
	})

	p.mu.Lock()
	lp.page = page
	close(lp.ready)
	// The page may have been forgotten by EndSession or Shutdown while it
	// was opening; they close it once ready.
	if p.pages[load.PageID] == lp {
		p.touch(load.PageID, lp)
	}
	p.mu.Unlock()

	return page.Status(ctx), nil
}

// Dispatch delivers a DOM event to an open page.
func (p *Processor) Dispatch(ctx context.Context, pageID string, ev signals.Event) error {
	page, err := p.lookup(pageID, true)
	if err != nil {
		return err
	}
	return page.Handle(ctx, ev)
}

func (p *Processor) PageStatus(ctx context.Context, pageID string) (engine.Status, error) {
	page, err := p.lookup(pageID, false)
	if err != nil {
		return engine.Status{}, err
	}
	return page.Status(ctx), nil
}

// ClosePage cancels the page's timers and forgets it. The session state is
// kept for the next page.
func (p *Processor) ClosePage(_ context.Context, pageID string) error {
	p.mu.Lock()
	lp, ok := p.pages[pageID]
	if !ok || lp.page == nil {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPageNotFound, pageID)
	}
	p.forget(pageID, lp)
	p.mu.Unlock()

	lp.page.Close()
	return nil
}

// SessionRecord reads everything persisted for a session.
func (p *Processor) SessionRecord(ctx context.Context, sessionID string) session.Record {
	unlock := p.lockSession(sessionID)
	defer unlock()
	return session.NewState(p.store, sessionID, p.logger).Snapshot(ctx)
}

// EndSession closes the session's pages and clears its persisted keys.
// Pages still opening are waited for so their load-time writes land before
// the clear.
func (p *Processor) EndSession(ctx context.Context, sessionID string) error {
	var closing []*livePage
	p.mu.Lock()
	for id, lp := range p.pages {
		if lp.sessionID == sessionID {
			p.forget(id, lp)
			closing = append(closing, lp)
		}
	}
	p.mu.Unlock()

	closeAll(closing)

	unlock := p.lockSession(sessionID)
	defer unlock()
	if err := session.NewState(p.store, sessionID, p.logger).End(ctx); err != nil {
		return fmt.Errorf("end session %s: %w", sessionID, err)
	}
	p.logger.Info("session ended", "session_id", sessionID, "pages_closed", len(closing))
	return nil
}

func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Pages: len(p.pages), Sessions: len(p.sessions)}
}

// Shutdown closes every live page, waiting for pages still opening.
func (p *Processor) Shutdown() {
	p.mu.Lock()
	closing := make([]*livePage, 0, len(p.pages))
	for id, lp := range p.pages {
		p.forget(id, lp)
		closing = append(closing, lp)
	}
	p.mu.Unlock()

	closeAll(closing)
}

// closeAll must be called without p.mu held.
func closeAll(pages []*livePage) {
	for _, lp := range pages {
		<-lp.ready
		lp.page.Close()
	}
}

func (p *Processor) lookup(pageID string, touch bool) (*engine.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	lp, ok := p.pages[pageID]
	if !ok || lp.page == nil {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, pageID)
	}
	if touch {
		p.touch(pageID, lp)
	}
	return lp.page, nil
}

// lockSession takes the session's serialization lock, creating a
// short-lived one when no page of the session is open.
func (p *Processor) lockSession(sessionID string) func() {
	p.mu.Lock()
	ls := p.sessions[sessionID]
	if ls == nil {
		ls = &liveSession{}
		p.sessions[sessionID] = ls
	}
	ls.refs++
	p.mu.Unlock()

	ls.mu.Lock()
	return func() {
		ls.mu.Unlock()
		p.mu.Lock()
		p.release(sessionID, ls)
		p.mu.Unlock()
	}
}

// touch restarts the idle eviction timer. p.mu must be held.
func (p *Processor) touch(pageID string, lp *livePage) {
	if lp.evict != nil {
		lp.evict.Stop()
	}
	lp.evict = p.clock.AfterFunc(p.opts.PageTTL, func() {
		p.mu.Lock()
		if p.pages[pageID] != lp {
			p.mu.Unlock()
			return
		}
		p.forget(pageID, lp)
		p.mu.Unlock()

		lp.page.Close()
		p.logger.Debug("evicted idle page", "page_id", pageID, "ttl", p.opts.PageTTL)
	})
}

// forget drops the page and its share of the session lock. p.mu must be
// held.
func (p *Processor) forget(pageID string, lp *livePage) {
	if lp.evict != nil {
		lp.evict.Stop()
	}
	delete(p.pages, pageID)
	if ls, ok := p.sessions[lp.sessionID]; ok {
		p.release(lp.sessionID, ls)
	}
}

// release must be called with p.mu held.
func (p *Processor) release(sessionID string, ls *liveSession) {
	ls.refs--
	if ls.refs <= 0 && p.sessions[sessionID] == ls {
		delete(p.sessions, sessionID)
	}
}
