// Package engine runs the scoring rules and the monetization latches for a
// single page load. A Page is the explicit per-page context: it owns the
// hover set, the interaction flag, the page's timers and its Triggered latch,
// and works on the session state it is given.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/ghostrev/internal/clock"
	"github.com/MikeSquared-Agency/ghostrev/internal/monetize"
	"github.com/MikeSquared-Agency/ghostrev/internal/rules"
	"github.com/MikeSquared-Agency/ghostrev/internal/session"
	"github.com/MikeSquared-Agency/ghostrev/internal/signals"
)

var (
	ErrPageClosed   = errors.New("page closed")
	ErrUnknownEvent = errors.New("unknown event kind")
)

const (
	DefaultCooldown     = 15 * time.Second
	DefaultDismissAfter = 10 * time.Second
)

// Options configure a page. Zero values fall back to the defaults.
type Options struct {
	Clock        clock.Clock
	Presenter    monetize.Presenter
	Cooldown     time.Duration
	DismissAfter time.Duration
	OnLock       monetize.LockFunc
	// Deferred overrides rules.DeferredRules.
	Deferred []rules.Deferred
	// Lock serializes every callback of the page. Pages of the same session
	// should share one.
	Lock   sync.Locker
	Logger *slog.Logger
}

// Status is the read surface of a page.
type Status struct {
	PageID    string `json:"page_id"`
	SessionID string `json:"session_id"`
	Path      string `json:"path"`
	monetize.View
	ShowInterstitial bool          `json:"show_interstitial"`
	ShowSticky       bool          `json:"show_sticky"`
	Fired            []rules.Fired `json:"fired"`
	LoadedAt         time.Time     `json:"loaded_at"`
	Closed           bool          `json:"closed"`
}

// Page is one page load of a session.
type Page struct {
	mu       sync.Locker
	id       string
	st       *session.State
	snap     signals.Snapshot
	loadedAt time.Time
	clock    clock.Clock
	eval     *rules.Evaluator
	machine  *monetize.Machine
	deferred []rules.Deferred
	logger   *slog.Logger

	interacted bool
	hovers     map[string]*hover
	timers     []clock.Timer
	fired      []rules.Fired
	closed     bool
}

// Open loads a page: it runs the immediate rules, applies the login lock,
// checks for a strong ghost, records the visit for skip detection and
// schedules the deferred rules and the cooldown check.
func Open(ctx context.Context, id string, st *session.State, snap signals.Snapshot, opts Options) *Page {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Presenter == nil {
		opts.Presenter = monetize.LogPresenter{Logger: opts.Logger}
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.DismissAfter <= 0 {
		opts.DismissAfter = DefaultDismissAfter
	}
	if opts.Deferred == nil {
		opts.Deferred = rules.DeferredRules
	}
	if opts.Lock == nil {
		opts.Lock = &sync.Mutex{}
	}

	logger := opts.Logger.With("session_id", st.ID(), "page_id", id)
	p := &Page{
		mu:       opts.Lock,
		id:       id,
		st:       st,
		snap:     snap,
		loadedAt: opts.Clock.Now(),
		clock:    opts.Clock,
		eval:     rules.NewEvaluator(logger),
		machine:  monetize.NewMachine(st, id, opts.Presenter, opts.DismissAfter, opts.OnLock, logger),
		deferred: opts.Deferred,
		logger:   logger,
		hovers:   make(map[string]*hover),
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.apply(ctx, rules.Immediate, p.context(signals.Event{}))
	if snap.Customer {
		p.machine.Lock(ctx, monetize.ReasonLogin)
	}
	p.machine.TriggerInterstitial(ctx, monetize.ReasonStrongGhost, monetize.ImmediateThreshold)

	visit := session.Visit{Time: p.loadedAt.UnixMilli(), Path: snap.Path}
	c := p.context(signals.Event{})
	c.History = st.RecordVisit(ctx, visit)
	p.apply(ctx, rules.Select(p.deferred, rules.OnLoad, ""), c)

	for _, d := range p.deferred {
		if d.Trigger != rules.AfterDelay {
			continue
		}
		r := d.Rule
		p.after(d.Delay, func(ctx context.Context) {
			p.apply(ctx, []rules.Rule{r}, p.context(signals.Event{}))
		})
	}
	p.after(opts.Cooldown, p.cooldownExpired)

	v := p.machine.View(ctx)
	logger.Info("page opened", "path", snap.Path, "score", v.Score, "tier", string(v.Tier))
	return p
}

func (p *Page) ID() string        { return p.id }
func (p *Page) SessionID() string { return p.st.ID() }

// Handle delivers a DOM event to the page.
func (p *Page) Handle(ctx context.Context, ev signals.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPageClosed
	}

	switch ev.Kind {
	case signals.MouseMove:
		p.interacted = true
	case signals.Click:
		p.interacted = true
		if ev.Target != nil {
			if ev.Target.AddToCart() {
				p.machine.Lock(ctx, monetize.ReasonCart)
			}
			if ev.Target.VariantSelector() {
				p.machine.Lock(ctx, monetize.ReasonVariant)
			}
		}
	case signals.MouseOver:
		p.hoverStart(ev)
	case signals.MouseLeave:
		p.hoverEnd(ev)
	case signals.Scroll:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
	}

	p.apply(ctx, rules.Select(p.deferred, rules.OnEvent, ev.Kind), p.context(ev))
	return nil
}

// Status reads the page's current state.
func (p *Page) Status(ctx context.Context) Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := p.machine.View(ctx)
	fired := make([]rules.Fired, len(p.fired))
	copy(fired, p.fired)
	return Status{
		PageID:           p.id,
		SessionID:        p.st.ID(),
		Path:             p.snap.Path,
		View:             v,
		ShowInterstitial: monetize.ShouldShowInterstitial(v, monetize.CooldownThreshold),
		ShowSticky:       monetize.ShouldShowSticky(v),
		Fired:            fired,
		LoadedAt:         p.loadedAt,
		Closed:           p.closed,
	}
}

// Close models navigating away: pending timers are cancelled and later
// events are rejected.
func (p *Page) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	for _, t := range p.timers {
		t.Stop()
	}
	p.timers = nil
	p.logger.Debug("page closed", "fired", len(p.fired))
}

func (p *Page) cooldownExpired(ctx context.Context) {
	p.machine.TriggerInterstitial(ctx, monetize.ReasonLowInteraction, monetize.CooldownThreshold)
	p.machine.ShowSticky(ctx)
}

// hover is one element of the hover set. cancelled is checked by the dwell
// callback, which may already be waiting on the lock when Stop is called.
type hover struct {
	timer     clock.Timer
	cancelled bool
}

func (p *Page) hoverStart(ev signals.Event) {
	el := ev.Target
	if el == nil || !el.ProductRelated() {
		return
	}
	if _, tracked := p.hovers[el.ID]; tracked {
		return
	}
	target := *el
	h := &hover{}
	p.hovers[el.ID] = h
	h.timer = p.after(rules.HoverDwell, func(ctx context.Context) {
		if h.cancelled {
			return
		}
		p.apply(ctx, []rules.Rule{rules.HoverRule}, p.context(signals.Event{Kind: signals.MouseOver, Target: &target}))
	})
}

func (p *Page) hoverEnd(ev signals.Event) {
	if ev.Target == nil {
		return
	}
	if h, ok := p.hovers[ev.Target.ID]; ok {
		h.cancelled = true
		h.timer.Stop()
	}
}

// after schedules f under the page lock. f does not run once the page is
// closed.
func (p *Page) after(d time.Duration, f func(ctx context.Context)) clock.Timer {
	t := p.clock.AfterFunc(d, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			return
		}
		f(context.Background())
	})
	p.timers = append(p.timers, t)
	return t
}

// apply must be called with p.mu held.
func (p *Page) apply(ctx context.Context, rs []rules.Rule, c rules.Context) {
	if len(rs) == 0 {
		return
	}
	p.fired = append(p.fired, p.eval.Evaluate(ctx, p.st, rs, c)...)
}

// context must be called with p.mu held.
func (p *Page) context(ev signals.Event) rules.Context {
	return rules.Context{
		Signals:    p.snap,
		LoadedAt:   p.loadedAt,
		Now:        p.clock.Now(),
		Interacted: p.interacted,
		Hovered:    len(p.hovers),
		Event:      ev,
	}
}
