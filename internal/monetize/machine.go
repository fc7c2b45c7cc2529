// Package monetize decides whether a page may show an ad. Two latches gate
// every decision: Locked, which is persisted for the whole session, and
// Triggered, which lives as long as the page.
package monetize

import (
	"context"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/ghostrev/internal/intent"
	"github.com/MikeSquared-Agency/ghostrev/internal/session"
)

const (
	ReasonStrongGhost    = "Strong ghost signal"
	ReasonLowInteraction = "Low interaction after cooldown"

	ReasonLogin   = "Logged in customer"
	ReasonCart    = "Add to cart"
	ReasonVariant = "Variant selection"
)

// Score thresholds at or below which the interstitial is due.
const (
	ImmediateThreshold = -3
	CooldownThreshold  = 0
)

const StickyMessage = "Ad: This visitor will not convert. Monetize them without hurting conversions."

// View is the read surface exposed to presenters and the API.
type View struct {
	Score       int         `json:"score"`
	Tier        intent.Tier `json:"tier"`
	Locked      bool        `json:"locked"`
	Triggered   bool        `json:"triggered"`
	StickyShown bool        `json:"sticky_shown"`
}

// ShouldShowInterstitial reports whether an interstitial is due at the given
// threshold. It has no side effects.
func ShouldShowInterstitial(v View, threshold int) bool {
	return !v.Locked && !v.Triggered && v.Score <= threshold
}

// ShouldShowSticky reports whether the sticky bar is due. It has no side
// effects.
func ShouldShowSticky(v View) bool {
	return !v.Locked && !v.Triggered && !v.StickyShown && intent.IsGhost(v.Score)
}

// Interstitial is a full-screen ad request.
type Interstitial struct {
	SessionID    string        `json:"session_id"`
	PageID       string        `json:"page_id"`
	Reason       string        `json:"reason"`
	Score        int           `json:"score"`
	Tier         intent.Tier   `json:"tier"`
	DismissAfter time.Duration `json:"dismiss_after"`
}

// Sticky is a bottom-bar ad request.
type Sticky struct {
	SessionID string      `json:"session_id"`
	PageID    string      `json:"page_id"`
	Score     int         `json:"score"`
	Tier      intent.Tier `json:"tier"`
	Message   string      `json:"message"`
}

// Presenter renders ads. It owns dismissal.
type Presenter interface {
	ShowInterstitial(ctx context.Context, ad Interstitial) error
	ShowSticky(ctx context.Context, ad Sticky) error
}

// LockFunc is notified once per page when the session becomes locked.
type LockFunc func(ctx context.Context, sessionID, reason string)

// Machine tracks the latches for one page of a session. It is not safe for
// concurrent use; the owning page serializes calls.
type Machine struct {
	st           *session.State
	pageID       string
	presenter    Presenter
	dismissAfter time.Duration
	onLock       LockFunc
	logger       *slog.Logger

	triggered bool
	lockNoted bool
}

func NewMachine(st *session.State, pageID string, presenter Presenter, dismissAfter time.Duration, onLock LockFunc, logger *slog.Logger) *Machine {
	return &Machine{
		st:           st,
		pageID:       pageID,
		presenter:    presenter,
		dismissAfter: dismissAfter,
		onLock:       onLock,
		logger:       logger,
	}
}

// View reads the current score and latches.
func (m *Machine) View(ctx context.Context) View {
	score := m.st.Score(ctx)
	return View{
		Score:       score,
		Tier:        intent.Classify(score),
		Locked:      m.Locked(ctx),
		Triggered:   m.triggered,
		StickyShown: m.st.Has(ctx, session.FlagStickyShown),
	}
}

func (m *Machine) Locked(ctx context.Context) bool { return m.st.Has(ctx, session.FlagLocked) }

func (m *Machine) Triggered() bool { return m.triggered }

// Lock latches the session. Repeated calls are harmless.
func (m *Machine) Lock(ctx context.Context, reason string) {
	already := m.Locked(ctx)
	if !already {
		m.st.Mark(ctx, session.FlagLocked)
	}
	if m.lockNoted {
		return
	}
	m.lockNoted = true
	m.logger.Info("monetization locked", "session_id", m.st.ID(), "page_id", m.pageID, "reason", reason)
	if m.onLock != nil && !already {
		m.onLock(ctx, m.st.ID(), reason)
	}
}

// TriggerInterstitial shows the interstitial if it is due at threshold. It
// reports whether the presenter was invoked.
func (m *Machine) TriggerInterstitial(ctx context.Context, reason string, threshold int) bool {
	v := m.View(ctx)
	if !ShouldShowInterstitial(v, threshold) {
		return false
	}
	m.triggered = true
	m.logger.Info("ad triggered",
		"session_id", m.st.ID(),
		"page_id", m.pageID,
		"reason", reason,
		"score", v.Score,
		"tier", string(v.Tier),
	)
	err := m.presenter.ShowInterstitial(ctx, Interstitial{
		SessionID:    m.st.ID(),
		PageID:       m.pageID,
		Reason:       reason,
		Score:        v.Score,
		Tier:         v.Tier,
		DismissAfter: m.dismissAfter,
	})
	if err != nil {
		m.logger.Error("failed to present interstitial", "session_id", m.st.ID(), "error", err)
	}
	return true
}

// ShowSticky shows the sticky bar if it is due. The sticky flag is set
// before the presenter runs so the bar is attempted at most once.
func (m *Machine) ShowSticky(ctx context.Context) bool {
	v := m.View(ctx)
	if !ShouldShowSticky(v) {
		return false
	}
	m.st.Mark(ctx, session.FlagStickyShown)
	m.logger.Info("sticky ad shown", "session_id", m.st.ID(), "page_id", m.pageID, "score", v.Score)
	err := m.presenter.ShowSticky(ctx, Sticky{
		SessionID: m.st.ID(),
		PageID:    m.pageID,
		Score:     v.Score,
		Tier:      v.Tier,
		Message:   StickyMessage,
	})
	if err != nil {
		m.logger.Error("failed to present sticky ad", "session_id", m.st.ID(), "error", err)
	}
	return true
}
