package hermes

import (
	"time"

	"github.com/MikeSquared-Agency/ghostrev/internal/intent"
	"github.com/MikeSquared-Agency/ghostrev/internal/signals"
)

// SubjectRegistered is the swarm agent registry subject.
const SubjectRegistered = "swarm.agent.ghostrev.registered"

// Inbound subjects, published by the storefront script.
const (
	SubjectPageLoaded = "ghostrev.page.loaded"
	SubjectPageEvent  = "ghostrev.page.event"
	SubjectPageClosed = "ghostrev.page.closed"
)

// Outbound subjects, consumed by the ad renderer.
const (
	SubjectInterstitialShow    = "ghostrev.ad.interstitial.show"
	SubjectInterstitialDismiss = "ghostrev.ad.interstitial.dismiss"
	SubjectStickyShow          = "ghostrev.ad.sticky.show"
	SubjectSessionLocked       = "ghostrev.session.locked"
)

// PageLoaded announces a page load. An empty PageID asks the server to
// assign one; an empty SessionID starts a new session.
type PageLoaded struct {
	PageID    string `json:"page_id"`
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
	Referrer  string `json:"referrer"`
	UserAgent string `json:"user_agent"`
	Customer  bool   `json:"customer"`
}

// PageEvent carries one DOM event for an open page.
type PageEvent struct {
	PageID string        `json:"page_id"`
	Event  signals.Event `json:"event"`
}

// PageClosed reports that the visitor navigated away.
type PageClosed struct {
	PageID string `json:"page_id"`
}

// InterstitialShow asks the renderer to show the full-screen ad.
type InterstitialShow struct {
	SessionID      string      `json:"session_id"`
	PageID         string      `json:"page_id"`
	Reason         string      `json:"reason"`
	Score          int         `json:"score"`
	Tier           intent.Tier `json:"tier"`
	DismissAfterMs int64       `json:"dismiss_after_ms"`
	Timestamp      time.Time   `json:"timestamp"`
}

// InterstitialDismiss asks the renderer to remove the full-screen ad.
type InterstitialDismiss struct {
	SessionID string    `json:"session_id"`
	PageID    string    `json:"page_id"`
	Timestamp time.Time `json:"timestamp"`
}

// StickyShow asks the renderer to show the bottom bar.
type StickyShow struct {
	SessionID string      `json:"session_id"`
	PageID    string      `json:"page_id"`
	Score     int         `json:"score"`
	Tier      intent.Tier `json:"tier"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}

// SessionLocked reports that a session will never be monetized.
type SessionLocked struct {
	SessionID string    `json:"session_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Registered announces a running instance and the subjects it consumes.
type Registered struct {
	Port      int       `json:"port"`
	Cooldown  string    `json:"cooldown"`
	Subjects  []string  `json:"subjects"`
	Timestamp time.Time `json:"timestamp"`
}
