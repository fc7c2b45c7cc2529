package hermes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/ghostrev/internal/clock"
	"github.com/MikeSquared-Agency/ghostrev/internal/monetize"
)

// Publisher is the publishing half of Client.
type Publisher interface {
	Publish(subject string, data any) error
}

// Presenter forwards ad decisions to the renderer over NATS and schedules
// the interstitial's dismissal.
type Presenter struct {
	pub    Publisher
	clock  clock.Clock
	logger *slog.Logger
}

func NewPresenter(pub Publisher, clk clock.Clock, logger *slog.Logger) *Presenter {
	return &Presenter{pub: pub, clock: clk, logger: logger}
}

func (p *Presenter) ShowInterstitial(_ context.Context, ad monetize.Interstitial) error {
	err := p.pub.Publish(SubjectInterstitialShow, InterstitialShow{
		SessionID:      ad.SessionID,
		PageID:         ad.PageID,
		Reason:         ad.Reason,
		Score:          ad.Score,
		Tier:           ad.Tier,
		DismissAfterMs: ad.DismissAfter.Milliseconds(),
		Timestamp:      p.clock.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("publish interstitial: %w", err)
	}

	if ad.DismissAfter > 0 {
		p.clock.AfterFunc(ad.DismissAfter, func() {
			if err := p.pub.Publish(SubjectInterstitialDismiss, InterstitialDismiss{
				SessionID: ad.SessionID,
				PageID:    ad.PageID,
				Timestamp: p.clock.Now().UTC(),
			}); err != nil {
				p.logger.Warn("failed to publish interstitial dismiss", "page_id", ad.PageID, "error", err)
			}
		})
	}
	return nil
}

func (p *Presenter) ShowSticky(_ context.Context, ad monetize.Sticky) error {
	err := p.pub.Publish(SubjectStickyShow, StickyShow{
		SessionID: ad.SessionID,
		PageID:    ad.PageID,
		Score:     ad.Score,
		Tier:      ad.Tier,
		Message:   ad.Message,
		Timestamp: p.clock.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("publish sticky: %w", err)
	}
	return nil
}

// SessionLocked has the monetize.LockFunc signature.
func (p *Presenter) SessionLocked(_ context.Context, sessionID, reason string) {
	if err := p.pub.Publish(SubjectSessionLocked, SessionLocked{
		SessionID: sessionID,
		Reason:    reason,
		Timestamp: p.clock.Now().UTC(),
	}); err != nil {
		p.logger.Warn("failed to publish session lock", "session_id", sessionID, "error", err)
	}
}
