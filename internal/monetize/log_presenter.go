package monetize

import (
	"context"
	"log/slog"
)

// LogPresenter records ad decisions in the log. It is used when no bus is
// configured.
type LogPresenter struct {
	Logger *slog.Logger
}

func (p LogPresenter) ShowInterstitial(_ context.Context, ad Interstitial) error {
	p.Logger.Info("present interstitial",
		"session_id", ad.SessionID,
		"page_id", ad.PageID,
		"reason", ad.Reason,
		"dismiss_after", ad.DismissAfter,
	)
	return nil
}

func (p LogPresenter) ShowSticky(_ context.Context, ad Sticky) error {
	p.Logger.Info("present sticky", "session_id", ad.SessionID, "page_id", ad.PageID)
	return nil
}
