package processor

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/MikeSquared-Agency/ghostrev/internal/hermes"
)

// HandlePageLoaded is the NATS handler for ghostrev.page.loaded.
func (p *Processor) HandlePageLoaded(subject string, data []byte) {
	ctx := context.Background()

	var evt hermes.PageLoaded
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Warn("failed to parse page load", "subject", subject, "error", err)
		return
	}

	status, err := p.OpenPage(ctx, PageLoad{
		SessionID: evt.SessionID,
		PageID:    evt.PageID,
		URL:       evt.URL,
		Referrer:  evt.Referrer,
		UserAgent: evt.UserAgent,
		Customer:  evt.Customer,
	})
	if err != nil {
		p.logger.Warn("failed to open page", "page_id", evt.PageID, "error", err)
		return
	}
	p.logger.Debug("page loaded from bus", "page_id", status.PageID, "session_id", status.SessionID)
}

// HandlePageEvent is the NATS handler for ghostrev.page.event.
func (p *Processor) HandlePageEvent(subject string, data []byte) {
	ctx := context.Background()

	var evt hermes.PageEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Warn("failed to parse page event", "subject", subject, "error", err)
		return
	}

	if err := p.Dispatch(ctx, evt.PageID, evt.Event); err != nil {
		if errors.Is(err, ErrPageNotFound) {
			p.logger.Debug("event for unknown page", "page_id", evt.PageID)
			return
		}
		p.logger.Warn("failed to handle page event", "page_id", evt.PageID, "kind", evt.Event.Kind, "error", err)
	}
}

// HandlePageClosed is the NATS handler for ghostrev.page.closed.
func (p *Processor) HandlePageClosed(subject string, data []byte) {
	ctx := context.Background()

	var evt hermes.PageClosed
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Warn("failed to parse page close", "subject", subject, "error", err)
		return
	}

	if err := p.ClosePage(ctx, evt.PageID); err != nil && !errors.Is(err, ErrPageNotFound) {
		p.logger.Warn("failed to close page", "page_id", evt.PageID, "error", err)
	}
}
