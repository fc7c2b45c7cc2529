package hermes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/ghostrev/internal/clock"
	"github.com/MikeSquared-Agency/ghostrev/internal/intent"
	"github.com/MikeSquared-Agency/ghostrev/internal/monetize"
)

type published struct {
	subject string
	data    any
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(subject string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{subject: subject, data: data})
	return nil
}

func newTestPresenter() (*Presenter, *fakePublisher, *clock.Fake) {
	pub := &fakePublisher{}
	clk := clock.NewFake(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC))
	return NewPresenter(pub, clk, slog.New(slog.NewTextHandler(io.Discard, nil))), pub, clk
}

func TestPresenter_InterstitialSchedulesDismiss(t *testing.T) {
	p, pub, clk := newTestPresenter()

	err := p.ShowInterstitial(context.Background(), monetize.Interstitial{
		SessionID:    "s1",
		PageID:       "p1",
		Reason:       monetize.ReasonStrongGhost,
		Score:        -5,
		Tier:         intent.LikelyGhost,
		DismissAfter: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("ShowInterstitial: %v", err)
	}

	if len(pub.msgs) != 1 || pub.msgs[0].subject != SubjectInterstitialShow {
		t.Fatalf("published %+v", pub.msgs)
	}
	show := pub.msgs[0].data.(InterstitialShow)
	if show.Reason != monetize.ReasonStrongGhost || show.DismissAfterMs != 10000 || show.Score != -5 {
		t.Errorf("show = %+v", show)
	}

	clk.Advance(9 * time.Second)
	if len(pub.msgs) != 1 {
		t.Fatalf("dismissed early")
	}
	clk.Advance(time.Second)
	if len(pub.msgs) != 2 || pub.msgs[1].subject != SubjectInterstitialDismiss {
		t.Fatalf("dismiss not published: %+v", pub.msgs)
	}
	if d := pub.msgs[1].data.(InterstitialDismiss); d.PageID != "p1" {
		t.Errorf("dismiss = %+v", d)
	}
}

func TestPresenter_Sticky(t *testing.T) {
	p, pub, _ := newTestPresenter()

	err := p.ShowSticky(context.Background(), monetize.Sticky{SessionID: "s1", PageID: "p1", Message: monetize.StickyMessage})
	if err != nil {
		t.Fatalf("ShowSticky: %v", err)
	}
	if len(pub.msgs) != 1 || pub.msgs[0].subject != SubjectStickyShow {
		t.Fatalf("published %+v", pub.msgs)
	}
	if s := pub.msgs[0].data.(StickyShow); s.Message != monetize.StickyMessage {
		t.Errorf("message = %q", s.Message)
	}
}

func TestPresenter_PublishErrors(t *testing.T) {
	p, pub, clk := newTestPresenter()
	pub.err = errors.New("no responders")

	if err := p.ShowInterstitial(context.Background(), monetize.Interstitial{PageID: "p1", DismissAfter: time.Second}); err == nil {
		t.Error("expected interstitial error")
	}
	if clk.Pending() != 0 {
		t.Errorf("dismiss scheduled for a failed show")
	}
	if err := p.ShowSticky(context.Background(), monetize.Sticky{PageID: "p1"}); err == nil {
		t.Error("expected sticky error")
	}
	// Lock notifications only log.
	p.SessionLocked(context.Background(), "s1", monetize.ReasonLogin)
}

func TestPresenter_SessionLocked(t *testing.T) {
	p, pub, _ := newTestPresenter()

	p.SessionLocked(context.Background(), "s1", monetize.ReasonCart)
	if len(pub.msgs) != 1 || pub.msgs[0].subject != SubjectSessionLocked {
		t.Fatalf("published %+v", pub.msgs)
	}
	if m := pub.msgs[0].data.(SessionLocked); m.SessionID != "s1" || m.Reason != monetize.ReasonCart {
		t.Errorf("message = %+v", m)
	}
}

func TestPageEvent_Decode(t *testing.T) {
	raw := `{"page_id":"p1","event":{"kind":"scroll","scroll_y":900,"viewport_height":800,"page_height":1700}}`

	var evt PageEvent
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if evt.PageID != "p1" || evt.Event.Kind != "scroll" {
		t.Fatalf("decoded %+v", evt)
	}
	frac, ok := evt.Event.ScrollFraction()
	if !ok || frac != 1 {
		t.Errorf("fraction = %v, %v", frac, ok)
	}
}

func TestPageLoaded_Decode(t *testing.T) {
	raw := `{"session_id":"s1","url":"https://shop.example/products/x","referrer":"https://www.google.com/","user_agent":"Mobi","customer":true}`

	var evt PageLoaded
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if evt.PageID != "" || evt.SessionID != "s1" || !evt.Customer || evt.UserAgent != "Mobi" {
		t.Errorf("decoded %+v", evt)
	}
}
