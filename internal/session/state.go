package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const (
	keyPrefix  = "ghostrev_"
	scoreKey   = keyPrefix + "score"
	historyKey = keyPrefix + "nav"

	// MaxHistory bounds the persisted navigation history.
	MaxHistory = 10
)

// Flag names a persisted once-guard or latch.
type Flag string

const (
	FlagReferrer         Flag = "ref_scored"
	FlagDevice           Flag = "device_scored"
	FlagUTM              Flag = "utm_scored"
	FlagLogin            Flag = "login_scored"
	FlagSkips            Flag = "skips_scored"
	FlagEngaged30s       Flag = "30s_scored"
	FlagProductDwell60s  Flag = "60s_product_scored"
	FlagIdle60s          Flag = "idle60_scored"
	FlagFastScroll       Flag = "scrollfast_scored"
	FlagNonCommerceClick Flag = "noncommerce_scored"
	FlagStickyShown      Flag = "sticky_shown"
	FlagLocked           Flag = "locked"
)

// AllFlags lists every flag in a stable order.
var AllFlags = []Flag{
	FlagReferrer, FlagDevice, FlagUTM, FlagLogin, FlagSkips, FlagEngaged30s,
	FlagProductDwell60s, FlagIdle60s, FlagFastScroll, FlagNonCommerceClick,
	FlagStickyShown, FlagLocked,
}

func (f Flag) key() string { return keyPrefix + string(f) }

// Visit is one page load in the navigation history.
type Visit struct {
	Time int64  `json:"time"` // unix milliseconds
	Path string `json:"path"`
}

// At returns the visit time.
func (v Visit) At() time.Time { return time.UnixMilli(v.Time) }

// Record is a point-in-time copy of everything persisted for a session.
type Record struct {
	SessionID string        `json:"session_id"`
	Score     int           `json:"score"`
	Flags     map[Flag]bool `json:"flags"`
	History   []Visit       `json:"history"`
}

// State is a typed view over one session in a Store. Every mutation is a
// single read-modify-write against the store. Store failures are logged and
// the safe default is used instead.
type State struct {
	store  Store
	id     string
	logger *slog.Logger
}

func NewState(store Store, sessionID string, logger *slog.Logger) *State {
	return &State{store: store, id: sessionID, logger: logger}
}

func (s *State) ID() string { return s.id }

// Score returns the persisted score, or 0 when it is absent or unparsable.
func (s *State) Score(ctx context.Context) int {
	raw, ok := s.get(ctx, scoreKey)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		s.logger.Debug("discarding corrupt score", "session_id", s.id, "value", raw)
		return 0
	}
	return n
}

// AddScore applies delta to the persisted score and returns the new total.
func (s *State) AddScore(ctx context.Context, delta int) int {
	score := s.Score(ctx) + delta
	s.set(ctx, scoreKey, strconv.Itoa(score))
	return score
}

// Has reports whether the flag is set.
func (s *State) Has(ctx context.Context, f Flag) bool {
	v, ok := s.get(ctx, f.key())
	return ok && v != ""
}

// Mark sets the flag. Flags are never cleared except by ending the session.
func (s *State) Mark(ctx context.Context, f Flag) {
	s.set(ctx, f.key(), "1")
}

// History returns the persisted navigation history, oldest first. A missing
// or corrupt value yields an empty history.
func (s *State) History(ctx context.Context) []Visit {
	raw, ok := s.get(ctx, historyKey)
	if !ok || raw == "" {
		return nil
	}
	var visits []Visit
	if err := json.Unmarshal([]byte(raw), &visits); err != nil {
		s.logger.Debug("discarding corrupt navigation history", "session_id", s.id, "error", err)
		return nil
	}
	return visits
}

// RecordVisit appends v to the history, keeps the newest MaxHistory entries
// and returns the stored history.
func (s *State) RecordVisit(ctx context.Context, v Visit) []Visit {
	visits := append(s.History(ctx), v)
	if len(visits) > MaxHistory {
		visits = visits[len(visits)-MaxHistory:]
	}
	data, err := json.Marshal(visits)
	if err != nil {
		s.logger.Warn("failed to encode navigation history", "session_id", s.id, "error", err)
		return visits
	}
	s.set(ctx, historyKey, string(data))
	return visits
}

// Snapshot reads the full record.
func (s *State) Snapshot(ctx context.Context) Record {
	flags := make(map[Flag]bool, len(AllFlags))
	for _, f := range AllFlags {
		if s.Has(ctx, f) {
			flags[f] = true
		}
	}
	return Record{
		SessionID: s.id,
		Score:     s.Score(ctx),
		Flags:     flags,
		History:   s.History(ctx),
	}
}

// End removes every persisted key of the session.
func (s *State) End(ctx context.Context) error {
	return s.store.Clear(ctx, s.id)
}

func (s *State) get(ctx context.Context, key string) (string, bool) {
	v, ok, err := s.store.Get(ctx, s.id, key)
	if err != nil {
		s.logger.Warn("session store read failed", "session_id", s.id, "key", key, "error", err)
		return "", false
	}
	return v, ok
}

func (s *State) set(ctx context.Context, key, value string) {
	if err := s.store.Set(ctx, s.id, key, value); err != nil {
		s.logger.Warn("session store write failed", "session_id", s.id, "key", key, "error", err)
	}
}
