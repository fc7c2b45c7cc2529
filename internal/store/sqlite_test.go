package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/ghostrev/internal/session"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "ghostrev.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_GetSet(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "sess", "ghostrev_score"); err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}

	if err := s.Set(ctx, "sess", "ghostrev_score", "3"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set(ctx, "sess", "ghostrev_score", "-2"); err != nil {
		t.Fatalf("Set (overwrite) failed: %v", err)
	}

	v, ok, err := s.Get(ctx, "sess", "ghostrev_score")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if v != "-2" {
		t.Errorf("expected -2, got %q", v)
	}
}

func TestSQLite_Clear(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	s.Set(ctx, "a", "k", "1")
	s.Set(ctx, "b", "k", "2")

	if err := s.Clear(ctx, "a"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "a", "k"); ok {
		t.Error("session a still has keys")
	}
	if v, ok, _ := s.Get(ctx, "b", "k"); !ok || v != "2" {
		t.Error("clearing a affected session b")
	}
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ghostrev.db")
	ctx := context.Background()

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	st := session.NewState(s, "sess", slog.New(slog.NewTextHandler(io.Discard, nil)))
	st.AddScore(ctx, 4)
	st.Mark(ctx, session.FlagLocked)
	s.Close()

	s2, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()
	st2 := session.NewState(s2, "sess", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if st2.Score(ctx) != 4 || !st2.Has(ctx, session.FlagLocked) {
		t.Errorf("state lost across reopen: %+v", st2.Snapshot(ctx))
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite(context.Background(), "  "); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestOpen_Dispatch(t *testing.T) {
	ctx := context.Background()

	b, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "x.db"))
	if err != nil {
		t.Fatalf("Open sqlite failed: %v", err)
	}
	if _, ok := b.(*SQLite); !ok {
		t.Errorf("expected *SQLite, got %T", b)
	}
	b.Close()

	_, err = Open(ctx, "redis://localhost:6379")
	if err == nil || !strings.Contains(err.Error(), "redis") {
		t.Errorf("expected unsupported scheme error, got %v", err)
	}
}
