// Package store provides durable session.Store backends.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/ghostrev/internal/session"
)

// Backend is a session store that holds resources.
type Backend interface {
	session.Store
	Close() error
}

// Open picks a backend from the database URL: postgres:// or postgresql://
// use Postgres, sqlite:// uses an SQLite file.
func Open(ctx context.Context, databaseURL string) (Backend, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return NewPostgres(ctx, databaseURL)
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(databaseURL, "sqlite://"))
	default:
		return nil, fmt.Errorf("unsupported database url scheme: %q", schemeOf(databaseURL))
	}
}

func schemeOf(u string) string {
	if i := strings.Index(u, "://"); i >= 0 {
		return u[:i]
	}
	return u
}
