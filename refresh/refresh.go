// Package refresh rebuilds a game's catalog from a registry and commits it
// to the cache.
package refresh

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/git-pkgs/tsmm/internal/core"
)

// Lister returns the full package listing for a game. core.Registry
// satisfies it.
type Lister interface {
	ListPackages(ctx context.Context, game string) ([]core.CatalogEntry, error)
}

// Committer persists a catalog. *cache.Store satisfies it.
type Committer interface {
	Commit(game string, catalog core.Catalog, ts time.Time) error
}

// RefreshError reports which step of a refresh failed.
type RefreshError struct {
	Game string
	Op   string
	Err  error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refreshing %s: %s: %v", e.Game, e.Op, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// Refresher coordinates a single refresh.
type Refresher struct {
	lister    Lister
	committer Committer
	now       func() time.Time
	logger    *log.Logger
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithClock overrides the source of the refresh timestamp.
func WithClock(now func() time.Time) Option {
	return func(r *Refresher) {
		r.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Refresher) {
		r.logger = l
	}
}

func New(lister Lister, committer Committer, opts ...Option) *Refresher {
	r := &Refresher{
		lister:    lister,
		committer: committer,
		now:       time.Now,
		logger:    log.NewWithOptions(os.Stderr, log.Options{Prefix: "refresh"}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh fetches the listing for game, builds a new catalog and commits it.
// Nothing is committed unless the listing succeeds, so on error the caller's
// catalog and the on-disk cache are still the previous ones.
func (r *Refresher) Refresh(ctx context.Context, game string) (core.Catalog, time.Time, error) {
	start := r.now()
	r.logger.Debug("fetching listing", "game", game)

	entries, err := r.lister.ListPackages(ctx, game)
	if err != nil {
		return nil, time.Time{}, &RefreshError{Game: game, Op: "list", Err: err}
	}

	catalog := core.NewCatalog(entries)
	ts := r.now().Truncate(time.Second)

	if err := r.committer.Commit(game, catalog, ts); err != nil {
		return nil, time.Time{}, &RefreshError{Game: game, Op: "commit", Err: err}
	}

	r.logger.Info("refreshed catalog", "game", game, "packages", len(catalog), "took", r.now().Sub(start).Round(time.Millisecond))
	return catalog, ts, nil
}
