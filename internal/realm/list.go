package realm

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/udisondev/realmd/internal/model"
)

// Loader reads the realm directory from persistent storage.
type Loader interface {
	LoadRealms(ctx context.Context) ([]model.Realm, error)
}

type snapshot struct {
	realms   []model.Realm
	loadedAt time.Time
}

// List caches the realm directory and reloads it when it gets older than
// the update interval. Reads never block on a reload in progress except for
// the callers that triggered it.
type List struct {
	loader   Loader
	interval time.Duration
	now      func() time.Time

	current atomic.Pointer[snapshot]
	group   singleflight.Group
}

// NewList creates a List. An interval of zero reloads on every UpdateIfNeed.
func NewList(loader Loader, interval time.Duration) *List {
	l := &List{
		loader:   loader,
		interval: interval,
		now:      time.Now,
	}
	l.current.Store(&snapshot{})
	return l
}

// Initialize performs the first load. Unlike UpdateIfNeed it reports errors.
func (l *List) Initialize(ctx context.Context) error {
	return l.reload(ctx)
}

// UpdateIfNeed reloads the directory when the cached copy is stale.
// Concurrent callers share a single reload. Load errors keep the previous
// list and are only logged.
func (l *List) UpdateIfNeed(ctx context.Context) {
	snap := l.current.Load()
	if !snap.loadedAt.IsZero() && l.now().Sub(snap.loadedAt) < l.interval {
		return
	}

	_, err, _ := l.group.Do("realms", func() (any, error) {
		return nil, l.reload(ctx)
	})
	if err != nil {
		slog.Warn("realm list update failed, keeping previous", "realms", len(snap.realms), "err", err)
	}
}

func (l *List) reload(ctx context.Context) error {
	realms, err := l.loader.LoadRealms(ctx)
	if err != nil {
		return err
	}

	sorted := slices.Clone(realms)
	slices.SortStableFunc(sorted, func(a, b model.Realm) int {
		return cmp.Compare(a.Name, b.Name)
	})

	l.current.Store(&snapshot{realms: sorted, loadedAt: l.now()})
	slog.Debug("realm list loaded", "realms", len(sorted))
	return nil
}

// Realms returns the cached realms ordered by name. The slice must not be
// modified.
func (l *List) Realms() []model.Realm {
	return l.current.Load().realms
}
