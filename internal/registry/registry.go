// Package registry tracks which models the provider currently offers. It
// caches the listing with a TTL so conversational traffic never waits on a
// catalog query, and degrades to stale data or a static fallback set rather
// than surfacing listing failures to the user.
package registry

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/zrlgs/gembot/internal/log"
)

// DefaultTTL is how long a fetched model listing stays fresh.
const DefaultTTL = 5 * time.Minute

// ModelInfo describes one provider model.
type ModelInfo struct {
	// ID is the bare model id, without the provider's "models/" resource
	// prefix.
	ID          string
	DisplayName string

	// SupportsGeneration reports whether the model can serve content
	// generation. Models without it are filtered out of the registry.
	SupportsGeneration bool
}

// Lister queries the provider for its model catalog.
type Lister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// Registry serves the model catalog with a TTL cache.
//
// Lookups never fail: a listing error falls back to the previously cached
// catalog, and with no cache at all to a static fallback set. The cache is
// swapped as a whole value; concurrent refreshes may duplicate a provider
// query but cannot corrupt it.
type Registry struct {
	lister   Lister
	fallback map[string]string
	ttl      time.Duration
	logger   log.Logger

	// now is replaceable in tests.
	now func() time.Time

	mu        sync.Mutex
	cache     map[string]string
	fetchedAt time.Time
}

// New creates a registry over lister. fallback maps model id to display name
// and is served verbatim when the provider is unreachable and no cached
// listing exists; it is never filtered or prefixed-stripped.
func New(lister Lister, fallback map[string]string, ttl time.Duration, logger log.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Registry{
		lister:   lister,
		fallback: fallback,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Models returns the current catalog as id to display name. It serves the
// cache while fresh, refreshes from the provider when stale, and degrades to
// the stale cache or the fallback set when the provider errors. It never
// returns an error; failures are logged.
func (r *Registry) Models(ctx context.Context) map[string]string {
	r.mu.Lock()
	if r.cache != nil && r.now().Sub(r.fetchedAt) < r.ttl {
		cached := r.cache
		r.mu.Unlock()
		return cached
	}
	stale := r.cache
	r.mu.Unlock()

	infos, err := r.lister.ListModels(ctx)
	if err != nil {
		served := stale
		if served != nil {
			r.logger.Warn("model listing failed, serving stale cache",
				"error", err,
				"cached_models", len(served))
		} else {
			served = r.fallback
			r.logger.Warn("model listing failed, serving fallback set",
				"error", err,
				"fallback_models", len(served))
		}
		// Cache the degraded result under the TTL too; while the provider
		// is down it is retried at most once per TTL, not on every lookup.
		r.store(served)
		return served
	}

	fresh := make(map[string]string, len(infos))
	for _, m := range infos {
		if !m.SupportsGeneration {
			continue
		}
		id := strings.TrimPrefix(m.ID, "models/")
		name := m.DisplayName
		if name == "" {
			name = id
		}
		fresh[id] = name
	}

	r.store(fresh)
	r.logger.Debug("model catalog refreshed", "models", len(fresh))
	return fresh
}

func (r *Registry) store(catalog map[string]string) {
	r.mu.Lock()
	r.cache = catalog
	r.fetchedAt = r.now()
	r.mu.Unlock()
}

// DisplayName returns the display name for id, or id itself when the catalog
// has no entry for it.
func (r *Registry) DisplayName(ctx context.Context, id string) string {
	if name, ok := r.Models(ctx)[id]; ok && name != "" {
		return name
	}
	return id
}
