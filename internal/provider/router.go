package provider

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Router manages the registered LLM providers and picks one per request.
// The first registered provider becomes the default; the rest form the
// fallback chain in registration order.
type Router struct {
	providers map[string]Provider
	order     []string
	defaults  string
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewRouter creates a new provider router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		providers: make(map[string]Provider),
		logger:    logger,
	}
}

// Register adds a provider to the router.
func (r *Router) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[p.ID()]; !ok {
		r.order = append(r.order, p.ID())
	}
	r.providers[p.ID()] = p
	if r.defaults == "" {
		r.defaults = p.ID()
	}
	r.logger.Info("registered provider", zap.String("id", p.ID()), zap.String("name", p.Name()))
}

// SetDefault sets the default provider.
func (r *Router) SetDefault(providerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults = providerID
}

// DefaultID returns the current default provider ID.
func (r *Router) DefaultID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults
}

// Chain returns the default provider followed by the fallbacks, in order.
func (r *Router) Chain() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chain := make([]Provider, 0, len(r.order))
	if p, ok := r.providers[r.defaults]; ok {
		chain = append(chain, p)
	}
	for _, id := range r.order {
		if id == r.defaults {
			continue
		}
		chain = append(chain, r.providers[id])
	}
	return chain
}

// GetProvider returns a provider by ID.
func (r *Router) GetProvider(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// ErrNoProvider is returned when no provider is registered.
var ErrNoProvider = fmt.Errorf("no provider registered")
