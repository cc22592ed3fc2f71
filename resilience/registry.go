package resilience

import (
	"sort"
	"sync"
)

// Resource bundles the resilience state scoped to one named dependency:
// its circuit breaker, bulkhead, optional rate limiter, and configuration.
// Resources are created by a Registry and live for the process lifetime.
type Resource struct {
	name     string
	config   Config
	breaker  *CircuitBreaker
	bulkhead *Bulkhead
	limiter  *RateLimiter
	timeout  *Timeout
}

// Name returns the resource identifier.
func (r *Resource) Name() string { return r.name }

// Config returns the resource configuration.
func (r *Resource) Config() Config { return r.config }

// Breaker returns the resource's circuit breaker.
func (r *Resource) Breaker() *CircuitBreaker { return r.breaker }

// Bulkhead returns the resource's concurrency limiter.
func (r *Resource) Bulkhead() *Bulkhead { return r.bulkhead }

// RateLimiter returns the resource's rate limiter, or nil.
func (r *Resource) RateLimiter() *RateLimiter { return r.limiter }

// Registry owns the per-resource resilience state. Resources are created
// lazily on first use with the registry defaults and replaced wholesale by
// Configure. There is no ambient global registry; callers construct and
// inject their own.
type Registry struct {
	defaults Config
	hooks    Hooks

	mu        sync.RWMutex
	resources map[string]*Resource
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDefaults sets the configuration applied to resources that are used
// before being configured.
func WithDefaults(cfg Config) RegistryOption {
	return func(r *Registry) {
		r.defaults = cfg
	}
}

// WithHooks sets observability callbacks wired into every resource.
func WithHooks(h Hooks) RegistryOption {
	return func(r *Registry) {
		r.hooks = h.merge(r.hooks)
	}
}

// NewRegistry creates a new resource registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		defaults:  DefaultConfig(),
		resources: make(map[string]*Resource),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Configure registers or fully replaces the configuration for a named
// resource. Replacement builds fresh components: no rolling-window samples,
// breaker state, or in-flight counters leak from the prior configuration.
// Executions already in flight finish against the components they started
// with.
func (r *Registry) Configure(name string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	res := r.build(name, cfg)

	r.mu.Lock()
	r.resources[name] = res
	r.mu.Unlock()
	return nil
}

// Resource returns the state for name, creating it with the registry
// defaults on first reference. Creation is idempotent under concurrency.
func (r *Registry) Resource(name string) *Resource {
	r.mu.RLock()
	res, ok := r.resources[name]
	r.mu.RUnlock()
	if ok {
		return res
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if res, ok := r.resources[name]; ok {
		return res
	}
	res = r.build(name, r.defaults)
	r.resources[name] = res
	return res
}

// Lookup returns the state for name without creating it.
func (r *Registry) Lookup(name string) (*Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[name]
	if !ok {
		return nil, ErrNoSuchResource
	}
	return res, nil
}

// Names returns the registered resource names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.resources))
	for name := range r.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Remove drops a resource from the registry. Executions in flight against
// it are unaffected.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.resources, name)
}

// State returns the circuit state for name.
func (r *Registry) State(name string) (State, error) {
	res, err := r.Lookup(name)
	if err != nil {
		return StateClosed, err
	}
	return res.breaker.State(), nil
}

// build constructs a resource, threading the registry hooks into the
// component callbacks alongside any the config already carries.
func (r *Registry) build(name string, cfg Config) *Resource {
	cfg = cfg.normalize()

	cbCfg := cfg.CircuitBreaker
	if h := r.hooks.OnCircuitStateChange; h != nil {
		user := cbCfg.OnStateChange
		cbCfg.OnStateChange = func(from, to State) {
			if user != nil {
				user(from, to)
			}
			h(name, from, to)
		}
	}

	bhCfg := cfg.Bulkhead
	if h := r.hooks.OnBulkheadReject; h != nil {
		user := bhCfg.OnReject
		bhCfg.OnReject = func() {
			if user != nil {
				user()
			}
			h(name)
		}
	}

	res := &Resource{
		name:     name,
		config:   cfg,
		breaker:  NewCircuitBreaker(cbCfg),
		bulkhead: NewBulkhead(bhCfg),
	}
	if cfg.RateLimiter != nil {
		res.limiter = NewRateLimiter(*cfg.RateLimiter)
	}
	if cfg.AttemptTimeout > 0 {
		toCfg := TimeoutConfig{Timeout: cfg.AttemptTimeout}
		if h := r.hooks.OnTimeout; h != nil {
			toCfg.OnTimeout = func() { h(name) }
		}
		res.timeout = NewTimeout(toCfg)
	}
	return res
}
