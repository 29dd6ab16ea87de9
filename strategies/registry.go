package strategies

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

type Kind string

const (
	KindBuiltin    Kind = "builtin"
	KindSubprocess Kind = "subprocess"
	KindModel      Kind = "model"
)

// Definition describes how to build a strategy. Builtins are looked up by
// Name, subprocess and model strategies are loaded from Path.
type Definition struct {
	ID     string `yaml:"id" json:"id"`
	Kind   Kind   `yaml:"kind" json:"kind"`
	Name   string `yaml:"name,omitempty" json:"name,omitempty"`
	Path   string `yaml:"path,omitempty" json:"path,omitempty"`
	Params Params `yaml:"params,omitempty" json:"params,omitempty"`
}

// Factory builds a fresh builtin strategy from params.
type Factory func(p Params) (Strategy, error)

// Registry holds strategy definitions and a cache of loaded instances.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	builtins map[string]Factory
	defs     map[string]Definition
	loaded   map[string]Strategy
	log      *slog.Logger
}

// NewRegistry returns a registry with the noop, open-once and ema-cross
// builtins registered and defined under their own names.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		builtins: make(map[string]Factory),
		defs:     make(map[string]Definition),
		loaded:   make(map[string]Strategy),
		log:      logger,
	}
	r.RegisterBuiltin("noop", func(Params) (Strategy, error) { return Noop{}, nil })
	r.RegisterBuiltin("open-once", NewOpenOnce)
	r.RegisterBuiltin("ema-cross", NewEMACrossFromParams)
	return r
}

// RegisterBuiltin adds an in-process factory and defines it under its name.
func (r *Registry) RegisterBuiltin(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builtins[name] = f
	if _, ok := r.defs[name]; !ok {
		r.defs[name] = Definition{ID: name, Kind: KindBuiltin, Name: name}
	}
}

// Define adds or replaces a definition. A replaced definition's cached
// instance is evicted.
func (r *Registry) Define(d Definition) error {
	if d.ID == "" {
		return fmt.Errorf("strategy definition: id is required")
	}
	if d.Kind == "" {
		d.Kind = KindBuiltin
	}
	switch d.Kind {
	case KindBuiltin:
		if d.Name == "" {
			d.Name = d.ID
		}
	case KindSubprocess, KindModel:
		if d.Path == "" {
			return fmt.Errorf("strategy %q: path is required for kind %s", d.ID, d.Kind)
		}
	default:
		return fmt.Errorf("strategy %q: unknown kind %q", d.ID, d.Kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[d.ID] = d
	delete(r.loaded, d.ID)
	return nil
}

// Definitions returns all definitions sorted by id.
func (r *Registry) Definitions() []Definition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Load returns the cached instance for id, building it on first use.
func (r *Registry) Load(ctx context.Context, id string) (Strategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.loaded[id]; ok {
		return s, nil
	}
	s, err := r.buildLocked(ctx, id)
	if err != nil {
		return nil, err
	}
	r.loaded[id] = s
	r.log.Debug("strategy loaded", "id", id, "name", s.Name())
	return s, nil
}

// New builds a fresh, uncached instance for id. Concurrent runs should each
// use their own instance.
func (r *Registry) New(ctx context.Context, id string) (Strategy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buildLocked(ctx, id)
}

// Evict drops the cached instance for id. It reports whether one existed.
func (r *Registry) Evict(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.loaded[id]
	delete(r.loaded, id)
	if ok {
		r.log.Debug("strategy evicted", "id", id)
	}
	return ok
}

// Reload evicts and loads id again, picking up changed files on disk.
func (r *Registry) Reload(ctx context.Context, id string) (Strategy, error) {
	r.Evict(id)
	return r.Load(ctx, id)
}

// Loaded returns the ids with a cached instance, sorted.
func (r *Registry) Loaded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.loaded))
	for id := range r.loaded {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) buildLocked(ctx context.Context, id string) (Strategy, error) {
	d, ok := r.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, id)
	}

	switch d.Kind {
	case KindBuiltin:
		f, ok := r.builtins[d.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %q has no builtin %q", ErrUnknownStrategy, id, d.Name)
		}
		s, err := f(d.Params)
		if err != nil {
			return nil, fmt.Errorf("build strategy %q: %w", id, err)
		}
		return s, nil
	case KindSubprocess:
		return NewSubprocess(d.ID, d.Path, d.Params), nil
	case KindModel:
		m, err := LoadModel(d.ID, d.Path)
		if err != nil {
			return nil, fmt.Errorf("build strategy %q: %w", id, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %q has kind %q", ErrUnknownStrategy, id, d.Kind)
	}
}
