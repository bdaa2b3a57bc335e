// Package registry resolves a domain to its trained classifier. Each domain's
// artifact is loaded at most once per process; a failed load is remembered
// as absent and callers degrade to rule scoring.
package registry

import (
	"context"
	"path/filepath"
	"slices"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/edupulse/edupulse/internal/classifier"
	"github.com/edupulse/edupulse/internal/domain"
	"github.com/edupulse/edupulse/internal/metrics"
)

// State is the load state of a domain's model.
type State string

const (
	StatePending State = "pending"
	StateLoaded  State = "loaded"
	StateAbsent  State = "absent"
)

// Status describes one domain's model slot.
type Status struct {
	Domain    string  `json:"domain"`
	Path      string  `json:"path"`
	State     State   `json:"state"`
	Algorithm string  `json:"algorithm,omitempty"`
	Accuracy  float64 `json:"accuracy,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// Loader reads an artifact from disk.
type Loader func(path string) (*classifier.Pipeline, error)

type entry struct {
	once sync.Once

	mu    sync.RWMutex
	state State
	model *classifier.Pipeline
	err   error
}

// Registry caches per-domain classifiers loaded from a models directory.
type Registry struct {
	dir     string
	load    Loader
	metrics *metrics.Metrics

	mu      sync.Mutex
	entries map[domain.Domain]*entry
}

// New returns a registry reading artifacts from dir. m may be nil.
func New(dir string, m *metrics.Metrics) *Registry {
	return &Registry{
		dir:     dir,
		load:    classifier.Load,
		metrics: m,
		entries: make(map[domain.Domain]*entry),
	}
}

// Path is the artifact location for d.
func (r *Registry) Path(d domain.Domain) string {
	return filepath.Join(r.dir, domain.ModelFilename(d))
}

func (r *Registry) entry(d domain.Domain) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[d]
	if !ok {
		e = &entry{state: StatePending}
		r.entries[d] = e
	}
	return e
}

// Get returns the model for d, loading it on first use. The boolean is false
// when the domain is unknown or its model could not be loaded.
func (r *Registry) Get(_ context.Context, d domain.Domain) (classifier.Predictor, bool) {
	if !d.Known() {
		return nil, false
	}
	e := r.entry(d)
	e.once.Do(func() { r.loadEntry(d, e) })

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state != StateLoaded {
		return nil, false
	}
	return e.model, true
}

func (r *Registry) loadEntry(d domain.Domain, e *entry) {
	path := r.Path(d)
	p, err := r.load(path)
	if err == nil {
		if want := domain.FeaturesFor(d); !slices.Equal(p.Features(), want) {
			err = eris.Errorf("registry: schema drift for %s: artifact features %v, want %v", d, p.Features(), want)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.state = StateAbsent
		e.err = err
		r.metrics.ModelLoad(string(d), string(StateAbsent))
		zap.L().Warn("registry: model unavailable, using rule scoring",
			zap.String("domain", string(d)),
			zap.String("path", path),
			zap.Error(err),
		)
		return
	}
	e.state = StateLoaded
	e.model = p
	r.metrics.ModelLoad(string(d), string(StateLoaded))
	zap.L().Info("registry: model loaded",
		zap.String("domain", string(d)),
		zap.String("algorithm", string(p.Algorithm)),
		zap.Float64("accuracy", p.Metrics.Accuracy),
	)
}

// Preload attempts to load every known domain concurrently. Load failures are
// recorded as absent; only context cancellation is returned.
func (r *Registry) Preload(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range domain.All() {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r.Get(gctx, d)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "registry: preload")
	}
	return nil
}

// Status reports every known domain in canonical order.
func (r *Registry) Status() []Status {
	out := make([]Status, 0, len(domain.All()))
	for _, d := range domain.All() {
		s := Status{Domain: string(d), Path: r.Path(d), State: StatePending}

		r.mu.Lock()
		e, ok := r.entries[d]
		r.mu.Unlock()
		if ok {
			e.mu.RLock()
			s.State = e.state
			if e.model != nil {
				s.Algorithm = string(e.model.Algorithm)
				s.Accuracy = e.model.Metrics.Accuracy
			}
			if e.err != nil {
				s.Error = e.err.Error()
			}
			e.mu.RUnlock()
		}
		out = append(out, s)
	}
	return out
}
