package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/edupulse/internal/classifier"
	"github.com/edupulse/edupulse/internal/domain"
)

func fitArtifact(t *testing.T, d domain.Domain, features []string) *classifier.Pipeline {
	t.Helper()
	p, err := classifier.NewPipeline(string(d), classifier.AlgoLogistic, features, nil, 1)
	require.NoError(t, err)

	var X [][]float64
	var y []int
	for i := range 10 {
		row := make([]float64, len(features))
		for j := range row {
			row[j] = float64(i + j)
		}
		X = append(X, row)
		y = append(y, i%2)
	}
	require.NoError(t, p.Fit(X, y))
	return p
}

func countingLoader(r *Registry) *atomic.Int32 {
	var calls atomic.Int32
	inner := r.load
	r.load = func(path string) (*classifier.Pipeline, error) {
		calls.Add(1)
		return inner(path)
	}
	return &calls
}

func TestGet_LoadsArtifact(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, nil)
	require.NoError(t, fitArtifact(t, domain.Engineering, domain.FeaturesFor(domain.Engineering)).Save(r.Path(domain.Engineering)))

	m, ok := r.Get(context.Background(), domain.Engineering)
	require.True(t, ok)
	assert.Equal(t, domain.FeaturesFor(domain.Engineering), m.Features())

	p, err := m.PredictProba(make([]float64, len(m.Features())))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, p, 0.0)
	assert.LessOrEqual(t, p, 1.0)
}

func TestGet_MissingArtifactCachedAsAbsent(t *testing.T) {
	r := New(t.TempDir(), nil)
	calls := countingLoader(r)

	for range 3 {
		m, ok := r.Get(context.Background(), domain.Medical)
		assert.False(t, ok)
		assert.Nil(t, m)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestGet_UnknownDomainSkipsFilesystem(t *testing.T) {
	r := New(t.TempDir(), nil)
	calls := countingLoader(r)

	_, ok := r.Get(context.Background(), domain.Domain("../../etc/passwd"))
	assert.False(t, ok)
	assert.Zero(t, calls.Load())
}

func TestGet_SchemaDriftIsAbsent(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, nil)
	require.NoError(t, fitArtifact(t, domain.Commerce, domain.BaseFeatures()).Save(r.Path(domain.Commerce)))

	_, ok := r.Get(context.Background(), domain.Commerce)
	assert.False(t, ok)

	var st Status
	for _, s := range r.Status() {
		if s.Domain == "ca" {
			st = s
		}
	}
	assert.Equal(t, StateAbsent, st.State)
	assert.Contains(t, st.Error, "schema drift")
}

func TestGet_ConcurrentCallersLoadOnce(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, nil)
	require.NoError(t, fitArtifact(t, domain.MBA, domain.FeaturesFor(domain.MBA)).Save(r.Path(domain.MBA)))
	calls := countingLoader(r)

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := r.Get(context.Background(), domain.MBA)
			assert.True(t, ok)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestPreloadAndStatus(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, nil)
	require.NoError(t, fitArtifact(t, domain.School, domain.FeaturesFor(domain.School)).Save(r.Path(domain.School)))

	before := r.Status()
	require.Len(t, before, len(domain.All()))
	for _, s := range before {
		assert.Equal(t, StatePending, s.State)
	}

	require.NoError(t, r.Preload(context.Background()))

	for _, s := range r.Status() {
		if s.Domain == "school" {
			assert.Equal(t, StateLoaded, s.State)
			assert.Equal(t, "logistic_regression", s.Algorithm)
			assert.Empty(t, s.Error)
		} else {
			assert.Equal(t, StateAbsent, s.State, s.Domain)
			assert.NotEmpty(t, s.Error)
		}
	}
}

func TestPreload_CancelledContext(t *testing.T) {
	r := New(t.TempDir(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Preload(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
