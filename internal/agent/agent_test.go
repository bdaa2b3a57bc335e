package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/edupulse/internal/config"
	"github.com/edupulse/edupulse/internal/model"
	"github.com/edupulse/edupulse/internal/resilience"
)

type mockSaver struct {
	mock.Mock
}

func (m *mockSaver) SaveCallLog(ctx context.Context, s model.CallSummary) (*model.CallLog, error) {
	args := m.Called(ctx, s)
	log, _ := args.Get(0).(*model.CallLog)
	return log, args.Error(1)
}

type recordingNotifier struct {
	mu   sync.Mutex
	got  []model.CallSummary
	fail error
}

func (r *recordingNotifier) Deliver(_ context.Context, s model.CallSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, s)
	return r.fail
}

func (r *recordingNotifier) summaries() []model.CallSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.CallSummary(nil), r.got...)
}

func TestOutcomeFor_Deterministic(t *testing.T) {
	seen := map[model.Sentiment]bool{}
	for _, id := range []string{"STU_0", "STU_1", "STU_2", "STU_3", "101", "abc", "S-9", "S-10"} {
		a, b := OutcomeFor(id), OutcomeFor(id)
		assert.Equal(t, a, b)
		assert.True(t, a.Sentiment.Valid())
		seen[a.Sentiment] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestSimulator_TriggerDeliversSummary(t *testing.T) {
	rec := &recordingNotifier{}
	sim := NewSimulator(config.AgentConfig{RatePerSec: 100, Burst: 5}, rec)
	defer sim.Close()

	status, err := sim.Trigger("STU_7")
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, status.Status)
	assert.NotEmpty(t, status.CallID)
	assert.Contains(t, status.Message, "STU_7")

	sim.Wait()
	got := rec.summaries()
	require.Len(t, got, 1)
	assert.Equal(t, "STU_7", got[0].StudentID)
	assert.Equal(t, status.CallID, got[0].CallID)
	assert.Equal(t, OutcomeFor("STU_7").Sentiment, got[0].Sentiment)
}

func TestSimulator_TriggerRequiresID(t *testing.T) {
	sim := NewSimulator(config.AgentConfig{}, &recordingNotifier{})
	defer sim.Close()
	_, err := sim.Trigger("")
	assert.Error(t, err)
}

func TestSimulator_CloseInterruptsCalls(t *testing.T) {
	rec := &recordingNotifier{}
	sim := NewSimulator(config.AgentConfig{CallDelayMS: 60_000}, rec)

	_, err := sim.Trigger("STU_1")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		sim.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not interrupt the call")
	}
	assert.Empty(t, rec.summaries())

	_, err = sim.Trigger("STU_2")
	assert.ErrorContains(t, err, "closed")
}

func TestSimulator_CallPropagatesDeliveryError(t *testing.T) {
	rec := &recordingNotifier{fail: errors.New("webhook down")}
	sim := NewSimulator(config.AgentConfig{}, rec)
	defer sim.Close()

	summary, err := sim.Call(context.Background(), "STU_3", "call-3")
	require.Error(t, err)
	assert.Equal(t, "call-3", summary.CallID)
}

func TestSimulator_RateLimited(t *testing.T) {
	sim := NewSimulator(config.AgentConfig{RatePerSec: 20, Burst: 1}, &recordingNotifier{})
	defer sim.Close()

	start := time.Now()
	for i := range 3 {
		_, err := sim.Call(context.Background(), "S", string(rune('a'+i)))
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestStoreNotifier(t *testing.T) {
	saver := &mockSaver{}
	summary := OutcomeFor("S1").Summary("S1", "c1")
	saver.On("SaveCallLog", mock.Anything, summary).Return(&model.CallLog{ID: "x"}, nil).Once()

	require.NoError(t, NewStoreNotifier(saver).Deliver(context.Background(), summary))
	saver.AssertExpectations(t)

	failing := &mockSaver{}
	failing.On("SaveCallLog", mock.Anything, mock.Anything).Return(nil, errors.New("disk full"))
	err := NewStoreNotifier(failing).Deliver(context.Background(), summary)
	assert.ErrorContains(t, err, "agent: save call log")
}

func TestWebhookNotifier_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	var got model.CallSummary
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, srv.Client(), resilience.Policy{Attempts: 3, Backoff: time.Millisecond})
	summary := OutcomeFor("S9").Summary("S9", "call-9")
	require.NoError(t, n.Deliver(context.Background(), summary))
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, summary, got)
}

func TestWebhookNotifier_PermanentFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, srv.Client(), resilience.Policy{Attempts: 3, Backoff: time.Millisecond})
	err := n.Deliver(context.Background(), OutcomeFor("S1").Summary("S1", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Equal(t, int32(1), calls.Load())
}
