package agent

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/edupulse/edupulse/internal/config"
	"github.com/edupulse/edupulse/internal/model"
)

// StatusQueued is the status returned for an accepted call trigger.
const StatusQueued = "queued"

// Simulator places simulated calls. Dialing is rate limited across all
// callers; each call lasts CallDelay before its summary is delivered.
type Simulator struct {
	limiter  *rate.Limiter
	delay    time.Duration
	notifier Notifier

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSimulator creates a Simulator from the agent config.
func NewSimulator(cfg config.AgentConfig, n Notifier) *Simulator {
	limit := rate.Limit(cfg.RatePerSec)
	if cfg.RatePerSec <= 0 {
		limit = rate.Inf
	}
	burst := max(cfg.Burst, 1)
	ctx, cancel := context.WithCancel(context.Background())
	return &Simulator{
		limiter:  rate.NewLimiter(limit, burst),
		delay:    time.Duration(cfg.CallDelayMS) * time.Millisecond,
		notifier: n,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Trigger queues a call for studentID and returns immediately. The call runs
// in the background until it finishes or the simulator is closed.
func (s *Simulator) Trigger(studentID string) (model.CallStatus, error) {
	if studentID == "" {
		return model.CallStatus{}, eris.New("agent: student id is required")
	}
	if s.ctx.Err() != nil {
		return model.CallStatus{}, eris.New("agent: simulator is closed")
	}
	callID := uuid.NewString()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.Call(s.ctx, studentID, callID); err != nil {
			zap.L().Error("agent: call failed",
				zap.String("student_id", studentID),
				zap.String("call_id", callID),
				zap.Error(err),
			)
		}
	}()

	return model.CallStatus{
		Status:  StatusQueued,
		CallID:  callID,
		Message: "Agent is dialing student " + studentID,
	}, nil
}

// Call places one call synchronously and delivers its summary.
func (s *Simulator) Call(ctx context.Context, studentID, callID string) (model.CallSummary, error) {
	log := zap.L().With(zap.String("student_id", studentID), zap.String("call_id", callID))

	if err := s.limiter.Wait(ctx); err != nil {
		return model.CallSummary{}, eris.Wrap(err, "agent: wait for dial slot")
	}
	log.Info("agent: dialing")

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return model.CallSummary{}, eris.Wrap(ctx.Err(), "agent: call interrupted")
		case <-timer.C:
		}
	}

	summary := OutcomeFor(studentID).Summary(studentID, callID)
	if err := s.notifier.Deliver(ctx, summary); err != nil {
		return summary, err
	}
	log.Info("agent: call finished", zap.String("sentiment", string(summary.Sentiment)))
	return summary, nil
}

// Wait blocks until every triggered call has finished.
func (s *Simulator) Wait() {
	s.wg.Wait()
}

// Close interrupts in-flight calls and waits for them to return.
func (s *Simulator) Close() {
	s.cancel()
	s.wg.Wait()
}
