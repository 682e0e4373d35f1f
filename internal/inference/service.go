package inference

import (
	"context"
	"log/slog"
	"time"

	"github.com/sparkfield/sparkfield/internal/entity"
)

// Phase timing in simulation time units, and the energy price of a
// thinking cycle.
const (
	PreparingDuration  = 1.0
	ProcessingDuration = 1.0
	ThinkingTimeout    = 15.0
	ThinkingEnergyCost = 30.0
)

// result is one finished backend call arriving on the inbox.
type result struct {
	entityID   entity.ID
	generation uint64
	decision   *Decision
	err        error
	latency    time.Duration
}

// Service runs the inference cycle for all entities. Backend calls run
// in goroutines; everything else happens on the simulation goroutine,
// with results crossing over through the inbox. Apply-at-most-once is
// enforced by the per-entity generation counter: timeouts bump it, so a
// late result can never land after the entity moved on.
type Service struct {
	backend Backend
	metrics *Metrics
	inbox   chan result
	pending map[entity.ID]*Decision
	timeout time.Duration

	// OnDecision, when set, observes every applied or failed decision.
	OnDecision func(entityID uint64, d *Decision, err error, now float64)
}

// NewService creates the inference service around a backend.
func NewService(backend Backend) *Service {
	return &Service{
		backend: backend,
		metrics: NewMetrics(),
		inbox:   make(chan result, 256),
		pending: make(map[entity.ID]*Decision),
		timeout: 25 * time.Second,
	}
}

// Metrics exposes the service's counters for the API.
func (s *Service) Metrics() *Metrics { return s.metrics }

// Step advances every entity's inference machine by one tick. Runs on
// the simulation goroutine.
func (s *Service) Step(entities []*entity.Entity, now float64) {
	for _, e := range entities {
		if e.Removed || e.State == entity.StateFading {
			continue
		}
		st := &e.Inference
		switch st.Status {
		case entity.InferIdle:
			if s.eligible(e, now) {
				st.Status = entity.InferPreparing
				st.PhaseStart = now
			}

		case entity.InferPreparing:
			if now-st.PhaseStart < PreparingDuration {
				continue
			}
			if e.Energy < ThinkingEnergyCost {
				// Can no longer afford the cycle.
				st.Status = entity.InferIdle
				st.LastTime = now
				continue
			}
			e.SpendEnergy(ThinkingEnergyCost)
			st.Generation++
			st.Status = entity.InferThinking
			st.PhaseStart = now
			s.dispatch(e, st.Generation, now)

		case entity.InferThinking:
			if now-st.PhaseStart < ThinkingTimeout {
				continue
			}
			// Timed out: invalidate the in-flight call and wind down
			// through the processing buffer like any other completion.
			st.Generation++
			st.Status = entity.InferProcessing
			st.PhaseStart = now
			delete(s.pending, e.ID)
			s.metrics.TimedOut()
			e.Memory.AddInference(e.Pos, "", "inference timed out", false, now)
			slog.Warn("inference timed out", "entity", e.ID, "generation", st.Generation-1)

		case entity.InferProcessing:
			if now-st.PhaseStart < ProcessingDuration {
				continue
			}
			s.apply(e, now)
		}
	}
}

// eligible gates inference on the entity's own cadence and energy.
func (s *Service) eligible(e *entity.Entity, now float64) bool {
	if e.Energy < e.Params.InferenceThreshold {
		return false
	}
	return now-e.Inference.LastTime >= e.Params.InferenceInterval
}

// dispatch snapshots the entity and calls the backend off-thread.
func (s *Service) dispatch(e *entity.Entity, generation uint64, now float64) {
	dc := BuildContext(e, now)
	id := e.ID
	s.metrics.Dispatched()

	go func() {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		d, err := s.backend.Decide(ctx, dc)
		cancel()

		r := result{
			entityID:   id,
			generation: generation,
			decision:   d,
			err:        err,
			latency:    time.Since(start),
		}
		select {
		case s.inbox <- r:
		default:
			// Inbox full. Counting it dropped is better than stalling
			// a worker goroutine forever.
			s.metrics.Dropped()
		}
	}()
}

// Drain consumes every queued result. Called once per tick at a fixed
// point, after behavior updates.
func (s *Service) Drain(index map[entity.ID]*entity.Entity, now float64) {
	for {
		select {
		case r := <-s.inbox:
			s.receive(r, index, now)
		default:
			return
		}
	}
}

func (s *Service) receive(r result, index map[entity.ID]*entity.Entity, now float64) {
	e, ok := index[r.entityID]
	if !ok || e.Removed || e.Inference.Status != entity.InferThinking || e.Inference.Generation != r.generation {
		s.metrics.Dropped()
		return
	}

	source := "local"
	if r.decision != nil {
		source = r.decision.Source
	}
	s.metrics.Completed(uint64(r.entityID), source, r.latency, r.err)

	if r.err != nil {
		// Failure still advances through Processing; apply finds no
		// pending decision and simply winds the machine back to Idle.
		e.Inference.Status = entity.InferProcessing
		e.Inference.PhaseStart = now
		e.Memory.AddInference(e.Pos, "", "inference failed: "+r.err.Error(), false, now)
		if s.OnDecision != nil {
			s.OnDecision(uint64(e.ID), nil, r.err, now)
		}
		return
	}

	s.pending[e.ID] = r.decision
	e.Inference.Status = entity.InferProcessing
	e.Inference.PhaseStart = now
}

// apply commits a pending decision to the entity's parameters.
func (s *Service) apply(e *entity.Entity, now float64) {
	d := s.pending[e.ID]
	delete(s.pending, e.ID)

	st := &e.Inference
	st.Status = entity.InferIdle
	st.LastTime = now
	if d == nil {
		return
	}

	applied := 0
	for name, v := range d.Changes {
		if e.Params.Set(name, v) {
			applied++
		}
	}
	st.LastReasoning = d.Reasoning
	e.Memory.AddInference(e.Pos, d.Reasoning, d.Summary(), true, now)
	if s.OnDecision != nil {
		s.OnDecision(uint64(e.ID), d, nil, now)
	}
	slog.Debug("inference applied",
		"entity", e.ID, "source", d.Source, "changes", applied)
}
