package inference

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

const recentRequestCap = 64

// RequestRecord is one completed inference request in the audit trail.
type RequestRecord struct {
	ID       uuid.UUID     `json:"id"`
	EntityID uint64        `json:"entity_id"`
	Source   string        `json:"source"`
	Latency  time.Duration `json:"latency"`
	Err      string        `json:"err,omitempty"`
	At       time.Time     `json:"at"`
}

// Metrics tracks inference subsystem health. Safe for concurrent use.
type Metrics struct {
	mu         sync.Mutex
	dispatched uint64
	succeeded  uint64
	failed     uint64
	timedOut   uint64
	dropped    uint64 // stale-generation results discarded
	latencies  []float64
	recent     []RequestRecord
}

// NewMetrics returns empty metrics.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Dispatched increments the dispatch counter.
func (m *Metrics) Dispatched() {
	m.mu.Lock()
	m.dispatched++
	m.mu.Unlock()
}

// Completed records a finished request with its outcome.
func (m *Metrics) Completed(entityID uint64, source string, latency time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := RequestRecord{
		ID:       uuid.New(),
		EntityID: entityID,
		Source:   source,
		Latency:  latency,
		At:       time.Now(),
	}
	if err != nil {
		m.failed++
		rec.Err = err.Error()
	} else {
		m.succeeded++
		m.latencies = append(m.latencies, latency.Seconds())
		if len(m.latencies) > 1024 {
			m.latencies = m.latencies[len(m.latencies)-1024:]
		}
	}
	m.recent = append(m.recent, rec)
	if len(m.recent) > recentRequestCap {
		m.recent = m.recent[len(m.recent)-recentRequestCap:]
	}
}

// TimedOut increments the timeout counter.
func (m *Metrics) TimedOut() {
	m.mu.Lock()
	m.timedOut++
	m.mu.Unlock()
}

// Dropped increments the stale-result counter.
func (m *Metrics) Dropped() {
	m.mu.Lock()
	m.dropped++
	m.mu.Unlock()
}

// Snapshot is a point-in-time view of the metrics for the API.
type Snapshot struct {
	Dispatched     uint64          `json:"dispatched"`
	Succeeded      uint64          `json:"succeeded"`
	Failed         uint64          `json:"failed"`
	TimedOut       uint64          `json:"timed_out"`
	Dropped        uint64          `json:"dropped"`
	MeanLatencySec float64         `json:"mean_latency_sec"`
	Recent         []RequestRecord `json:"recent"`
}

// Snapshot copies the current metrics.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Dispatched: m.dispatched,
		Succeeded:  m.succeeded,
		Failed:     m.failed,
		TimedOut:   m.timedOut,
		Dropped:    m.dropped,
		Recent:     append([]RequestRecord(nil), m.recent...),
	}
	if len(m.latencies) > 0 {
		s.MeanLatencySec = stat.Mean(m.latencies, nil)
	}
	return s
}
