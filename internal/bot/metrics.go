package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	observemetrics "github.com/agendazap/agendazap/internal/observability/metrics"
	"github.com/agendazap/agendazap/pkg/logging"
)

const (
	metricsKey = "bot:metrics:current"
	metricsTTL = 7 * 24 * time.Hour
)

// counters is the raw accumulated state. Ratios are never stored here;
// Stats computes them at read time.
type counters struct {
	TotalMessages       int64            `json:"total_messages"`
	ByIntent            map[string]int64 `json:"by_intent"`
	BySource            map[string]int64 `json:"by_source"`
	ConfidenceSum       float64          `json:"confidence_sum"`
	ConfidenceCount     int64            `json:"confidence_count"`
	AppointmentsCreated int64            `json:"appointments_created"`
	AppointmentsFailed  int64            `json:"appointments_failed"`
	TurnsAtCompletion   int64            `json:"turns_at_completion"`
	Errors              int64            `json:"errors"`
	Handoffs            int64            `json:"handoffs"`
	HandoffReasons      map[string]int64 `json:"handoff_reasons"`
	MediaByType         map[string]int64 `json:"media_by_type"`
	ConfirmationsSent   int64            `json:"confirmations_sent"`
	Confirmed           int64            `json:"confirmed"`
	Rejected            int64            `json:"rejected"`
}

func newCounters() counters {
	return counters{
		ByIntent:       map[string]int64{},
		BySource:       map[string]int64{},
		HandoffReasons: map[string]int64{},
		MediaByType:    map[string]int64{},
	}
}

// Stats is the computed read-time snapshot.
type Stats struct {
	TotalMessages       int64            `json:"total_messages"`
	ByIntent            map[string]int64 `json:"by_intent"`
	BySource            map[string]int64 `json:"by_source"`
	AverageConfidence   float64          `json:"average_confidence"`
	MLUsageRate         float64          `json:"ml_usage_rate"`
	AppointmentsCreated int64            `json:"appointments_created"`
	AppointmentsFailed  int64            `json:"appointments_failed"`
	AppointmentSuccess  float64          `json:"appointment_success_rate"`
	TurnsPerAppointment float64          `json:"turns_per_appointment"`
	Errors              int64            `json:"errors"`
	ErrorRate           float64          `json:"error_rate"`
	Handoffs            int64            `json:"handoffs"`
	HandoffReasons      map[string]int64 `json:"handoff_reasons"`
	MediaByType         map[string]int64 `json:"media_by_type"`
	ConfirmationsSent   int64            `json:"confirmations_sent"`
	Confirmed           int64            `json:"confirmed"`
	Rejected            int64            `json:"rejected"`
	ConfirmationRate    float64          `json:"confirmation_rate"`
}

// Metrics accumulates bot health counters in memory. A Redis client is
// optional; when present, Flush and Restore persist the counters across
// restarts. Every record method is a plain increment and never fails.
type Metrics struct {
	mu     sync.Mutex
	c      counters
	prom   *observemetrics.BotMetrics
	redis  *redis.Client
	logger *logging.Logger
}

func NewMetrics(redisClient *redis.Client, logger *logging.Logger) *Metrics {
	if logger == nil {
		logger = logging.Default()
	}
	return &Metrics{c: newCounters(), redis: redisClient, logger: logger}
}

// MirrorTo publishes every subsequent increment to the Prometheus collectors
// as well, so /metrics tracks the same events as /bot/stats. A nil argument
// disables mirroring.
func (m *Metrics) MirrorTo(prom *observemetrics.BotMetrics) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.prom = prom
	m.mu.Unlock()
}

// RecordMessage counts one classified inbound message.
func (m *Metrics) RecordMessage(intent Intent, confidence float64, source string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.TotalMessages++
	m.c.ByIntent[string(intent)]++
	m.c.BySource[source]++
	m.c.ConfidenceSum += confidence
	m.c.ConfidenceCount++
	m.prom.ObserveMessage(string(intent), source)
}

func (m *Metrics) RecordError() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.Errors++
}

// RecordAppointmentCreated counts a booking completion and the turns it took.
func (m *Metrics) RecordAppointmentCreated(turns int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.AppointmentsCreated++
	m.c.TurnsAtCompletion += int64(turns)
	m.prom.ObserveAppointment(true)
}

func (m *Metrics) RecordAppointmentFailed() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.AppointmentsFailed++
	m.prom.ObserveAppointment(false)
}

func (m *Metrics) RecordHandoff(reason string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.Handoffs++
	m.c.HandoffReasons[reason]++
	m.prom.ObserveHandoff(reason)
}

// RecordMedia counts one inbound media message. Media turns carry no
// classification, so the confidence and intent tallies stay untouched while
// the total still covers them.
func (m *Metrics) RecordMedia(mediaType string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.TotalMessages++
	m.c.MediaByType[mediaType]++
	m.prom.ObserveMedia(mediaType)
}

func (m *Metrics) RecordConfirmationSent() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.ConfirmationsSent++
	m.prom.ObserveConfirmation("sent")
}

func (m *Metrics) RecordConfirmed() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.Confirmed++
	m.prom.ObserveConfirmation("confirmed")
}

func (m *Metrics) RecordRejected() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.Rejected++
	m.prom.ObserveConfirmation("rejected")
}

// Stats computes the snapshot. Ratios with a zero denominator read as zero.
func (m *Metrics) Stats() Stats {
	if m == nil {
		return Stats{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		TotalMessages:       m.c.TotalMessages,
		ByIntent:            copyCounts(m.c.ByIntent),
		BySource:            copyCounts(m.c.BySource),
		AppointmentsCreated: m.c.AppointmentsCreated,
		AppointmentsFailed:  m.c.AppointmentsFailed,
		Errors:              m.c.Errors,
		Handoffs:            m.c.Handoffs,
		HandoffReasons:      copyCounts(m.c.HandoffReasons),
		MediaByType:         copyCounts(m.c.MediaByType),
		ConfirmationsSent:   m.c.ConfirmationsSent,
		Confirmed:           m.c.Confirmed,
		Rejected:            m.c.Rejected,
	}
	if m.c.ConfidenceCount > 0 {
		s.AverageConfidence = m.c.ConfidenceSum / float64(m.c.ConfidenceCount)
	}
	if m.c.TotalMessages > 0 {
		s.MLUsageRate = float64(m.c.BySource[SourceML]) / float64(m.c.TotalMessages)
		s.ErrorRate = float64(m.c.Errors) / float64(m.c.TotalMessages)
	}
	if completions := m.c.AppointmentsCreated + m.c.AppointmentsFailed; completions > 0 {
		s.AppointmentSuccess = float64(m.c.AppointmentsCreated) / float64(completions)
	}
	if m.c.AppointmentsCreated > 0 {
		s.TurnsPerAppointment = float64(m.c.TurnsAtCompletion) / float64(m.c.AppointmentsCreated)
	}
	if m.c.ConfirmationsSent > 0 {
		s.ConfirmationRate = float64(m.c.Confirmed) / float64(m.c.ConfirmationsSent)
	}
	return s
}

// Flush persists the counters to Redis. A missing client is a no-op.
func (m *Metrics) Flush(ctx context.Context) error {
	if m == nil || m.redis == nil {
		return nil
	}
	m.mu.Lock()
	data, err := json.Marshal(m.c)
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("bot: marshal metrics: %w", err)
	}
	if err := m.redis.Set(ctx, metricsKey, data, metricsTTL).Err(); err != nil {
		return fmt.Errorf("bot: flush metrics: %w", err)
	}
	return nil
}

// Restore loads previously flushed counters. Absent or unreadable data
// leaves the in-memory counters untouched.
func (m *Metrics) Restore(ctx context.Context) error {
	if m == nil || m.redis == nil {
		return nil
	}
	data, err := m.redis.Get(ctx, metricsKey).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("bot: restore metrics: %w", err)
	}
	restored := newCounters()
	if err := json.Unmarshal(data, &restored); err != nil {
		m.logger.Warn("discarding unreadable persisted metrics", "error", err)
		return nil
	}
	if restored.ByIntent == nil {
		restored.ByIntent = map[string]int64{}
	}
	if restored.BySource == nil {
		restored.BySource = map[string]int64{}
	}
	if restored.HandoffReasons == nil {
		restored.HandoffReasons = map[string]int64{}
	}
	if restored.MediaByType == nil {
		restored.MediaByType = map[string]int64{}
	}
	m.mu.Lock()
	m.c = restored
	m.mu.Unlock()
	return nil
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
