package metrics

import "github.com/prometheus/client_golang/prometheus"

// BotMetrics exposes Prometheus counters mirroring the bot's in-memory
// health counters so dashboards survive process restarts.
type BotMetrics struct {
	messagesTotal      *prometheus.CounterVec
	handoffsTotal      *prometheus.CounterVec
	mediaTotal         *prometheus.CounterVec
	appointmentsTotal  *prometheus.CounterVec
	confirmationsTotal *prometheus.CounterVec
	turnLatency        *prometheus.HistogramVec
}

func NewBotMetrics(reg prometheus.Registerer) *BotMetrics {
	m := &BotMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agendazap",
			Subsystem: "bot",
			Name:      "messages_total",
			Help:      "Total inbound messages by detected intent and source",
		}, []string{"intent", "source"}),
		handoffsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agendazap",
			Subsystem: "bot",
			Name:      "handoffs_total",
			Help:      "Total human handoffs by reason",
		}, []string{"reason"}),
		mediaTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agendazap",
			Subsystem: "bot",
			Name:      "media_total",
			Help:      "Total media messages by type",
		}, []string{"media_type"}),
		appointmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agendazap",
			Subsystem: "bot",
			Name:      "appointments_total",
			Help:      "Appointment creation outcomes",
		}, []string{"status"}),
		confirmationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agendazap",
			Subsystem: "bot",
			Name:      "confirmations_total",
			Help:      "Booking confirmation prompts and answers",
		}, []string{"outcome"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agendazap",
			Subsystem: "bot",
			Name:      "turn_latency_seconds",
			Help:      "Latency of one full bot turn",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.messagesTotal,
		m.handoffsTotal,
		m.mediaTotal,
		m.appointmentsTotal,
		m.confirmationsTotal,
		m.turnLatency,
	)
	return m
}

func (m *BotMetrics) ObserveMessage(intent, source string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(intent, source).Inc()
}

func (m *BotMetrics) ObserveHandoff(reason string) {
	if m == nil {
		return
	}
	m.handoffsTotal.WithLabelValues(reason).Inc()
}

func (m *BotMetrics) ObserveMedia(mediaType string) {
	if m == nil {
		return
	}
	m.mediaTotal.WithLabelValues(mediaType).Inc()
}

func (m *BotMetrics) ObserveAppointment(success bool) {
	if m == nil {
		return
	}
	status := "created"
	if !success {
		status = "failed"
	}
	m.appointmentsTotal.WithLabelValues(status).Inc()
}

func (m *BotMetrics) ObserveConfirmation(outcome string) {
	if m == nil {
		return
	}
	m.confirmationsTotal.WithLabelValues(outcome).Inc()
}

func (m *BotMetrics) ObserveTurnLatency(source string, seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(source).Observe(seconds)
}
