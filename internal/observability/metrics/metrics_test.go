package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestBotMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBotMetrics(reg)
	m.ObserveMessage("price", "rule")
	m.ObserveHandoff("media")
	m.ObserveMedia("audio")
	m.ObserveAppointment(true)
	m.ObserveAppointment(false)
	m.ObserveConfirmation("sent")
	m.ObserveTurnLatency("rule", 0.02)
}

func TestBotMetricsNilSafe(t *testing.T) {
	var m *BotMetrics
	m.ObserveMessage("price", "rule")
	m.ObserveHandoff("media")
	m.ObserveMedia("audio")
	m.ObserveAppointment(true)
	m.ObserveConfirmation("confirmed")
	m.ObserveTurnLatency("ml", 0.5)
}
