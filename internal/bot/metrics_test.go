package bot

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMetricsStatsComputesRatios(t *testing.T) {
	m := NewMetrics(nil, nil)

	m.RecordMessage(IntentPrice, 0.9, SourceRule)
	m.RecordMessage(IntentSchedule, 0.7, SourceML)
	m.RecordMessage(IntentUnknown, 0.2, SourceRule)
	m.RecordError()
	m.RecordAppointmentCreated(5)
	m.RecordAppointmentCreated(7)
	m.RecordAppointmentFailed()
	m.RecordHandoff(HandoffReasonMedia)
	m.RecordHandoff(HandoffReasonLowConfidence)
	m.RecordMedia("audio")
	m.RecordConfirmationSent()
	m.RecordConfirmationSent()
	m.RecordConfirmed()

	s := m.Stats()
	// The media message counts toward the total but not the confidence
	// tallies, so the rates cover media traffic while the average does not.
	require.Equal(t, int64(4), s.TotalMessages)
	require.Equal(t, int64(1), s.ByIntent["price"])
	require.InDelta(t, 0.6, s.AverageConfidence, 1e-9)
	require.InDelta(t, 1.0/4.0, s.MLUsageRate, 1e-9)
	require.InDelta(t, 1.0/4.0, s.ErrorRate, 1e-9)
	require.InDelta(t, 2.0/3.0, s.AppointmentSuccess, 1e-9)
	require.InDelta(t, 6.0, s.TurnsPerAppointment, 1e-9)
	require.Equal(t, int64(2), s.Handoffs)
	require.Equal(t, int64(1), s.HandoffReasons[HandoffReasonMedia])
	require.Equal(t, int64(1), s.MediaByType["audio"])
	require.InDelta(t, 0.5, s.ConfirmationRate, 1e-9)
}

func TestMetricsZeroDenominators(t *testing.T) {
	s := NewMetrics(nil, nil).Stats()
	require.Zero(t, s.AverageConfidence)
	require.Zero(t, s.AppointmentSuccess)
	require.Zero(t, s.ConfirmationRate)
	require.Zero(t, s.ErrorRate)
	require.Zero(t, s.TurnsPerAppointment)
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.RecordMessage(IntentPrice, 0.5, SourceRule)
	m.RecordError()
	m.RecordHandoff(HandoffReasonMedia)
	require.Zero(t, m.Stats().TotalMessages)
	require.NoError(t, m.Flush(context.Background()))
	require.NoError(t, m.Restore(context.Background()))
}

func TestMetricsFlushRestoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	m := NewMetrics(client, nil)
	m.RecordMessage(IntentGreeting, 0.8, SourceRule)
	m.RecordAppointmentCreated(4)
	require.NoError(t, m.Flush(ctx))

	fresh := NewMetrics(client, nil)
	require.NoError(t, fresh.Restore(ctx))
	s := fresh.Stats()
	require.Equal(t, int64(1), s.TotalMessages)
	require.Equal(t, int64(1), s.ByIntent["greeting"])
	require.Equal(t, int64(1), s.AppointmentsCreated)

	ttl := mr.TTL(metricsKey)
	require.Equal(t, metricsTTL, ttl)
}

func TestMetricsRestoreMissingKeyIsFresh(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	m := NewMetrics(client, nil)
	require.NoError(t, m.Restore(context.Background()))
	require.Zero(t, m.Stats().TotalMessages)
}

func TestMetricsRestoreIgnoresCorruptPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, mr.Set(metricsKey, "not json"))

	m := NewMetrics(client, nil)
	m.RecordMessage(IntentPrice, 0.9, SourceRule)
	require.NoError(t, m.Restore(context.Background()))
	require.Equal(t, int64(1), m.Stats().TotalMessages)
}
