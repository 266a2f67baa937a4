package provider

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestPrefsStoreGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"alert_channels", "handoff_confidence_threshold", "trigger_on_media", "include_conversation_snippet"}).
		AddRow(pq.Array([]string{"email", "sms"}), 0.4, false, true)
	mock.ExpectQuery("SELECT alert_channels").WithArgs("prov-1").WillReturnRows(rows)

	s := NewPrefsStore(db)
	p, err := s.Get(context.Background(), "prov-1")
	require.NoError(t, err)
	require.Equal(t, []string{"email", "sms"}, p.AlertChannels)
	require.Equal(t, 0.4, p.HandoffConfidenceThreshold)
	require.False(t, p.TriggerOnMedia)
	require.True(t, p.WantsChannel("sms"))
	require.False(t, p.WantsChannel("push"))
}

func TestPrefsStoreGetDefaultsOnMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT alert_channels").WithArgs("prov-2").
		WillReturnRows(sqlmock.NewRows([]string{"alert_channels", "handoff_confidence_threshold", "trigger_on_media", "include_conversation_snippet"}))

	s := NewPrefsStore(db)
	p, err := s.Get(context.Background(), "prov-2")
	require.NoError(t, err)
	require.Equal(t, DefaultPrefs("prov-2"), p)
	require.True(t, p.TriggerOnMedia)
}
