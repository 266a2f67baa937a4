package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agendazap/agendazap/internal/provider"
)

type fakeEmail struct {
	sent []EmailMessage
	err  error
}

func (f *fakeEmail) Send(_ context.Context, msg EmailMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakePrefs struct {
	prefs provider.Prefs
	err   error
}

func (f *fakePrefs) Get(context.Context, string) (provider.Prefs, error) {
	return f.prefs, f.err
}

func TestNotifyHandoffSendsEmail(t *testing.T) {
	email := &fakeEmail{}
	s := NewService(email, &fakePrefs{prefs: provider.DefaultPrefs("prov-1")}, nil)

	err := s.NotifyHandoff(context.Background(), HandoffEvent{
		ProviderID:     "prov-1",
		ProviderEmail:  "dona@salao.com",
		ConversationID: "wa:5511999990000",
		Reason:         "human_requested",
		Snippet:        []string{"cliente: quero falar com atendente"},
		OccurredAt:     time.Date(2025, 3, 19, 15, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, email.sent, 1)
	require.Contains(t, email.sent[0].Subject, "atendimento")
	require.Contains(t, email.sent[0].Body, "wa:5511999990000")
	require.Contains(t, email.sent[0].Body, "quero falar com atendente")
}

func TestNotifyHandoffOmitsSnippetWhenDisabled(t *testing.T) {
	email := &fakeEmail{}
	prefs := provider.DefaultPrefs("prov-1")
	prefs.IncludeConversationSnippet = false
	s := NewService(email, &fakePrefs{prefs: prefs}, nil)

	err := s.NotifyHandoff(context.Background(), HandoffEvent{
		ProviderID:    "prov-1",
		ProviderEmail: "dona@salao.com",
		Reason:        "low_confidence",
		Snippet:       []string{"cliente: blz"},
	})
	require.NoError(t, err)
	require.Len(t, email.sent, 1)
	require.False(t, strings.Contains(email.sent[0].Body, "blz"))
}

func TestNotifyHandoffRespectsMediaPreference(t *testing.T) {
	email := &fakeEmail{}
	prefs := provider.DefaultPrefs("prov-1")
	prefs.TriggerOnMedia = false
	s := NewService(email, &fakePrefs{prefs: prefs}, nil)

	err := s.NotifyHandoff(context.Background(), HandoffEvent{
		ProviderID:    "prov-1",
		ProviderEmail: "dona@salao.com",
		Reason:        "media",
		MediaType:     "audio",
	})
	require.NoError(t, err)
	require.Empty(t, email.sent)
}

func TestNotifyHandoffSkipsWithoutEmailChannel(t *testing.T) {
	email := &fakeEmail{}
	prefs := provider.DefaultPrefs("prov-1")
	prefs.AlertChannels = []string{"sms"}
	s := NewService(email, &fakePrefs{prefs: prefs}, nil)

	err := s.NotifyHandoff(context.Background(), HandoffEvent{
		ProviderID:    "prov-1",
		ProviderEmail: "dona@salao.com",
		Reason:        "human_requested",
	})
	require.NoError(t, err)
	require.Empty(t, email.sent)
}

func TestNotifyHandoffPropagatesPrefsError(t *testing.T) {
	s := NewService(&fakeEmail{}, &fakePrefs{err: errors.New("db down")}, nil)
	err := s.NotifyHandoff(context.Background(), HandoffEvent{ProviderID: "prov-1"})
	require.Error(t, err)
}

func TestStubEmailSender(t *testing.T) {
	s := NewStubEmailSender(nil)
	require.NoError(t, s.Send(context.Background(), EmailMessage{To: "x@y.com", Subject: "oi"}))
}
