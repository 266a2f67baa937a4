package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agendazap/agendazap/internal/bot"
)

type fakeDispatcher struct {
	got   []bot.Message
	reply bot.Reply
	err   error
}

func (f *fakeDispatcher) ProcessMessage(_ context.Context, msg bot.Message) (bot.Reply, error) {
	f.got = append(f.got, msg)
	return f.reply, f.err
}

func postWebhook(t *testing.T, h *WhatsAppWebhookHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestWebhookNormalizesTextMessage(t *testing.T) {
	d := &fakeDispatcher{reply: bot.Reply{Text: "Bom dia!", State: bot.StateIdle}}
	h := NewWhatsAppWebhookHandler(WhatsAppWebhookConfig{Dispatcher: d})

	rec := postWebhook(t, h, `{"from":"+5511999990000","type":"text","text":"oi","timestamp":"2025-03-19T15:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, d.got, 1)
	msg := d.got[0]
	require.Equal(t, "wa:+5511999990000", msg.ConversationID)
	require.Equal(t, "oi", msg.Text)
	require.Empty(t, msg.MediaType)
	require.Equal(t, 15, msg.ReceivedAt.Hour())

	var resp webhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Bom dia!", resp.Reply)
	require.False(t, resp.Handoff)
}

func TestWebhookNormalizesMediaMessage(t *testing.T) {
	d := &fakeDispatcher{reply: bot.Reply{Text: "Recebi seu áudio!", Handoff: true}}
	h := NewWhatsAppWebhookHandler(WhatsAppWebhookConfig{Dispatcher: d})

	rec := postWebhook(t, h, `{"from":"+5511888880000","type":"audio"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "audio", d.got[0].MediaType)
	require.False(t, d.got[0].ReceivedAt.IsZero())

	var resp webhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Handoff)
}

func TestWebhookRejectsBadPayloads(t *testing.T) {
	h := NewWhatsAppWebhookHandler(WhatsAppWebhookConfig{Dispatcher: &fakeDispatcher{}})

	rec := postWebhook(t, h, `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postWebhook(t, h, `{"type":"text","text":"oi"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookStillRepliesOnEngineError(t *testing.T) {
	d := &fakeDispatcher{
		reply: bot.Reply{Text: "Estamos com uma instabilidade no momento. Pode tentar de novo em instantes?"},
		err:   errors.New("redis down"),
	}
	h := NewWhatsAppWebhookHandler(WhatsAppWebhookConfig{Dispatcher: d})

	rec := postWebhook(t, h, `{"from":"+5511999990000","type":"text","text":"oi"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp webhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Reply, "instabilidade")
}

func TestBotStatsHandler(t *testing.T) {
	m := bot.NewMetrics(nil, nil)
	m.RecordMessage(bot.IntentPrice, 0.9, bot.SourceRule)
	h := NewBotStatsHandler(m)

	req := httptest.NewRequest(http.MethodGet, "/bot/stats", nil)
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	var stats bot.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	require.Equal(t, int64(1), stats.TotalMessages)
	require.Equal(t, int64(1), stats.ByIntent["price"])
}
