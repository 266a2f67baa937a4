package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/agendazap/agendazap/internal/bot"
	observemetrics "github.com/agendazap/agendazap/internal/observability/metrics"
	"github.com/agendazap/agendazap/pkg/logging"
)

type messageDispatcher interface {
	ProcessMessage(ctx context.Context, msg bot.Message) (bot.Reply, error)
}

// whatsappPayload is the gateway-normalized inbound message.
type whatsappPayload struct {
	From      string    `json:"from"`
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type webhookResponse struct {
	Reply   string `json:"reply,omitempty"`
	State   string `json:"state,omitempty"`
	Handoff bool   `json:"handoff"`
}

// WhatsAppWebhookHandler normalizes inbound WhatsApp messages and hands them
// to the bot dispatcher.
type WhatsAppWebhookHandler struct {
	dispatcher messageDispatcher
	metrics    *observemetrics.BotMetrics
	logger     *logging.Logger
}

type WhatsAppWebhookConfig struct {
	Dispatcher messageDispatcher
	Metrics    *observemetrics.BotMetrics
	Logger     *logging.Logger
}

func NewWhatsAppWebhookHandler(cfg WhatsAppWebhookConfig) *WhatsAppWebhookHandler {
	if cfg.Dispatcher == nil {
		panic("handlers: dispatcher cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &WhatsAppWebhookHandler{
		dispatcher: cfg.Dispatcher,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
}

// Handle processes one inbound WhatsApp webhook delivery.
func (h *WhatsAppWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var payload whatsappPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Warn("rejecting malformed whatsapp webhook", "error", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	payload.From = strings.TrimSpace(payload.From)
	if payload.From == "" {
		http.Error(w, "missing sender", http.StatusBadRequest)
		return
	}

	msg := bot.Message{
		ConversationID: "wa:" + payload.From,
		Text:           payload.Text,
		ReceivedAt:     payload.Timestamp,
		MediaType:      mediaTypeOf(payload.Type),
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = start
	}

	reply, err := h.dispatcher.ProcessMessage(r.Context(), msg)
	if err != nil {
		h.logger.Error("bot turn failed", "error", err, "conversation_id", msg.ConversationID)
	}
	h.metrics.ObserveTurnLatency(reply.Intent.Source, time.Since(start).Seconds())

	// The bot always produces some reply text, even on failure paths, so
	// the gateway can forward it to the customer.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(webhookResponse{
		Reply:   reply.Text,
		State:   string(reply.State),
		Handoff: reply.Handoff,
	})
}

// mediaTypeOf maps the gateway message type onto the bot's media taxonomy.
// Text and unknown types mean no media.
func mediaTypeOf(t string) string {
	switch t {
	case "audio", "image", "video", "document":
		return t
	}
	return ""
}

// HealthCheck reports liveness.
func (h *WhatsAppWebhookHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// BotStatsHandler serves the in-memory metrics snapshot.
type BotStatsHandler struct {
	metrics *bot.Metrics
}

func NewBotStatsHandler(metrics *bot.Metrics) *BotStatsHandler {
	return &BotStatsHandler{metrics: metrics}
}

func (h *BotStatsHandler) Handle(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.metrics.Stats())
}
