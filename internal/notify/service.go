package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agendazap/agendazap/internal/provider"
	"github.com/agendazap/agendazap/pkg/logging"
)

// PrefsReader retrieves provider escalation preferences.
type PrefsReader interface {
	Get(ctx context.Context, providerID string) (provider.Prefs, error)
}

// HandoffEvent describes one human-takeover escalation.
type HandoffEvent struct {
	ProviderID     string
	ProviderEmail  string
	ConversationID string
	Reason         string // media | low_confidence | human_requested
	MediaType      string
	Snippet        []string // last turns, oldest first
	OccurredAt     time.Time
}

// Service notifies providers when the bot hands a conversation to a human.
type Service struct {
	email  EmailSender
	prefs  PrefsReader
	logger *logging.Logger
}

// NewService creates a notification service.
func NewService(email EmailSender, prefs PrefsReader, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, prefs: prefs, logger: logger}
}

// NotifyHandoff alerts the provider, honoring their escalation preferences.
func (s *Service) NotifyHandoff(ctx context.Context, evt HandoffEvent) error {
	if s.prefs == nil {
		s.logger.Debug("notify: prefs store not configured, skipping handoff alert")
		return nil
	}

	prefs, err := s.prefs.Get(ctx, evt.ProviderID)
	if err != nil {
		s.logger.Error("notify: failed to get provider prefs", "error", err, "provider_id", evt.ProviderID)
		return fmt.Errorf("notify: get provider prefs: %w", err)
	}

	if evt.Reason == "media" && !prefs.TriggerOnMedia {
		s.logger.Debug("notify: media escalations disabled for provider", "provider_id", evt.ProviderID)
		return nil
	}
	if !prefs.WantsChannel("email") || s.email == nil || evt.ProviderEmail == "" {
		s.logger.Debug("notify: no email channel for handoff", "provider_id", evt.ProviderID)
		return nil
	}

	occurred := evt.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}

	snippet := ""
	if prefs.IncludeConversationSnippet && len(evt.Snippet) > 0 {
		snippet = "\n\nÚltimas mensagens:\n" + strings.Join(evt.Snippet, "\n")
	}

	subject := fmt.Sprintf("⚠️ Cliente aguardando atendimento - %s", reasonLabel(evt.Reason))
	body := fmt.Sprintf(`Um cliente precisa de atendimento humano no WhatsApp.

Conversa: %s
Motivo: %s%s
Quando: %s%s

Responda diretamente pelo WhatsApp para continuar o atendimento.

Equipe AgendaZap`,
		evt.ConversationID, reasonLabel(evt.Reason), mediaInfo(evt.MediaType),
		occurred.Format("02/01/2006 15:04"), snippet)

	msg := EmailMessage{
		To:      evt.ProviderEmail,
		Subject: subject,
		Body:    body,
	}
	if err := s.email.Send(ctx, msg); err != nil {
		s.logger.Error("notify: failed to send handoff email", "error", err, "to", evt.ProviderEmail)
		return fmt.Errorf("notify: send handoff email: %w", err)
	}
	s.logger.Info("notify: handoff email sent", "to", evt.ProviderEmail, "conversation_id", evt.ConversationID, "reason", evt.Reason)
	return nil
}

func reasonLabel(reason string) string {
	switch reason {
	case "media":
		return "mídia recebida"
	case "low_confidence":
		return "bot não entendeu o cliente"
	case "human_requested":
		return "cliente pediu atendente"
	}
	return reason
}

func mediaInfo(mediaType string) string {
	if mediaType == "" {
		return ""
	}
	return fmt.Sprintf("\nTipo de mídia: %s", mediaType)
}
