package main

import (
	"context"
	"time"

	"github.com/agendazap/agendazap/internal/archive"
	"github.com/agendazap/agendazap/internal/booking"
	"github.com/agendazap/agendazap/internal/bot"
	"github.com/agendazap/agendazap/internal/notify"
	"github.com/agendazap/agendazap/internal/provider"
)

// bookingCreator adapts the booking layer to the engine's appointment port.
type bookingCreator struct {
	adapter    *booking.Adapter
	providerID string
}

func (b *bookingCreator) CreateAppointment(ctx context.Context, conversationID string, slots bot.Slots) error {
	_, err := b.adapter.CreateAppointment(ctx, booking.CreateRequest{
		ProviderID:     b.providerID,
		ConversationID: conversationID,
		Service:        slots.Service,
		ClientName:     slots.ClientName,
		Phone:          slots.Phone,
		Date:           slots.Date,
		Time:           slots.Time,
	})
	return err
}

type handoffNotifier struct {
	service       *notify.Service
	providerID    string
	providerEmail string
}

func (n *handoffNotifier) NotifyHandoff(ctx context.Context, conv *bot.Conversation, reason, mediaType string) error {
	snippet := make([]string, 0, len(conv.History)*2)
	for _, turn := range conv.History {
		if turn.Text != "" {
			snippet = append(snippet, "Cliente: "+turn.Text)
		}
		if turn.Response != "" {
			snippet = append(snippet, "Bot: "+turn.Response)
		}
	}
	return n.service.NotifyHandoff(ctx, notify.HandoffEvent{
		ProviderID:     n.providerID,
		ProviderEmail:  n.providerEmail,
		ConversationID: conv.ID,
		Reason:         reason,
		MediaType:      mediaType,
		Snippet:        snippet,
		OccurredAt:     time.Now().UTC(),
	})
}

type interactionArchiver struct {
	collector *archive.Collector
}

func (a *interactionArchiver) Archive(ctx context.Context, conversationID, text string, result bot.IntentResult) error {
	return a.collector.Record(ctx, archive.Interaction{
		ConversationID: conversationID,
		Text:           text,
		Intent:         string(result.Intent),
		Confidence:     result.Confidence,
		Source:         result.Source,
	})
}

// prefsPolicy maps provider preferences onto the engine's escalation policy.
type prefsPolicy struct {
	prefs      *provider.PrefsStore
	providerID string
}

func (p *prefsPolicy) EscalationPolicy(ctx context.Context, _ string) (bot.EscalationPolicy, error) {
	prefs, err := p.prefs.Get(ctx, p.providerID)
	if err != nil {
		return bot.EscalationPolicy{}, err
	}
	return bot.EscalationPolicy{
		ConfidenceFloor: prefs.HandoffConfidenceThreshold,
		TriggerOnMedia:  prefs.TriggerOnMedia,
	}, nil
}
