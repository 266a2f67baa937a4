package provider

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Prefs controls how and when a provider wants human-handoff escalations.
type Prefs struct {
	ProviderID                 string
	AlertChannels              []string
	HandoffConfidenceThreshold float64
	TriggerOnMedia             bool
	IncludeConversationSnippet bool
}

// DefaultPrefs are used for providers that never configured escalation.
func DefaultPrefs(providerID string) Prefs {
	return Prefs{
		ProviderID:                 providerID,
		AlertChannels:              []string{"email"},
		HandoffConfidenceThreshold: 0.3,
		TriggerOnMedia:             true,
		IncludeConversationSnippet: true,
	}
}

// PrefsStore is a read-only lookup of escalation preferences.
type PrefsStore struct {
	db *sql.DB
}

func NewPrefsStore(db *sql.DB) *PrefsStore {
	if db == nil {
		panic("provider: db required")
	}
	return &PrefsStore{db: db}
}

// Get returns the provider's preferences, falling back to defaults when no
// row exists.
func (s *PrefsStore) Get(ctx context.Context, providerID string) (Prefs, error) {
	p := Prefs{ProviderID: providerID}
	err := s.db.QueryRowContext(ctx, `
		SELECT alert_channels, handoff_confidence_threshold, trigger_on_media, include_conversation_snippet
		FROM provider_prefs WHERE provider_id = $1`, providerID).Scan(
		pq.Array(&p.AlertChannels),
		&p.HandoffConfidenceThreshold,
		&p.TriggerOnMedia,
		&p.IncludeConversationSnippet,
	)
	if err == sql.ErrNoRows {
		return DefaultPrefs(providerID), nil
	}
	if err != nil {
		return Prefs{}, fmt.Errorf("provider: select prefs: %w", err)
	}
	if p.AlertChannels == nil {
		p.AlertChannels = []string{}
	}
	return p, nil
}

// WantsChannel reports whether the provider subscribed to the channel.
func (p Prefs) WantsChannel(channel string) bool {
	for _, c := range p.AlertChannels {
		if c == channel {
			return true
		}
	}
	return false
}
