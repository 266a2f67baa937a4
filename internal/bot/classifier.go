package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Classifier is the statistical stage of intent detection. It only runs when
// the rule engine is unsure; failures never fail the turn.
type Classifier interface {
	Ready() bool
	Classify(ctx context.Context, text string) (Intent, float64, error)
}

const classifierSystemPrompt = `Você classifica mensagens de clientes de um sistema de agendamento por WhatsApp.
Responda APENAS com JSON no formato {"intent": "<label>", "confidence": <0..1>}.
Labels válidos: greeting, availability, schedule, reschedule, cancel, price, services, about, business_hours, address, payment, human, unknown.`

var knownIntents = map[Intent]bool{
	IntentGreeting: true, IntentAvailability: true, IntentSchedule: true,
	IntentReschedule: true, IntentCancel: true, IntentPrice: true,
	IntentServices: true, IntentAbout: true, IntentHours: true,
	IntentAddress: true, IntentPayment: true, IntentHuman: true,
	IntentUnknown: true,
}

// LLMClassifier asks an LLM for an intent label with confidence.
type LLMClassifier struct {
	client LLMClient
	model  string
}

func NewLLMClassifier(client LLMClient, model string) *LLMClassifier {
	return &LLMClassifier{client: client, model: model}
}

// Ready reports whether classification can be attempted at all.
func (c *LLMClassifier) Ready() bool {
	return c != nil && c.client != nil && strings.TrimSpace(c.model) != ""
}

// Classify labels the message. The label must come from the fixed vocabulary;
// anything else degrades to unknown with the reported confidence.
func (c *LLMClassifier) Classify(ctx context.Context, text string) (Intent, float64, error) {
	if !c.Ready() {
		return IntentUnknown, 0, fmt.Errorf("bot: classifier not configured")
	}

	resp, err := c.client.Complete(ctx, LLMRequest{
		Model:       c.model,
		System:      []string{classifierSystemPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: text}},
		MaxTokens:   128,
		Temperature: 0,
	})
	if err != nil {
		return IntentUnknown, 0, fmt.Errorf("bot: classify failed: %w", err)
	}

	return parseClassification(resp.Text)
}

func parseClassification(raw string) (Intent, float64, error) {
	// Models sometimes wrap JSON in fences or prose; take the first object.
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return IntentUnknown, 0, fmt.Errorf("bot: classifier returned no JSON: %q", raw)
	}

	var out struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &out); err != nil {
		return IntentUnknown, 0, fmt.Errorf("bot: classifier response parse: %w", err)
	}

	conf := out.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	intent := Intent(strings.TrimSpace(strings.ToLower(out.Intent)))
	if !knownIntents[intent] {
		intent = IntentUnknown
	}
	return intent, conf, nil
}
