package bot

import (
	"strings"
	"testing"
	"time"
)

var (
	daytime   = time.Date(2025, 3, 19, 10, 0, 0, 0, time.UTC)
	afternoon = time.Date(2025, 3, 19, 15, 0, 0, 0, time.UTC)
	nighttime = time.Date(2025, 3, 19, 22, 0, 0, 0, time.UTC)
)

func newTestResponder() *Responder {
	return NewResponder(ResponderConfig{})
}

func TestGreetingPrefixByHour(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{5, "Bom dia"},
		{11, "Bom dia"},
		{12, "Boa tarde"},
		{17, "Boa tarde"},
		{18, "Boa noite"},
		{23, "Boa noite"},
		{3, "Boa noite"},
	}
	for _, tt := range tests {
		now := time.Date(2025, 3, 19, tt.hour, 0, 0, 0, time.UTC)
		if got := GreetingPrefix(now); got != tt.want {
			t.Fatalf("GreetingPrefix(%dh) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestIsNightBoundaries(t *testing.T) {
	for hour, want := range map[int]bool{7: true, 8: false, 19: false, 20: true, 0: true} {
		now := time.Date(2025, 3, 19, hour, 0, 0, 0, time.UTC)
		if got := isNight(now); got != want {
			t.Fatalf("isNight(%dh) = %v, want %v", hour, got, want)
		}
	}
}

func TestInterpolateDegradesMissingPlaceholders(t *testing.T) {
	got := interpolate("Oi {first_name}! O {service_name} custa {price}.", map[string]string{
		"service_name": "Corte",
	})
	if got != "Oi ! O Corte custa ." {
		t.Fatalf("interpolate = %q", got)
	}
}

func TestTemplatesPickFillsPrefix(t *testing.T) {
	tpl := NewTemplates()
	for i := 0; i < 10; i++ {
		msg := tpl.Pick("greeting", daytime, map[string]string{"first_name": "Ana", "provider_name": "Studio X"})
		if strings.Contains(msg, "{") {
			t.Fatalf("unresolved placeholder in %q", msg)
		}
		if strings.Contains(msg, "{prefix}") || (!strings.Contains(msg, "Bom dia") && !strings.Contains(msg, "Studio X") && !strings.Contains(msg, "Ana")) {
			t.Fatalf("greeting missing interpolated context: %q", msg)
		}
	}
	if tpl.Pick("no_such_intent", daytime, nil) != "" {
		t.Fatal("unknown intent should render empty")
	}
}

func TestRespondRejectionWinsOverIntent(t *testing.T) {
	r := newTestResponder()
	got := r.Respond("não quero mais", IntentResult{Intent: IntentPrice, Confidence: 0.9}, ResponseContext{LastIntent: IntentPrice}, daytime)
	if !strings.Contains(got, "Sem problemas") {
		t.Fatalf("rejection reply = %q", got)
	}
}

func TestRespondLowConfidenceIsStateAware(t *testing.T) {
	r := newTestResponder()

	// Mid slot-filling the clarify reprompts for the pending slot.
	got := r.Respond("asdf", IntentResult{Intent: IntentUnknown, Confidence: 0.1}, ResponseContext{State: StateNeedDate}, daytime)
	if !strings.Contains(got, "data") && !strings.Contains(got, "dia") {
		t.Fatalf("need_date clarify = %q", got)
	}

	// Idle gets the generic menu.
	got = r.Respond("asdf", IntentResult{Intent: IntentUnknown, Confidence: 0.1}, ResponseContext{State: StateIdle}, daytime)
	if !strings.Contains(got, "não entendi") {
		t.Fatalf("idle clarify = %q", got)
	}
}

func TestRespondMidConfidenceAsksForConfirmation(t *testing.T) {
	r := newTestResponder()
	got := r.Respond("valores", IntentResult{Intent: IntentPrice, Confidence: 0.45}, ResponseContext{}, daytime)
	if !strings.Contains(got, "valores") || !strings.Contains(got, "?") {
		t.Fatalf("mid-confidence reply should ask back: %q", got)
	}
}

func TestRespondHighConfidenceUsesTemplates(t *testing.T) {
	r := newTestResponder()
	rc := ResponseContext{FirstName: "Ana", ServiceName: "Corte", Price: "R$ 50,00"}
	got := r.Respond("quanto custa o corte?", IntentResult{Intent: IntentPrice, Confidence: 0.7}, rc, afternoon)
	if !strings.Contains(got, "R$ 50,00") {
		t.Fatalf("price reply = %q", got)
	}
}

func TestAddFollowUpGatedOnConfidence(t *testing.T) {
	r := newTestResponder()

	base := "O valor é R$ 50,00."
	if got := r.AddFollowUp(base, IntentPrice, 0.75); got != base {
		t.Fatalf("follow-up must not fire at 0.75: %q", got)
	}
	if got := r.AddFollowUp(base, IntentPrice, 0.8); got != base {
		t.Fatalf("threshold is exclusive, 0.8 must not fire: %q", got)
	}
	got := r.AddFollowUp(base, IntentPrice, 0.95)
	if !strings.Contains(got, "horários") {
		t.Fatalf("follow-up missing at 0.95: %q", got)
	}
	// No follow-up registered for this intent.
	if got := r.AddFollowUp(base, IntentCancel, 0.95); got != base {
		t.Fatalf("cancel has no follow-up: %q", got)
	}
}

func TestAddFollowUpThresholdConfigurable(t *testing.T) {
	r := NewResponder(ResponderConfig{FollowUpThreshold: 0.5})
	got := r.AddFollowUp("Lista de serviços.", IntentServices, 0.6)
	if !strings.Contains(got, "valor") {
		t.Fatalf("lowered threshold should fire at 0.6: %q", got)
	}
}

func TestMediaHandoffMessageNamesTheMedia(t *testing.T) {
	r := newTestResponder()
	got := r.MediaHandoffMessage("audio", daytime)
	if !strings.Contains(got, "áudio") {
		t.Fatalf("media handoff = %q", got)
	}
	if !strings.Contains(got, "profissional") {
		t.Fatalf("media handoff must announce the handoff: %q", got)
	}
}

func TestHandoffMessageVariesByTone(t *testing.T) {
	r := newTestResponder()
	if got := r.HandoffMessage(nighttime); got == "" {
		t.Fatal("night handoff should render")
	}
	if got := r.HandoffMessage(daytime); !strings.Contains(got, "profissional") && !strings.Contains(got, "atendente") {
		t.Fatalf("day handoff = %q", got)
	}
}
