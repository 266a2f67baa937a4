package bot

import "testing"

func TestRuleEngineDetect(t *testing.T) {
	e := NewRuleEngine()
	tests := []struct {
		name string
		text string
		want Intent
	}{
		{"cancel", "quero cancelar", IntentCancel},
		{"price", "quanto custa o corte?", IntentPrice},
		{"greeting", "bom dia", IntentGreeting},
		{"greeting informal", "oi, tudo bem?", IntentGreeting},
		{"human", "quero falar com atendente", IntentHuman},
		{"address", "onde fica?", IntentAddress},
		{"payment", "aceita pix?", IntentPayment},
		{"services typo corrected", "quais sevicos tem?", IntentServices},
		{"unknown", "xyzabc", IntentUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, conf := e.Detect(tt.text)
			if got != tt.want {
				t.Fatalf("Detect(%q) = %s (%.2f), want %s", tt.text, got, conf, tt.want)
			}
			if tt.want == IntentUnknown && conf != 0 {
				t.Fatalf("unknown should carry zero confidence, got %.2f", conf)
			}
		})
	}
}

func TestRuleEngineConfidenceScoring(t *testing.T) {
	e := NewRuleEngine()

	// Pattern + synonym stacks to 0.9.
	_, conf := e.Detect("quanto custa?")
	if conf != 0.9 {
		t.Fatalf("pattern+synonym should score 0.9, got %.2f", conf)
	}

	// Pattern alone scores 0.6.
	_, conf = e.Detect("desmarcar")
	if conf != 0.6 {
		t.Fatalf("pattern alone should score 0.6, got %.2f", conf)
	}

	// Negative keywords pull the score down.
	intent, conf := e.Detect("o preco antigo")
	if intent != IntentPrice {
		t.Fatalf("expected price, got %s", intent)
	}
	if conf >= 0.6 {
		t.Fatalf("negative keyword should reduce confidence, got %.2f", conf)
	}

	// Empty input.
	intent, conf = e.Detect("")
	if intent != IntentUnknown || conf != 0 {
		t.Fatalf("empty text = %s (%.2f)", intent, conf)
	}

	// Confidence is clamped to [0,1].
	for _, text := range []string{"quanto custa o servico e qual o valor", "preco antigo aumento de preco"} {
		if _, conf := e.Detect(text); conf < 0 || conf > 1 {
			t.Fatalf("confidence out of range for %q: %.2f", text, conf)
		}
	}
}

func TestNormalizeAndCorrect(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Serviços", "servicos"},
		{"PREÇO", "preco"},
		{"sevico", "servico"},
		{"horários", "horario"},
		{"funcionamento", "funciona"},
	}
	for _, tt := range tests {
		if got := normalizeAndCorrect(tt.in); got != tt.want {
			t.Fatalf("normalizeAndCorrect(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatchRatio(t *testing.T) {
	if r := matchRatio("abc", "abc"); r != 1.0 {
		t.Fatalf("identical strings should score 1.0, got %f", r)
	}
	if r := matchRatio("abc", "xyz"); r != 0.0 {
		t.Fatalf("disjoint strings should score 0.0, got %f", r)
	}
	if r := matchRatio("quanto custa", "quanto fica"); r < 0.5 {
		t.Fatalf("similar strings should score above 0.5, got %f", r)
	}
	if r := matchRatio("", ""); r != 0 {
		t.Fatalf("empty strings should score 0, got %f", r)
	}
}
