package bot

import (
	"regexp"
	"strings"
)

// AffirmationType classifies how a reply leans.
type AffirmationType string

const (
	AffirmationPositive     AffirmationType = "positive"
	AffirmationNegative     AffirmationType = "negative"
	AffirmationUncertain    AffirmationType = "uncertain"
	AffirmationConfirmation AffirmationType = "confirmation"
	AffirmationRejection    AffirmationType = "rejection"
)

// Affirmation is the analysis of a single reply.
type Affirmation struct {
	Type       AffirmationType
	Intensity  float64
	Confidence float64
}

// IsAffirmative reports whether the reply accepts what was proposed.
func (a Affirmation) IsAffirmative() bool {
	return a.Type == AffirmationPositive || a.Type == AffirmationConfirmation
}

// IsRejection reports whether the reply declines what was proposed.
func (a Affirmation) IsRejection() bool {
	return a.Type == AffirmationNegative || a.Type == AffirmationRejection
}

// Patterns match normalized (accent-folded) text. Negatives are checked
// first: "nao sei" must read as negative, not uncertain.
var (
	negativeAffirmations = mustPatterns(
		`\b(nao|nunca|jamais|nada|nenhum|nenhuma)\b`,
		`\b(recuso|recusar|recusado|negado|rejeitado)\b`,
		`\b(cancelar|cancelado|cancelamento|desistir)\b`,
		`\b(impossivel|nao da|nao rola|ocupado)\b`,
	)
	rejectionAffirmations = mustPatterns(
		`\b(nao quero|nao preciso|nao gosto)\b`,
		`\b(nao aceito|nao concordo|discordo)\b`,
	)
	confirmationAffirmations = mustPatterns(
		`\b(confirmo|confirmado|exato|isso mesmo|exatamente|correto)\b`,
		`\b(entendi|entendido|compreendi|captei)\b`,
		`\b(aceito|concordo|aprovado)\b`,
		`\bisso\b`,
	)
	uncertainAffirmations = mustPatterns(
		`\b(talvez|pode ser|nao sei|nao tenho certeza)\b`,
		`\b(acho que|creio que|parece que|provavelmente)\b`,
		`\b(quem sabe|se der|se conseguir|se for possivel)\b`,
		`\b(depende|vou ver|vou pensar|preciso pensar)\b`,
		`\b(mais ou menos|assim assim)\b`,
	)
	positiveAffirmations = mustPatterns(
		`\b(sim|ok|okay|beleza|perfeito|otimo|excelente|maravilhoso)\b`,
		`\b(certo|quero|gostaria|pode ser)\b`,
		`\b(obrigado|obrigada|valeu|vlw|obg)\b`,
		`\b(legal|bacana|massa|show|top|demais)\b`,
		`\b(tenho|posso|consigo)\b`,
	)
)

var intensityWords = []struct {
	word       string
	multiplier float64
}{
	{"extremamente", 3.0},
	{"totalmente", 3.0},
	{"completamente", 3.0},
	{"super", 2.5},
	{"muito", 2.0},
	{"bastante", 1.5},
	{"um pouco", 0.5},
	{"ligeiramente", 0.4},
	{"pouco", 0.3},
}

// AffirmationAnalyzer reads a reply as acceptance, refusal, or hesitation.
type AffirmationAnalyzer struct{}

func NewAffirmationAnalyzer() *AffirmationAnalyzer {
	return &AffirmationAnalyzer{}
}

// Analyze classifies the reply. Unmatched text reads as uncertain.
func (a *AffirmationAnalyzer) Analyze(text string) Affirmation {
	norm := normalizeText(text)

	typ := detectAffirmationType(norm)
	intensity := 1.0
	intensityHits := 0
	for _, iw := range intensityWords {
		if strings.Contains(norm, iw.word) {
			intensity *= iw.multiplier
			intensityHits++
		}
	}
	if intensity > 3.0 {
		intensity = 3.0
	}

	confidence := 0.5
	switch typ {
	case AffirmationConfirmation, AffirmationRejection:
		confidence += 0.4
	case AffirmationPositive, AffirmationNegative:
		confidence += 0.3
	case AffirmationUncertain:
		confidence += 0.2
	}
	confidence += 0.1 * float64(intensityHits)
	if confidence > 1.0 {
		confidence = 1.0
	}

	return Affirmation{Type: typ, Intensity: intensity, Confidence: confidence}
}

func detectAffirmationType(norm string) AffirmationType {
	for _, group := range []struct {
		patterns []*regexp.Regexp
		typ      AffirmationType
	}{
		{rejectionAffirmations, AffirmationRejection},
		{negativeAffirmations, AffirmationNegative},
		{confirmationAffirmations, AffirmationConfirmation},
		{uncertainAffirmations, AffirmationUncertain},
		{positiveAffirmations, AffirmationPositive},
	} {
		for _, pat := range group.patterns {
			if pat.MatchString(norm) {
				return group.typ
			}
		}
	}
	return AffirmationUncertain
}
