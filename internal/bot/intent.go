package bot

import (
	"regexp"
	"strings"
)

// Intent labels what the customer is trying to do.
type Intent string

const (
	IntentGreeting     Intent = "greeting"
	IntentAvailability Intent = "availability"
	IntentSchedule     Intent = "schedule"
	IntentReschedule   Intent = "reschedule"
	IntentCancel       Intent = "cancel"
	IntentPrice        Intent = "price"
	IntentServices     Intent = "services"
	IntentAbout        Intent = "about"
	IntentHours        Intent = "business_hours"
	IntentAddress      Intent = "address"
	IntentPayment      Intent = "payment"
	IntentHuman        Intent = "human"
	IntentUnknown      Intent = "unknown"

	// Contextual intents assigned from conversation state, never by rules.
	IntentSelectService Intent = "select_service"
	IntentConfirmDate   Intent = "confirm_date"
	IntentConfirmTime   Intent = "confirm_time"
)

const (
	patternScore    = 0.6
	synonymScore    = 0.3
	negativePenalty = 0.4
	synonymMinRatio = 0.65
)

// IntentRule scores one intent: any regex hit adds 0.6, a fuzzy synonym hit
// adds 0.3, each negative keyword subtracts 0.4.
type IntentRule struct {
	Name             Intent
	Patterns         []*regexp.Regexp
	Synonyms         []string
	NegativeKeywords []string
}

// typo corrections applied after accent folding. The identity entry keeps
// "whatsapp" from being re-expanded by the shorter "whats" pattern.
var correctionReplacer = strings.NewReplacer(
	"sevicos", "servicos",
	"sevico", "servico",
	"valoes", "valores",
	"horarios", "horario",
	"funcionamento", "funciona",
	"whatsapp", "whatsapp",
	"whats", "whatsapp",
)

// normalizeAndCorrect lowercases, folds accents, and fixes common typos.
func normalizeAndCorrect(text string) string {
	return correctionReplacer.Replace(normalizeText(text))
}

func mustPatterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// defaultRules covers the Brazilian Portuguese booking vocabulary.
// Patterns match against normalized (accent-folded, typo-corrected) text.
func defaultRules() []IntentRule {
	return []IntentRule{
		{
			Name: IntentAvailability,
			Patterns: mustPatterns(
				`\b(horarios?|horario|hora|disponibilidade|disponivel|agendar?)\b`,
				`\bquando\b`,
				`\btem\s+vagas?\b`,
			),
			Synonyms: []string{
				"que horas tem", "tem horario", "abre quando", "tem horario hoje",
				"tem agenda", "qual horario disponivel",
			},
		},
		{
			Name: IntentSchedule,
			Patterns: mustPatterns(
				`\b(agendar|agendo|agende|marcar|marco|quero marcar|quero agendar)\b`,
				`\b(reservar|reserva)\b`,
			),
			Synonyms: []string{"quero fazer", "quero reservar", "quero um horario", "book"},
		},
		{
			Name:     IntentReschedule,
			Patterns: mustPatterns(`\b(remarcar|remarco|mudar|trocar|alterar)\b`),
			Synonyms: []string{"alterar horario", "adiar", "remarcar horario"},
		},
		{
			Name:     IntentCancel,
			Patterns: mustPatterns(`\b(cancelar|cancela|desmarcar|desmarca)\b`),
			Synonyms: []string{"nao vou", "vou cancelar", "quero cancelar"},
		},
		{
			Name: IntentPrice,
			Patterns: mustPatterns(
				`\b(precos?|valor(es)?|custa|cobranca|tabela( de)? precos?)\b`,
			),
			Synonyms: []string{
				"quanto fica", "quanto sai", "tabela", "precos", "valores", "preco",
				"quanto custa", "qual o valor", "lista de precos",
			},
			NegativeKeywords: []string{"preco antigo", "aumento de preco"},
		},
		{
			Name:     IntentServices,
			Patterns: mustPatterns(`\b(servicos?|lista de servicos?|catalogo)\b`),
			Synonyms: []string{
				"catalogo", "o que vcs fazem", "opcoes", "tipos de servico", "cardapio",
				"menu", "portfolio", "servicos disponiveis",
			},
		},
		{
			Name: IntentAbout,
			Patterns: mustPatterns(
				`\b(como funciona|como que funciona|como voces funcionam|como e)\b`,
				`\b(procedimento|processo|passo a passo)\b`,
				`\b(informacoes|sobre)\b`,
			),
			Synonyms: []string{"explicacao", "como funciona o servico"},
		},
		{
			Name:     IntentHours,
			Patterns: mustPatterns(`\b(horario de funcion|funciona de|abre|fecha|expediente)\b`),
			Synonyms: []string{"que horas funciona", "funciona hoje", "qual o horario"},
		},
		{
			Name:     IntentAddress,
			Patterns: mustPatterns(`\b(endereco|localizacao|como chegar|mapa)\b`),
			Synonyms: []string{"onde fica", "como eu chego", "ponto de referencia"},
		},
		{
			Name:     IntentPayment,
			Patterns: mustPatterns(`\b(pagamento|pagar|pix|cartao|debito|credito|dinheiro|boleto)\b`),
			Synonyms: []string{"formas de pagamento", "aceita cartao", "aceita pix"},
		},
		{
			Name:     IntentHuman,
			Patterns: mustPatterns(`\b(humano|atendente|falar com alguem|pessoa|suporte)\b`),
			Synonyms: []string{"falar com humano", "atendimento humano", "falar com atendente"},
		},
		{
			Name: IntentGreeting,
			Patterns: mustPatterns(
				`\b(oi|ola|bom dia|boa tarde|boa noite|eai|e ai|beleza|tudo bem)\b`,
				`\b(opa|eae|blz|tchau|obrigado|obrigada|valeu)\b`,
			),
			Synonyms: []string{
				"oi tudo bem", "ola tudo bem", "bom dia tudo bem", "tudo certo",
				"tudo tranquilo", "muito obrigado", "muito obrigada", "valeu mesmo",
				"obrigado pela ajuda", "obrigada pela ajuda", "vlw",
			},
		},
	}
}

// RuleEngine scores every rule against the message and keeps the best.
type RuleEngine struct {
	rules []IntentRule
}

func NewRuleEngine() *RuleEngine {
	return &RuleEngine{rules: defaultRules()}
}

// Detect returns the best-scoring intent and its confidence in [0,1].
// Returns (IntentUnknown, 0) when nothing matches.
func (e *RuleEngine) Detect(text string) (Intent, float64) {
	if strings.TrimSpace(text) == "" {
		return IntentUnknown, 0
	}
	norm := normalizeAndCorrect(text)

	best := IntentUnknown
	bestScore := 0.0

	for _, rule := range e.rules {
		score := 0.0

		for _, pat := range rule.Patterns {
			if pat.MatchString(norm) {
				score += patternScore
				break
			}
		}

		for _, syn := range rule.Synonyms {
			if strings.Contains(norm, syn) || matchRatio(norm, syn) > synonymMinRatio {
				score += synonymScore
				break
			}
		}

		for _, neg := range rule.NegativeKeywords {
			if strings.Contains(norm, neg) {
				score -= negativePenalty
			}
		}

		if score > bestScore {
			bestScore = score
			best = rule.Name
		}
	}

	if bestScore < 0 {
		bestScore = 0
	}
	if bestScore > 1 {
		bestScore = 1
	}
	return best, bestScore
}

// matchRatio is the classic sequence-matcher similarity: twice the number of
// matching characters over the combined length.
func matchRatio(a, b string) float64 {
	if len(a)+len(b) == 0 {
		return 0
	}
	return 2 * float64(matchingChars(a, b)) / float64(len(a)+len(b))
}

func matchingChars(a, b string) int {
	ai, bi, size := longestCommonRun(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matchingChars(a[:ai], b[:bi]) +
		matchingChars(a[ai+size:], b[bi+size:])
}

func longestCommonRun(a, b string) (ai, bi, size int) {
	// lengths[j] tracks the run ending at a[i-1], b[j-1]
	lengths := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		prev := 0
		for j := 1; j <= len(b); j++ {
			cur := lengths[j]
			if a[i-1] == b[j-1] {
				lengths[j] = prev + 1
				if lengths[j] > size {
					size = lengths[j]
					ai = i - size
					bi = j - size
				}
			} else {
				lengths[j] = 0
			}
			prev = cur
		}
	}
	return ai, bi, size
}
