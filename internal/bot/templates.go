package bot

import (
	"math/rand"
	"regexp"
	"time"
)

// Tone buckets for template variants.
const (
	toneDay   = "day"
	toneNight = "night"
)

func isNight(now time.Time) bool {
	hour := now.Hour()
	return hour < 8 || hour >= 20
}

func tone(now time.Time) string {
	if isNight(now) {
		return toneNight
	}
	return toneDay
}

// GreetingPrefix picks the polite opener for the hour of day.
func GreetingPrefix(now time.Time) string {
	hour := now.Hour()
	switch {
	case hour >= 5 && hour < 12:
		return "Bom dia"
	case hour >= 12 && hour < 18:
		return "Boa tarde"
	}
	return "Boa noite"
}

// templateVariations maps intent → tone → variants. Placeholders use
// {name} syntax; unresolved ones render as empty strings.
var templateVariations = map[string]map[string][]string{
	"greeting": {
		toneDay: {
			"{prefix}, {first_name}! Tudo bem? Sou da {provider_name}. Como posso ajudar hoje?",
			"{prefix}, {first_name}! Posso listar serviços, valores ou horários para você?",
			"{prefix}! Aqui é da {provider_name}. Deseja ver serviços, preços ou disponibilidade?",
		},
		toneNight: {
			"{prefix}, {first_name}! Tudo bem? Posso ajudar com serviços, valores ou horários?",
			"{prefix}! Sou da {provider_name}. Quer ver serviços ou preços?",
		},
	},
	"availability": {
		toneDay: {
			"Perfeito! Tenho {time_options}. Qual fica melhor para você?",
			"Tenho disponibilidade em {time_options}. Prefere algum horário?",
		},
		toneNight: {
			"Amanhã tenho {time_options}. Posso reservar para você?",
		},
	},
	"price": {
		toneDay: {
			"{prefix}, {first_name}! O valor de {service_name} é {price}. Posso te mostrar horários?",
			"{service_name} fica em {price}. Deseja que eu liste horários disponíveis?",
		},
		toneNight: {
			"{service_name} custa {price}. Posso te enviar horários amanhã cedo?",
		},
	},
	"confirm": {
		toneDay: {
			"Ótimo! Confirmo para {date} às {time}?",
			"Posso agendar {service_name} para {date} às {time}?",
		},
		toneNight: {
			"Deixo reservado para {date} às {time}?",
		},
	},
	"handoff": {
		toneDay: {
			"Entendi. Vou encaminhar para um profissional te responder rapidinho!",
			"Sem problemas! Vou te passar para um atendente que já te retorna.",
		},
		toneNight: {
			"Vou encaminhar para um profissional e ele te retorna logo!",
		},
	},
	"media_handoff": {
		toneDay: {
			"Recebi {media_type}! No momento não consigo processar, então vou passar para um profissional, tudo bem?",
			"Vi que você enviou {media_type}. Vou encaminhar para um profissional analisar, ok?",
		},
		toneNight: {
			"Recebi {media_type}. Vou passar para um profissional te responder amanhã cedo!",
		},
	},
	"reminder": {
		toneDay: {
			"⏰ Oi {client_name}! Lembrando do seu horário de {service_name} em {date} às {time}. Nos vemos lá!",
			"⏰ Olá {client_name}! Seu horário de {service_name} é amanhã às {time}. Até lá!",
		},
		toneNight: {
			"⏰ Oi {client_name}! Lembre-se: {service_name} amanhã às {time}!",
		},
	},
	"confirmation_request": {
		toneDay: {
			"Oi {client_name}! Você confirma seu horário de {service_name} em {date} às {time}? Responda:\n1️⃣ Confirmo\n2️⃣ Preciso cancelar\n3️⃣ Reagendar",
			"Olá {client_name}! Confirma o {service_name} para {date} às {time}?\n1️⃣ Sim, confirmo\n2️⃣ Cancelar\n3️⃣ Mudar horário",
		},
		toneNight: {
			"Oi {client_name}! Confirma {service_name} amanhã às {time}?\n1️⃣ Confirmo\n2️⃣ Cancelar\n3️⃣ Reagendar",
		},
	},
	"feedback_request": {
		toneDay: {
			"Oi {client_name}! Como foi sua experiência com {service_name}? De 0 a 10, qual a chance de nos recomendar? Pode comentar algo que possamos melhorar? 😊",
			"Olá {client_name}! Gostou do {service_name}? Sua opinião é muito importante! De 0 a 10, nos recomendaria? Conte o que achou! 💬",
		},
		toneNight: {
			"Oi {client_name}! Como foi o {service_name}? De 0 a 10, nos recomendaria? 😊",
		},
	},
	"clarify": {
		toneDay: {
			"Você prefere que eu mostre horários ou valores do {service_name}?",
			"Prefere que eu te mostre preços ou horários agora?",
		},
		toneNight: {
			"Quer preços ou horários do {service_name}?",
		},
	},
	"about": {
		toneDay: {
			"{prefix}, {first_name}! Funciona assim: você escolhe o serviço, eu mostro horários e confirmo. Quer ver serviços ou horários?",
			"Nosso processo é simples: escolher serviço → ver horários → confirmar. Prefere começar pelos serviços?",
		},
		toneNight: {
			"É simples: serviço, horários e confirmação. Quer que eu liste os serviços?",
		},
	},
}

var rePlaceholder = regexp.MustCompile(`\{([a-z_]+)\}`)

// interpolate fills {name} placeholders; missing values degrade to "".
func interpolate(template string, vars map[string]string) string {
	return rePlaceholder.ReplaceAllStringFunc(template, func(m string) string {
		key := m[1 : len(m)-1]
		return vars[key]
	})
}

// Templates renders intent replies with tone variants.
type Templates struct {
	rng *rand.Rand
}

func NewTemplates() *Templates {
	return &Templates{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Pick renders a variant for the intent at the given moment. The polite
// prefix is filled in automatically unless supplied. Returns "" when the
// intent has no templates.
func (t *Templates) Pick(intent string, now time.Time, vars map[string]string) string {
	variants := templateVariations[intent][tone(now)]
	if len(variants) == 0 {
		return ""
	}
	if vars == nil {
		vars = map[string]string{}
	}
	if _, ok := vars["prefix"]; !ok {
		vars["prefix"] = GreetingPrefix(now)
	}
	return interpolate(variants[t.rng.Intn(len(variants))], vars)
}
