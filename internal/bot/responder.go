package bot

import (
	"fmt"
	"strings"
	"time"
)

// ResponseContext carries everything a reply may interpolate.
type ResponseContext struct {
	State        StateName
	LastIntent   Intent
	FirstName    string
	ProviderName string
	ServiceName  string
	Price        string
	TimeOptions  string
	ServicesList string
	Address      string
	Hours        string
	Payment      string
}

func (rc ResponseContext) vars() map[string]string {
	return map[string]string{
		"first_name":    rc.FirstName,
		"provider_name": rc.ProviderName,
		"service_name":  rc.ServiceName,
		"price":         rc.Price,
		"time_options":  rc.TimeOptions,
	}
}

// ResponderConfig tunes reply generation.
type ResponderConfig struct {
	// FollowUpThreshold gates the proactive next-step question; defaults to 0.8.
	FollowUpThreshold float64
}

// Responder turns a detected intent into the customer-facing message.
// Rejections win over everything; below that, confidence decides between
// clarification and a real answer.
type Responder struct {
	templates         *Templates
	affirm            *AffirmationAnalyzer
	followUpThreshold float64
}

func NewResponder(cfg ResponderConfig) *Responder {
	threshold := cfg.FollowUpThreshold
	if threshold <= 0 {
		threshold = 0.8
	}
	return &Responder{
		templates:         NewTemplates(),
		affirm:            NewAffirmationAnalyzer(),
		followUpThreshold: threshold,
	}
}

// Respond generates the reply for one informational turn. Booking-flow
// prompts come from the slot filler, not from here.
func (r *Responder) Respond(message string, result IntentResult, rc ResponseContext, now time.Time) string {
	analysis := r.affirm.Analyze(message)
	// Only explicit rejection phrasing ("não quero") wins here; a bare
	// "não" inside a question must still reach the intent reply.
	if analysis.Type == AffirmationRejection {
		return r.rejectionReply(rc)
	}

	switch {
	case result.Confidence < 0.3:
		return r.lowConfidenceReply(rc)
	case result.Confidence < 0.6:
		return r.clarificationReply(result.Intent)
	}

	reply := r.intentReply(result.Intent, rc, now)
	if analysis.Type == AffirmationPositive && analysis.Intensity > 1.5 {
		reply = "Que bom! " + reply
	}
	return r.AddFollowUp(reply, result.Intent, result.Confidence)
}

// AddFollowUp appends a proactive next-step question, but only when the
// detection was confident enough to risk steering the conversation.
func (r *Responder) AddFollowUp(message string, intent Intent, confidence float64) string {
	if confidence <= r.followUpThreshold {
		return message
	}
	followUp, ok := followUps[intent]
	if !ok {
		return message
	}
	if strings.Contains(message, followUp) {
		return message
	}
	return message + " " + followUp
}

// HandoffMessage tells the customer a person is taking over.
func (r *Responder) HandoffMessage(now time.Time) string {
	return r.templates.Pick("handoff", now, nil)
}

// MediaHandoffMessage acknowledges unprocessable media before the handoff.
func (r *Responder) MediaHandoffMessage(mediaType string, now time.Time) string {
	return r.templates.Pick("media_handoff", now, map[string]string{
		"media_type": mediaLabel(mediaType),
	})
}

var followUps = map[Intent]string{
	IntentPrice:    "Quer que eu veja horários disponíveis?",
	IntentServices: "Quer saber o valor de algum deles?",
	IntentAbout:    "Quer começar escolhendo um serviço?",
}

func (r *Responder) rejectionReply(rc ResponseContext) string {
	switch rc.LastIntent {
	case IntentPrice:
		return "Sem problemas! Se quiser, posso mostrar outros serviços com valores diferentes."
	case IntentAvailability, IntentSchedule:
		return "Tudo bem! Se mudar de ideia é só me chamar, estou por aqui."
	}
	return "Sem problemas! Qualquer coisa é só chamar. 😊"
}

func (r *Responder) lowConfidenceReply(rc ResponseContext) string {
	if rc.State.AwaitingInput() {
		return repromptFor(rc.State)
	}
	return "Desculpe, não entendi. Posso ajudar com serviços, valores, horários ou agendamento. O que prefere?"
}

func (r *Responder) clarificationReply(intent Intent) string {
	switch intent {
	case IntentPrice:
		return "Você quer saber os valores dos nossos serviços?"
	case IntentAvailability, IntentSchedule:
		return "Você gostaria de agendar um horário?"
	case IntentCancel:
		return "Você quer cancelar um agendamento?"
	case IntentReschedule:
		return "Você quer remarcar um horário?"
	case IntentServices:
		return "Você quer conhecer os serviços que oferecemos?"
	}
	return "Não tenho certeza se entendi. Pode me dizer com outras palavras?"
}

func (r *Responder) intentReply(intent Intent, rc ResponseContext, now time.Time) string {
	switch intent {
	case IntentGreeting:
		return r.templates.Pick("greeting", now, rc.vars())
	case IntentPrice:
		if rc.Price == "" {
			return "Sobre valores: me diga qual serviço te interessa que eu te passo o preço!"
		}
		return r.templates.Pick("price", now, rc.vars())
	case IntentAvailability, IntentSchedule:
		if rc.TimeOptions == "" {
			return "Vamos agendar! Que dia fica bom para você?"
		}
		return r.templates.Pick("availability", now, rc.vars())
	case IntentServices:
		if rc.ServicesList == "" {
			return "Temos vários serviços disponíveis. Quer que eu detalhe algum?"
		}
		return fmt.Sprintf("Nossos serviços:\n%s", rc.ServicesList)
	case IntentAbout:
		return r.templates.Pick("about", now, rc.vars())
	case IntentHours:
		if rc.Hours == "" {
			return "Nosso horário de atendimento varia por dia. Quer que eu verifique um dia específico?"
		}
		return fmt.Sprintf("Nosso horário de funcionamento: %s", rc.Hours)
	case IntentAddress:
		if rc.Address == "" {
			return "Posso te passar o endereço completo. Um momento!"
		}
		return fmt.Sprintf("Estamos em: %s", rc.Address)
	case IntentPayment:
		if rc.Payment == "" {
			return "Aceitamos as principais formas de pagamento: pix, cartão e dinheiro."
		}
		return fmt.Sprintf("Formas de pagamento: %s", rc.Payment)
	case IntentCancel:
		return "Entendi que você quer cancelar. Pode me confirmar o dia e horário do agendamento?"
	case IntentReschedule:
		return "Claro, vamos remarcar! Qual o novo dia e horário que prefere?"
	case IntentHuman:
		return r.HandoffMessage(now)
	}
	return r.lowConfidenceReply(rc)
}

func mediaLabel(mediaType string) string {
	switch mediaType {
	case "audio":
		return "seu áudio"
	case "image":
		return "sua imagem"
	case "video":
		return "seu vídeo"
	case "document":
		return "seu documento"
	}
	return "sua mídia"
}
