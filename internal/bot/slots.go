package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/agendazap/agendazap/pkg/logging"
)

// ServiceResolver matches free text against the provider's service catalog.
// An empty result means no match; errors are treated as no match.
type ServiceResolver interface {
	Resolve(ctx context.Context, conversationID, text string) (string, error)
}

// FillResult reports what one slot-filling turn decided.
type FillResult struct {
	State      StateName
	NextPrompt string
	Confirmed  bool
	Rejected   bool
}

// SlotFiller runs the booking state machine:
//
//	idle → need_service → need_date → need_window → need_time → confirm → confirmed
//
// Every turn captures every entity the message carries, even out of turn, so
// customers who over-answer never lose information. need_window is skipped
// when an explicit clock time already arrived.
type SlotFiller struct {
	parser   *Parser
	services ServiceResolver
	affirm   *AffirmationAnalyzer
	logger   *logging.Logger
}

func NewSlotFiller(parser *Parser, services ServiceResolver, logger *logging.Logger) *SlotFiller {
	if parser == nil {
		panic("bot: parser cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SlotFiller{
		parser:   parser,
		services: services,
		affirm:   NewAffirmationAnalyzer(),
		logger:   logger,
	}
}

// Fill advances the state machine with one message. It mutates conv's slots
// and state; slots only grow except on rejection, which restarts the flow.
func (f *SlotFiller) Fill(ctx context.Context, conv *Conversation, message string, now time.Time) FillResult {
	if conv.State == StateConfirm {
		return f.handleConfirm(conv, message, now)
	}

	entered := conv.State
	f.captureEntities(ctx, conv, message, now)

	res := f.advance(conv, now)
	if res.State == entered && entered != StateIdle {
		res.NextPrompt = repromptFor(entered)
	}
	return res
}

// IsComplete mirrors Slots.IsComplete for callers holding only slot values.
func (f *SlotFiller) IsComplete(slots Slots) bool {
	return slots.IsComplete()
}

// MissingSlots returns absent required slots in the fixed order service, date, time.
func (f *SlotFiller) MissingSlots(slots Slots) []string {
	return slots.Missing()
}

// captureEntities merges everything the message carries into the slots,
// last mention wins.
func (f *SlotFiller) captureEntities(ctx context.Context, conv *Conversation, message string, now time.Time) {
	if f.services != nil {
		service, err := f.services.Resolve(ctx, conv.ID, message)
		if err != nil {
			f.logger.Warn("service catalog lookup failed", "error", err, "conversation_id", conv.ID)
		} else if service != "" {
			conv.Slots.Service = service
		}
	}

	if d := f.parser.ParseDate(message, now); d != nil {
		conv.Slots.SetDate(*d)
	}
	if w := f.parser.ParseWindow(message); w != "" {
		conv.Slots.TimeWindow = w
	}
	if f.parser.HasExplicitTime(message) {
		if t := f.parser.ParseTime(message); t != nil {
			conv.Slots.SetTime(*t)
		}
	} else if conv.State == StateNeedTime {
		// When asked for a time, a day-period answer counts via its
		// representative time (manhã 9h, tarde 14h, noite 19h).
		if t := f.parser.ParseTime(message); t != nil {
			conv.Slots.SetTime(*t)
		}
	}
	if name := f.parser.ParseName(message); name != "" {
		conv.Slots.ClientName = name
	}
	if phone := f.parser.ParsePhone(message); phone != "" {
		conv.Slots.Phone = phone
	}
}

func (f *SlotFiller) advance(conv *Conversation, now time.Time) FillResult {
	slots := &conv.Slots
	switch {
	// Service is only collectable when a catalog resolver is wired;
	// providers without one book on date and time alone.
	case slots.Service == "" && f.services != nil:
		conv.State = StateNeedService
		return FillResult{State: conv.State, NextPrompt: "Qual serviço você gostaria?"}
	case slots.Date == "":
		conv.State = StateNeedDate
		return FillResult{State: conv.State, NextPrompt: "Que dia gostaria? (hoje, amanhã, ou uma data específica)"}
	case slots.Time == "" && slots.TimeWindow == "":
		conv.State = StateNeedWindow
		return FillResult{State: conv.State, NextPrompt: "Prefere manhã, tarde ou noite?"}
	case slots.Time == "":
		conv.State = StateNeedTime
		return FillResult{State: conv.State, NextPrompt: "Que horário prefere?"}
	}

	conv.State = StateConfirm
	return FillResult{State: conv.State, NextPrompt: f.confirmPrompt(conv.Slots, now)}
}

func (f *SlotFiller) handleConfirm(conv *Conversation, message string, now time.Time) FillResult {
	analysis := f.affirm.Analyze(message)

	switch {
	case analysis.IsAffirmative():
		conv.State = StateConfirmed
		return FillResult{State: conv.State, Confirmed: true}
	case analysis.IsRejection():
		conv.ResetBooking()
		return FillResult{
			State:      conv.State,
			Rejected:   true,
			NextPrompt: "Ok, cancelado. Em que posso ajudar?",
		}
	}

	return FillResult{
		State:      conv.State,
		NextPrompt: f.confirmPrompt(conv.Slots, now) + " (sim ou não)",
	}
}

func (f *SlotFiller) confirmPrompt(slots Slots, now time.Time) string {
	date := slots.Date
	if d := slots.DateValue(); d != nil {
		date = f.parser.FormatDate(*d, now)
	}
	hour := slots.Time
	if t := slots.TimeValue(); t != nil {
		hour = f.parser.FormatTime(*t)
	}
	if slots.Service == "" {
		return fmt.Sprintf("Confirma agendamento para %s às %s?", date, hour)
	}
	return fmt.Sprintf("Confirma agendamento de %s para %s às %s?", slots.Service, date, hour)
}

func repromptFor(state StateName) string {
	switch state {
	case StateNeedService:
		return "Não identifiquei o serviço. Qual serviço você deseja?"
	case StateNeedDate:
		return "Não entendi a data. Que dia? (hoje, amanhã, próxima segunda...)"
	case StateNeedWindow:
		return "Não entendi. Prefere manhã, tarde ou noite?"
	case StateNeedTime:
		return "Não entendi o horário. Que horário? (ex: 10h, 14:30)"
	}
	return "Como posso ajudar?"
}
