package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agendazap/agendazap/pkg/logging"
)

// Message is the normalized inbound payload delivered by the webhook layer.
type Message struct {
	ConversationID string    `json:"conversation_id"`
	Text           string    `json:"text"`
	ReceivedAt     time.Time `json:"received_at"`
	MediaType      string    `json:"media_type,omitempty"` // audio|image|video|document
}

// Reply is the outcome of one processed turn.
type Reply struct {
	Text    string       `json:"text"`
	Intent  IntentResult `json:"intent"`
	State   StateName    `json:"state"`
	Handoff bool         `json:"handoff"`
}

// AppointmentCreator persists a confirmed booking.
type AppointmentCreator interface {
	CreateAppointment(ctx context.Context, conversationID string, slots Slots) error
}

// HandoffNotifier alerts the provider that a human must take over.
type HandoffNotifier interface {
	NotifyHandoff(ctx context.Context, conv *Conversation, reason, mediaType string) error
}

// InteractionArchiver records classified messages for classifier training.
type InteractionArchiver interface {
	Archive(ctx context.Context, conversationID, text string, result IntentResult) error
}

// EscalationPolicy is the provider's say in when the bot gives up.
type EscalationPolicy struct {
	ConfidenceFloor float64
	TriggerOnMedia  bool
}

// PolicySource looks up the escalation policy. Lookup failures fall back to
// the engine's configured defaults.
type PolicySource interface {
	EscalationPolicy(ctx context.Context, conversationID string) (EscalationPolicy, error)
}

// EngineConfig tunes the orchestrator. Zero values get defaults.
type EngineConfig struct {
	LowConfidenceFloor  float64
	LowConfidenceStreak int
	ProviderName        string
}

func (c *EngineConfig) applyDefaults() {
	if c.LowConfidenceFloor == 0 {
		c.LowConfidenceFloor = 0.3
	}
	if c.LowConfidenceStreak == 0 {
		c.LowConfidenceStreak = 3
	}
}

const storeDownReply = "Estamos com uma instabilidade no momento. Pode tentar de novo em instantes?"

// Engine composes the per-turn pipeline: load state, detect intent, fill
// slots or answer, decide handoff, persist, emit metrics. Turns for the same
// conversation are serialized; different conversations run independently.
type Engine struct {
	store        *Store
	detector     *Detector
	filler       *SlotFiller
	responder    *Responder
	metrics      *Metrics
	appointments AppointmentCreator
	notifier     HandoffNotifier
	archiver     InteractionArchiver
	policy       PolicySource
	logger       *logging.Logger
	cfg          EngineConfig

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEngine(
	store *Store,
	detector *Detector,
	filler *SlotFiller,
	responder *Responder,
	metrics *Metrics,
	appointments AppointmentCreator,
	notifier HandoffNotifier,
	archiver InteractionArchiver,
	policy PolicySource,
	cfg EngineConfig,
	logger *logging.Logger,
) *Engine {
	if store == nil {
		panic("bot: store cannot be nil")
	}
	if detector == nil {
		panic("bot: detector cannot be nil")
	}
	if filler == nil {
		panic("bot: slot filler cannot be nil")
	}
	if responder == nil {
		panic("bot: responder cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	cfg.applyDefaults()
	return &Engine{
		store:        store,
		detector:     detector,
		filler:       filler,
		responder:    responder,
		metrics:      metrics,
		appointments: appointments,
		notifier:     notifier,
		archiver:     archiver,
		policy:       policy,
		logger:       logger,
		cfg:          cfg,
		locks:        map[string]*sync.Mutex{},
	}
}

// lockConversation serializes load-mutate-save per conversation id.
func (e *Engine) lockConversation(id string) func() {
	e.mu.Lock()
	m, ok := e.locks[id]
	if !ok {
		m = &sync.Mutex{}
		e.locks[id] = m
	}
	e.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// HandleMessage processes one inbound message end to end. The returned Reply
// always carries user-facing text, even on failure paths.
func (e *Engine) HandleMessage(ctx context.Context, msg Message) (Reply, error) {
	unlock := e.lockConversation(msg.ConversationID)
	defer unlock()

	now := msg.ReceivedAt
	if now.IsZero() {
		now = time.Now()
	}
	log := e.logger.WithConversation(msg.ConversationID)

	conv, err := e.store.Load(ctx, msg.ConversationID)
	if err != nil {
		e.metrics.RecordError()
		log.Error("failed to load conversation, failing closed", "error", err)
		return Reply{Text: storeDownReply}, err
	}

	// A human owns this conversation; stay quiet until the handoff clears.
	if conv.Handoff != nil {
		log.Debug("suppressing reply, conversation handed off", "reason", conv.Handoff.Reason)
		return Reply{State: conv.State, Handoff: true}, nil
	}

	policy := e.escalationPolicy(ctx, msg.ConversationID)

	if msg.MediaType != "" {
		return e.handleMedia(ctx, conv, msg, policy, now, log)
	}

	dc := DetectContext{State: conv.State}
	if last := conv.LastTurn(); last != nil {
		dc.LastIntent = last.Intent
	}
	result := e.detector.Detect(ctx, msg.Text, dc)

	e.metrics.RecordMessage(result.Intent, result.Confidence, result.Source)
	if e.archiver != nil {
		if err := e.archiver.Archive(ctx, msg.ConversationID, msg.Text, result); err != nil {
			log.Warn("interaction archive failed", "error", err)
		}
	}

	if result.Confidence < policy.ConfidenceFloor {
		conv.LowConfidenceStreak++
	} else {
		conv.LowConfidenceStreak = 0
	}

	conv.TurnCount++
	var response string
	handedOff := false
	switch {
	case conv.LowConfidenceStreak >= e.cfg.LowConfidenceStreak:
		response = e.escalate(ctx, conv, HandoffReasonLowConfidence, "", now, log)
		handedOff = true
	case result.Intent == IntentHuman:
		response = e.escalate(ctx, conv, HandoffReasonHumanRequest, "", now, log)
		handedOff = true
	case conv.State != StateIdle || bookingIntent(result.Intent):
		response = e.fillTurn(ctx, conv, msg.Text, now, log)
	default:
		response = e.responder.Respond(msg.Text, result, e.responseContext(conv), now)
	}

	conv.AddTurn(Turn{
		Intent:     result.Intent,
		Confidence: result.Confidence,
		Text:       msg.Text,
		Response:   response,
		Timestamp:  now,
	}, e.store.HistorySize())

	// All-or-nothing: a cancelled turn must not leave half-updated state.
	if err := ctx.Err(); err != nil {
		return Reply{Text: storeDownReply}, fmt.Errorf("bot: turn cancelled: %w", err)
	}
	if err := e.store.Save(ctx, conv); err != nil {
		e.metrics.RecordError()
		log.Error("failed to persist conversation, failing closed", "error", err)
		return Reply{Text: storeDownReply}, err
	}

	return Reply{Text: response, Intent: result, State: conv.State, Handoff: handedOff}, nil
}

// handleMedia short-circuits normal processing: slot filling is never
// attempted on media messages.
func (e *Engine) handleMedia(ctx context.Context, conv *Conversation, msg Message, policy EscalationPolicy, now time.Time, log *logging.Logger) (Reply, error) {
	e.metrics.RecordMedia(msg.MediaType)

	var response string
	handedOff := false
	if policy.TriggerOnMedia {
		response = e.escalateMedia(ctx, conv, msg.MediaType, now, log)
		handedOff = true
	} else {
		response = "No momento não consigo processar esse tipo de mensagem. Pode me escrever em texto?"
	}

	conv.TurnCount++
	conv.AddTurn(Turn{
		Intent:    IntentUnknown,
		Text:      fmt.Sprintf("[%s]", msg.MediaType),
		Response:  response,
		Timestamp: now,
	}, e.store.HistorySize())

	if err := ctx.Err(); err != nil {
		return Reply{Text: storeDownReply}, fmt.Errorf("bot: turn cancelled: %w", err)
	}
	if err := e.store.Save(ctx, conv); err != nil {
		e.metrics.RecordError()
		log.Error("failed to persist conversation, failing closed", "error", err)
		return Reply{Text: storeDownReply}, err
	}
	return Reply{Text: response, State: conv.State, Handoff: handedOff}, nil
}

func (e *Engine) escalate(ctx context.Context, conv *Conversation, reason, mediaType string, now time.Time, log *logging.Logger) string {
	conv.Handoff = &Handoff{Reason: reason, Timestamp: now}
	e.metrics.RecordHandoff(reason)
	if e.notifier != nil {
		if err := e.notifier.NotifyHandoff(ctx, conv, reason, mediaType); err != nil {
			log.Error("handoff notification failed", "error", err, "reason", reason)
		}
	}
	log.Info("conversation handed off", "reason", reason)
	return e.responder.HandoffMessage(now)
}

func (e *Engine) escalateMedia(ctx context.Context, conv *Conversation, mediaType string, now time.Time, log *logging.Logger) string {
	conv.Handoff = &Handoff{
		Reason:    HandoffReasonMedia,
		Timestamp: now,
		Metadata:  map[string]string{"media_type": mediaType},
	}
	e.metrics.RecordHandoff(HandoffReasonMedia)
	if e.notifier != nil {
		if err := e.notifier.NotifyHandoff(ctx, conv, HandoffReasonMedia, mediaType); err != nil {
			log.Error("handoff notification failed", "error", err, "reason", HandoffReasonMedia)
		}
	}
	log.Info("conversation handed off", "reason", HandoffReasonMedia, "media_type", mediaType)
	return e.responder.MediaHandoffMessage(mediaType, now)
}

// fillTurn runs the slot machine and finalizes confirmed bookings.
func (e *Engine) fillTurn(ctx context.Context, conv *Conversation, text string, now time.Time, log *logging.Logger) string {
	entered := conv.State
	res := e.filler.Fill(ctx, conv, text, now)

	if res.State == StateConfirm && entered != StateConfirm {
		e.metrics.RecordConfirmationSent()
	}
	if res.Rejected {
		e.metrics.RecordRejected()
	}
	if !res.Confirmed {
		return res.NextPrompt
	}

	e.metrics.RecordConfirmed()
	turns := conv.TurnCount
	slots := conv.Slots
	response := e.confirmedReply(slots, now)

	if e.appointments != nil {
		if err := e.appointments.CreateAppointment(ctx, conv.ID, slots); err != nil {
			e.metrics.RecordAppointmentFailed()
			log.Error("appointment creation failed", "error", err)
			conv.ResetBooking()
			return "Poxa, não consegui registrar seu agendamento agora. Pode tentar de novo em alguns minutos?"
		}
	}
	e.metrics.RecordAppointmentCreated(turns)
	log.Info("appointment confirmed", "date", slots.Date, "time", slots.Time, "service", slots.Service)

	// confirmed is terminal for the booking round.
	conv.ResetBooking()
	return response
}

func (e *Engine) confirmedReply(slots Slots, now time.Time) string {
	parser := e.filler.parser
	date := slots.Date
	if d := slots.DateValue(); d != nil {
		date = parser.FormatDate(*d, now)
	}
	hour := slots.Time
	if t := slots.TimeValue(); t != nil {
		hour = parser.FormatTime(*t)
	}
	if slots.Service == "" {
		return fmt.Sprintf("✅ Agendamento confirmado para %s às %s. Até lá!", date, hour)
	}
	return fmt.Sprintf("✅ %s confirmado para %s às %s. Até lá!", slots.Service, date, hour)
}

func (e *Engine) escalationPolicy(ctx context.Context, conversationID string) EscalationPolicy {
	fallback := EscalationPolicy{ConfidenceFloor: e.cfg.LowConfidenceFloor, TriggerOnMedia: true}
	if e.policy == nil {
		return fallback
	}
	p, err := e.policy.EscalationPolicy(ctx, conversationID)
	if err != nil {
		e.logger.Warn("escalation policy lookup failed, using defaults", "error", err)
		return fallback
	}
	if p.ConfidenceFloor <= 0 {
		p.ConfidenceFloor = e.cfg.LowConfidenceFloor
	}
	return p
}

func (e *Engine) responseContext(conv *Conversation) ResponseContext {
	rc := ResponseContext{
		State:        conv.State,
		FirstName:    firstWord(conv.Slots.ClientName),
		ProviderName: e.cfg.ProviderName,
		ServiceName:  conv.Slots.Service,
	}
	if last := conv.LastTurn(); last != nil {
		rc.LastIntent = last.Intent
	}
	return rc
}

func bookingIntent(intent Intent) bool {
	switch intent {
	case IntentSchedule, IntentReschedule, IntentAvailability,
		IntentSelectService, IntentConfirmDate, IntentConfirmTime:
		return true
	}
	return false
}

func firstWord(s string) string {
	for i, r := range s {
		if r == ' ' {
			return s[:i]
		}
	}
	return s
}
