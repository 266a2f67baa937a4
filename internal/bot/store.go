package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultStateTTL     = 24 * time.Hour
	defaultStateTimeout = 300 * time.Second
)

// TimeoutStatus is a read-only view of a conversation's inactivity.
type TimeoutStatus struct {
	IsTimeout          bool      `json:"is_timeout"`
	SecondsSinceUpdate float64   `json:"seconds_since_update"`
	CurrentState       StateName `json:"current_state"`
}

// Store persists conversations in Redis under conversation:{id}. Loading a
// conversation that sat in an awaiting-input state past the inactivity
// timeout resets it to idle with slots cleared; the history survives.
type Store struct {
	redis   *redis.Client
	tracer  trace.Tracer
	ttl     time.Duration
	timeout time.Duration
	history int
	now     func() time.Time
}

// StoreConfig tunes persistence. Zero values fall back to defaults.
type StoreConfig struct {
	TTL         time.Duration
	Timeout     time.Duration
	HistorySize int
}

func NewStore(client *redis.Client, cfg StoreConfig, tracer trace.Tracer) *Store {
	if client == nil {
		panic("bot: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("agendazap.internal.bot.store")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultStateTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultStateTimeout
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 10
	}
	return &Store{
		redis:   client,
		tracer:  tracer,
		ttl:     cfg.TTL,
		timeout: cfg.Timeout,
		history: cfg.HistorySize,
		now:     time.Now,
	}
}

func conversationKey(id string) string {
	return fmt.Sprintf("conversation:%s", id)
}

// Load returns the stored conversation, or a fresh idle one when absent.
// The stale-state reset happens here so callers always observe current state.
func (s *Store) Load(ctx context.Context, id string) (*Conversation, error) {
	ctx, span := s.tracer.Start(ctx, "bot.load_conversation")
	defer span.End()

	now := s.now()
	data, err := s.redis.Get(ctx, conversationKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return NewConversation(id, now), nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("bot: failed to load conversation: %w", err)
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("bot: failed to decode conversation: %w", err)
	}

	if conv.State.AwaitingInput() && now.Sub(conv.UpdatedAt) > s.timeout {
		conv.ResetBooking()
		t := now
		conv.TimeoutAt = &t
	}
	return &conv, nil
}

// Save persists the conversation and stamps UpdatedAt.
func (s *Store) Save(ctx context.Context, conv *Conversation) error {
	ctx, span := s.tracer.Start(ctx, "bot.save_conversation")
	defer span.End()

	conv.UpdatedAt = s.now()
	data, err := json.Marshal(conv)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("bot: failed to marshal conversation: %w", err)
	}
	if err := s.redis.Set(ctx, conversationKey(conv.ID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("bot: failed to persist conversation: %w", err)
	}
	return nil
}

// AddToHistory appends a turn and persists, trimming to the ring capacity.
func (s *Store) AddToHistory(ctx context.Context, id string, turn Turn) error {
	conv, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	conv.AddTurn(turn, s.history)
	return s.Save(ctx, conv)
}

// GetTimeoutStatus reports inactivity without mutating the stored state.
func (s *Store) GetTimeoutStatus(ctx context.Context, id string) (TimeoutStatus, error) {
	ctx, span := s.tracer.Start(ctx, "bot.timeout_status")
	defer span.End()

	data, err := s.redis.Get(ctx, conversationKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return TimeoutStatus{CurrentState: StateIdle}, nil
		}
		span.RecordError(err)
		return TimeoutStatus{}, fmt.Errorf("bot: failed to load conversation: %w", err)
	}
	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		span.RecordError(err)
		return TimeoutStatus{}, fmt.Errorf("bot: failed to decode conversation: %w", err)
	}

	since := s.now().Sub(conv.UpdatedAt)
	return TimeoutStatus{
		IsTimeout:          conv.State.AwaitingInput() && since > s.timeout,
		SecondsSinceUpdate: since.Seconds(),
		CurrentState:       conv.State,
	}, nil
}

// MarkHandoff flags the conversation as taken over by a human.
func (s *Store) MarkHandoff(ctx context.Context, id, reason string, metadata map[string]string) error {
	conv, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	conv.Handoff = &Handoff{
		Reason:    reason,
		Timestamp: s.now(),
		Metadata:  metadata,
	}
	return s.Save(ctx, conv)
}

// ClearHandoff returns the conversation to automated handling.
func (s *Store) ClearHandoff(ctx context.Context, id string) error {
	conv, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	conv.Handoff = nil
	return s.Save(ctx, conv)
}

// HistorySize exposes the ring capacity for callers that trim inline.
func (s *Store) HistorySize() int {
	return s.history
}
