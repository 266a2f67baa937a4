package bot

import (
	"fmt"
	"time"
)

// StateName is the slot-filling stage a conversation is in.
type StateName string

const (
	StateIdle        StateName = "idle"
	StateNeedService StateName = "need_service"
	StateNeedDate    StateName = "need_date"
	StateNeedWindow  StateName = "need_window"
	StateNeedTime    StateName = "need_time"
	StateConfirm     StateName = "confirm"
	StateConfirmed   StateName = "confirmed"
)

// AwaitingInput reports whether the state is waiting on the customer, which
// makes it subject to the inactivity timeout.
func (s StateName) AwaitingInput() bool {
	switch s {
	case StateNeedService, StateNeedDate, StateNeedWindow, StateNeedTime, StateConfirm:
		return true
	}
	return false
}

// Slot names, also the fixed prompting order for missing slots.
const (
	SlotService = "service"
	SlotDate    = "date"
	SlotTime    = "time"
)

// Slots holds the booking information collected so far. Date is stored as
// YYYY-MM-DD and Time as HH:MM so the record round-trips through JSON.
type Slots struct {
	Service    string `json:"service,omitempty"`
	Date       string `json:"date,omitempty"`
	TimeWindow Window `json:"time_window,omitempty"`
	Time       string `json:"time,omitempty"`
	ClientName string `json:"client_name,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// IsComplete reports whether every slot required for booking is present.
func (s Slots) IsComplete() bool {
	return s.Service != "" && s.Date != "" && s.Time != ""
}

// Missing returns the absent required slots in prompting order.
func (s Slots) Missing() []string {
	var out []string
	if s.Service == "" {
		out = append(out, SlotService)
	}
	if s.Date == "" {
		out = append(out, SlotDate)
	}
	if s.Time == "" {
		out = append(out, SlotTime)
	}
	return out
}

// DateValue decodes the stored date, nil when unset or malformed.
func (s Slots) DateValue() *time.Time {
	if s.Date == "" {
		return nil
	}
	d, err := time.Parse("2006-01-02", s.Date)
	if err != nil {
		return nil
	}
	return &d
}

// TimeValue decodes the stored time, nil when unset or malformed.
func (s Slots) TimeValue() *ClockTime {
	if s.Time == "" {
		return nil
	}
	var hh, mm int
	if _, err := fmt.Sscanf(s.Time, "%d:%d", &hh, &mm); err != nil {
		return nil
	}
	return &ClockTime{Hour: hh, Minute: mm}
}

// SetDate stores d in wire form.
func (s *Slots) SetDate(d time.Time) {
	s.Date = d.Format("2006-01-02")
}

// SetTime stores t in wire form.
func (s *Slots) SetTime(t ClockTime) {
	s.Time = fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Turn is one exchange kept in the conversation history.
type Turn struct {
	Intent     Intent    `json:"intent"`
	Confidence float64   `json:"confidence"`
	Text       string    `json:"text"`
	Response   string    `json:"response"`
	Timestamp  time.Time `json:"timestamp"`
}

// Handoff records that a human took over the conversation. While set, the
// engine suppresses automatic replies.
type Handoff struct {
	Reason    string            `json:"reason"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Handoff reasons.
const (
	HandoffReasonMedia         = "media"
	HandoffReasonLowConfidence = "low_confidence"
	HandoffReasonHumanRequest  = "human_requested"
)

// Conversation is the per-customer dialogue state.
type Conversation struct {
	ID                  string     `json:"id"`
	State               StateName  `json:"state"`
	Slots               Slots      `json:"slots"`
	History             []Turn     `json:"history,omitempty"`
	Handoff             *Handoff   `json:"handoff,omitempty"`
	LowConfidenceStreak int        `json:"low_confidence_streak,omitempty"`
	TurnCount           int        `json:"turn_count,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	TimeoutAt           *time.Time `json:"timeout_at,omitempty"`
}

// NewConversation initializes a fresh idle conversation.
func NewConversation(id string, now time.Time) *Conversation {
	return &Conversation{
		ID:        id,
		State:     StateIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddTurn appends to the history ring, evicting the oldest beyond capacity.
func (c *Conversation) AddTurn(turn Turn, capacity int) {
	c.History = append(c.History, turn)
	if capacity > 0 && len(c.History) > capacity {
		c.History = c.History[len(c.History)-capacity:]
	}
}

// LastTurn returns the most recent history entry, nil when empty.
func (c *Conversation) LastTurn() *Turn {
	if len(c.History) == 0 {
		return nil
	}
	return &c.History[len(c.History)-1]
}

// ResetBooking clears the current booking attempt but keeps the history.
func (c *Conversation) ResetBooking() {
	c.State = StateIdle
	c.Slots = Slots{}
	c.TurnCount = 0
}
