package booking

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agendazap/agendazap/pkg/logging"
)

// Service is one row of a provider's catalog.
type Service struct {
	ID              string
	Name            string
	PriceCents      int64
	DurationMinutes int
}

// FormatPrice renders the catalog price in Brazilian currency notation.
func (s Service) FormatPrice() string {
	return fmt.Sprintf("R$ %d,%02d", s.PriceCents/100, s.PriceCents%100)
}

// CreateRequest carries the slots collected by the bot.
type CreateRequest struct {
	ProviderID     string
	ConversationID string
	Service        string
	ClientName     string
	Phone          string
	Date           string // 2006-01-02
	Time           string // 15:04
}

// Appointment is the persisted booking.
type Appointment struct {
	ID             string
	ProviderID     string
	ConversationID string
	Service        string
	ClientName     string
	Phone          string
	StartsAt       time.Time
	CreatedAt      time.Time
}

// Adapter persists appointments and answers catalog lookups.
type Adapter struct {
	db     *sql.DB
	logger *logging.Logger
}

func NewAdapter(db *sql.DB, logger *logging.Logger) *Adapter {
	if db == nil {
		panic("booking: db required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Adapter{db: db, logger: logger}
}

// CreateAppointment inserts the booking. Date and time are combined into a
// single timestamp; both are required.
func (a *Adapter) CreateAppointment(ctx context.Context, req CreateRequest) (*Appointment, error) {
	if req.ConversationID == "" {
		return nil, fmt.Errorf("booking: conversation id required")
	}
	startsAt, err := time.Parse("2006-01-02 15:04", req.Date+" "+req.Time)
	if err != nil {
		return nil, fmt.Errorf("booking: invalid slot values %q %q: %w", req.Date, req.Time, err)
	}

	id := uuid.New()
	var createdAt time.Time
	err = a.db.QueryRowContext(ctx, `
		INSERT INTO appointments (id, provider_id, conversation_id, service, client_name, phone, starts_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		id, req.ProviderID, req.ConversationID, req.Service, req.ClientName, req.Phone, startsAt,
	).Scan(&createdAt)
	if err != nil {
		return nil, fmt.Errorf("booking: insert failed: %w", err)
	}

	return &Appointment{
		ID:             id.String(),
		ProviderID:     req.ProviderID,
		ConversationID: req.ConversationID,
		Service:        req.Service,
		ClientName:     req.ClientName,
		Phone:          req.Phone,
		StartsAt:       startsAt,
		CreatedAt:      createdAt,
	}, nil
}

// MatchService matches free text against the provider's active services.
// Returns the canonical service name, or "" when nothing matches.
func (a *Adapter) MatchService(ctx context.Context, providerID, text string) (string, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT name FROM services
		WHERE provider_id = $1 AND active
		ORDER BY name`, providerID)
	if err != nil {
		return "", fmt.Errorf("booking: list services: %w", err)
	}
	defer rows.Close()

	folded := " " + foldServiceText(text) + " "
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", fmt.Errorf("booking: scan service: %w", err)
		}
		foldedName := foldServiceText(name)
		if strings.Contains(folded, foldedName) {
			return name, rows.Err()
		}
		// "quero um corte" should still find "Corte de cabelo".
		if head, _, _ := strings.Cut(foldedName, " "); len(head) >= 4 && strings.Contains(folded, " "+head+" ") {
			return name, rows.Err()
		}
	}
	return "", rows.Err()
}

// ListServices returns the provider's active catalog for display.
func (a *Adapter) ListServices(ctx context.Context, providerID string) ([]Service, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, name, price_cents, duration_minutes FROM services
		WHERE provider_id = $1 AND active
		ORDER BY name`, providerID)
	if err != nil {
		return nil, fmt.Errorf("booking: list services: %w", err)
	}
	defer rows.Close()

	var out []Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.Name, &s.PriceCents, &s.DurationMinutes); err != nil {
			return nil, fmt.Errorf("booking: scan service: %w", err)
		}
		out = append(out, s)
	}
	if out == nil {
		out = []Service{}
	}
	return out, rows.Err()
}

// CatalogResolver adapts MatchService to the per-conversation lookup the
// slot filler expects, pinned to one provider.
type CatalogResolver struct {
	adapter    *Adapter
	providerID string
}

func NewCatalogResolver(adapter *Adapter, providerID string) *CatalogResolver {
	if adapter == nil {
		panic("booking: adapter required")
	}
	return &CatalogResolver{adapter: adapter, providerID: providerID}
}

func (r *CatalogResolver) Resolve(ctx context.Context, _ string, text string) (string, error) {
	return r.adapter.MatchService(ctx, r.providerID, text)
}

var serviceFolder = strings.NewReplacer(
	"á", "a", "à", "a", "ã", "a", "â", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "õ", "o", "ô", "o",
	"ú", "u", "ü", "u",
	"ç", "c",
)

func foldServiceText(text string) string {
	return serviceFolder.Replace(strings.ToLower(text))
}
