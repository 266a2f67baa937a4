package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/agendazap/agendazap/pkg/logging"
)

// Interaction is one classified message, archived as training data for the
// statistical classifier.
type Interaction struct {
	ConversationID string
	Text           string
	Intent         string
	Confidence     float64
	Source         string
	OccurredAt     time.Time
}

// Collector appends interactions to the training archive. Archiving is
// best-effort: callers log errors and keep going, a turn never fails
// because the archive is down.
type Collector struct {
	db     *sql.DB
	logger *logging.Logger
}

func NewCollector(db *sql.DB, logger *logging.Logger) *Collector {
	if db == nil {
		panic("archive: db required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Collector{db: db, logger: logger}
}

// Record inserts one interaction.
func (c *Collector) Record(ctx context.Context, in Interaction) error {
	if in.OccurredAt.IsZero() {
		in.OccurredAt = time.Now().UTC()
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO bot_interactions (conversation_id, text, intent, confidence, source, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		in.ConversationID, in.Text, in.Intent, in.Confidence, in.Source, in.OccurredAt)
	if err != nil {
		return fmt.Errorf("archive: insert interaction: %w", err)
	}
	return nil
}

// CountSince reports archive volume for operator dashboards.
func (c *Collector) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bot_interactions WHERE occurred_at >= $1`, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("archive: count interactions: %w", err)
	}
	return n, nil
}
