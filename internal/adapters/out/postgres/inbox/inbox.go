// Package inbox records consumed event ids in Postgres so that redelivered
// broker messages are handled once. It talks to the database through a pgx pool,
// separately from the GORM connection used by the order store.
package inbox

import (
	"context"
	"strings"

	"orders/internal/adapters/out/postgres/pgerr"
	"orders/internal/pkg/errs"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS processed_events (
	event_id     varchar(64) PRIMARY KEY,
	processed_at timestamptz NOT NULL DEFAULT now()
)`

const markProcessedSQL = `
INSERT INTO processed_events (event_id) VALUES ($1)
ON CONFLICT (event_id) DO NOTHING`

// PgxInbox implements ports.Inbox.
type PgxInbox struct {
	pool *pgxpool.Pool
}

func NewPgxInbox(pool *pgxpool.Pool) *PgxInbox {
	return &PgxInbox{pool: pool}
}

// Migrate creates the processed_events table when it does not exist.
func (i *PgxInbox) Migrate(ctx context.Context) error {
	if _, err := i.pool.Exec(ctx, createTableSQL); err != nil {
		return pgerr.Translate("create processed_events", err)
	}
	return nil
}

// MarkProcessed inserts eventID and reports whether it was not seen before.
func (i *PgxInbox) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return false, errs.NewValueIsRequiredError("eventId")
	}

	tag, err := i.pool.Exec(ctx, markProcessedSQL, eventID)
	if err != nil {
		return false, pgerr.Translate("mark event processed", err)
	}
	return tag.RowsAffected() == 1, nil
}
