package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Notifier publishes high-risk screening IDs on a PostgreSQL NOTIFY channel
// so clinician tooling listening on that channel can react immediately.
type Notifier struct {
	DB      *sql.DB
	Channel string
}

// NewNotifier constructs a new Notifier. The channel should match the
// SCREENING_NOTIFY_CHANNEL setting.
func NewNotifier(db *sql.DB, channel string) *Notifier {
	return &Notifier{DB: db, Channel: channel}
}

// Notify sends screeningID as the payload on the configured channel.
// pg_notify is used instead of NOTIFY so both values can be bound.
func (n *Notifier) Notify(ctx context.Context, screeningID string) error {
	if _, err := n.DB.ExecContext(ctx, `SELECT pg_notify($1, $2)`, n.Channel, screeningID); err != nil {
		return fmt.Errorf("notify %s: %w", n.Channel, err)
	}
	return nil
}
