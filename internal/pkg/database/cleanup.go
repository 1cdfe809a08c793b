package database

import (
	"context"
	"time"
)

// Cleanup removes transition history older than eight days.
func (db *Database) Cleanup(ctx context.Context) error {
	if _, err := db.conn.Exec(ctx, "DELETE FROM transitions WHERE switched_at < $1", time.Now().AddDate(0, 0, -8)); err != nil {
		return err
	}
	return nil
}
