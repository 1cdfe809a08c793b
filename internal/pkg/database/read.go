package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/danwue/elekter/internal/pkg/model"
)

// LatestStates returns each device's most recently recorded state.
func (db *Database) LatestStates(ctx context.Context) (map[string]bool, error) {
	const query = `
	SELECT DISTINCT ON (device) device, state
	FROM transitions
	ORDER BY device, switched_at DESC;
	`

	rows, err := db.conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make(map[string]bool)
	for rows.Next() {
		var device string
		var state bool
		if err := rows.Scan(&device, &state); err != nil {
			return nil, err
		}
		states[device] = state
	}

	if err := rows.Err(); err != nil {
		if err == pgx.ErrNoRows {
			return states, nil
		}
		return nil, err
	}

	return states, nil
}

// Transitions returns the switching history of one device within
// [from, to), newest first.
func (db *Database) Transitions(ctx context.Context, device string, from, to time.Time) ([]model.Transition, error) {
	const query = `
	SELECT device, slug, slot, state, switched_at, price
	FROM transitions
	WHERE device = $1 AND switched_at >= $2 AND switched_at < $3
	ORDER BY switched_at DESC;
	`

	rows, err := db.conn.Query(ctx, query, device, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transitions []model.Transition
	for rows.Next() {
		var tr model.Transition
		if err := rows.Scan(&tr.Device, &tr.Slug, &tr.Slot, &tr.On, &tr.At, &tr.Price); err != nil {
			return nil, err
		}
		transitions = append(transitions, tr)
	}

	return transitions, rows.Err()
}
