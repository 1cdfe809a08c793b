package database

import (
	"context"

	"github.com/danwue/elekter/internal/pkg/model"
)

func (db *Database) WriteTransition(ctx context.Context, tr model.Transition) error {
	const insertSQL = `
	INSERT INTO transitions (device, slug, slot, state, switched_at, price)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := db.conn.Exec(ctx, insertSQL, tr.Device, tr.Slug, tr.Slot, tr.On, tr.At, tr.Price); err != nil {
		return err
	}
	return nil
}

func (db *Database) RegisterDevice(ctx context.Context, name, slug string) error {
	_, err := db.conn.Exec(ctx, `
		INSERT INTO devices (name, slug)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING;`, name, slug)
	if err != nil {
		return err
	}
	return nil
}
