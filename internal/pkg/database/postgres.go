package database

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Database stores the switching history of every device. It is an
// optional sink; scheduling works without it.
type Database struct {
	conn *pgx.Conn
}

func New(conn *pgx.Conn) *Database {
	return &Database{conn: conn}
}

func (db *Database) Close(ctx context.Context) error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close(ctx)
}
