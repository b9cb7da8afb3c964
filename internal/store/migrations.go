package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	username TEXT UNIQUE NOT NULL,
	password TEXT NOT NULL,
	avatar TEXT NOT NULL DEFAULT '',
	can_show BOOLEAN NOT NULL DEFAULT TRUE,
	agree_screen BOOLEAN NOT NULL DEFAULT FALSE,
	last_online TIMESTAMPTZ,
	last_typing TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS messages (
	id BIGSERIAL PRIMARY KEY,
	sender_id BIGINT NOT NULL,
	receiver_id BIGINT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	reply_to BIGINT,
	edited BOOLEAN NOT NULL DEFAULT FALSE,
	read BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_messages_sender_receiver ON messages(sender_id, receiver_id, created_at);
CREATE INDEX IF NOT EXISTS idx_messages_receiver_sender ON messages(receiver_id, sender_id, created_at);
CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);
`

// RunMigrations applies the schema to a PostgreSQL database.
func RunMigrations(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, pgSchema)
	return err
}
