package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Queryer is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithImmediateTx runs fn inside a BEGIN IMMEDIATE transaction on a dedicated
// connection. The write lock is taken up front, so waiting for another
// writer (in this process or another) goes through busy_timeout instead of
// failing when a read transaction is upgraded. fn's error rolls back.
func WithImmediateTx(ctx context.Context, database *sql.DB, fn func(q Queryer) error) error {
	conn, err := database.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("begin immediate: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if err := fn(conn); err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// GetSlot returns the raw value stored under key.
// The boolean is false when the slot has never been written.
func GetSlot(ctx context.Context, q Queryer, key string) (string, bool, error) {
	var value string
	err := q.QueryRowContext(ctx, `SELECT value FROM slots WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// PutSlot replaces the value stored under key.
func PutSlot(ctx context.Context, q Queryer, key, value string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO slots (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().Unix())
	return err
}

// SentimentRow is a row of the sentiments table.
type SentimentRow struct {
	ID           string
	Text         string
	EmotionsJSON string
	CreatedAt    int64 // unix milliseconds
}

// InsertSentiment stores a relayed sentiment document.
func InsertSentiment(ctx context.Context, q Queryer, row SentimentRow) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO sentiments (id, text, emotions_json, created_at) VALUES (?, ?, ?, ?)
	`, row.ID, row.Text, row.EmotionsJSON, row.CreatedAt)
	return err
}

// ListSentiments returns all relayed sentiment documents, newest first.
func ListSentiments(ctx context.Context, q Queryer) ([]SentimentRow, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, text, emotions_json, created_at
		FROM sentiments
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SentimentRow
	for rows.Next() {
		var r SentimentRow
		if err := rows.Scan(&r.ID, &r.Text, &r.EmotionsJSON, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
