// Package outbox persists optimistically-sent messages until the server
// confirms them. Without it, a message sent right before the process
// exits is silently lost; with it, unconfirmed sends survive a crash and
// can be listed or retried. Opt-in: a nil *Journal disables journaling.
package outbox

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pigeonchat/pigeon/internal/outbox/migrations"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is one journaled send.
type Entry struct {
	ID            int64
	CorrelationID string
	Recipient     string
	Body          string
	Status        string // pending, confirmed, failed
	ServerMsgID   string
	ErrorMessage  string
	CreatedAt     int64
}

// Journal is a sqlite-backed record of in-flight sends.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal at path and applies migrations.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) migrate() error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	driver, err := sqlite3.WithInstance(j.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("migration instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration up: %w", err)
	}
	return nil
}

// Record journals a send before the transport write. Safe on nil.
func (j *Journal) Record(correlationID, recipient, body string) error {
	if j == nil {
		return nil
	}
	now := time.Now().UnixMilli()
	_, err := j.db.Exec(`
		INSERT INTO outbox (correlation_id, recipient, body, status, created_at, updated_at)
		VALUES (?, ?, ?, 'pending', ?, ?)
		ON CONFLICT(correlation_id) DO UPDATE SET
			status = 'pending',
			error_message = '',
			updated_at = excluded.updated_at`,
		correlationID, recipient, body, now, now)
	return err
}

// Confirm marks an entry as server-confirmed. Safe on nil.
func (j *Journal) Confirm(correlationID, serverMsgID string) error {
	if j == nil {
		return nil
	}
	now := time.Now().UnixMilli()
	_, err := j.db.Exec(
		`UPDATE outbox SET status = 'confirmed', server_msg_id = ?, updated_at = ? WHERE correlation_id = ?`,
		serverMsgID, now, correlationID)
	return err
}

// Fail marks an entry as failed with a diagnostic message. Safe on nil.
func (j *Journal) Fail(correlationID, errMsg string) error {
	if j == nil {
		return nil
	}
	now := time.Now().UnixMilli()
	_, err := j.db.Exec(
		`UPDATE outbox SET status = 'failed', error_message = ?, updated_at = ? WHERE correlation_id = ?`,
		errMsg, now, correlationID)
	return err
}

// Unconfirmed returns entries never confirmed by the server, oldest
// first. These are the messages a crash would otherwise have lost.
func (j *Journal) Unconfirmed() ([]Entry, error) {
	if j == nil {
		return nil, nil
	}
	rows, err := j.db.Query(`
		SELECT id, correlation_id, recipient, body, status, server_msg_id, error_message, created_at
		FROM outbox WHERE status != 'confirmed' ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CorrelationID, &e.Recipient, &e.Body, &e.Status, &e.ServerMsgID, &e.ErrorMessage, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes confirmed entries older than the cutoff.
func (j *Journal) Prune(olderThan time.Duration) error {
	if j == nil {
		return nil
	}
	cutoff := time.Now().Add(-olderThan).UnixMilli()
	_, err := j.db.Exec(`DELETE FROM outbox WHERE status = 'confirmed' AND updated_at < ?`, cutoff)
	return err
}

// Close closes the journal. Safe on nil.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.db.Close()
}
