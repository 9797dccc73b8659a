// Package sqlite provides a SQLite-backed planner storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/rallypoint/rallypoint/internal/platform/storage/sqlitemigrate"
	"github.com/rallypoint/rallypoint/internal/services/planner/domain"
	"github.com/rallypoint/rallypoint/internal/services/planner/storage"
	"github.com/rallypoint/rallypoint/internal/services/planner/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Every transaction starts with BEGIN IMMEDIATE, so a writer takes the
// database write lock before its first read.
const dsnOptions = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)&_txlock=immediate"

// Store persists planner state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite planner store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	sqlDB, err := sql.Open("sqlite", cleanPath+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// GetExternalMember returns one external member by (source, external id).
func (s *Store) GetExternalMember(ctx context.Context, source, externalID string) (storage.ExternalMember, error) {
	if err := s.ready(ctx); err != nil {
		return storage.ExternalMember{}, err
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT record_id, source, external_id, display_label, created_at, updated_at
		   FROM external_members
		  WHERE source = ? AND external_id = ?`,
		source,
		externalID,
	)
	var member storage.ExternalMember
	var createdAt, updatedAt int64
	err := row.Scan(&member.RecordID, &member.Source, &member.ExternalID, &member.DisplayLabel, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ExternalMember{}, storage.ErrNotFound
		}
		return storage.ExternalMember{}, fmt.Errorf("get external member: %w", err)
	}
	member.CreatedAt = fromMillis(createdAt)
	member.UpdatedAt = fromMillis(updatedAt)
	return member, nil
}

// CreateExternalMember inserts one external member record.
func (s *Store) CreateExternalMember(ctx context.Context, member storage.ExternalMember) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if member.RecordID == "" || member.Source == "" || member.ExternalID == "" {
		return fmt.Errorf("record id, source, and external id are required")
	}
	createdAt := member.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	updatedAt := member.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO external_members (record_id, source, external_id, display_label, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		member.RecordID,
		member.Source,
		member.ExternalID,
		member.DisplayLabel,
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create external member: %w", err)
	}
	return nil
}

// SetExternalMemberLabel replaces the display label of an external member.
func (s *Store) SetExternalMemberLabel(ctx context.Context, source, externalID, label string, updatedAt time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE external_members SET display_label = ?, updated_at = ?
		  WHERE source = ? AND external_id = ?`,
		label,
		toMillis(updatedAt),
		source,
		externalID,
	)
	if err != nil {
		return fmt.Errorf("set external member label: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set external member label: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CreateEvent inserts an event and its host membership in one transaction.
func (s *Store) CreateEvent(ctx context.Context, event domain.Event, host domain.Membership) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if event.ID == "" || host.EventID != event.ID {
		return fmt.Errorf("event id and matching host membership are required")
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create event: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertEvent(ctx, tx, event); err != nil {
		return err
	}
	if err := insertMembership(ctx, tx, host); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create event: %w", err)
	}
	return nil
}

// UpdateEvent runs fn inside one immediate transaction scoped to eventID.
func (s *Store) UpdateEvent(ctx context.Context, eventID string, fn func(tx storage.EventTx) error) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("update function is required")
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update event: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	record, err := loadEvent(ctx, tx, eventID)
	if err != nil {
		return err
	}
	eventTx := &eventTx{ctx: ctx, tx: tx, event: record.Event, memberships: record.Memberships}
	if err := fn(eventTx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update event: %w", err)
	}
	return nil
}

// GetEvent returns one event with its memberships.
func (s *Store) GetEvent(ctx context.Context, eventID string) (storage.EventRecord, error) {
	if err := s.ready(ctx); err != nil {
		return storage.EventRecord{}, err
	}
	return loadEvent(ctx, s.sqlDB, eventID)
}

// ListEventsByMember returns events where member is pending or accepted.
func (s *Store) ListEventsByMember(ctx context.Context, member domain.MemberRef, filter storage.EventFilter) ([]storage.EventRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	query := `SELECT ` + eventColumns + `
	            FROM events e
	            JOIN event_memberships m ON m.event_id = e.id
	           WHERE m.member_source = ? AND m.member_id = ?
	             AND m.status IN (?, ?)`
	args := []any{member.Source, member.ID, string(domain.MembershipPending), string(domain.MembershipAccepted)}
	return s.listEvents(ctx, query, args, filter)
}

// ListEventsByChannel returns events whose channel tag equals channelID.
func (s *Store) ListEventsByChannel(ctx context.Context, channelID string, filter storage.EventFilter) ([]storage.EventRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if channelID == "" {
		return nil, nil
	}
	query := `SELECT ` + eventColumns + `
	            FROM events e
	           WHERE e.channel_id = ?`
	return s.listEvents(ctx, query, []any{channelID}, filter)
}

func (s *Store) listEvents(ctx context.Context, query string, args []any, filter storage.EventFilter) ([]storage.EventRecord, error) {
	switch {
	case filter.Status != "":
		query += ` AND e.status = ?`
		args = append(args, string(filter.Status))
	case !filter.IncludeCancelled:
		query += ` AND e.status <> ?`
		args = append(args, string(domain.EventCancelled))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	query += ` ORDER BY e.created_at DESC, e.id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, max(filter.Offset, 0))

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("list events: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("list events: %w", err)
	}
	_ = rows.Close()

	records := make([]storage.EventRecord, 0, len(events))
	for _, event := range events {
		memberships, err := loadMemberships(ctx, s.sqlDB, event.ID)
		if err != nil {
			return nil, err
		}
		records = append(records, storage.EventRecord{Event: event, Memberships: memberships})
	}
	return records, nil
}

// PurgeMemberships deletes the memberships of a deleted event.
func (s *Store) PurgeMemberships(ctx context.Context, eventID string) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin purge memberships: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var found int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, eventID).Scan(&found)
	switch {
	case err == nil:
		return 0, storage.ErrEventExists
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("check event before purge: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM event_memberships WHERE event_id = ?`, eventID)
	if err != nil {
		return 0, fmt.Errorf("purge memberships: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge memberships: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit purge memberships: %w", err)
	}
	return int(affected), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ storage.Store = (*Store)(nil)
