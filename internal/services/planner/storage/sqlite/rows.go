package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rallypoint/rallypoint/internal/services/planner/domain"
	"github.com/rallypoint/rallypoint/internal/services/planner/storage"
)

const eventColumns = `e.id, e.name, e.game_name, e.status, e.date_time, e.location,
	e.plan_version, e.plan_updated_at, e.creator_source, e.creator_id,
	e.channel_id, e.created_at, e.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanEvent(row scanner) (domain.Event, error) {
	var (
		event                             domain.Event
		status                            string
		dateTime                          sql.NullInt64
		location                          sql.NullString
		planUpdatedAt, createdAt, updated int64
	)
	if err := row.Scan(
		&event.ID,
		&event.Name,
		&event.GameName,
		&status,
		&dateTime,
		&location,
		&event.PlanVersion,
		&planUpdatedAt,
		&event.CreatorRef.Source,
		&event.CreatorRef.ID,
		&event.ChannelID,
		&createdAt,
		&updated,
	); err != nil {
		return domain.Event{}, err
	}
	eventStatus, ok := domain.ParseEventStatus(status)
	if !ok {
		return domain.Event{}, fmt.Errorf("event %s: unknown status %q", event.ID, status)
	}
	event.Status = eventStatus
	if dateTime.Valid {
		value := fromMillis(dateTime.Int64)
		event.DateTime = &value
	}
	if location.Valid {
		value := location.String
		event.Location = &value
	}
	event.PlanUpdatedAt = fromMillis(planUpdatedAt)
	event.CreatedAt = fromMillis(createdAt)
	event.UpdatedAt = fromMillis(updated)
	return event, nil
}

func eventArgs(event domain.Event) (sql.NullInt64, sql.NullString) {
	var (
		dateTime sql.NullInt64
		location sql.NullString
	)
	if event.DateTime != nil {
		dateTime = sql.NullInt64{Int64: toMillis(*event.DateTime), Valid: true}
	}
	if event.Location != nil {
		location = sql.NullString{String: *event.Location, Valid: true}
	}
	return dateTime, location
}

func loadEvent(ctx context.Context, q querier, eventID string) (storage.EventRecord, error) {
	row := q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = ?`, eventID)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.EventRecord{}, storage.ErrNotFound
		}
		return storage.EventRecord{}, fmt.Errorf("get event: %w", err)
	}
	memberships, err := loadMemberships(ctx, q, eventID)
	if err != nil {
		return storage.EventRecord{}, err
	}
	return storage.EventRecord{Event: event, Memberships: memberships}, nil
}

func loadMemberships(ctx context.Context, q querier, eventID string) ([]domain.Membership, error) {
	rows, err := q.QueryContext(
		ctx,
		`SELECT m.event_id, m.member_source, m.member_id, m.role, m.status,
		        m.confirmed_plan_version, m.invited_by_source, m.invited_by_id,
		        COALESCE(x.display_label, ''), m.created_at, m.updated_at
		   FROM event_memberships m
		   LEFT JOIN external_members x
		     ON x.source = m.member_source AND x.external_id = m.member_id
		  WHERE m.event_id = ?
		  ORDER BY m.created_at ASC, m.member_source ASC, m.member_id ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	var memberships []domain.Membership
	for rows.Next() {
		var (
			m                  domain.Membership
			role, status       string
			createdAt, updated int64
		)
		if err := rows.Scan(
			&m.EventID,
			&m.Member.Source,
			&m.Member.ID,
			&role,
			&status,
			&m.ConfirmedPlanVersion,
			&m.InvitedBy.Source,
			&m.InvitedBy.ID,
			&m.DisplayLabel,
			&createdAt,
			&updated,
		); err != nil {
			return nil, fmt.Errorf("list memberships: %w", err)
		}
		var ok bool
		if m.Role, ok = domain.ParseRole(role); !ok {
			return nil, fmt.Errorf("list memberships: %s: unknown role %q", m.Member, role)
		}
		if m.Status, ok = domain.ParseMembershipStatus(status); !ok {
			return nil, fmt.Errorf("list memberships: %s: unknown status %q", m.Member, status)
		}
		m.CreatedAt = fromMillis(createdAt)
		m.UpdatedAt = fromMillis(updated)
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	return memberships, nil
}

func insertEvent(ctx context.Context, exec execer, event domain.Event) error {
	dateTime, location := eventArgs(event)
	_, err := exec.ExecContext(
		ctx,
		`INSERT INTO events (
		   id, name, game_name, status, date_time, location,
		   plan_version, plan_updated_at, creator_source, creator_id,
		   channel_id, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Name,
		event.GameName,
		string(event.Status),
		dateTime,
		location,
		event.PlanVersion,
		toMillis(event.PlanUpdatedAt),
		event.CreatorRef.Source,
		event.CreatorRef.ID,
		event.ChannelID,
		toMillis(event.CreatedAt),
		toMillis(event.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func insertMembership(ctx context.Context, exec execer, m domain.Membership) error {
	_, err := exec.ExecContext(
		ctx,
		`INSERT INTO event_memberships (
		   event_id, member_source, member_id, role, status,
		   confirmed_plan_version, invited_by_source, invited_by_id,
		   created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.EventID,
		m.Member.Source,
		m.Member.ID,
		string(m.Role),
		string(m.Status),
		m.ConfirmedPlanVersion,
		m.InvitedBy.Source,
		m.InvitedBy.ID,
		toMillis(m.CreatedAt),
		toMillis(m.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}
