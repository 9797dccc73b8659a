// Package engine applies planner commands and queries to event aggregates.
//
// Every mutation runs inside one storage.EventStore.UpdateEvent call, so the
// authorization and invariant checks see the same snapshot the write commits
// against. The engine never logs; callers render its typed errors.
package engine

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/rallypoint/rallypoint/internal/platform/errors"
	"github.com/rallypoint/rallypoint/internal/platform/id"
	"github.com/rallypoint/rallypoint/internal/services/planner/domain"
	"github.com/rallypoint/rallypoint/internal/services/planner/identity"
	"github.com/rallypoint/rallypoint/internal/services/planner/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/rallypoint/rallypoint/internal/services/planner/engine"

// Engine is the event and membership domain engine.
type Engine struct {
	store       storage.EventStore
	now         func() time.Time
	idGenerator func() (string, error)
	metrics     *Metrics
	tracer      trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator overrides event id generation.
func WithIDGenerator(generator func() (string, error)) Option {
	return func(e *Engine) {
		if generator != nil {
			e.idGenerator = generator
		}
	}
}

// WithMetrics records operation outcomes on m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New builds an engine over store.
func New(store storage.EventStore, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		now:         time.Now,
		idGenerator: id.NewID,
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// observe wraps an operation in a span and records its outcome.
func (e *Engine) observe(ctx context.Context, operation, eventID string, fn func(context.Context) error) error {
	ctx, span := e.tracer.Start(ctx, "planner."+operation, trace.WithAttributes(
		attribute.String("planner.event_id", eventID),
	))
	defer span.End()

	err := fn(ctx)
	e.metrics.record(operation, err)
	if err != nil {
		span.SetAttributes(attribute.String("planner.error_code", string(apperrors.CodeOf(err))))
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperrors.KindOf(err)))
	}
	return err
}

// update runs fn inside the event's transaction and translates storage
// sentinels into coded errors.
func (e *Engine) update(ctx context.Context, eventID string, fn func(tx storage.EventTx) error) error {
	if eventID == "" {
		return apperrors.New(apperrors.CodeEventIDEmpty, "event id is required")
	}
	err := e.store.UpdateEvent(ctx, eventID, fn)
	return translate(err, eventID, "update event")
}

// load reads one event aggregate for queries.
func (e *Engine) load(ctx context.Context, eventID string) (storage.EventRecord, error) {
	if eventID == "" {
		return storage.EventRecord{}, apperrors.New(apperrors.CodeEventIDEmpty, "event id is required")
	}
	record, err := e.store.GetEvent(ctx, eventID)
	if err != nil {
		return storage.EventRecord{}, translate(err, eventID, "get event")
	}
	return record, nil
}

func translate(err error, eventID, action string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if errors.Is(err, storage.ErrNotFound) {
		return eventNotFound(eventID)
	}
	return apperrors.Internal(action, err)
}

func (e *Engine) timestamp() time.Time {
	return e.now().UTC()
}

func refOf(member identity.Member) (domain.MemberRef, error) {
	if member == nil {
		return domain.MemberRef{}, apperrors.New(apperrors.CodeMembershipActorRequired, "actor is required")
	}
	ref := member.Ref()
	if err := identity.ValidateRef(ref); err != nil {
		return domain.MemberRef{}, err
	}
	return ref, nil
}

func eventNotFound(eventID string) error {
	return apperrors.WithMetadata(apperrors.CodeEventNotFound, "event not found", map[string]string{
		apperrors.MetaEventID: eventID,
	})
}

func membershipNotFound(eventID string, member domain.MemberRef) error {
	return apperrors.WithMetadata(apperrors.CodeMembershipNotFound, "membership not found", map[string]string{
		apperrors.MetaEventID: eventID,
		apperrors.MetaMember:  member.String(),
	})
}

func eventCancelled(eventID string) error {
	return apperrors.WithMetadata(apperrors.CodeEventCancelled, "event is cancelled", map[string]string{
		apperrors.MetaEventID: eventID,
		apperrors.MetaStatus:  string(domain.EventCancelled),
	})
}

// requireAcceptedHost returns the actor's membership when it is an accepted host.
func requireAcceptedHost(tx storage.EventTx, actor domain.MemberRef) (domain.Membership, error) {
	membership, ok := tx.Membership(actor)
	if !ok || !membership.IsAcceptedHost() {
		return domain.Membership{}, apperrors.WithMetadata(apperrors.CodeEventHostRequired, "actor is not an accepted host", map[string]string{
			apperrors.MetaEventID: tx.Event().ID,
			apperrors.MetaMember:  actor.String(),
		})
	}
	return membership, nil
}

// requireAcceptedMember returns the actor's membership when it is accepted.
func requireAcceptedMember(memberships []domain.Membership, eventID string, actor domain.MemberRef) (domain.Membership, error) {
	membership, ok := domain.FindMembership(memberships, actor)
	if !ok || membership.Status != domain.MembershipAccepted {
		return domain.Membership{}, apperrors.WithMetadata(apperrors.CodeMembershipNotAccepted, "actor has no accepted membership", map[string]string{
			apperrors.MetaEventID: eventID,
			apperrors.MetaMember:  actor.String(),
		})
	}
	return membership, nil
}

// guardHosts rejects a change that would leave an event that has accepted
// hosts with none. next is the member's membership after the change, or nil
// when the membership is removed.
func guardHosts(tx storage.EventTx, member domain.MemberRef, next *domain.Membership) error {
	memberships := tx.Memberships()
	current := domain.CountMemberships(memberships).AcceptedHosts
	remaining := domain.AcceptedHostsExcluding(memberships, member)
	if next != nil && next.IsAcceptedHost() {
		remaining++
	}
	if current > 0 && remaining == 0 {
		return apperrors.WithMetadata(apperrors.CodeMembershipLastHost, "event would be left without an accepted host", map[string]string{
			apperrors.MetaEventID: tx.Event().ID,
			apperrors.MetaMember:  member.String(),
		})
	}
	return nil
}
