package engine

import (
	"context"
	"strings"

	apperrors "github.com/rallypoint/rallypoint/internal/platform/errors"
	"github.com/rallypoint/rallypoint/internal/services/planner/domain"
	"github.com/rallypoint/rallypoint/internal/services/planner/identity"
	"github.com/rallypoint/rallypoint/internal/services/planner/storage"
)

const (
	// DefaultListLimit applies when a listing names no limit.
	DefaultListLimit = 100
	// MaxListLimit caps listing page size.
	MaxListLimit = 500
)

// Viewer is the querying context: a member or a whole chat channel.
type Viewer interface {
	isViewer()
}

// MemberViewer sees events where the member is pending or accepted.
type MemberViewer struct {
	Member identity.Member
}

func (MemberViewer) isViewer() {}

// ChannelViewer sees every event tagged with its channel.
type ChannelViewer struct {
	ChannelID string
}

func (ChannelViewer) isViewer() {}

// ListFilter narrows ListEvents.
type ListFilter struct {
	// Status selects one status; a CANCELLED status includes cancelled events.
	Status           domain.EventStatus
	IncludeCancelled bool
	Limit            int
	Offset           int
}

// EventView is one event as seen by a viewer.
type EventView struct {
	Event   domain.Event
	Members []domain.Membership
	// Mine is the viewer's own membership, if any.
	Mine     *domain.Membership
	UpToDate bool
	Counts   domain.Counts
}

// ListEvents returns the events visible to viewer, newest first.
func (e *Engine) ListEvents(ctx context.Context, viewer Viewer, filter ListFilter) ([]EventView, error) {
	var views []EventView
	err := e.observe(ctx, "list_events", "", func(ctx context.Context) error {
		storeFilter, err := normalizeFilter(filter)
		if err != nil {
			return err
		}
		if err := validateViewer(viewer); err != nil {
			return err
		}

		var records []storage.EventRecord
		switch v := viewer.(type) {
		case MemberViewer:
			records, err = e.store.ListEventsByMember(ctx, v.Member.Ref(), storeFilter)
		case ChannelViewer:
			records, err = e.store.ListEventsByChannel(ctx, strings.TrimSpace(v.ChannelID), storeFilter)
		}
		if err != nil {
			return apperrors.Internal("list events", err)
		}
		views = make([]EventView, 0, len(records))
		for _, record := range records {
			views = append(views, buildView(record, viewer))
		}
		return nil
	})
	return views, err
}

// GetEvent returns one event when visible to viewer. Invisible events are
// reported as not found.
func (e *Engine) GetEvent(ctx context.Context, eventID string, viewer Viewer) (EventView, error) {
	var view EventView
	err := e.observe(ctx, "get_event", eventID, func(ctx context.Context) error {
		if err := validateViewer(viewer); err != nil {
			return err
		}
		record, err := e.load(ctx, eventID)
		if err != nil {
			return err
		}
		if !canView(record, viewer) {
			return eventNotFound(eventID)
		}
		view = buildView(record, viewer)
		return nil
	})
	return view, err
}

func normalizeFilter(filter ListFilter) (storage.EventFilter, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return storage.EventFilter{}, apperrors.New(apperrors.CodeEventListFilterInvalid, "limit and offset must not be negative")
	}
	if filter.Status != "" {
		status, ok := domain.ParseEventStatus(string(filter.Status))
		if !ok {
			return storage.EventFilter{}, apperrors.WithMetadata(apperrors.CodeEventListFilterInvalid, "unknown status filter", map[string]string{
				apperrors.MetaStatus: string(filter.Status),
			})
		}
		filter.Status = status
	}
	limit := filter.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)
	return storage.EventFilter{
		Status:           filter.Status,
		IncludeCancelled: filter.IncludeCancelled || filter.Status == domain.EventCancelled,
		Limit:            limit,
		Offset:           filter.Offset,
	}, nil
}

func validateViewer(viewer Viewer) error {
	switch v := viewer.(type) {
	case MemberViewer:
		_, err := refOf(v.Member)
		return err
	case ChannelViewer:
		if strings.TrimSpace(v.ChannelID) == "" {
			return apperrors.New(apperrors.CodeEventChannelInvalid, "channel id is required")
		}
		return nil
	default:
		return apperrors.New(apperrors.CodeMembershipActorRequired, "viewer is required")
	}
}

// canView applies the visibility rule shared by ListEvents and GetEvent: a
// member sees an event only through a pending or accepted membership.
func canView(record storage.EventRecord, viewer Viewer) bool {
	switch v := viewer.(type) {
	case MemberViewer:
		membership, ok := domain.FindMembership(record.Memberships, v.Member.Ref())
		return ok && membership.IsActive()
	case ChannelViewer:
		channel := strings.TrimSpace(v.ChannelID)
		return channel != "" && record.Event.ChannelID == channel
	default:
		return false
	}
}

func buildView(record storage.EventRecord, viewer Viewer) EventView {
	members := record.Memberships
	domain.SortMemberships(members)
	view := EventView{
		Event:   record.Event,
		Members: members,
		Counts:  domain.CountMemberships(members),
	}
	if v, ok := viewer.(MemberViewer); ok {
		if membership, found := domain.FindMembership(members, v.Member.Ref()); found {
			view.Mine = &membership
			view.UpToDate = domain.PlanStatusFor(record.Event, membership).UpToDate
		}
	}
	return view
}
