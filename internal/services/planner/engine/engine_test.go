package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	apperrors "github.com/rallypoint/rallypoint/internal/platform/errors"
	"github.com/rallypoint/rallypoint/internal/services/planner/domain"
	"github.com/rallypoint/rallypoint/internal/services/planner/identity"
	"github.com/rallypoint/rallypoint/internal/services/planner/storage"
	"github.com/rallypoint/rallypoint/internal/services/planner/storage/memory"
	"github.com/rallypoint/rallypoint/internal/services/planner/storage/sqlite"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	u1 = identity.Account{AccountID: "u1"}
	u2 = identity.Account{AccountID: "u2"}
	u3 = identity.Account{AccountID: "u3"}
	u4 = identity.Account{AccountID: "u4"}
)

// stepClock advances one second per reading so creation order is stable.
type stepClock struct {
	mu      sync.Mutex
	current time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(time.Second)
	return c.current
}

type fixture struct {
	engine *Engine
	store  storage.Store
}

type storeFactory struct {
	name string
	open func(t *testing.T) storage.Store
}

func storeFactories() []storeFactory {
	return []storeFactory{
		{name: "memory", open: func(t *testing.T) storage.Store { return memory.New() }},
		{name: "sqlite", open: func(t *testing.T) storage.Store {
			store, err := sqlite.Open(filepath.Join(t.TempDir(), "planner.db"))
			if err != nil {
				t.Fatalf("open sqlite store: %v", err)
			}
			return store
		}},
	}
}

// eachStore runs fn once per storage implementation.
func eachStore(t *testing.T, fn func(t *testing.T, fx fixture)) {
	t.Helper()
	for _, factory := range storeFactories() {
		t.Run(factory.name, func(t *testing.T) {
			store := factory.open(t)
			t.Cleanup(func() { _ = store.Close() })
			clock := &stepClock{current: time.Date(2025, time.January, 10, 18, 0, 0, 0, time.UTC)}
			counter := 0
			var mu sync.Mutex
			engine := New(store,
				WithClock(clock.Now),
				WithIDGenerator(func() (string, error) {
					mu.Lock()
					defer mu.Unlock()
					counter++
					return fmt.Sprintf("evt-%03d", counter), nil
				}),
			)
			fn(t, fixture{engine: engine, store: store})
		})
	}
}

func (fx fixture) createEvent(t *testing.T, creator identity.Member) domain.Event {
	t.Helper()
	event, err := fx.engine.CreateEvent(context.Background(), creator, domain.CreateEventInput{
		GameName:  "Catan",
		EventName: "Game Night",
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return event
}

func (fx fixture) invite(t *testing.T, eventID string, inviter, invitee identity.Member, role domain.Role) {
	t.Helper()
	if _, err := fx.engine.Invite(context.Background(), InviteInput{EventID: eventID, Inviter: inviter, Invitee: invitee, Role: role}); err != nil {
		t.Fatalf("invite %v: %v", invitee.Ref(), err)
	}
}

func (fx fixture) accept(t *testing.T, eventID string, member identity.Member) {
	t.Helper()
	if _, err := fx.engine.Accept(context.Background(), eventID, member); err != nil {
		t.Fatalf("accept %v: %v", member.Ref(), err)
	}
}

func (fx fixture) membership(t *testing.T, eventID string, member identity.Member) domain.Membership {
	t.Helper()
	members, err := fx.engine.ListMembers(context.Background(), eventID, MemberViewer{Member: u1})
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	m, ok := domain.FindMembership(members, member.Ref())
	if !ok {
		t.Fatalf("membership for %v not found", member.Ref())
	}
	return m
}

func (fx fixture) acceptedHosts(t *testing.T, eventID string) int {
	t.Helper()
	record, err := fx.store.GetEvent(context.Background(), eventID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	return domain.CountMemberships(record.Memberships).AcceptedHosts
}

func assertKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := apperrors.KindOf(err); got != kind {
		t.Fatalf("kind = %s, want %s (%v)", got, kind, err)
	}
}

func assertCode(t *testing.T, err error, code apperrors.Code) {
	t.Helper()
	if got := apperrors.CodeOf(err); got != code {
		t.Fatalf("code = %s, want %s (%v)", got, code, err)
	}
}

func TestGameNightScenario(t *testing.T) {
	eachStore(t, func(t *testing.T, fx fixture) {
		ctx := context.Background()
		e1 := fx.createEvent(t, u1)
		if e1.Status != domain.EventPlanning || e1.PlanVersion != 0 {
			t.Fatalf("unexpected new event %+v", e1)
		}
		members, err := fx.engine.ListMembers(ctx, e1.ID, MemberViewer{Member: u1})
		if err != nil {
			t.Fatalf("list members: %v", err)
		}
		if len(members) != 1 || !members[0].IsAcceptedHost() || members[0].Member != u1.Ref() {
			t.Fatalf("expected u1 as sole accepted host, got %+v", members)
		}

		fx.invite(t, e1.ID, u1, u2, domain.RoleAttendee)
		if m := fx.membership(t, e1.ID, u2); m.Status != domain.MembershipPending || m.ConfirmedPlanVersion != domain.NeverConfirmed {
			t.Fatalf("expected pending never-confirmed invite, got %+v", m)
		}

		fx.accept(t, e1.ID, u2)
		if m := fx.membership(t, e1.ID, u2); m.Status != domain.MembershipAccepted || m.Role != domain.RoleAttendee || m.ConfirmedPlanVersion != 0 {
			t.Fatalf("unexpected accepted membership %+v", m)
		}

		when := time.Date(2025, time.January, 15, 19, 0, 0, 0, time.UTC)
		updated, err := fx.engine.UpdatePlan(ctx, e1.ID, u1, domain.PlanUpdate{DateTime: &when})
		if err != nil {
			t.Fatalf("update plan: %v", err)
		}
		if updated.PlanVersion != 1 {
			t.Fatalf("plan version = %d, want 1", updated.PlanVersion)
		}
		if m := fx.membership(t, e1.ID, u2); m.ConfirmedPlanVersion != 0 {
			t.Fatalf("update must not touch confirmations, got %d", m.ConfirmedPlanVersion)
		}
		status, err := fx.engine.PlanStatus(ctx, e1.ID, u2)
		if err != nil {
			t.Fatalf("plan status: %v", err)
		}
		if status.UpToDate || status.Confirmed != 0 || status.Current != 1 {
			t.Fatalf("expected stale status, got %+v", status)
		}

		confirmed, err := fx.engine.ConfirmPlan(ctx, e1.ID, u2)
		if err != nil {
			t.Fatalf("confirm plan: %v", err)
		}
		if !confirmed.UpToDate || confirmed.Confirmed != 1 {
			t.Fatalf("expected up to date after confirm, got %+v", confirmed)
		}

		err = fx.engine.Leave(ctx, e1.ID, u1)
		assertKind(t, err, apperrors.KindConflict)
		assertCode(t, err, apperrors.CodeMembershipLastHost)

		// u2 is an attendee and cannot invite a host.
		_, err = fx.engine.Invite(ctx, InviteInput{EventID: e1.ID, Inviter: u2, Invitee: u3, Role: domain.RoleHost})
		assertKind(t, err, apperrors.KindForbidden)

		fx.invite(t, e1.ID, u1, u3, domain.RoleHost)
		fx.accept(t, e1.ID, u3)
		if err := fx.engine.Leave(ctx, e1.ID, u1); err != nil {
			t.Fatalf("leave with another host present: %v", err)
		}
		members, err = fx.engine.ListMembers(ctx, e1.ID, MemberViewer{Member: u3})
		if err != nil {
			t.Fatalf("list members: %v", err)
		}
		if counts := domain.CountMemberships(members); counts.AcceptedHosts != 1 {
			t.Fatalf("expected exactly one host, got %+v", counts)
		}
		if _, ok := domain.FindMembership(members, u1.Ref()); ok {
			t.Fatal("expected u1 membership to be removed")
		}
		if m, _ := domain.FindMembership(members, u3.Ref()); !m.IsAcceptedHost() {
			t.Fatalf("expected u3 sole host, got %+v", m)
		}
	})
}

func TestInviteTwiceConflicts(t *testing.T) {
	eachStore(t, func(t *testing.T, fx fixture) {
		e1 := fx.createEvent(t, u1)
		fx.invite(t, e1.ID, u1, u2, domain.RoleAttendee)
		_, err := fx.engine.Invite(context.Background(), InviteInput{EventID: e1.ID, Inviter: u1, Invitee: u2, Role: domain.RoleAttendee})
		assertKind(t, err, apperrors.KindConflict)
		assertCode(t, err, apperrors.CodeMembershipExists)
	})
}

func TestInviteIntoCancelledEvent(t *testing.T) {
	eachStore(t, func(t *testing.T, fx fixture) {
		ctx := context.Background()
		e1 := fx.createEvent(t, u1)
		if _, err := fx.engine.SetStatus(ctx, e1.ID, u1, domain.EventCancelled); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		_, err := fx.engine.Invite(ctx, InviteInput{EventID: e1.ID, Inviter: u1, Invitee: u4, Role: domain.RoleAttendee})
		assertKind(t, err, apperrors.KindInvalidState)
	})
}

func TestInviteErrorOrder(t *testing.T) {
	eachStore(t, func(t *testing.T, fx fixture) {
		ctx := context.Background()
		e1 := fx.createEvent(t, u1)
		fx.invite(t, e1.ID, u1, u2, domain.RoleAttendee)

		_, err := fx.engine.Invite(ctx, InviteInput{EventID: "missing", Inviter: u1, Invitee: u3, Role: domain.RoleAttendee})
		assertKind(t, err, apperrors.KindNotFound)

		// Pending members cannot invite.
		_, err = fx.engine.Invite(ctx, InviteInput{EventID: e1.ID, Inviter: u2, Invitee: u3, Role: domain.RoleAttendee})
		assertCode(t, err, apperrors.CodeMembershipNotAccepted)

		_, err = fx.engine.Invite(ctx, InviteInput{EventID: e1.ID, Inviter: u1, Invitee: u3, Role: "OWNER"})
		assertKind(t, err, apperrors.KindValidation)

		_, err = fx.engine.Invite(ctx, InviteInput{EventID: e1.ID, Inviter: nil, Invitee: u3, Role: domain.RoleAttendee})
		assertKind(t, err, apperrors.KindValidation)

		if _, err := fx.engine.SetStatus(ctx, e1.ID, u1, domain.EventCancelled); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		// Cancelled is reported before the duplicate membership.
		_, err = fx.engine.Invite(ctx, InviteInput{EventID: e1.ID, Inviter: u1, Invitee: u2, Role: domain.RoleAttendee})
		assertKind(t, err, apperrors.KindInvalidState)
	})
}

func TestInviteExternalRequiresReach(t *testing.T) {
	eachStore(t, func(t *testing.T, fx fixture) {
		ctx := context.Background()
		e1 := fx.createEvent(t, u1)
		kim := identity.External{RecordID: "rec-1", Source: "discord", ExternalID: "42", DisplayLabel: "Kim"}

		_, err := fx.engine.Invite(ctx, InviteInput{EventID: e1.ID, Inviter: u1, Invitee: kim, Role: domain.RoleAttendee})
		assertCode(t, err, apperrors.CodeMembershipChannelRequired)

		reach := &ChannelReach{ChannelID: "chan-1", Source: "discord", ReachableExternalIDs: []string{"7", "8"}}
		_, err = fx.engine.Invite(ctx, InviteInput{EventID: e1.ID, Inviter: u1, Invitee: kim, Role: domain.RoleAttendee, Reach: reach})
		assertKind(t, err, apperrors.KindValidation)
		assertCode(t, err, apperrors.CodeMembershipUnreachable)

		reach.ReachableExternalIDs = append(reach.ReachableExternalIDs, "42")
		membership, err := fx.engine.Invite(ctx, InviteInput{EventID: e1.ID, Inviter: u1, Invitee: kim, Role: domain.RoleAttendee, Reach: reach})
		if err != nil {
			t.Fatalf("invite reachable member: %v", err)
		}
		if membership.Member != kim.Ref() || membership.InvitedBy != u1.Ref() {
			t.Fatalf("unexpected membership %+v", membership)
		}

		// Accounts are not subject to channel reach.
		if _, err := fx.engine.Invite(ctx, InviteInput{EventID: e1.ID, Inviter: u1, Invitee: u2, Role: domain.RoleAttendee, Reach: reach}); err != nil {
			t.Fatalf("invite account with reach: %v", err)
		}
	})
}

func TestDeclineIsTerminalAndBlocksReinvite(t *testing.T) {
	eachStore(t, func(t *testing.T, fx fixture) {
		ctx := context.Background()
		e1 := fx.createEvent(t, u1)
		fx.invite(t, e1.ID, u1, u2, domain.RoleAttendee)

		declined, err := fx.engine.Decline(ctx, e1.ID, u2)
		if err != nil {
			t.Fatalf("decline: %v", err)
		}
		if declined.Status != domain.MembershipDeclined {
			t.Fatalf("status = %s", declined.Status)
		}
		if m := fx.membership(t, e1.ID, u2); m.Status != domain.MembershipDeclined {
			t.Fatalf("expected declined row to be kept, got %+v", m)
		}

		_, err = fx.engine.Decline(ctx, e1.ID, u2)
		assertKind(t, err, apperrors.KindNotFound)
		_, err = fx.engine.Accept(ctx, e1.ID, u2)
		assertKind(t, err, apperrors.KindNotFound)
		_, err = fx.engine.Invite(ctx, InviteInput{EventID: e1.ID, Inviter: u1, Invitee: u2, Role: domain.RoleAttendee})
		assertKind(t, err, apperrors.KindConflict)
	})
}

func TestAcceptRules(t *testing.T) {
	eachStore(t, func(t *testing.T, fx fixture) {
		ctx := context.Background()
		e1 := fx.createEvent(t, u1)

		_, err := fx.engine.Accept(ctx, e1.ID, u2)
		assertKind(t, err, apperrors.KindNotFound)
		_, err = fx.engine.Accept(ctx, e1.ID, u1)
		assertKind(t, err, apperrors.KindNotFound)

		fx.invite(t, e1.ID, u1, u2, domain.RoleAttendee)
		place := "Kim's"
		if _, err := fx.engine.UpdatePlan(ctx, e1.ID, u1, domain.PlanUpdate{Location: &place}); err != nil {
			t.Fatalf("update plan: %v", err)
		}
		accepted, err := fx.engine.Accept(ctx, e1.ID, u2)
		if err != nil {
			t.Fatalf("accept: %v", err)
		}
		if accepted.ConfirmedPlanVersion != 1 {
			t.Fatalf("accept should catch up to current version, got %d", accepted.ConfirmedPlanVersion)
		}

		fx.invite(t, e1.ID, u1, u3, domain.RoleAttendee)
		if _, err := fx.engine.SetStatus(ctx, e1.ID, u1, domain.EventCancelled); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		_, err = fx.engine.Accept(ctx, e1.ID, u3)
		assertKind(t, err, apperrors.KindInvalidState)
	})
}

func TestLeaveRules(t *testing.T) {
	eachStore(t, func(t *testing.T, fx fixture) {
		ctx := context.Background()
		e1 := fx.createEvent(t, u1)
		fx.invite(t, e1.ID, u1, u2, domain.RoleAttendee)

		assertKind(t, fx.engine.Leave(ctx, e1.ID, u2), apperrors.KindNotFound)
		assertKind(t, fx.engine.Leave(ctx, e1.ID, u3), apperrors.KindNotFound)

		fx.accept(t, e1.ID, u2)
		if err := fx.engine.Leave(ctx, e1.ID, u2); err != nil {
			t.Fatalf("attendee leave: %v", err)
		}
		members, err := fx.engine.ListMembers(ctx, e1.ID, MemberViewer{Member: u1})
		if err != nil {
			t.Fatalf("list members: %v", err)
		}
		if len(members) != 1 {
			t.Fatalf("expected attendee row removed, got %+v", members)
		}
	})
}

func TestUpdatePlanRules(t *testing.T) {
	eachStore(t, func(t *testing.T, fx fixture) {
		ctx := context.Background()
		e1 := fx.createEvent(t, u1)
		fx.invite(t, e1.ID, u1, u2, domain.RoleAttendee)
		fx.accept(t, e1.ID, u2)

		place := "Library"
		name := "Catan Marathon"
		when := time.Date(2025, time.February, 1, 12, 0, 0, 0, time.UTC)
		updated, err := fx.engine.UpdatePlan(ctx, e1.ID, u1, domain.PlanUpdate{DateTime: &when, Location: &place, EventName: &name})
		if err != nil {
			t.Fatalf("update plan: %v", err)
		}
		if updated.PlanVersion != 1 || updated.Name != name || *updated.Location != place {
			t.Fatalf("unexpected event %+v", updated)
		}

		_, err = fx.engine.UpdatePlan(ctx, e1.ID, u2, domain.PlanUpdate{Location: &place})
		assertKind(t, err, apperrors.KindForbidden)

		unchanged, err := fx.engine.UpdatePlan(ctx, e1.ID, u1, domain.PlanUpdate{})
		if err != nil {
			t.Fatalf("empty update: %v", err)
		}
		if unchanged.PlanVersion != 1 || unchanged.Name != name {
			t.Fatalf("empty update changed the event: %+v", unchanged)
		}
		_, err = fx.engine.UpdatePlan(ctx, e1.ID, u2, domain.PlanUpdate{})
		assertKind(t, err, apperrors.KindForbidden)

		empty := " "
		_, err = fx.engine.UpdatePlan(ctx, e1.ID, u1, domain.PlanUpdate{EventName: &empty})
		assertKind(t, err, apperrors.KindValidation)

		cleared, err := fx.engine.UpdatePlan(ctx, e1.ID, u1, domain.PlanUpdate{ClearDateTime: true})
		if err != nil {
			t.Fatalf("clear date: %v", err)
		}
		if cleared.PlanVersion != 2 || cleared.DateTime != nil || cleared.Location == nil {
			t.Fatalf("unexpected cleared event %+v", cleared)
		}

		view, err := fx.engine.GetEvent(ctx, e1.ID, MemberViewer{Member: u1})
		if err != nil {
			t.Fatalf("get event: %v", err)
		}
		if view.Event.PlanVersion != 2 {
			t.Fatalf("failed updates must not bump the version, got %d", view.Event.PlanVersion)
		}

		if _, err := fx.engine.SetStatus(ctx, e1.ID, u1, domain.EventCancelled); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		_, err = fx.engine.UpdatePlan(ctx, e1.ID, u1, domain.PlanUpdate{Location: &place})
		assertKind(t, err, apperrors.KindInvalidState)
	})
}

func TestSetStatusTransitions(t *testing.T) {
	eachStore(t, func(t *testing.T, fx fixture) {
		ctx := context.Background()
		e1 := fx.createEvent(t, u1)
		fx.invite(t, e1.ID, u1, u2, domain.RoleAttendee)
		fx.accept(t, e1.ID, u2)

		_, err := fx.engine.SetStatus(ctx, e1.ID, u2, domain.EventConfirmed)
		assertKind(t, err, apperrors.KindForbidden)

		_, err = fx.engine.SetStatus(ctx, e1.ID, u1, domain.EventPlanning)
		assertKind(t, err, apperrors.KindValidation)

		confirmed, err := fx.engine.SetStatus(ctx, e1.ID, u1, domain.EventConfirmed)
		if err != nil || confirmed.Status != domain.EventConfirmed {
			t.Fatalf("confirm: %v / %+v", err, confirmed)
		}
		again, err := fx.engine.SetStatus(ctx, e1.ID, u1, domain.EventConfirmed)
		if err != nil || !again.UpdatedAt.Equal(confirmed.UpdatedAt) {
			t.Fatalf("repeat confirm should be a no-op: %v / %+v", err, again)
		}

		cancelled, err := fx.engine.SetStatus(ctx, e1.ID, u1, domain.EventCancelled)
		if err != nil || cancelled.Status != domain.EventCancelled {
			t.Fatalf("cancel: %v / %+v", err, cancelled)
		}
		second, err := fx.engine.SetStatus(ctx, e1.ID, u1, domain.EventCancelled)
		if err != nil {
			t.Fatalf("repeat cancel: %v", err)
		}
		if second.Status != domain.EventCancelled || !second.UpdatedAt.Equal(cancelled.UpdatedAt) {
			t.Fatalf("repeat cancel changed state: %+v", second)
		}
		// Repeats still require host authority.
		_, err = fx.engine.SetStatus(ctx, e1.ID, u2, domain.EventCancelled)
		assertKind(t, err, apperrors.KindForbidden)

		_, err = fx.engine.SetStatus(ctx, e1.ID, u1, domain.EventConfirmed)
		assertKind(t, err, apperrors.KindInvalidState)
		assertCode(t, err, apperrors.CodeEventInvalidStatusTransition)
	})
}

func TestChangeRole(t *testing.T) {
	eachStore(t, func(t *testing.T, fx fixture) {
		ctx := context.Background()
		e1 := fx.createEvent(t, u1)
		fx.invite(t, e1.ID, u1, u2, domain.RoleAttendee)
		fx.accept(t, e1.ID, u2)

		_, err := fx.engine.ChangeRole(ctx, e1.ID, u2, u1, domain.RoleAttendee)
		assertKind(t, err, apperrors.KindForbidden)

		_, err = fx.engine.ChangeRole(ctx, e1.ID, u1, u1, domain.RoleAttendee)
		assertKind(t, err, apperrors.KindConflict)
		assertCode(t, err, apperrors.CodeMembershipLastHost)

		_, err = fx.engine.ChangeRole(ctx, e1.ID, u1, u3, domain.RoleHost)
		assertKind(t, err, apperrors.KindNotFound)

		promoted, err := fx.engine.ChangeRole(ctx, e1.ID, u1, u2, domain.RoleHost)
		if err != nil || !promoted.IsAcceptedHost() {
			t.Fatalf("promote: %v / %+v", err, promoted)
		}
		demoted, err := fx.engine.ChangeRole(ctx, e1.ID, u2, u1, domain.RoleAttendee)
		if err != nil || demoted.Role != domain.RoleAttendee {
			t.Fatalf("demote with another host: %v / %+v", err, demoted)
		}
		if hosts := fx.acceptedHosts(t, e1.ID); hosts != 1 {
			t.Fatalf("accepted hosts = %d, want 1", hosts)
		}
	})
}

func TestListMembersVisibility(t *testing.T) {
	eachStore(t, func(t *testing.T, fx fixture) {
		ctx := context.Background()
		e1, err := fx.engine.CreateEvent(ctx, u1, domain.CreateEventInput{GameName: "Catan", EventName: "Night", ChannelID: "chan-1"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		fx.invite(t, e1.ID, u1, u2, domain.RoleAttendee)
		fx.invite(t, e1.ID, u1, u3, domain.RoleAttendee)
		if _, err := fx.engine.Decline(ctx, e1.ID, u3); err != nil {
			t.Fatalf("decline: %v", err)
		}

		if _, err := fx.engine.ListMembers(ctx, e1.ID, MemberViewer{Member: u2}); err != nil {
			t.Fatalf("pending member list: %v", err)
		}
		if _, err := fx.engine.ListMembers(ctx, e1.ID, ChannelViewer{ChannelID: "chan-1"}); err != nil {
			t.Fatalf("channel list: %v", err)
		}

		_, err = fx.engine.ListMembers(ctx, e1.ID, MemberViewer{Member: u3})
		assertKind(t, err, apperrors.KindForbidden)
		_, err = fx.engine.ListMembers(ctx, e1.ID, MemberViewer{Member: u4})
		assertKind(t, err, apperrors.KindForbidden)
		_, err = fx.engine.ListMembers(ctx, e1.ID, ChannelViewer{ChannelID: "chan-2"})
		assertKind(t, err, apperrors.KindForbidden)
		_, err = fx.engine.ListMembers(ctx, "missing", MemberViewer{Member: u1})
		assertKind(t, err, apperrors.KindNotFound)

		members, err := fx.engine.ListMembers(ctx, e1.ID, MemberViewer{Member: u1})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(members) != 3 || members[0].Member != u1.Ref() {
			t.Fatalf("expected host first among 3 members, got %+v", members)
		}
	})
}

func TestConfirmAndPlanStatusRules(t *testing.T) {
	eachStore(t, func(t *testing.T, fx fixture) {
		ctx := context.Background()
		e1 := fx.createEvent(t, u1)
		fx.invite(t, e1.ID, u1, u2, domain.RoleAttendee)

		_, err := fx.engine.ConfirmPlan(ctx, e1.ID, u2)
		assertKind(t, err, apperrors.KindForbidden)
		_, err = fx.engine.ConfirmPlan(ctx, e1.ID, u4)
		assertKind(t, err, apperrors.KindForbidden)

		status, err := fx.engine.PlanStatus(ctx, e1.ID, u2)
		if err != nil {
			t.Fatalf("pending plan status: %v", err)
		}
		if status.Confirmed != domain.NeverConfirmed || status.UpToDate {
			t.Fatalf("unexpected pending status %+v", status)
		}
		_, err = fx.engine.PlanStatus(ctx, e1.ID, u4)
		assertKind(t, err, apperrors.KindNotFound)
		_, err = fx.engine.PlanStatus(ctx, "missing", u1)
		assertKind(t, err, apperrors.KindNotFound)
	})
}

func TestDeleteEventDoesNotCascade(t *testing.T) {
	eachStore(t, func(t *testing.T, fx fixture) {
		ctx := context.Background()
		e1 := fx.createEvent(t, u1)
		fx.invite(t, e1.ID, u1, u2, domain.RoleAttendee)
		fx.accept(t, e1.ID, u2)

		assertKind(t, fx.engine.DeleteEvent(ctx, e1.ID, u2), apperrors.KindForbidden)

		_, err := fx.engine.PurgeMemberships(ctx, e1.ID)
		assertKind(t, err, apperrors.KindInvalidState)

		if err := fx.engine.DeleteEvent(ctx, e1.ID, u1); err != nil {
			t.Fatalf("delete: %v", err)
		}
		_, err = fx.engine.GetEvent(ctx, e1.ID, MemberViewer{Member: u1})
		assertKind(t, err, apperrors.KindNotFound)
		views, err := fx.engine.ListEvents(ctx, MemberViewer{Member: u2}, ListFilter{IncludeCancelled: true})
		if err != nil || len(views) != 0 {
			t.Fatalf("orphans must stay invisible: %v / %+v", err, views)
		}
		assertKind(t, fx.engine.DeleteEvent(ctx, e1.ID, u1), apperrors.KindNotFound)

		removed, err := fx.engine.PurgeMemberships(ctx, e1.ID)
		if err != nil || removed != 2 {
			t.Fatalf("purge = %d / %v", removed, err)
		}
		removed, err = fx.engine.PurgeMemberships(ctx, e1.ID)
		if err != nil || removed != 0 {
			t.Fatalf("second purge = %d / %v", removed, err)
		}
	})
}

func TestCreateEventValidation(t *testing.T) {
	eachStore(t, func(t *testing.T, fx fixture) {
		ctx := context.Background()
		_, err := fx.engine.CreateEvent(ctx, u1, domain.CreateEventInput{GameName: "", EventName: "Night"})
		assertKind(t, err, apperrors.KindValidation)
		_, err = fx.engine.CreateEvent(ctx, u1, domain.CreateEventInput{GameName: "Catan", EventName: "  "})
		assertKind(t, err, apperrors.KindValidation)
		_, err = fx.engine.CreateEvent(ctx, nil, domain.CreateEventInput{GameName: "Catan", EventName: "Night"})
		assertKind(t, err, apperrors.KindValidation)
		_, err = fx.engine.CreateEvent(ctx, identity.Account{AccountID: "has space"}, domain.CreateEventInput{GameName: "Catan", EventName: "Night"})
		assertKind(t, err, apperrors.KindValidation)
	})
}

func TestConcurrentHostDeparturesKeepOneHost(t *testing.T) {
	eachStore(t, func(t *testing.T, fx fixture) {
		ctx := context.Background()
		e1 := fx.createEvent(t, u1)
		fx.invite(t, e1.ID, u1, u2, domain.RoleHost)
		fx.accept(t, e1.ID, u2)

		for round := 0; round < 5; round++ {
			hosts := []identity.Member{u1, u2}
			errs := make([]error, len(hosts))
			var wg sync.WaitGroup
			start := make(chan struct{})
			for i, host := range hosts {
				wg.Add(1)
				go func(i int, host identity.Member) {
					defer wg.Done()
					<-start
					errs[i] = fx.engine.Leave(ctx, e1.ID, host)
				}(i, host)
			}
			close(start)
			wg.Wait()

			succeeded := 0
			for _, err := range errs {
				if err == nil {
					succeeded++
					continue
				}
				assertCode(t, err, apperrors.CodeMembershipLastHost)
			}
			if succeeded != 1 {
				t.Fatalf("round %d: %d departures succeeded, want 1", round, succeeded)
			}
			if hosts := fx.acceptedHosts(t, e1.ID); hosts != 1 {
				t.Fatalf("round %d: accepted hosts = %d, want 1", round, hosts)
			}

			// Restore the second host for the next round.
			record, err := fx.store.GetEvent(ctx, e1.ID)
			if err != nil {
				t.Fatalf("get event: %v", err)
			}
			remaining := identity.Member(u1)
			gone := identity.Member(u2)
			if record.Memberships[0].Member == u2.Ref() {
				remaining, gone = u2, u1
			}
			fx.invite(t, e1.ID, remaining, gone, domain.RoleHost)
			fx.accept(t, e1.ID, gone)
		}
	})
}

func TestConcurrentInvitesCreateOneMembership(t *testing.T) {
	eachStore(t, func(t *testing.T, fx fixture) {
		ctx := context.Background()
		e1 := fx.createEvent(t, u1)

		const callers = 8
		errs := make([]error, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = fx.engine.Invite(ctx, InviteInput{EventID: e1.ID, Inviter: u1, Invitee: u2, Role: domain.RoleAttendee})
			}(i)
		}
		wg.Wait()

		created := 0
		for _, err := range errs {
			if err == nil {
				created++
				continue
			}
			assertKind(t, err, apperrors.KindConflict)
		}
		if created != 1 {
			t.Fatalf("created = %d, want 1", created)
		}
	})
}
