package domain

import (
	"testing"
	"time"
)

func TestCountMemberships(t *testing.T) {
	members := []Membership{
		{Member: AccountRef("a"), Role: RoleHost, Status: MembershipAccepted},
		{Member: AccountRef("b"), Role: RoleHost, Status: MembershipPending},
		{Member: AccountRef("c"), Role: RoleAttendee, Status: MembershipAccepted},
		{Member: MemberRef{Source: "discord", ID: "1"}, Role: RoleAttendee, Status: MembershipDeclined},
	}
	got := CountMemberships(members)
	want := Counts{AcceptedHosts: 1, AcceptedAttendees: 1, Pending: 1, Declined: 1}
	if got != want {
		t.Fatalf("counts = %+v, want %+v", got, want)
	}
	if n := AcceptedHostsExcluding(members, AccountRef("a")); n != 0 {
		t.Fatalf("hosts excluding a = %d, want 0", n)
	}
	if n := AcceptedHostsExcluding(members, AccountRef("c")); n != 1 {
		t.Fatalf("hosts excluding c = %d, want 1", n)
	}
}

func TestSortMembershipsHostsFirst(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	members := []Membership{
		{Member: AccountRef("late-attendee"), Role: RoleAttendee, CreatedAt: base.Add(2 * time.Minute)},
		{Member: AccountRef("late-host"), Role: RoleHost, CreatedAt: base.Add(3 * time.Minute)},
		{Member: AccountRef("early-attendee"), Role: RoleAttendee, CreatedAt: base},
		{Member: AccountRef("early-host"), Role: RoleHost, CreatedAt: base.Add(time.Minute)},
	}
	SortMemberships(members)
	order := []string{"early-host", "late-host", "early-attendee", "late-attendee"}
	for i, id := range order {
		if members[i].Member.ID != id {
			t.Fatalf("position %d = %s, want %s", i, members[i].Member.ID, id)
		}
	}
}

func TestPlanStatusFor(t *testing.T) {
	event := Event{PlanVersion: 2}
	stale := PlanStatusFor(event, Membership{ConfirmedPlanVersion: 1})
	if stale.UpToDate || stale.Confirmed != 1 || stale.Current != 2 {
		t.Fatalf("unexpected stale status %+v", stale)
	}
	never := PlanStatusFor(Event{PlanVersion: 0}, Membership{ConfirmedPlanVersion: NeverConfirmed})
	if never.UpToDate {
		t.Fatal("never-confirmed membership is not up to date")
	}
}

func TestMemberRef(t *testing.T) {
	ref := AccountRef("u1")
	if !ref.IsAccount() || ref.String() != "account:u1" {
		t.Fatalf("unexpected account ref %+v", ref)
	}
	if !(MemberRef{}).IsZero() {
		t.Fatal("expected zero ref")
	}
}
