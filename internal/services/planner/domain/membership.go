package domain

import "sort"

// Counts summarizes an event's memberships.
type Counts struct {
	AcceptedHosts     int
	AcceptedAttendees int
	Pending           int
	Declined          int
}

// CountMemberships tallies memberships by role and status.
func CountMemberships(memberships []Membership) Counts {
	var counts Counts
	for _, m := range memberships {
		switch m.Status {
		case MembershipAccepted:
			if m.Role == RoleHost {
				counts.AcceptedHosts++
			} else {
				counts.AcceptedAttendees++
			}
		case MembershipPending:
			counts.Pending++
		case MembershipDeclined:
			counts.Declined++
		}
	}
	return counts
}

// AcceptedHostsExcluding counts accepted hosts other than the given member.
func AcceptedHostsExcluding(memberships []Membership, exclude MemberRef) int {
	count := 0
	for _, m := range memberships {
		if m.Member == exclude {
			continue
		}
		if m.IsAcceptedHost() {
			count++
		}
	}
	return count
}

// SortMemberships orders hosts first, then by creation time and member key.
func SortMemberships(memberships []Membership) {
	sort.SliceStable(memberships, func(i, j int) bool {
		a, b := memberships[i], memberships[j]
		if (a.Role == RoleHost) != (b.Role == RoleHost) {
			return a.Role == RoleHost
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Member.String() < b.Member.String()
	})
}

// FindMembership returns the membership of ref, if any.
func FindMembership(memberships []Membership, ref MemberRef) (Membership, bool) {
	for _, m := range memberships {
		if m.Member == ref {
			return m, true
		}
	}
	return Membership{}, false
}
