package domain

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to TicketStatus
		want     bool
	}{
		{TicketStatusPendingApproval, TicketStatusApproved, true},
		{TicketStatusPendingApproval, TicketStatusRejected, true},
		{TicketStatusPendingApproval, TicketStatusInstalled, false},
		{TicketStatusApproved, TicketStatusInstalling, true},
		{TicketStatusApproved, TicketStatusPendingApproval, false},
		{TicketStatusInstalling, TicketStatusInstalled, true},
		{TicketStatusInstalling, TicketStatusApproved, false},
		{TicketStatusInstalled, TicketStatusInstalling, false},
		{TicketStatusInstalled, TicketStatusPendingApproval, false},
		{TicketStatusRejected, TicketStatusApproved, false},
		{TicketStatusRejected, TicketStatusRejected, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to); got != tc.want {
				t.Fatalf("CanTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestPredecessorsOf(t *testing.T) {
	got := PredecessorsOf(TicketStatusInstalled)
	if len(got) != 2 || got[0] != TicketStatusApproved || got[1] != TicketStatusInstalling {
		t.Fatalf("unexpected predecessors of Installed: %v", got)
	}
	if got := PredecessorsOf(TicketStatusPendingApproval); len(got) != 0 {
		t.Fatalf("nothing may move back to pending, got %v", got)
	}
}

func TestDecisionFromAction(t *testing.T) {
	if d, ok := DecisionFromAction(" Approve "); !ok || d != ApprovalApproved {
		t.Fatalf("approve not mapped: %v %v", d, ok)
	}
	if d, ok := DecisionFromAction("reject"); !ok || d.TicketStatus() != TicketStatusRejected {
		t.Fatalf("reject not mapped: %v %v", d, ok)
	}
	if _, ok := DecisionFromAction("escalate"); ok {
		t.Fatal("unknown action accepted")
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []TicketStatus{TicketStatusRejected, TicketStatusInstalled} {
		if !s.Terminal() {
			t.Fatalf("%q should be terminal", s)
		}
	}
	if TicketStatusApproved.Terminal() {
		t.Fatal("approved is not terminal")
	}
}
