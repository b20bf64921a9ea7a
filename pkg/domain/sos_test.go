package domain

import "testing"

func TestPartitionPending(t *testing.T) {
	alerts := []SosAlert{
		{ID: 1, Status: "pending"},
		{ID: 2, Status: "resolved"},
		{ID: 3, Status: "pending"},
		{ID: 4, Status: "Pending"},
	}

	pending, rest := PartitionPending(alerts)
	if len(pending) != 2 {
		t.Fatalf("got %d pending, want 2", len(pending))
	}
	if pending[0].ID != 1 || pending[1].ID != 3 {
		t.Errorf("pending order = %d,%d, want 1,3", pending[0].ID, pending[1].ID)
	}
	if len(rest) != 2 {
		t.Errorf("got %d other alerts, want 2", len(rest))
	}
}

func TestPartitionPendingEmpty(t *testing.T) {
	pending, rest := PartitionPending(nil)
	if pending != nil || rest != nil {
		t.Errorf("expected nil halves, got %v / %v", pending, rest)
	}
}
