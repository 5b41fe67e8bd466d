package audit

import (
	"errors"
	"testing"
)

func TestManagerAuthorize(t *testing.T) {
	m := NewManager("alice", fixedClock(0))
	if err := m.Authorize("alice"); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if err := m.Authorize("mallory"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestManagerSnapshotRestoreRoundTrip(t *testing.T) {
	m := NewManager("alice", fixedClock(42))
	_ = m.Owners.Add("alice", "bob")
	m.Record("alice", "add_chain", NewDetailsBuilder().Insert("chain_id", 1).Build())

	snap := m.Snapshot()

	restored := NewManager("nobody", fixedClock(0))
	restored.Restore(snap)

	if !restored.Owners.IsAuthorized("alice") || !restored.Owners.IsAuthorized("bob") {
		t.Fatal("expected restored owners to match snapshot")
	}
	if restored.Records.Size(nil) != 1 {
		t.Fatalf("restored record count = %d, want 1", restored.Records.Size(nil))
	}
}
