package audit

import "testing"

func TestRingLogEvictsOldestPastCapacity(t *testing.T) {
	l := NewRingLog(3)
	l.Add("a")
	l.Add("b")
	l.Add("c")
	l.Add("d")

	got := l.All()
	want := []string{"b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("lines = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("lines = %v, want %v", got, want)
		}
	}
}

func TestRingLogDefaultCapacity(t *testing.T) {
	l := NewRingLog(0)
	for i := 0; i < defaultLogCapacity+10; i++ {
		l.Add("x")
	}
	if got := len(l.All()); got != defaultLogCapacity {
		t.Fatalf("length = %d, want %d", got, defaultLogCapacity)
	}
}
