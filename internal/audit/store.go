package audit

import (
	"sync"

	"github.com/google/uuid"
)

// defaultRecordsPageSize is get_records' default window when no range is
// given: the last 50 records (proxy.rs's get_records: "range not set,
// default to last 50 records").
const defaultRecordsPageSize = 50

// RecordStore is the append-only, in-memory audit log, grounded on
// proxy.rs's RecordDB (append/size/load_by_id/load_by_id_range/
// load_by_opeation).
type RecordStore struct {
	mu      sync.RWMutex
	records []Record
	nextID  uint64
	now     func() int64
}

// NewRecordStore returns an empty record store. now supplies the
// timestamp stamped on each appended record.
func NewRecordStore(now func() int64) *RecordStore {
	return &RecordStore{now: now}
}

// Append stamps and stores a new record, returning it with its assigned ID
// and UUID populated.
func (s *RecordStore) Append(caller, operation string, details []Detail) Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := Record{
		ID:        s.nextID,
		UUID:      uuid.New().String(),
		Caller:    caller,
		Timestamp: s.now(),
		Operation: operation,
		Details:   details,
	}
	s.nextID++
	s.records = append(s.records, rec)
	return rec
}

// Size returns the number of records, optionally filtered to one operation.
func (s *RecordStore) Size(operation *string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if operation == nil {
		return len(s.records)
	}
	n := 0
	for _, r := range s.records {
		if r.Operation == *operation {
			n++
		}
	}
	return n
}

// ByID returns the record with the given sequential ID.
func (s *RecordStore) ByID(id uint64) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

// byIDRangeLocked returns records whose position in append order falls in
// [start, end), clamped to the store's bounds.
func (s *RecordStore) byIDRangeLocked(start, end int) []Record {
	if start < 0 {
		start = 0
	}
	if end > len(s.records) {
		end = len(s.records)
	}
	if start >= end {
		return nil
	}
	out := make([]Record, end-start)
	copy(out, s.records[start:end])
	return out
}

func (s *RecordStore) byOperationLocked(operation string, start, end int) []Record {
	var filtered []Record
	for _, r := range s.records {
		if r.Operation == operation {
			filtered = append(filtered, r)
		}
	}
	if start < 0 {
		start = 0
	}
	if end > len(filtered) {
		end = len(filtered)
	}
	if start >= end {
		return nil
	}
	out := make([]Record, end-start)
	copy(out, filtered[start:end])
	return out
}

// Query mirrors proxy.rs's get_records: an optional (start, end) range,
// defaulting to the last defaultRecordsPageSize records, optionally
// filtered to a single operation.
func (s *RecordStore) Query(rng *[2]int, operation *string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	size := len(s.records)
	if operation != nil {
		size = 0
		for _, r := range s.records {
			if r.Operation == *operation {
				size++
			}
		}
	}

	start, end := 0, size
	if rng != nil {
		start, end = rng[0], rng[1]
	} else if size > defaultRecordsPageSize {
		start = size - defaultRecordsPageSize
	}

	if operation != nil {
		return s.byOperationLocked(*operation, start, end)
	}
	return s.byIDRangeLocked(start, end)
}

// recordSnapshot is the persisted form of a RecordStore (pre_upgrade's
// stable_save tuple element).
type recordSnapshot struct {
	Records []Record
	NextID  uint64
}

func (s *RecordStore) snapshot() recordSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return recordSnapshot{Records: out, NextID: s.nextID}
}

func (s *RecordStore) restore(snap recordSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = snap.Records
	s.nextID = snap.NextID
}
