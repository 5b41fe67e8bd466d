package audit

// Manager bundles the owner ACL, the audit record store, and the log ring
// buffer behind the admin surface's ACL-gated operations, grounded on
// proxy.rs's combined OWNERS/RECORDS/LOGS thread-locals and their
// pre_upgrade/post_upgrade snapshot pair.
type Manager struct {
	Owners  *Owners
	Records *RecordStore
	Logs    *RingLog
}

// NewManager returns a manager seeded with initialOwner. now supplies audit
// record timestamps.
func NewManager(initialOwner string, now func() int64) *Manager {
	return &Manager{
		Owners:  NewOwners(initialOwner),
		Records: NewRecordStore(now),
		Logs:    NewRingLog(0),
	}
}

// Authorize returns ErrUnauthorized if caller is not a current owner,
// otherwise nil. Callers gate every mutating admin operation with this
// before acting (spec §6 ACL).
func (m *Manager) Authorize(caller string) error {
	if !m.Owners.IsAuthorized(caller) {
		return ErrUnauthorized
	}
	return nil
}

// Record appends an audit entry and returns it. Unlike Authorize, this is
// never gated — spec §7 requires DispatchFailed and other failures to be
// "audit-and-continue" regardless of who triggered them.
func (m *Manager) Record(caller, operation string, details []Detail) Record {
	return m.Records.Append(caller, operation, details)
}

// Snapshot is the full persisted state written on the upgrade hook: spec
// §6, "(chains, owners, records) for the proxy process". Chains are
// persisted by chainconfig.Registry separately; this snapshot covers the
// owner set and the audit log.
type Snapshot struct {
	Owners  []string
	Records recordSnapshot
}

// Snapshot captures the current owner set and record store, all or
// nothing, for the pre-upgrade hook.
func (m *Manager) Snapshot() Snapshot {
	return Snapshot{
		Owners:  m.Owners.Snapshot(),
		Records: m.Records.snapshot(),
	}
}

// Restore replaces the owner set and record store wholesale, for the
// post-upgrade hook. There is no partial restore: spec §5, "no partial
// snapshots — all or nothing".
func (m *Manager) Restore(snap Snapshot) {
	m.Owners.Restore(snap.Owners)
	m.Records.restore(snap.Records)
}
