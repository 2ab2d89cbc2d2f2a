// Package stats implements the per-peer liveness table (C4): send/receive
// counters, last-beat timestamps, and the ONLINE/OFFLINE/UNKNOWN
// determination used both by the reactor (to edge-trigger alerts) and by
// the control handler (to answer STATISTIC queries).
package stats

import "time"

// OfflineAfter is the grace period past which a peer that has sent at
// least one beat is considered OFFLINE.
const OfflineAfter = 60 * time.Second

// Liveness is the tri-state health of a peer.
type Liveness int

const (
	// Unknown means no beat has ever been accepted from this peer.
	Unknown Liveness = iota
	Online
	Offline
)

// PeerStat is one row of the liveness table.
type PeerStat struct {
	Address           string
	Port              uint16
	Key               string
	SendBeats         uint64
	RecvBeats         uint64
	LastBeatTimestamp uint64
}

// Liveness evaluates this row's health as of now.
func (p PeerStat) Liveness(now time.Time) Liveness {
	if p.LastBeatTimestamp == 0 {
		return Unknown
	}
	age := now.Unix() - int64(p.LastBeatTimestamp)
	if age > int64(OfflineAfter.Seconds()) {
		return Offline
	}
	return Online
}

// Table is the in-memory peer-stats store. It is not safe for concurrent
// use: per the specification's ownership model, exactly one worker (the
// reactor, or the control handler's local replica) owns a Table at a time;
// updates cross that boundary as discrete delta messages, not by sharing
// the Table itself.
type Table struct {
	rows  []*PeerStat
	index map[string]int
}

// NewTable builds a Table seeded with the given configured peers, in
// configuration order. For server mode this is called with no peers;
// unknown senders are inserted lazily by RecordReceived.
func NewTable(peers []PeerStat) *Table {
	t := &Table{index: make(map[string]int, len(peers))}
	for _, p := range peers {
		p := p
		t.insert(&p)
	}
	return t
}

func (t *Table) insert(p *PeerStat) {
	t.index[p.Address] = len(t.rows)
	t.rows = append(t.rows, p)
}

// RecordSent increments the send counter for the peer at position i
// (client mode; peers are addressed by their configuration index since
// sends are driven off the configured server list).
func (t *Table) RecordSent(i int) {
	if i < 0 || i >= len(t.rows) {
		return
	}
	t.rows[i].SendBeats++
}

// RecordReceived applies an accepted beat from sourceIP: it increments the
// receive counter of the existing row for that address, or inserts a new
// row if this is the first beat ever seen from it. The last-beat timestamp
// is updated monotonically — a beat with an older timestamp than the one
// already recorded still counts toward RecvBeats but never rewinds the
// liveness clock (see DESIGN.md's discussion of the timestamp-rewind open
// question).
func (t *Table) RecordReceived(sourceIP string, listenPort uint16, timestamp uint64) {
	if i, ok := t.index[sourceIP]; ok {
		row := t.rows[i]
		row.RecvBeats++
		if timestamp > row.LastBeatTimestamp {
			row.LastBeatTimestamp = timestamp
		}
		return
	}
	t.insert(&PeerStat{
		Address:           sourceIP,
		Port:              listenPort,
		RecvBeats:         1,
		LastBeatTimestamp: timestamp,
	})
}

// Upsert replaces the row for row.Address with row, or appends it if no
// such row exists yet. Unlike RecordReceived/RecordSent, which mutate
// counters in place, Upsert installs an already-computed row wholesale;
// it's how the control handler applies stat-delta messages received from
// the reactor to its own local replica of the table.
func (t *Table) Upsert(row PeerStat) {
	if i, ok := t.index[row.Address]; ok {
		*t.rows[i] = row
		return
	}
	r := row
	t.insert(&r)
}

// Row returns a copy of the row for address, if one is tracked.
func (t *Table) Row(address string) (PeerStat, bool) {
	i, ok := t.index[address]
	if !ok {
		return PeerStat{}, false
	}
	return *t.rows[i], true
}

// Snapshot returns a copy of every row, in insertion order.
func (t *Table) Snapshot() []PeerStat {
	out := make([]PeerStat, len(t.rows))
	for i, p := range t.rows {
		out[i] = *p
	}
	return out
}

// OfflinePeers returns the addresses of rows that are currently OFFLINE.
func (t *Table) OfflinePeers(now time.Time) []string {
	var out []string
	for _, p := range t.rows {
		if p.Liveness(now) == Offline {
			out = append(out, p.Address)
		}
	}
	return out
}

// Len reports the number of rows currently tracked.
func (t *Table) Len() int {
	return len(t.rows)
}
