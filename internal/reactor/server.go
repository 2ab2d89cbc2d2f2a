package reactor

import (
	"context"
	"log/slog"
	"time"

	"github.com/jan-schreib/flatlined/internal/beat"
	"github.com/jan-schreib/flatlined/internal/stats"
	"github.com/jan-schreib/flatlined/internal/udp"
)

// ServerLoop is the reactor in server mode: it owns the UDP listener and
// the master stats table, verifying every arriving beat against the
// daemon's shared key, recording it, and edge-triggering the alert command
// when a tracked peer crosses ONLINE->OFFLINE. It implements suture.Service.
type ServerLoop struct {
	Key        []byte
	Command    string
	Deltas     chan<- stats.PeerStat
	Log        *slog.Logger
	ListenPort uint16

	listener *udp.Listener
	table    *stats.Table
	offline  map[string]bool
}

// NewServerLoop binds the UDP listener on port and returns a ServerLoop
// ready to Serve.
func NewServerLoop(port uint16, key []byte, command string, deltas chan<- stats.PeerStat, log *slog.Logger) (*ServerLoop, error) {
	l, err := udp.NewListener(port, log)
	if err != nil {
		return nil, err
	}
	return &ServerLoop{
		Key:        key,
		Command:    command,
		Deltas:     deltas,
		Log:        log,
		ListenPort: port,
		listener:   l,
		table:      stats.NewTable(nil),
		offline:    make(map[string]bool),
	}, nil
}

// Serve runs until ctx is canceled or the listener's socket fails. Reading
// happens on its own goroutine (genericReader-style, per the teacher's
// lib/beacon) so the reactor can still service the 1-second offline-check
// tick while blocked between datagrams.
func (s *ServerLoop) Serve(ctx context.Context) error {
	defer s.listener.Close()

	received := make(chan udp.Received)
	readErr := make(chan error, 1)
	go func() {
		for {
			r, err := s.listener.Next()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case received <- r:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			return err
		case r := <-received:
			s.handleReceived(r)
		case now := <-ticker.C:
			s.checkTransitions(now)
		}
	}
}

// handleReceived verifies and records one datagram that already passed
// length validation in the listener. An invalid MAC is dropped silently at
// debug level; it never reaches the stats table.
func (s *ServerLoop) handleReceived(r udp.Received) {
	if err := beat.Verify(r.Beat, s.Key); err != nil {
		s.Log.Debug("dropping beat with invalid MAC", "source", r.SourceIP, "error", err)
		return
	}
	s.table.RecordReceived(r.SourceIP, s.ListenPort, r.Beat.Timestamp)
	s.pushDelta(r.SourceIP)
}

// checkTransitions runs the edge-triggered alert check: a peer fires the
// alert command at most once per ONLINE->OFFLINE transition, never on
// repeated ticks while it remains OFFLINE.
func (s *ServerLoop) checkTransitions(now time.Time) {
	for _, row := range s.table.Snapshot() {
		isOffline := row.Liveness(now) == stats.Offline
		wasOffline := s.offline[row.Address]
		s.offline[row.Address] = isOffline
		if isOffline && !wasOffline {
			s.Log.Warn("peer went offline", "peer", row.Address)
			fireAlert(s.Command, s.Log)
		}
	}
}

func (s *ServerLoop) pushDelta(address string) {
	row, ok := s.table.Row(address)
	if !ok {
		return
	}
	select {
	case s.Deltas <- row:
	default:
		s.Log.Debug("dropping stat delta, control handler busy")
	}
}
