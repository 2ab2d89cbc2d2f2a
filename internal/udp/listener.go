// Package udp implements the UDP transport halves of the heartbeat engine:
// the listener that receives and decodes beats (C2) and the sender that
// builds and transmits them (C3). Both follow the bind-once,
// reuse-the-socket-per-tick idiom used by the teacher's lib/beacon
// package, adapted from broadcast to per-peer unicast.
package udp

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/jan-schreib/flatlined/internal/beat"
)

// Received is one datagram that passed length validation and decoded
// cleanly; it has not yet been MAC-verified — that's the reactor's job,
// since verification needs the daemon's shared key.
type Received struct {
	Beat       beat.Beat
	SourceIP   string
	SourcePort int
}

// Listener is the UDP receive half of the engine (C2). It is not safe for
// concurrent use from multiple goroutines; the specification calls for at
// most one datagram processed at a time.
type Listener struct {
	conn *net.UDPConn
	log  *slog.Logger
}

// NewListener binds 0.0.0.0:port. Bind failure is fatal per the
// specification's error-handling design, so callers should treat a
// non-nil error here as unrecoverable.
func NewListener(port uint16, log *slog.Logger) (*Listener, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: int(port)})
	if err != nil {
		return nil, fmt.Errorf("binding beat listener on port %d: %w", port, err)
	}
	log.Debug("beat listener bound", "port", port)
	return &Listener{conn: conn, log: log}, nil
}

// Close releases the underlying socket.
func (l *Listener) Close() error {
	return l.conn.Close()
}

// LocalAddr returns the address the listener is bound to, mainly useful in
// tests that bind to port 0 and need to learn which port the kernel picked.
func (l *Listener) LocalAddr() net.Addr {
	return l.conn.LocalAddr()
}

// Next blocks for the next well-formed datagram, silently skipping any
// that aren't exactly beat.Size bytes (WRONG_SIZE, per §4.2): those are
// dropped and the read loop continues without incrementing any counter.
// It returns a non-nil error only when the socket itself fails, which
// happens on Close.
func (l *Listener) Next() (Received, error) {
	buf := make([]byte, beat.Size+1) // +1 so oversized datagrams don't silently decode as Size
	for {
		n, addr, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			return Received{}, err
		}
		if n != beat.Size {
			l.log.Debug("dropping wrong-size datagram", "bytes", n, "source", addr)
			continue
		}
		b, err := beat.Decode(buf[:n])
		if err != nil {
			// Can't happen given the length check above, but treat it
			// the same way as WRONG_SIZE if it ever does.
			l.log.Debug("dropping undecodable datagram", "source", addr, "error", err)
			continue
		}
		return Received{Beat: b, SourceIP: addr.IP.String(), SourcePort: addr.Port}, nil
	}
}
