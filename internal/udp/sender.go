package udp

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/jan-schreib/flatlined/internal/beat"
	"github.com/jan-schreib/flatlined/internal/config"
)

// Sender is the UDP transmit half of the engine (C3): one shared socket
// reused to send a beat to every configured peer on each tick.
type Sender struct {
	conn *net.UDPConn
	log  *slog.Logger
}

// NewSender binds 0.0.0.0:port for outbound beats.
func NewSender(port uint16, log *slog.Logger) (*Sender, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: int(port)})
	if err != nil {
		return nil, fmt.Errorf("binding beat sender on port %d: %w", port, err)
	}
	log.Debug("beat sender bound", "port", port)
	return &Sender{conn: conn, log: log}, nil
}

// Close releases the underlying socket.
func (s *Sender) Close() error {
	return s.conn.Close()
}

// Send resolves peer.Address (accepting either an IP literal or a
// hostname — the system resolver picks the first A/AAAA result), builds a
// beat keyed with peer.Key, and transmits it. Resolution or send failure
// is the caller's to log and skip; there is no retry within a tick, the
// next tick is the retry.
func (s *Sender) Send(ctx context.Context, peer config.Peer) error {
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, peer.Address)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", peer.Address, err)
	}
	if len(ips) == 0 {
		return fmt.Errorf("resolving %s: no addresses returned", peer.Address)
	}

	dst := &net.UDPAddr{IP: ips[0].IP, Port: int(peer.Port)}
	wire := beat.Encode(beat.Build([]byte(peer.Key)))

	n, err := s.conn.WriteToUDP(wire[:], dst)
	if err != nil {
		return fmt.Errorf("sending beat to %s: %w", dst, err)
	}
	s.log.Debug("sent beat", "bytes", n, "destination", dst)
	return nil
}
