package reactor

import (
	"context"
	"log/slog"
	"time"

	"github.com/jan-schreib/flatlined/internal/config"
	"github.com/jan-schreib/flatlined/internal/stats"
	"github.com/jan-schreib/flatlined/internal/udp"
)

// ClientLoop is the reactor in client mode: on every tick it sends one beat
// to each configured peer and records the send. It implements
// suture.Service.
type ClientLoop struct {
	Peers  []config.Peer
	Deltas chan<- stats.PeerStat
	Log    *slog.Logger

	sender *udp.Sender
	table  *stats.Table
}

// NewClientLoop binds the UDP sender on port and seeds the stats table with
// one row per configured peer, in configuration order.
func NewClientLoop(port uint16, peers []config.Peer, deltas chan<- stats.PeerStat, log *slog.Logger) (*ClientLoop, error) {
	sender, err := udp.NewSender(port, log)
	if err != nil {
		return nil, err
	}

	rows := make([]stats.PeerStat, len(peers))
	for i, p := range peers {
		rows[i] = stats.PeerStat{Address: p.Address, Port: p.Port, Key: p.Key}
	}

	return &ClientLoop{
		Peers:  peers,
		Deltas: deltas,
		Log:    log,
		sender: sender,
		table:  stats.NewTable(rows),
	}, nil
}

// Serve runs until ctx is canceled.
func (c *ClientLoop) Serve(ctx context.Context) error {
	defer c.sender.Close()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// tick sends one beat to every configured peer. A resolve or send failure
// is logged and skipped; the next tick is the retry, per the sender's own
// contract.
func (c *ClientLoop) tick(ctx context.Context) {
	for i, peer := range c.Peers {
		if err := c.sender.Send(ctx, peer); err != nil {
			c.Log.Warn("failed to send beat", "peer", peer.Address, "error", err)
			continue
		}
		c.table.RecordSent(i)
		c.pushDelta(peer.Address)
	}
}

func (c *ClientLoop) pushDelta(address string) {
	row, ok := c.table.Row(address)
	if !ok {
		return
	}
	select {
	case c.Deltas <- row:
	default:
		c.Log.Debug("dropping stat delta, control handler busy")
	}
}
