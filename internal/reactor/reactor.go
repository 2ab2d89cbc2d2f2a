// Package reactor implements the top-level tick loop (C7) that drives
// either half of the heartbeat engine depending on configuration: ServerLoop
// polls the UDP listener and verifies arriving beats, ClientLoop drives the
// UDP sender across every configured peer. Both satisfy suture.Service so
// cmd/flatlined can supervise whichever one applies alongside the control
// handler, the way the teacher's lib/beacon workers are supervised by
// suture in cmd/stdiscosrv.
package reactor

import (
	"context"
	"log/slog"
	"time"

	"github.com/jan-schreib/flatlined/internal/config"
	"github.com/jan-schreib/flatlined/internal/stats"
)

// tickInterval is the cadence specified for both the client-mode send loop
// and the server-mode offline-transition check.
const tickInterval = time.Second

// Service is the suture.Service subset the reactor exposes; defined locally
// so this package doesn't need the suture import just to name the type its
// loops satisfy.
type Service interface {
	Serve(ctx context.Context) error
}

// New builds the Service appropriate to cfg's mode: ClientLoop when
// cfg.ClientMode() selects client mode, ServerLoop otherwise. deltas is the
// channel the reactor pushes stat updates to; the control handler reads the
// other end.
func New(cfg config.Config, deltas chan<- stats.PeerStat, log *slog.Logger) (Service, error) {
	if cfg.ClientMode() {
		return NewClientLoop(cfg.Port, cfg.Server, deltas, log)
	}
	return NewServerLoop(cfg.Port, []byte(cfg.Key), cfg.Command, deltas, log)
}
