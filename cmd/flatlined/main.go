// Command flatlined is the heartbeat daemon: in client mode it beats a
// configured fleet of peers over UDP, in server mode it listens for and
// verifies beats from any source, tracking per-peer liveness. An operator
// queries or stops a running daemon through flatctl, over a local
// Unix-domain control socket.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	"github.com/thejerf/suture/v4"
	"golang.org/x/sync/errgroup"

	"github.com/jan-schreib/flatlined/internal/config"
	"github.com/jan-schreib/flatlined/internal/control"
	"github.com/jan-schreib/flatlined/internal/logging"
	"github.com/jan-schreib/flatlined/internal/reactor"
	"github.com/jan-schreib/flatlined/internal/stats"
)

type cli struct {
	Config string `short:"c" default:"${configDefault}" help:"Path to the TOML configuration file."`
	Debug  bool   `short:"d" help:"Enable debug logging."`
}

func main() {
	var params cli
	kong.Parse(&params, kong.Vars{"configDefault": config.DefaultPath})

	cfg, err := config.Load(params.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.Wrap(err, "flatlined"))
		os.Exit(1)
	}

	log := logging.NewLogger(params.Debug || cfg.Verbose, false)

	if err := run(cfg, log); err != nil {
		log.Error("flatlined exiting", "error", err)
		os.Exit(1)
	}
}

// run wires the two long-lived workers together: the heartbeat engine
// (supervised by suture, which restarts it whenever its Serve returns;
// resolve and send failures are handled inside the tick and do not stop it)
// and the control handler (which exits
// the whole process itself on QUIT, and otherwise only stops on a fatal
// bind failure). errgroup binds their lifetimes: whichever stops first
// cancels gctx for the other, and run returns the first non-nil error.
func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deltas := make(chan stats.PeerStat, 64)

	engine, err := reactor.New(cfg, deltas, log)
	if err != nil {
		return errors.Wrap(err, "starting heartbeat engine")
	}

	seed := make([]stats.PeerStat, len(cfg.Server))
	for i, p := range cfg.Server {
		seed[i] = stats.PeerStat{Address: p.Address, Port: p.Port, Key: p.Key}
	}
	handler := control.NewHandler(cfg.SocketPath(), cfg.Port, deltas, seed, log)

	supervisor := suture.New("heartbeat-engine", suture.Spec{})
	supervisor.Add(engine)

	if cfg.ClientMode() {
		log.Info("starting in client mode", "peers", len(cfg.Server), "port", cfg.Port)
	} else {
		log.Info("starting in server mode", "port", cfg.Port)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return supervisor.Serve(gctx)
	})
	g.Go(func() error {
		return handler.Serve(gctx)
	})
	return g.Wait()
}
