package control

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/jan-schreib/flatlined/internal/stats"
)

// tickInterval is the cadence at which the handler drains pending
// stat-delta messages before blocking on the next request frame.
const tickInterval = time.Second

// Handler is the control-plane worker (C6): it owns a local replica of the
// peer-stats table, kept current by draining Deltas, and answers each
// incoming request by inspecting that replica. Its Serve method has the
// suture.Service shape; cmd/flatlined runs it in the same errgroup as the
// supervised beat worker.
type Handler struct {
	SocketPath string
	ListenPort uint16
	Deltas     <-chan stats.PeerStat
	Log        *slog.Logger

	table *stats.Table
}

// NewHandler constructs a Handler. seed is the set of statically
// configured peers, used to build the handler's local stats replica the
// same way the reactor's own table is seeded.
func NewHandler(socketPath string, listenPort uint16, deltas <-chan stats.PeerStat, seed []stats.PeerStat, log *slog.Logger) *Handler {
	return &Handler{
		SocketPath: socketPath,
		ListenPort: listenPort,
		Deltas:     deltas,
		Log:        log,
		table:      stats.NewTable(seed),
	}
}

// Serve binds the control socket and answers control requests until ctx is
// canceled or a QUIT request triggers process exit. Binding failure is
// fatal, per the specification's error-handling design.
func (h *Handler) Serve(ctx context.Context) error {
	if err := os.Remove(h.SocketPath); err != nil && !os.IsNotExist(err) {
		h.Log.Warn("could not remove stale control socket", "path", h.SocketPath, "error", err)
	}

	ln, err := net.Listen("unix", h.SocketPath)
	if err != nil {
		return fmt.Errorf("binding control socket %s: %w", h.SocketPath, err)
	}
	defer ln.Close()

	if err := os.Chmod(h.SocketPath, 0o666); err != nil {
		return fmt.Errorf("setting control socket permissions: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			ln.Close()
		case <-done:
		}
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				h.Log.Warn("control accept failed", "error", err)
				continue
			}
		}
		if h.handleConn(conn) {
			return nil // QUIT was requested and handled
		}
	}
}

// handleConn services exactly one request/response pair on conn, then
// closes it. It reports whether the connection asked the daemon to shut
// down (in which case the caller must stop accepting further connections).
func (h *Handler) handleConn(conn net.Conn) bool {
	defer conn.Close()

	time.Sleep(tickInterval)
	h.drainDeltas()

	req, err := Decode(conn)
	if err != nil {
		h.Log.Warn("control read failed", "error", err)
		return false
	}

	resp := h.dispatch(req)
	if err := Encode(conn, resp); err != nil {
		h.Log.Warn("control write failed", "error", err)
		return false
	}

	if req.Kind != Quit {
		return false
	}

	conn.Close() // flush the response to the client before tearing down
	h.shutdown()
	return true
}

// drainDeltas applies every stat-delta event queued since the last
// iteration to the handler's local table, without blocking if none are
// pending.
func (h *Handler) drainDeltas() {
	for {
		select {
		case d, ok := <-h.Deltas:
			if !ok {
				return
			}
			h.table.Upsert(d)
		default:
			return
		}
	}
}

// dispatch builds the response for req against the handler's current
// table snapshot.
func (h *Handler) dispatch(req Message) Message {
	switch req.Kind {
	case Ok:
		return mustPayload(NewMessage(Ok), "Ok")
	case Status:
		return mustPayload(NewMessage(Status), "Running")
	case Statistic:
		return mustPayload(NewMessage(Statistic), h.statisticText())
	case Quit:
		return mustPayload(NewMessage(Quit), "Server shutting down")
	default:
		return mustPayload(NewMessage(Any), "Placeholder")
	}
}

// shutdown unlinks the control socket and exits the process. It must only
// be called after the QUIT response has already been written and the
// connection closed.
func (h *Handler) shutdown() {
	if err := os.Remove(h.SocketPath); err != nil && !os.IsNotExist(err) {
		h.Log.Warn("could not remove control socket on shutdown", "path", h.SocketPath, "error", err)
	}
	os.Exit(0)
}

// statisticText renders the peer table the way §4.6 specifies: one line
// per peer, or a placeholder if the table is still empty.
func (h *Handler) statisticText() string {
	rows := h.table.Snapshot()
	if len(rows) == 0 {
		return "Building statistics..."
	}

	now := time.Now()
	out := ""
	for _, r := range rows {
		out += fmt.Sprintf("Tx: %d Rx: %d Host: %s:%s", r.SendBeats, r.RecvBeats, r.Address, strconv.Itoa(int(r.Port)))
		if r.Liveness(now) == stats.Offline {
			out += " OFFLINE: "
		} else {
			out += " ONLINE"
		}
		out += "\n"
	}
	return out
}

func mustPayload(m Message, payload string) Message {
	if err := m.SetPayload(payload); err != nil {
		// Every payload built here is a non-empty compile-time or
		// computed string; an error here would mean the dispatch table
		// itself is broken.
		panic(err)
	}
	return m
}
