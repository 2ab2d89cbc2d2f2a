package reactor

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/jan-schreib/flatlined/internal/beat"
	"github.com/jan-schreib/flatlined/internal/config"
	"github.com/jan-schreib/flatlined/internal/stats"
	"github.com/jan-schreib/flatlined/internal/udp"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServerLoopRecordsVerifiedBeat(t *testing.T) {
	deltas := make(chan stats.PeerStat, 4)
	srv, err := NewServerLoop(0, []byte("secret"), "", deltas, testLogger())
	if err != nil {
		t.Fatalf("NewServerLoop: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx)
	}()
	t.Cleanup(func() { cancel(); <-done })

	port := srv.listener.LocalAddr().(*net.UDPAddr).Port
	src, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: port})
	if err != nil {
		t.Fatalf("DialUDP: %v", err)
	}
	defer src.Close()

	wire := beat.Encode(beat.BuildAt([]byte("secret"), uint64(time.Now().Unix())))
	if _, err := src.Write(wire[:]); err != nil {
		t.Fatalf("Write: %v", err)
	}

	select {
	case d := <-deltas:
		if d.RecvBeats != 1 {
			t.Errorf("RecvBeats = %d, want 1", d.RecvBeats)
		}
	case <-time.After(time.Second):
		t.Fatal("no stat delta pushed for verified beat")
	}
}

func TestServerLoopDropsInvalidMAC(t *testing.T) {
	deltas := make(chan stats.PeerStat, 4)
	srv, err := NewServerLoop(0, []byte("secret"), "", deltas, testLogger())
	if err != nil {
		t.Fatalf("NewServerLoop: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx)
	}()
	t.Cleanup(func() { cancel(); <-done })

	port := srv.listener.LocalAddr().(*net.UDPAddr).Port
	src, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: port})
	if err != nil {
		t.Fatalf("DialUDP: %v", err)
	}
	defer src.Close()

	wire := beat.Encode(beat.BuildAt([]byte("wrong-key"), uint64(time.Now().Unix())))
	if _, err := src.Write(wire[:]); err != nil {
		t.Fatalf("Write: %v", err)
	}

	select {
	case d := <-deltas:
		t.Fatalf("unexpected delta for a beat with an invalid MAC: %+v", d)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestServerLoopEdgeTriggersAlertOnce(t *testing.T) {
	deltas := make(chan stats.PeerStat, 4)
	srv, err := NewServerLoop(0, nil, "true", deltas, testLogger())
	if err != nil {
		t.Fatalf("NewServerLoop: %v", err)
	}

	srv.table = stats.NewTable([]stats.PeerStat{{
		Address:           "10.0.0.9",
		LastBeatTimestamp: uint64(time.Now().Add(-120 * time.Second).Unix()),
	}})

	srv.checkTransitions(time.Now())
	if !srv.offline["10.0.0.9"] {
		t.Fatal("expected 10.0.0.9 to be marked offline after the first check")
	}

	srv.checkTransitions(time.Now())
	if !srv.offline["10.0.0.9"] {
		t.Fatal("peer should still read offline on the second check")
	}
}

func TestClientLoopSendsToEachPeer(t *testing.T) {
	l, err := udp.NewListener(0, testLogger())
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}
	defer l.Close()
	port := l.LocalAddr().(*net.UDPAddr).Port

	deltas := make(chan stats.PeerStat, 4)
	cl, err := NewClientLoop(0, []config.Peer{{Address: "127.0.0.1", Port: uint16(port), Key: "k"}}, deltas, testLogger())
	if err != nil {
		t.Fatalf("NewClientLoop: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	cl.tick(ctx)

	select {
	case d := <-deltas:
		if d.SendBeats != 1 {
			t.Errorf("SendBeats = %d, want 1", d.SendBeats)
		}
	default:
		t.Fatal("expected a stat delta after a successful send")
	}

	if _, err := l.Next(); err != nil {
		t.Fatalf("listener never received the beat the client sent: %v", err)
	}
}
