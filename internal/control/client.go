package control

import (
	"net"
	"time"

	"github.com/pkg/errors"
)

// RequestTimeout is the send/receive deadline flatctl applies to its side
// of the control-plane exchange. The daemon applies no such timeout; it
// blocks on Accept/read until a frame arrives or the socket closes.
const RequestTimeout = 2 * time.Second

// Request connects to the control socket at path, sends a single request
// message, and returns the daemon's response. Exactly one request/response
// pair is exchanged per call, matching the control plane's connection
// topology.
func Request(path string, req Message) (Message, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return Message{}, errors.Wrapf(err, "connecting to control socket %s", path)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(RequestTimeout)); err != nil {
		return Message{}, errors.Wrap(err, "setting control socket deadline")
	}

	if err := Encode(conn, req); err != nil {
		return Message{}, errors.Wrap(err, "sending control request")
	}

	resp, err := Decode(conn)
	if err != nil {
		return Message{}, errors.Wrap(err, "receiving control response")
	}
	return resp, nil
}
