// Package control implements the local control-plane protocol: a
// length-framed request/response exchanged over a Unix-domain socket (C5),
// and the dispatch logic that answers status/statistics queries and
// handles shutdown (C6). Authentication is by filesystem permission on the
// socket, not by anything in the protocol itself.
package control

import (
	"bytes"
	"io"
)

// PayloadSize is the fixed width of a control message's payload.
const PayloadSize = 1024

// FrameSize is the exact length of one frame on the wire: one tag byte
// followed by PayloadSize bytes of payload.
const FrameSize = 1 + PayloadSize

// Kind identifies the purpose of a control message. The five-variant
// numbering below is the only one this implementation speaks; an older
// three-variant dialect existed in earlier versions of the protocol and is
// not wire-compatible (see DESIGN.md).
type Kind byte

const (
	// Any is both the zero value and the decode target for any tag byte
	// this implementation doesn't recognize.
	Any       Kind = 0
	Status    Kind = 1
	Statistic Kind = 2
	Quit      Kind = 3
	Ok        Kind = 4
	Error     Kind = 5
)

// Message is one control-plane frame: a kind tag and a payload string.
type Message struct {
	Kind    Kind
	payload [PayloadSize]byte
}

// NewMessage builds a Message of the given kind with an empty payload.
func NewMessage(kind Kind) Message {
	return Message{Kind: kind}
}

// SetPayload copies s into the frame's fixed-size payload, zero-padding to
// the right. An empty string is rejected and leaves the message
// unmutated — the wire format has no way to distinguish "deliberately
// empty" from "not yet set", so empty payloads are simply disallowed.
func (m *Message) SetPayload(s string) error {
	if s == "" {
		return errEmptyPayload
	}
	var buf [PayloadSize]byte
	copy(buf[:], s) // truncates silently if s is longer than PayloadSize
	m.payload = buf
	return nil
}

// Payload returns the logical string held in the frame: bytes up to the
// first NUL, or the full PayloadSize bytes if there is no NUL.
func (m Message) Payload() string {
	if i := bytes.IndexByte(m.payload[:], 0); i >= 0 {
		return string(m.payload[:i])
	}
	return string(m.payload[:])
}

var errEmptyPayload = payloadError("control: payload must not be empty")

type payloadError string

func (e payloadError) Error() string { return string(e) }

// decodeKind maps a wire tag byte to a Kind, per the five-variant
// numbering: 1..5 map to Status..Error in order, anything else is Any.
func decodeKind(tag byte) Kind {
	switch tag {
	case 1, 2, 3, 4, 5:
		return Kind(tag)
	default:
		return Any
	}
}

// Encode writes m as a FrameSize-byte frame to w.
func Encode(w io.Writer, m Message) error {
	var frame [FrameSize]byte
	frame[0] = byte(m.Kind)
	copy(frame[1:], m.payload[:])
	_, err := w.Write(frame[:])
	return err
}

// Decode reads exactly one FrameSize-byte frame from r.
func Decode(r io.Reader) (Message, error) {
	var frame [FrameSize]byte
	if _, err := io.ReadFull(r, frame[:]); err != nil {
		return Message{}, err
	}
	var m Message
	m.Kind = decodeKind(frame[0])
	copy(m.payload[:], frame[1:])
	return m, nil
}
