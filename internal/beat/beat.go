// Package beat implements the wire format and keyed-MAC authentication for
// flatlined's heartbeat datagrams: an 8-byte little-endian timestamp
// followed by a 64-byte BLAKE2b-512 MAC.
package beat

import (
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Size is the exact on-wire length of an encoded Beat: 8 bytes of
// timestamp plus 64 bytes of MAC.
const Size = 8 + blake2b.Size

// beatMessage is prepended to the timestamp before hashing, matching the
// original implementation's fixed message prefix.
var beatMessage = []byte("beat")

// ErrWrongSize is returned by Decode when the input is not exactly Size
// bytes long.
var ErrWrongSize = errors.New("beat: wrong size")

// ErrWrongChecksum is returned by Verify when the MAC does not match the
// recomputed value for the given key.
var ErrWrongChecksum = errors.New("beat: wrong checksum")

// Beat is a single authenticated heartbeat: a sender-local timestamp and
// the MAC that authenticates it under a shared key.
type Beat struct {
	Timestamp uint64
	MAC       [blake2b.Size]byte
}

// foldKey implements the key-length folding rule from the specification: an
// empty key and a key whose length is >= 64 bytes (BLAKE2b's maximum key
// size) are both treated as "no key". This mirrors the original source's
// behavior exactly; it silently drops authentication for long keys rather
// than truncating or rejecting them.
func foldKey(key []byte) []byte {
	if len(key) == 0 || len(key) >= blake2b.Size {
		return nil
	}
	return key
}

func checksum(key []byte, timestamp uint64) [blake2b.Size]byte {
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], timestamp)

	h, err := blake2b.New512(foldKey(key))
	if err != nil {
		// foldKey never hands blake2b.New512 a key longer than its
		// maximum, so this can't happen.
		panic(err)
	}
	h.Write(beatMessage)
	h.Write(ts[:])

	var out [blake2b.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Build constructs a Beat for the current wall-clock second, authenticated
// with key.
func Build(key []byte) Beat {
	return BuildAt(key, uint64(time.Now().Unix()))
}

// BuildAt constructs a Beat for an explicit timestamp; exported for tests
// and for callers that need to choose the timestamp themselves. Build
// calls it with the current time.
func BuildAt(key []byte, timestamp uint64) Beat {
	return Beat{
		Timestamp: timestamp,
		MAC:       checksum(key, timestamp),
	}
}

// Encode writes the 72-byte wire representation of b.
func Encode(b Beat) [Size]byte {
	var out [Size]byte
	binary.LittleEndian.PutUint64(out[0:8], b.Timestamp)
	copy(out[8:], b.MAC[:])
	return out
}

// Decode parses the wire representation produced by Encode. The caller is
// responsible for enforcing that buf is exactly Size bytes long for
// datagrams read off the network; Decode itself also returns ErrWrongSize
// for any other length, so it's safe to call directly with a raw read
// buffer.
func Decode(buf []byte) (Beat, error) {
	if len(buf) != Size {
		return Beat{}, ErrWrongSize
	}
	var b Beat
	b.Timestamp = binary.LittleEndian.Uint64(buf[0:8])
	copy(b.MAC[:], buf[8:])
	return b, nil
}

// Verify recomputes the MAC for b.Timestamp under key and compares it
// against b.MAC in constant time. Timing-safety here is a contract, not an
// optimization: the comparison must not short-circuit on the first
// mismatching byte.
func Verify(b Beat, key []byte) error {
	want := checksum(key, b.Timestamp)
	if subtle.ConstantTimeCompare(want[:], b.MAC[:]) != 1 {
		return ErrWrongChecksum
	}
	return nil
}
