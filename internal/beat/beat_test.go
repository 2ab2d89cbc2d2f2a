package beat

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		key  []byte
		ts   uint64
	}{
		{"zero timestamp", []byte("key"), 0},
		{"typical timestamp", []byte("key"), 1700000000},
		{"max timestamp", []byte("key"), ^uint64(0)},
		{"empty key", nil, 42},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := BuildAt(c.key, c.ts)
			wire := Encode(b)
			if len(wire) != Size {
				t.Fatalf("encoded length = %d, want %d", len(wire), Size)
			}
			got, err := Decode(wire[:])
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got.Timestamp != b.Timestamp {
				t.Errorf("timestamp = %d, want %d", got.Timestamp, b.Timestamp)
			}
			if !bytes.Equal(got.MAC[:], b.MAC[:]) {
				t.Errorf("MAC mismatch")
			}
		})
	}
}

func TestEncodeLittleEndian(t *testing.T) {
	b := BuildAt([]byte("key"), 1700000000)
	wire := Encode(b)
	want := []byte{0x00, 0xf1, 0x53, 0x65, 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(wire[:8], want) {
		t.Errorf("timestamp bytes = % x, want % x", wire[:8], want)
	}
}

func TestDecodeWrongSize(t *testing.T) {
	for _, n := range []int{0, 1, Size - 1, Size + 1, 200} {
		if _, err := Decode(make([]byte, n)); err != ErrWrongSize {
			t.Errorf("Decode(%d bytes): got %v, want ErrWrongSize", n, err)
		}
	}
}

func TestSelfVerification(t *testing.T) {
	b := Build([]byte("key"))
	if err := Verify(b, []byte("key")); err != nil {
		t.Errorf("Verify with correct key: %v", err)
	}
}

func TestAuthenticationRejectsWrongKey(t *testing.T) {
	b := BuildAt([]byte("key"), 1700000000)
	if err := Verify(b, []byte("not_the_key")); err != ErrWrongChecksum {
		t.Errorf("Verify with wrong key: got %v, want ErrWrongChecksum", err)
	}
}

func TestKeyLengthFolding(t *testing.T) {
	shortKey := []byte("short")
	longKey := bytes.Repeat([]byte("x"), 64)
	longerKey := bytes.Repeat([]byte("y"), 100)

	b1 := BuildAt(nil, 123)
	b2 := BuildAt(longKey, 123)
	b3 := BuildAt(longerKey, 123)

	if !bytes.Equal(b1.MAC[:], b2.MAC[:]) {
		t.Error("a 64-byte key should fold to the empty-key MAC")
	}
	if !bytes.Equal(b1.MAC[:], b3.MAC[:]) {
		t.Error("a >64-byte key should fold to the empty-key MAC")
	}

	b4 := BuildAt(shortKey, 123)
	if bytes.Equal(b1.MAC[:], b4.MAC[:]) {
		t.Error("a key under 64 bytes must not fold to the empty-key MAC")
	}
}

func TestVerifyDifferentKeysProduceDifferentOutcomes(t *testing.T) {
	b := BuildAt([]byte("k1"), 99)
	if err := Verify(b, []byte("k1")); err != nil {
		t.Fatalf("self-verify failed: %v", err)
	}
	if err := Verify(b, []byte("k2")); err == nil {
		t.Fatal("expected verification failure for a different key")
	}
}
