package spawn

import (
	"errors"
	"testing"
)

func TestErrMsgLayout(t *testing.T) {
	var msg [errMsgLen]byte
	encodeErrMsg(&msg, 0x01020304)
	want := [errMsgLen]byte{1, 2, 3, 4, 'N', 'O', 'E', 'X'}
	if msg != want {
		t.Fatalf("encoded %x, want %x", msg, want)
	}
}

func TestErrMsgRoundTrip(t *testing.T) {
	codes := []uint32{0, 1, 2, 13, 0xff, 0x100, 0xffff, 0x10000, 0x7fffffff, 0x80000000, 0xfffffffe, 0xffffffff}
	// Walk the whole 32-bit range in large prime steps as well.
	for c := uint64(0); c <= 0xffffffff; c += 104729 * 97 {
		codes = append(codes, uint32(c))
	}

	for _, code := range codes {
		var msg [errMsgLen]byte
		encodeErrMsg(&msg, code)
		got, err := decodeErrMsg(msg)
		if err != nil {
			t.Fatalf("decode(%#x): %v", code, err)
		}
		if got != code {
			t.Fatalf("round trip %#x -> %#x", code, got)
		}
	}
}

func TestErrMsgBadMarker(t *testing.T) {
	msg := [errMsgLen]byte{0, 0, 0, 2, 'N', 'O', 'P', 'E'}
	_, err := decodeErrMsg(msg)

	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ProtocolError, got %v", err)
	}
}
