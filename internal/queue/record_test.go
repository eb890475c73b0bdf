package queue

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rzbill/flume/pkg/id"
)

func TestRecordRoundTrip(t *testing.T) {
	g := id.NewGenerator()
	eid := g.Next()
	payload := []byte("hello queue")

	enc := EncodeRecord(eid, payload)
	gotID, gotPayload, err := DecodeRecord(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotID != eid {
		t.Fatalf("id mismatch: %s != %s", gotID, eid)
	}
	if !bytes.Equal(gotPayload, payload) {
		t.Fatalf("payload mismatch: %q", gotPayload)
	}
}

func TestRecordEmptyPayload(t *testing.T) {
	g := id.NewGenerator()
	enc := EncodeRecord(g.Next(), nil)
	_, payload, err := DecodeRecord(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload) != 0 {
		t.Fatalf("expected empty payload, got %q", payload)
	}
}

func TestRecordCorruptionSurfaces(t *testing.T) {
	g := id.NewGenerator()
	enc := EncodeRecord(g.Next(), []byte("payload"))

	flipped := append([]byte(nil), enc...)
	flipped[len(flipped)/2] ^= 0xFF
	if _, _, err := DecodeRecord(flipped); !errors.Is(err, ErrCodec) {
		t.Fatalf("expected ErrCodec for flipped byte, got %v", err)
	}

	if _, _, err := DecodeRecord(enc[:3]); !errors.Is(err, ErrCodec) {
		t.Fatalf("expected ErrCodec for truncated record, got %v", err)
	}
	if _, _, err := DecodeRecord(nil); !errors.Is(err, ErrCodec) {
		t.Fatalf("expected ErrCodec for empty record, got %v", err)
	}
}
