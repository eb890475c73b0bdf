package id

import (
	"testing"
)

func TestNextMonotonicWithinMs(t *testing.T) {
	orig := NowMs
	NowMs = func() int64 { return 1000 }
	defer func() { NowMs = orig }()

	g := NewGenerator()
	a := g.Next()
	b := g.Next()
	if a.Compare(b) >= 0 {
		t.Fatalf("ids not increasing: %s >= %s", a, b)
	}
	if a.TimeMs() != 1000 || b.TimeMs() != 1000 {
		t.Fatalf("unexpected timestamps: %d %d", a.TimeMs(), b.TimeMs())
	}
}

func TestNextClampsBackwardClock(t *testing.T) {
	orig := NowMs
	now := int64(5000)
	NowMs = func() int64 { return now }
	defer func() { NowMs = orig }()

	g := NewGenerator()
	a := g.Next()
	now = 4000 // clock goes backwards
	b := g.Next()
	if b.TimeMs() != a.TimeMs() {
		t.Fatalf("expected clamped ms, got %d vs %d", b.TimeMs(), a.TimeMs())
	}
	if a.Compare(b) >= 0 {
		t.Fatalf("ids regressed under backward clock")
	}
}

func TestParseRoundTrip(t *testing.T) {
	g := NewGenerator()
	a := g.Next()
	got, err := Parse(a.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != a {
		t.Fatalf("round trip mismatch: %s != %s", got, a)
	}
	if _, err := Parse("zz"); err == nil {
		t.Fatalf("expected error for bad hex")
	}
	if _, err := FromBytes([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for short bytes")
	}
}
