package shared

import (
	"encoding/hex"
	"testing"
)

func TestHashIdentifier(t *testing.T) {
	h := HashIdentifier("203.0.113.7")
	if len(h) != 64 {
		t.Fatalf("len = %d, want 64 hex chars", len(h))
	}
	if _, err := hex.DecodeString(h); err != nil {
		t.Fatalf("not hex: %v", err)
	}
	if h == "203.0.113.7" {
		t.Fatalf("identifier stored raw")
	}

	if HashIdentifier("203.0.113.7") != h {
		t.Fatalf("hash not deterministic")
	}
	if HashIdentifier("203.0.113.8") == h {
		t.Fatalf("distinct inputs collided")
	}

	// Empty identifiers collapse onto a single known bucket.
	if HashIdentifier("") != HashIdentifier("unknown") {
		t.Fatalf("empty input not normalized")
	}
}
