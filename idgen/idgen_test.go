package idgen

import (
	"strings"
	"testing"
)

func TestNanoID_LengthAndAlphabet(t *testing.T) {
	gen := NanoID(8)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := gen()
		if len(id) != 8 {
			t.Fatalf("length: got %d, want 8", len(id))
		}
		for _, r := range id {
			if !strings.ContainsRune("0123456789abcdefghijklmnopqrstuvwxyz", r) {
				t.Fatalf("unexpected rune %q in %q", r, id)
			}
		}
		if seen[id] {
			t.Fatalf("duplicate ID %q after %d draws", id, i)
		}
		seen[id] = true
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("step_", NanoID(6))
	id := gen()
	if !strings.HasPrefix(id, "step_") {
		t.Errorf("prefix: got %q, want step_ prefix", id)
	}
	if len(id) != len("step_")+6 {
		t.Errorf("length: got %d, want %d", len(id), len("step_")+6)
	}
}

func TestUUIDv7_Unique(t *testing.T) {
	gen := UUIDv7()
	a, b := gen(), gen()
	if a == b {
		t.Fatalf("two UUIDv7 draws identical: %q", a)
	}
	if len(a) != 36 {
		t.Errorf("length: got %d, want 36", len(a))
	}
}
