package auth

import (
	"testing"
)

func TestDigestDeterministic(t *testing.T) {
	a := Digest("hunter2")
	b := Digest("hunter2")
	if a != b {
		t.Errorf("same password produced different digests: %q vs %q", a, b)
	}
}

func TestDigestFixedSize(t *testing.T) {
	for _, pw := range []string{"", "a", "a very long password with spaces and unicode €"} {
		if got := len(Digest(pw)); got != 64 {
			t.Errorf("Digest(%q) length = %d, want 64 hex chars", pw, got)
		}
	}
}

func TestDigestDistinguishes(t *testing.T) {
	if Digest("pw") == Digest("pw2") {
		t.Error("different passwords produced the same digest")
	}
}
