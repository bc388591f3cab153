package domain

import (
	"testing"
	"time"
)

func TestAccessOpen(t *testing.T) {
	a := Open()
	if a.Gated() {
		t.Fatal("Open() must not be gated")
	}
	if !a.Allows("") {
		t.Error("open paste must allow reads without a password")
	}
	if !a.Allows("whatever") {
		t.Error("open paste must ignore a supplied password")
	}
}

func TestAccessPasswordGated(t *testing.T) {
	a := PasswordGated("digest-a")
	if !a.Gated() {
		t.Fatal("PasswordGated() must be gated")
	}
	if a.Allows("") {
		t.Error("gated paste must reject a missing password")
	}
	if a.Allows("digest-b") {
		t.Error("gated paste must reject a wrong digest")
	}
	if !a.Allows("digest-a") {
		t.Error("gated paste must allow the matching digest")
	}
	d, ok := a.Digest()
	if !ok || d != "digest-a" {
		t.Errorf("Digest() = %q, %v", d, ok)
	}
}

func TestAccessGatedEmptyDigest(t *testing.T) {
	// A gated paste with an empty digest must not be satisfiable by an
	// empty password.
	a := PasswordGated("")
	if a.Allows("") {
		t.Error("empty digest must not match empty password")
	}
}

func TestPasteExpired(t *testing.T) {
	now := time.Now()
	p := &Paste{ExpiresAt: now.Add(time.Hour)}
	if p.Expired(now) {
		t.Error("paste expiring in an hour reported expired")
	}
	if !p.Expired(now.Add(2 * time.Hour)) {
		t.Error("paste past its expiry reported live")
	}
}
