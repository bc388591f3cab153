package util

import (
	"strings"
	"testing"

	"flybin/pkg/domain"
)

const urlSafeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

func TestNewSlug(t *testing.T) {
	slug, err := NewSlug()
	if err != nil {
		t.Fatalf("NewSlug: %v", err)
	}
	if len(slug) != domain.SlugLen {
		t.Errorf("slug length = %d, want %d", len(slug), domain.SlugLen)
	}
	for _, c := range slug {
		if !strings.ContainsRune(urlSafeAlphabet, c) {
			t.Errorf("slug contains non-URL-safe character %q", c)
		}
	}
}

func TestNewSecret(t *testing.T) {
	secret, err := NewSecret()
	if err != nil {
		t.Fatalf("NewSecret: %v", err)
	}
	if len(secret) != domain.SecretLen {
		t.Errorf("secret length = %d, want %d", len(secret), domain.SecretLen)
	}
	for _, c := range secret {
		if !strings.ContainsRune(urlSafeAlphabet, c) {
			t.Errorf("secret contains non-URL-safe character %q", c)
		}
	}
}

func TestSecretsDiffer(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s, err := NewSecret()
		if err != nil {
			t.Fatalf("NewSecret: %v", err)
		}
		if seen[s] {
			t.Fatalf("duplicate secret %q after %d draws", s, i)
		}
		seen[s] = true
	}
}
