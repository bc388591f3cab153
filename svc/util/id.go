package util

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkg/errors"

	"flybin/pkg/domain"
)

// The nanoid default alphabet (A-Za-z0-9_-) gives ~5.95 bits per character:
// a 6-char slug carries ~35 bits, a 16-char secret ~95 bits.

// NewSlug returns a short public identifier for a paste. Collisions are
// possible at this length; the store surfaces them as a conflict and the
// caller retries with a fresh slug.
func NewSlug() (string, error) {
	slug, err := gonanoid.New(domain.SlugLen)
	if err != nil {
		return "", errors.Wrap(err, "generate slug")
	}
	return slug, nil
}

// NewSecret returns the capability token that authorizes lock and delete.
// Shown once at creation, never retrievable afterwards.
func NewSecret() (string, error) {
	secret, err := gonanoid.New(domain.SecretLen)
	if err != nil {
		return "", errors.Wrap(err, "generate secret")
	}
	return secret, nil
}
