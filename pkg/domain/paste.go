package domain

import (
	"time"
)

const (
	SlugLen   = 6
	SecretLen = 16
)

type Paste struct {
	Slug      string    `json:"slug"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Secret    string    `json:"-"`
	IPAddress string    `json:"-"`
	Access    Access    `json:"-"`
}

// Access is the read predicate of a paste: either open or gated behind a
// password digest set by a successful lock.
type Access struct {
	digest string
	gated  bool
}

func Open() Access {
	return Access{}
}

func PasswordGated(digest string) Access {
	return Access{digest: digest, gated: true}
}

func (a Access) Gated() bool {
	return a.gated
}

// Digest returns the stored password digest and whether one is set. The
// cleartext password is never recoverable from it.
func (a Access) Digest() (string, bool) {
	return a.digest, a.gated
}

// Allows reports whether a supplied password digest satisfies the predicate.
// An open paste admits any caller, including one presenting a password.
func (a Access) Allows(digest string) bool {
	if !a.gated {
		return true
	}
	return digest != "" && digest == a.digest
}

func (p *Paste) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
