package domain

import (
	"math"
	"time"
)

// Retention policy borrowed from 0x0.st: small pastes live the longest,
// shrinking along a cubic curve that pivots at the reference size.
const (
	minAgeDays    = 30
	maxAgeDays    = 365
	referenceSize = 4096
)

// Retention maps content size to a lifetime. The curve is deliberately
// unclamped: sizes well past the reference drive the result negative, so an
// oversized paste is expired the moment it is created.
func Retention(size int) time.Duration {
	x := float64(size)/referenceSize - 1
	days := minAgeDays + (minAgeDays-maxAgeDays)*math.Pow(x, 3)
	return time.Duration(days * 24 * float64(time.Hour))
}

// ExpiresAt computes the expiry timestamp for a paste of the given size
// created at now.
func ExpiresAt(size int, now time.Time) time.Time {
	return now.Add(Retention(size))
}
