package util

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
)

// RedactIP truncates an address before it reaches the logs: IPv4 loses its
// last octet, IPv6 keeps only the /32 prefix. Unparseable input is hashed.
func RedactIP(ip string) string {
	host, _, err := net.SplitHostPort(ip)
	if err == nil {
		ip = host
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		hash := sha256.Sum256([]byte(ip))
		return "hash:" + hex.EncodeToString(hash[:8])
	}
	if ipv4 := parsed.To4(); ipv4 != nil {
		ipv4[3] = 0
		return ipv4.String()
	}
	ipv6 := parsed.To16()
	for i := 4; i < 16; i++ {
		ipv6[i] = 0
	}
	return ipv6.String()
}

// RedactSecret keeps just enough of a capability token to correlate log
// lines without making it guessable.
func RedactSecret(s string) string {
	if len(s) <= 4 {
		return "***"
	}
	return s[:2] + "***" + s[len(s)-2:]
}
