package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
)

// Domain prefixes for content-addressed identity. The version suffix allows a
// future algorithm migration without colliding with existing addresses.
const (
	DomainObject     = "spool/object/v1"
	DomainCheckpoint = "spool/checkpoint/v1"
)

// NewHasher returns a SHA-256 digest seeded with the domain prefix.
// Format: SHA256(domain + 0x00 + data...). The null separator prevents
// domain/data boundary ambiguity. Used directly by streaming writers that
// hash content incrementally as it is emitted.
func NewHasher(domain string) hash.Hash {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	return h
}

// HashBytes computes the hex fingerprint of data under a domain prefix.
func HashBytes(domain string, data []byte) string {
	h := NewHasher(domain)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashValue canonically marshals v and returns its hex fingerprint.
// Logically equal values always hash identically; see Marshal.
func HashValue(domain string, v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash value: %w", err)
	}
	return HashBytes(domain, data), nil
}
