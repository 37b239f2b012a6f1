package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSpec      = "qset/spec/v1"
	DomainStatement = "qset/statement/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint hashes the canonical JSON of v under the given domain.
// Equal inputs produce equal fingerprints across processes and platforms.
func Fingerprint(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}
