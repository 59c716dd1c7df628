package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed keys.
// Version suffix enables future algorithm migration.
const (
	DomainSubset = "ordset/subset/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SubsetHash computes a stable key for a subset description.
// Two descriptions that are canonically equal hash identically, regardless of
// map iteration order or Unicode normalization form.
func SubsetHash(table string, desc IRValue) (string, error) {
	canonical, err := MarshalCanonical(IRObject{
		"table":  IRString(table),
		"subset": desc,
	})
	if err != nil {
		return "", fmt.Errorf("SubsetHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSubset, canonical), nil
}
