package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests.
// Version suffix enables future algorithm migration.
const (
	DomainState      = "smartfin/state/v1"
	DomainDefinition = "smartfin/definition/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StateDigest hashes a snapshot of persisted contract state. The snapshot
// maps storage keys to their decoded integer sequences.
func StateDigest(snapshot map[string][]int64) (string, error) {
	obj := make(map[string]any, len(snapshot))
	for k, v := range snapshot {
		obj[k] = v
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("StateDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainState, canonical), nil
}

// DefinitionHash identifies a contract definition independent of who deploys it.
func DefinitionHash(definition []int64) string {
	canonical, _ := MarshalCanonical(definition)
	return hashWithDomain(DomainDefinition, canonical)
}
