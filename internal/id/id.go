// Package id is the canonical source for identifier generation.
//
// Two disjoint id spaces exist: storage ids (UUIDs, assigned when an
// entity is persisted) and export ids (prefixed random hex, assigned
// when an entity is placed into a bundle). The spaces never overlap,
// so a receiving system can always tell one from the other.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// ExportPrefix marks bundle-local export ids.
const ExportPrefix = "exp_"

// Storage returns a new storage id (UUID v4).
func Storage() string {
	return uuid.NewString()
}

// Export returns a new bundle-local export id: "exp_" plus 16 hex
// characters of randomness.
func Export() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return ExportPrefix + hex.EncodeToString(b)
}

// IsExport reports whether s belongs to the export id space.
func IsExport(s string) bool {
	return strings.HasPrefix(s, ExportPrefix)
}
