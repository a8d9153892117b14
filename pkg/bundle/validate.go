package bundle

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// VersionError reports a bundle whose major version this importer does
// not support. Its message always contains the word "version" so
// callers can distinguish it from generic shape problems.
type VersionError struct {
	Got       string
	Supported int
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("unsupported bundle version %q: this importer accepts major version %d", e.Got, e.Supported)
}

// ShapeError reports a structurally malformed bundle document.
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string {
	return "invalid bundle: " + e.Reason
}

// majorVersion parses the major component of a semantic version string.
func majorVersion(v string) (int, error) {
	head, _, _ := strings.Cut(v, ".")
	major, err := strconv.Atoi(head)
	if err != nil || major < 0 {
		return 0, fmt.Errorf("not a semantic version: %q", v)
	}
	return major, nil
}

// Validate checks a raw bundle document and decodes it. The checks run
// in order: metadata present with a parseable version, major version
// supported, every top-level key a known entity-type key holding an
// array. Validation is purely structural: it never touches a store and
// is invoked identically for preview and commit.
func Validate(doc []byte) (*Bundle, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, &ShapeError{Reason: "document is not a JSON object"}
	}

	metaRaw, ok := raw["metadata"]
	if !ok {
		return nil, &ShapeError{Reason: "missing metadata"}
	}
	var meta Metadata
	if err := json.Unmarshal(metaRaw, &meta); err != nil {
		return nil, &ShapeError{Reason: "metadata is malformed"}
	}
	if meta.Version == "" {
		return nil, &ShapeError{Reason: "metadata.version is missing"}
	}
	major, err := majorVersion(meta.Version)
	if err != nil {
		return nil, &ShapeError{Reason: "metadata.version is not a semantic version"}
	}
	if major != SupportedMajor {
		return nil, &VersionError{Got: meta.Version, Supported: SupportedMajor}
	}

	for key, value := range raw {
		if key == "metadata" {
			continue
		}
		if _, known := ParseEntityType(key); !known {
			return nil, &ShapeError{Reason: fmt.Sprintf("unknown entity type key %q", key)}
		}
		var arr []json.RawMessage
		if err := json.Unmarshal(value, &arr); err != nil {
			return nil, &ShapeError{Reason: fmt.Sprintf("%s is not an array", key)}
		}
	}

	var b Bundle
	if err := json.Unmarshal(doc, &b); err != nil {
		return nil, &ShapeError{Reason: "entity records are malformed: " + err.Error()}
	}
	return &b, nil
}
