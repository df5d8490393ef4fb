package domain

import (
	"encoding/json"

	"go.trai.ch/zerr"
)

// LockfileSchemaVersion is the only lockfile schema this build reads and writes.
const LockfileSchemaVersion = 1

// LockfileDocument is the durable form of a resolved graph.
type LockfileDocument struct {
	SchemaVersion  int                         `json:"schema_version"`
	Roots          []LockedRoot                `json:"roots"`
	Packages       map[PackageID]LockedPackage `json:"packages"`
	BuildOverrides map[string]BuildEnvelope    `json:"build_overrides,omitempty"`
}

// LockedRoot is a direct requirement of the project as it was resolved.
type LockedRoot struct {
	Scope      string    `json:"scope"`
	Name       string    `json:"name"`
	Constraint string    `json:"constraint"`
	Source     *Source   `json:"source,omitempty"`
	Pinned     bool      `json:"pinned,omitempty"`
	ID         PackageID `json:"id"`
}

// LockedPackage is one node of the resolved graph.
type LockedPackage struct {
	Name         string             `json:"name"`
	Version      string             `json:"version"`
	Source       Source             `json:"source"`
	Artifact     string             `json:"artifact,omitempty"`
	Integrity    string             `json:"integrity"`
	Build        BuildEnvelope      `json:"build"`
	Dependencies []LockedDependency `json:"dependencies,omitempty"`
	Pinned       bool               `json:"pinned,omitempty"`
	Entrypoint   bool               `json:"entrypoint,omitempty"`
	Scopes       []string           `json:"scopes,omitempty"`
}

// LockedDependency is an edge of the resolved graph.
type LockedDependency struct {
	Name       string         `json:"name"`
	ID         PackageID      `json:"id"`
	Kind       DependencyKind `json:"kind"`
	Constraint string         `json:"constraint"`
}

// EncodeLockfile renders the document as indented JSON with sorted keys.
func EncodeLockfile(doc *LockfileDocument) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, zerr.Wrap(err, "failed to encode lockfile")
	}
	return append(data, '\n'), nil
}

// DecodeLockfile parses the JSON form. Schema checks are left to the caller.
func DecodeLockfile(data []byte) (*LockfileDocument, error) {
	var doc LockfileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &CorruptLockfileError{Reason: "invalid JSON", Err: err}
	}
	return &doc, nil
}
