package metadata

import (
	"context"
)

// ObjectInfo is the subset of a stored object's descriptor the pipeline needs.
type ObjectInfo struct {
	ID   string
	Name string
}

// PatchOp is one JSON-Patch operation applied to an existing metadata record.
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// ObjectStore is the document store's metadata surface.
//
// CreateMetadata must return an error wrapping common.ErrConflict when a
// record for the template already exists on the object, and GetObjectInfo /
// GetMetadata must wrap common.ErrNotFound for missing objects or records.
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	GetObjectInfo(ctx context.Context, objectID string) (ObjectInfo, error)
	CreateMetadata(ctx context.Context, objectID, templateKey string, fields map[string]any) error
	PatchMetadata(ctx context.Context, objectID, templateKey string, ops []PatchOp) error
	GetMetadata(ctx context.Context, objectID, templateKey string) (map[string]any, error)
}
