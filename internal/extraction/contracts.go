package extraction

import (
	"context"

	"github.com/clearstone/finportal/internal/schema"
)

// DocumentRef identifies a remote document. Name carries the original
// filename so fallback synthesis can work from it.
type DocumentRef struct {
	ObjectID string
	Name     string
}

// ExtractRequest asks the provider for structured extraction of one document.
// Exactly one of TemplateKey or Fields is set: TemplateKey references a
// template in the provider's own catalog, Fields spells the definitions out
// for templates the provider does not know.
type ExtractRequest struct {
	ObjectID    string
	TemplateKey string
	Fields      []schema.FieldDefinition
}

// Provider is the external document-AI capability. The response is an
// opaque, loosely-typed document; callers must not assume any shape beyond
// "JSON object". Implementations must be safe for concurrent use.
type Provider interface {
	ExtractStructured(ctx context.Context, req ExtractRequest) (map[string]any, error)
}

// Result is the outcome of one orchestrated extraction. The orchestrator
// never hard-fails a single step: provider errors and no-data responses
// degrade to synthesized fields with UsedFallback set.
type Result struct {
	Fields       map[string]any
	UsedFallback bool
	Message      string
}
