package metadata

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/clearstone/finportal/internal/common"
	"github.com/clearstone/finportal/internal/schema"
)

// ApplyOptions tune how a field set is written to the store.
type ApplyOptions struct {
	// CriticalKeys are written in their own first request so they land even
	// when a later value is rejected. Keys not present in the sanitized set
	// are ignored.
	CriticalKeys []string
	// SplitNumeric writes each number-typed field in its own request; the
	// store rejects a whole request over one bad numeric value.
	SplitNumeric bool
}

// ApplyResult reports what an Apply call actually wrote.
type ApplyResult struct {
	// Applied holds the sanitized fields that were accepted by the store.
	Applied map[string]any
	// Created is true when a new record was created rather than patched.
	Created bool
	// Skipped is true when sanitization left nothing to write.
	Skipped bool
}

// Applier writes sanitized metadata to the object store, creating the record
// on first contact and patching it on every subsequent apply.
type Applier struct {
	store  ObjectStore
	logger *slog.Logger
}

// NewApplier creates a metadata applier.
func NewApplier(store ObjectStore, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{store: store, logger: logger}
}

// Apply sanitizes fields for the template and writes them to the object.
// An empty sanitized set is a successful no-op. Applying the same fields
// twice converges: the second run patches the values already present.
//
// When several write phases are configured and a later phase fails, the
// earlier phases stay applied; the error reports the failed phases.
func (a *Applier) Apply(ctx context.Context, objectID string, def *schema.Definition, fields map[string]any, opts ApplyOptions) (ApplyResult, error) {
	sanitized := Sanitize(fields, def)
	if len(sanitized) == 0 {
		a.logger.Info("metadata.apply.skip",
			"object_id", objectID,
			"template_key", def.TemplateKey)
		return ApplyResult{Skipped: true, Applied: map[string]any{}}, nil
	}

	if err := schema.ValidateFields(def, sanitized); err != nil {
		// advisory only: the store is the final arbiter
		a.logger.Warn("metadata.apply.validate",
			"object_id", objectID,
			"template_key", def.TemplateKey,
			"error", err)
	}

	result := ApplyResult{Applied: make(map[string]any, len(sanitized))}
	var errs []error
	for i, chunk := range a.chunks(sanitized, def, opts) {
		created, err := a.writeChunk(ctx, objectID, def.TemplateKey, chunk)
		if err != nil {
			keys := sortedKeys(chunk)
			a.logger.Warn("metadata.apply.chunk_failed",
				"object_id", objectID,
				"template_key", def.TemplateKey,
				"keys", keys,
				"error", err)
			errs = append(errs, err)
			if i == 0 {
				// first phase carries the critical fields: if it cannot
				// land, the record state is unknown, stop here
				return result, errors.Join(errs...)
			}
			continue
		}
		if created {
			result.Created = true
		}
		for k, v := range chunk {
			result.Applied[k] = v
		}
	}
	a.logger.Info("metadata.apply.done",
		"object_id", objectID,
		"template_key", def.TemplateKey,
		"applied", len(result.Applied),
		"created", result.Created)
	return result, errors.Join(errs...)
}

// writeChunk tries a create first and converts a conflict into a patch of
// JSON-Patch add operations, which upsert per key on the store side.
func (a *Applier) writeChunk(ctx context.Context, objectID, templateKey string, chunk map[string]any) (bool, error) {
	err := a.store.CreateMetadata(ctx, objectID, templateKey, chunk)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, common.ErrConflict) {
		return false, err
	}
	ops := make([]PatchOp, 0, len(chunk))
	for _, k := range sortedKeys(chunk) {
		ops = append(ops, PatchOp{Op: "add", Path: "/" + k, Value: chunk[k]})
	}
	if err := a.store.PatchMetadata(ctx, objectID, templateKey, ops); err != nil {
		return false, err
	}
	return false, nil
}

// chunks partitions the sanitized set into write phases: critical keys,
// the remaining non-numeric keys, then each numeric key on its own when
// SplitNumeric is set.
func (a *Applier) chunks(sanitized map[string]any, def *schema.Definition, opts ApplyOptions) []map[string]any {
	critical := make(map[string]any)
	for _, k := range opts.CriticalKeys {
		if v, ok := sanitized[k]; ok {
			critical[k] = v
		}
	}

	rest := make(map[string]any)
	var numeric []string
	for k, v := range sanitized {
		if _, ok := critical[k]; ok {
			continue
		}
		if fd, ok := def.Field(k); ok && fd.Type == schema.TypeNumber && opts.SplitNumeric {
			numeric = append(numeric, k)
			continue
		}
		rest[k] = v
	}
	sort.Strings(numeric)

	var out []map[string]any
	if len(critical) > 0 {
		out = append(out, critical)
	}
	if len(rest) > 0 {
		out = append(out, rest)
	}
	for _, k := range numeric {
		out = append(out, map[string]any{k: sanitized[k]})
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
