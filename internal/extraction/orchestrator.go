package extraction

import (
	"context"
	"log/slog"
	"time"

	"github.com/clearstone/finportal/constants"
	"github.com/clearstone/finportal/internal/schema"
)

// Orchestrator runs one extraction attempt against the provider and degrades
// to synthesized fields when the provider fails or returns no usable data.
type Orchestrator struct {
	provider Provider
	registry *schema.Registry
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrchestrator creates an extraction orchestrator.
func NewOrchestrator(provider Provider, registry *schema.Registry, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		provider: provider,
		registry: registry,
		logger:   logger,
		now:      time.Now,
	}
}

// Extract asks the provider for structured fields for one document/template
// pair. The only hard failure is an unknown template key; provider errors,
// schema echoes, and unrecognized responses all degrade to a fallback result
// with UsedFallback set.
func (o *Orchestrator) Extract(ctx context.Context, doc DocumentRef, templateKey string) (Result, error) {
	def, err := o.registry.Get(templateKey)
	if err != nil {
		return Result{}, err
	}

	req := ExtractRequest{ObjectID: doc.ObjectID}
	if templateKey == constants.TemplateAddressValidation {
		// not in the provider's template catalog, so the field
		// definitions ride along in the request
		req.Fields = def.Fields
	} else {
		req.TemplateKey = templateKey
	}

	start := o.now()
	o.logger.Info("extract.start",
		"object_id", doc.ObjectID,
		"template_key", templateKey)

	raw, err := o.provider.ExtractStructured(ctx, req)
	if err != nil {
		o.logger.Warn("extract.provider_error",
			"object_id", doc.ObjectID,
			"template_key", templateKey,
			"error", err)
		return o.fallback(doc, def, "provider error: "+err.Error()), nil
	}

	in := Interpret(raw)
	elapsed := o.now().Sub(start)

	switch in.Kind {
	case KindValues:
		o.logger.Info("extract.done",
			"object_id", doc.ObjectID,
			"template_key", templateKey,
			"field_count", len(in.Fields),
			"elapsed_ms", elapsed.Milliseconds())
		return Result{Fields: o.stamp(templateKey, in.Fields)}, nil
	case KindSchemaEcho:
		o.logger.Warn("extract.schema_echo",
			"object_id", doc.ObjectID,
			"template_key", templateKey,
			"elapsed_ms", elapsed.Milliseconds())
		return o.fallback(doc, def, "provider echoed the template schema"), nil
	default:
		o.logger.Warn("extract.unrecognized",
			"object_id", doc.ObjectID,
			"template_key", templateKey,
			"elapsed_ms", elapsed.Milliseconds())
		return o.fallback(doc, def, "unrecognized provider response"), nil
	}
}

func (o *Orchestrator) fallback(doc DocumentRef, def *schema.Definition, msg string) Result {
	fields := SynthesizeFallback(doc, def, o.now())
	o.logger.Info("extract.fallback",
		"object_id", doc.ObjectID,
		"template_key", def.TemplateKey,
		"reason", msg)
	return Result{Fields: fields, UsedFallback: true, Message: msg}
}

// stamp fills in fields the provider is not expected to produce. Address
// extractions carry the extraction date even on a genuine-values response.
func (o *Orchestrator) stamp(templateKey string, fields map[string]any) map[string]any {
	if templateKey != constants.TemplateAddressValidation {
		return fields
	}
	if v, ok := fields["date_extracted"]; !ok || v == nil || v == "" {
		fields["date_extracted"] = o.now().UTC().Format("2006-01-02")
	}
	return fields
}
