package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clearstone/finportal/constants"
	"github.com/clearstone/finportal/internal/address"
	"github.com/clearstone/finportal/internal/extraction"
	"github.com/clearstone/finportal/internal/metadata"
	"github.com/clearstone/finportal/internal/schema"
)

// Document is one unit of pipeline work. ClientID is optional; without it
// the address comparison stage is skipped.
type Document struct {
	ObjectID string
	Name     string
	ClientID string
}

// StageResult records the outcome of one pipeline stage.
type StageResult struct {
	Stage        constants.Stage
	Success      bool
	UsedFallback bool
	Message      string
}

// DocumentResult is the full trace of one document through the pipeline.
type DocumentResult struct {
	Document Document
	Stages   []StageResult
	// Failed is true only when the document could not be processed at all;
	// degraded stages (fallback extraction, rejected fields) do not fail
	// the document.
	Failed bool
	Err    string
}

// baseCriticalKeys are written first so the document is at least typed and
// triaged even when a later field is rejected.
var baseCriticalKeys = []string{"documentType", "isLegible"}

// Processor runs the per-document extraction/application/comparison pipeline.
type Processor struct {
	store    metadata.ObjectStore
	extract  *extraction.Orchestrator
	applier  *metadata.Applier
	comparer *address.Engine
	registry *schema.Registry
	logger   *slog.Logger
}

// NewProcessor creates a document processor.
func NewProcessor(
	store metadata.ObjectStore,
	extract *extraction.Orchestrator,
	applier *metadata.Applier,
	comparer *address.Engine,
	registry *schema.Registry,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		store:    store,
		extract:  extract,
		applier:  applier,
		comparer: comparer,
		registry: registry,
		logger:   logger,
	}
}

// ProcessDocument runs one document through every stage in order. The only
// terminal failure is the initial object lookup; everything after degrades
// stage by stage and the document still reaches DONE.
func (p *Processor) ProcessDocument(ctx context.Context, doc Document) DocumentResult {
	result := DocumentResult{Document: doc}

	info, err := p.store.GetObjectInfo(ctx, doc.ObjectID)
	if err != nil {
		p.logger.Error("pipeline.document.failed",
			"object_id", doc.ObjectID,
			"error", err)
		result.Failed = true
		result.Err = fmt.Sprintf("object lookup: %v", err)
		return result
	}
	if doc.Name == "" {
		doc.Name = info.Name
	}
	result.Document = doc
	ref := extraction.DocumentRef{ObjectID: doc.ObjectID, Name: doc.Name}
	result.addStage(constants.StageUploaded, true, false, "")

	p.logger.Info("pipeline.document.start",
		"object_id", doc.ObjectID,
		"name", doc.Name,
		"client_id", doc.ClientID)

	// base classification
	baseFields := p.runExtract(ctx, &result, ref, constants.TemplateBase, constants.StageBaseExtracted)
	baseApplied := p.runApply(ctx, &result, doc.ObjectID, constants.TemplateBase, baseFields,
		metadata.ApplyOptions{CriticalKeys: baseCriticalKeys}, constants.StageBaseApplied)

	// type-specific pass
	docType := determineType(baseApplied, baseFields)
	if docType == constants.DocUnknown {
		result.addStage(constants.StageTypeDetermined, false, false, "document type undeterminable")
		result.addStage(constants.StageTypeExtracted, true, false, "skipped")
		result.addStage(constants.StageTypeApplied, true, false, "skipped")
	} else {
		templateKey, _ := constants.TemplateKeyFor(docType)
		result.addStage(constants.StageTypeDetermined, true, false, string(docType))
		typeFields := p.runExtract(ctx, &result, ref, templateKey, constants.StageTypeExtracted)
		p.runApply(ctx, &result, doc.ObjectID, templateKey, typeFields,
			metadata.ApplyOptions{SplitNumeric: true}, constants.StageTypeApplied)
	}

	// address pass
	addrFields := p.runExtract(ctx, &result, ref, constants.TemplateAddressValidation, constants.StageAddressExtracted)
	extracted := addressFromFields(addrFields)
	if extracted.FullAddress == "" && !extracted.IsEmpty() {
		extracted.FullAddress = address.BuildFullAddress(extracted)
		addrFields["full_address"] = extracted.FullAddress
	}
	p.runApply(ctx, &result, doc.ObjectID, constants.TemplateAddressValidation, addrFields,
		metadata.ApplyOptions{}, constants.StageAddressApplied)

	p.runCompare(ctx, &result, doc, extracted)

	result.addStage(constants.StageDone, true, false, "")
	p.logger.Info("pipeline.document.done",
		"object_id", doc.ObjectID,
		"stages", len(result.Stages))
	return result
}

func (p *Processor) runExtract(ctx context.Context, result *DocumentResult, ref extraction.DocumentRef, templateKey string, stage constants.Stage) map[string]any {
	res, err := p.extract.Extract(ctx, ref, templateKey)
	if err != nil {
		result.addStage(stage, false, false, err.Error())
		return map[string]any{}
	}
	result.addStage(stage, true, res.UsedFallback, res.Message)
	return res.Fields
}

func (p *Processor) runApply(ctx context.Context, result *DocumentResult, objectID, templateKey string, fields map[string]any, opts metadata.ApplyOptions, stage constants.Stage) map[string]any {
	def, err := p.registry.Get(templateKey)
	if err != nil {
		result.addStage(stage, false, false, err.Error())
		return map[string]any{}
	}
	applied, err := p.applier.Apply(ctx, objectID, def, fields, opts)
	if err != nil {
		result.addStage(stage, false, false, err.Error())
		return applied.Applied
	}
	msg := ""
	if applied.Skipped {
		msg = "nothing to apply"
	}
	result.addStage(stage, true, false, msg)
	return applied.Applied
}

// runCompare checks the extracted address against the client record and
// patches the validation status back onto the document.
func (p *Processor) runCompare(ctx context.Context, result *DocumentResult, doc Document, extracted address.Address) {
	if doc.ClientID == "" {
		result.addStage(constants.StageCompared, true, false, "no client, skipped")
		return
	}
	cmp, err := p.comparer.Compare(ctx, doc.ClientID, doc.ObjectID, extracted)
	if err != nil {
		result.addStage(constants.StageCompared, false, false, err.Error())
		return
	}
	if !cmp.Compared {
		result.addStage(constants.StageCompared, true, false, "no address on record")
		return
	}
	def := p.registry.MustGet(constants.TemplateAddressValidation)
	if _, err := p.applier.Apply(ctx, doc.ObjectID, def,
		map[string]any{"validation_status": cmp.Status}, metadata.ApplyOptions{}); err != nil {
		result.addStage(constants.StageCompared, false, false, err.Error())
		return
	}
	result.addStage(constants.StageCompared, true, false, cmp.Status)
}

func (r *DocumentResult) addStage(stage constants.Stage, success, fallback bool, msg string) {
	r.Stages = append(r.Stages, StageResult{
		Stage:        stage,
		Success:      success,
		UsedFallback: fallback,
		Message:      msg,
	})
}

// determineType reads the document type from what actually landed in the
// store, falling back to the raw extraction when the apply was rejected.
func determineType(applied, raw map[string]any) constants.DocumentType {
	for _, fields := range []map[string]any{applied, raw} {
		if v, ok := fields["documentType"].(string); ok && v != "" {
			dt := constants.DocumentType(v)
			if _, direct := constants.TemplateKeyFor(dt); direct && dt != constants.DocUnknown {
				return dt
			}
		}
	}
	return constants.DocUnknown
}

func addressFromFields(fields map[string]any) address.Address {
	str := func(key string) string {
		if v, ok := fields[key].(string); ok {
			return v
		}
		return ""
	}
	return address.Address{
		Street:      str("street_address"),
		City:        str("city"),
		Region:      str("state_province"),
		Postal:      str("postal_code"),
		Country:     str("country"),
		FullAddress: str("full_address"),
	}
}
