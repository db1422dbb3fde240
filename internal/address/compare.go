package address

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/clearstone/finportal/constants"
	"github.com/clearstone/finportal/internal/common"
)

// matchThreshold is the minimum per-component similarity that counts as a
// match after normalization.
const matchThreshold = 0.8

// Comparison is the result of checking one extracted address against the
// client's address of record.
type Comparison struct {
	// Compared is false when the client has no address of record; nothing
	// was checked and no ledger entry was touched.
	Compared bool
	// Status is the validation_status value to write back to the document.
	Status string
	// MismatchType is set when a ledger record was created or updated.
	MismatchType constants.MismatchType
	// Components holds the per-component scores, in fixed order.
	Components []ComponentResult
	// Mismatched lists the component names that failed the threshold.
	Mismatched []string
}

// Engine compares extracted addresses against the directory and maintains
// the mismatch ledger.
type Engine struct {
	directory ClientDirectory
	ledger    MismatchLedger
	logger    *slog.Logger
	now       func() time.Time
}

// NewEngine creates an address comparison engine.
func NewEngine(directory ClientDirectory, ledger MismatchLedger, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{directory: directory, ledger: ledger, logger: logger, now: time.Now}
}

// Compare checks extracted against the client's address of record and updates
// the ledger: a clean match deletes any existing record for the pair, any
// discrepancy upserts exactly one record. A client without a stored address
// yields Compared=false and leaves the ledger alone.
func (e *Engine) Compare(ctx context.Context, clientID, documentID string, extracted Address) (Comparison, error) {
	stored, err := e.directory.GetClientAddress(ctx, clientID)
	if err != nil {
		if errors.Is(err, common.ErrNoAddress) || errors.Is(err, common.ErrNotFound) {
			e.logger.Info("address.compare.skip",
				"client_id", clientID,
				"document_id", documentID,
				"reason", "no address on record")
			return Comparison{Compared: false, Status: constants.ValidationNotValidated}, nil
		}
		return Comparison{}, err
	}

	if extracted.IsEmpty() {
		// the document yielded no address, so the record address could not
		// be checked; keep that visible in the ledger
		rec := MismatchRecord{
			ClientID:   clientID,
			DocumentID: documentID,
			Type:       constants.MismatchNotValidated,
			Extracted:  extracted,
			Stored:     stored,
			UpdatedAt:  e.now(),
		}
		if err := e.ledger.Upsert(ctx, rec); err != nil {
			return Comparison{}, err
		}
		e.logger.Warn("address.compare.not_validated",
			"client_id", clientID,
			"document_id", documentID)
		return Comparison{
			Compared:     true,
			Status:       constants.ValidationNotValidated,
			MismatchType: constants.MismatchNotValidated,
		}, nil
	}

	components := compareComponents(extracted, stored)
	matched := 0
	var mismatched []string
	for _, c := range components {
		if c.Match {
			matched++
		} else {
			mismatched = append(mismatched, c.Component)
		}
	}

	if matched == len(components) {
		if err := e.ledger.Delete(ctx, clientID, documentID); err != nil {
			return Comparison{}, err
		}
		e.logger.Info("address.compare.match",
			"client_id", clientID,
			"document_id", documentID)
		return Comparison{
			Compared:   true,
			Status:     constants.ValidationMatch,
			Components: components,
		}, nil
	}

	mtype := constants.MismatchPartial
	status := constants.ValidationPartialMatch
	if matched == 0 {
		mtype = constants.MismatchFull
		status = constants.ValidationMismatch
	}
	rec := MismatchRecord{
		ClientID:   clientID,
		DocumentID: documentID,
		Type:       mtype,
		Extracted:  extracted,
		Stored:     stored,
		Components: mismatched,
		UpdatedAt:  e.now(),
	}
	if err := e.ledger.Upsert(ctx, rec); err != nil {
		return Comparison{}, err
	}
	e.logger.Warn("address.compare.mismatch",
		"client_id", clientID,
		"document_id", documentID,
		"type", string(mtype),
		"components", mismatched)
	return Comparison{
		Compared:     true,
		Status:       status,
		MismatchType: mtype,
		Components:   components,
		Mismatched:   mismatched,
	}, nil
}

// ReconcileClient re-runs comparison for every unresolved mismatch of a
// client against the current address of record. Called after the directory
// entry changes; mismatches that now match are deleted. Returns how many
// records were cleared.
func (e *Engine) ReconcileClient(ctx context.Context, clientID string) (int, error) {
	records, err := e.ledger.ListUnresolved(ctx, clientID)
	if err != nil {
		return 0, err
	}
	cleared := 0
	for _, rec := range records {
		cmp, err := e.Compare(ctx, clientID, rec.DocumentID, rec.Extracted)
		if err != nil {
			return cleared, err
		}
		if cmp.Compared && cmp.Status == constants.ValidationMatch {
			cleared++
		}
	}
	e.logger.Info("address.reconcile.done",
		"client_id", clientID,
		"checked", len(records),
		"cleared", cleared)
	return cleared, nil
}

func compareComponents(extracted, stored Address) []ComponentResult {
	pairs := []struct {
		name             string
		extracted, saved string
	}{
		{"street", extracted.Street, stored.Street},
		{"city", extracted.City, stored.City},
		{"region", extracted.Region, stored.Region},
		{"postal", extracted.Postal, stored.Postal},
	}
	out := make([]ComponentResult, 0, len(pairs))
	for _, p := range pairs {
		a := NormalizeComponent(p.extracted)
		b := NormalizeComponent(p.saved)
		score := Similarity(a, b)
		out = append(out, ComponentResult{
			Component:  p.name,
			Extracted:  p.extracted,
			Stored:     p.saved,
			Similarity: score,
			Match:      score >= matchThreshold,
		})
	}
	return out
}
