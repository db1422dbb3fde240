package metadata

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearstone/finportal/constants"
	"github.com/clearstone/finportal/internal/common"
	"github.com/clearstone/finportal/internal/schema"
)

// memStore is an in-memory ObjectStore with the create/conflict semantics of
// the real one.
type memStore struct {
	records map[string]map[string]any // objectID/templateKey -> fields
	creates int
	patches int
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]map[string]any)}
}

func (s *memStore) key(objectID, templateKey string) string {
	return objectID + "/" + templateKey
}

func (s *memStore) GetObjectInfo(_ context.Context, objectID string) (ObjectInfo, error) {
	return ObjectInfo{ID: objectID, Name: objectID + ".pdf"}, nil
}

func (s *memStore) CreateMetadata(_ context.Context, objectID, templateKey string, fields map[string]any) error {
	s.creates++
	k := s.key(objectID, templateKey)
	if _, ok := s.records[k]; ok {
		return fmt.Errorf("exists: %w", common.ErrConflict)
	}
	rec := make(map[string]any, len(fields))
	for key, v := range fields {
		rec[key] = v
	}
	s.records[k] = rec
	return nil
}

func (s *memStore) PatchMetadata(_ context.Context, objectID, templateKey string, ops []PatchOp) error {
	s.patches++
	rec, ok := s.records[s.key(objectID, templateKey)]
	if !ok {
		return fmt.Errorf("missing record: %w", common.ErrNotFound)
	}
	for _, op := range ops {
		if op.Op == "add" {
			rec[op.Path[1:]] = op.Value
		}
	}
	return nil
}

func (s *memStore) GetMetadata(_ context.Context, objectID, templateKey string) (map[string]any, error) {
	rec, ok := s.records[s.key(objectID, templateKey)]
	if !ok {
		return nil, fmt.Errorf("missing record: %w", common.ErrNotFound)
	}
	return rec, nil
}

func TestApplyCreatesThenPatches(t *testing.T) {
	store := newMemStore()
	applier := NewApplier(store, nil)
	def := schema.NewRegistry().MustGet(constants.TemplateBase)
	fields := map[string]any{"documentType": "W-2", "issuerName": "Acme"}

	first, err := applier.Apply(context.Background(), "f1", def, fields, ApplyOptions{})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Len(t, first.Applied, 2)

	// second apply of the same fields converges via patch
	second, err := applier.Apply(context.Background(), "f1", def, fields, ApplyOptions{})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Applied, second.Applied)

	rec, err := store.GetMetadata(context.Background(), "f1", constants.TemplateBase)
	require.NoError(t, err)
	assert.Equal(t, "W-2", rec["documentType"])
	assert.Equal(t, "Acme", rec["issuerName"])
}

func TestApplyEmptyAfterSanitizeIsNoop(t *testing.T) {
	store := newMemStore()
	applier := NewApplier(store, nil)
	def := schema.NewRegistry().MustGet(constants.TemplateBase)

	res, err := applier.Apply(context.Background(), "f1", def, map[string]any{
		"issuerName":  "",
		"madeUpField": "x",
	}, ApplyOptions{})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Zero(t, store.creates)
	assert.Zero(t, store.patches)
}

func TestApplyPhases(t *testing.T) {
	store := newMemStore()
	applier := NewApplier(store, nil)
	def := schema.NewRegistry().MustGet(constants.TemplateBase)

	res, err := applier.Apply(context.Background(), "f1", def, map[string]any{
		"documentType": "1099",
		"isLegible":    "Yes",
		"issuerName":   "Acme Brokerage",
	}, ApplyOptions{CriticalKeys: []string{"documentType", "isLegible"}})
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Len(t, res.Applied, 3)
	// critical chunk created the record, the second chunk patched it
	assert.Equal(t, 2, store.creates)
	assert.Equal(t, 1, store.patches)
}

func TestApplySplitNumeric(t *testing.T) {
	store := newMemStore()
	applier := NewApplier(store, nil)
	def := schema.NewRegistry().MustGet(constants.TemplateIRSW2)

	res, err := applier.Apply(context.Background(), "f1", def, map[string]any{
		"employerEinMasked":      "**-***1234",
		"box1Wages":              85400.50,
		"box2FederalWithholding": 9100.0,
	}, ApplyOptions{SplitNumeric: true})
	require.NoError(t, err)
	assert.Len(t, res.Applied, 3)

	rec, err := store.GetMetadata(context.Background(), "f1", constants.TemplateIRSW2)
	require.NoError(t, err)
	assert.Equal(t, 85400.50, rec["box1Wages"])
	assert.Equal(t, 9100.0, rec["box2FederalWithholding"])
}
