package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearstone/finportal/constants"
	"github.com/clearstone/finportal/internal/address"
	"github.com/clearstone/finportal/internal/common"
	"github.com/clearstone/finportal/internal/extraction"
	"github.com/clearstone/finportal/internal/metadata"
	"github.com/clearstone/finportal/internal/schema"
)

// fakeStore is an in-memory object store with create/conflict semantics.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string]string         // objectID -> name
	records map[string]map[string]any // objectID/templateKey -> fields
}

func newFakeStore(objects map[string]string) *fakeStore {
	return &fakeStore{objects: objects, records: make(map[string]map[string]any)}
}

func (s *fakeStore) key(objectID, templateKey string) string { return objectID + "/" + templateKey }

func (s *fakeStore) GetObjectInfo(_ context.Context, objectID string) (metadata.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.objects[objectID]
	if !ok {
		return metadata.ObjectInfo{}, fmt.Errorf("object %s: %w", objectID, common.ErrNotFound)
	}
	return metadata.ObjectInfo{ID: objectID, Name: name}, nil
}

func (s *fakeStore) CreateMetadata(_ context.Context, objectID, templateKey string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
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

func (s *fakeStore) PatchMetadata(_ context.Context, objectID, templateKey string, ops []metadata.PatchOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
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

func (s *fakeStore) GetMetadata(_ context.Context, objectID, templateKey string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[s.key(objectID, templateKey)]
	if !ok {
		return nil, fmt.Errorf("missing record: %w", common.ErrNotFound)
	}
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out, nil
}

// fakeProvider answers per template with canned responses.
type fakeProvider struct {
	byTemplate map[string]map[string]any
	addressRes map[string]any
	err        error
}

func (f *fakeProvider) ExtractStructured(_ context.Context, req extraction.ExtractRequest) (map[string]any, error) {
	if f.err != nil {
		return nil, f.err
	}
	if req.TemplateKey == "" {
		return f.addressRes, nil
	}
	return f.byTemplate[req.TemplateKey], nil
}

type memDirectory struct {
	mu    sync.Mutex
	addrs map[string]address.Address
}

func (d *memDirectory) GetClientAddress(_ context.Context, clientID string) (address.Address, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	addr, ok := d.addrs[clientID]
	if !ok {
		return address.Address{}, fmt.Errorf("client %s: %w", clientID, common.ErrNoAddress)
	}
	return addr, nil
}

func (d *memDirectory) SetClientAddress(_ context.Context, clientID string, addr address.Address) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.addrs[clientID] = addr
	return nil
}

type memLedger struct {
	mu      sync.Mutex
	records map[string]address.MismatchRecord
}

func newMemLedger() *memLedger {
	return &memLedger{records: make(map[string]address.MismatchRecord)}
}

func (l *memLedger) Upsert(_ context.Context, rec address.MismatchRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[rec.ClientID+"/"+rec.DocumentID] = rec
	return nil
}

func (l *memLedger) Delete(_ context.Context, clientID, documentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, clientID+"/"+documentID)
	return nil
}

func (l *memLedger) MarkResolved(_ context.Context, clientID, documentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[clientID+"/"+documentID]
	if !ok {
		return common.ErrNotFound
	}
	rec.Resolved = true
	l.records[clientID+"/"+documentID] = rec
	return nil
}

func (l *memLedger) ListUnresolved(_ context.Context, clientID string) ([]address.MismatchRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []address.MismatchRecord
	for _, rec := range l.records {
		if rec.ClientID == clientID && !rec.Resolved {
			out = append(out, rec)
		}
	}
	return out, nil
}

func newTestProcessor(store *fakeStore, provider extraction.Provider, dir address.ClientDirectory, ledger address.MismatchLedger) *Processor {
	reg := schema.NewRegistry()
	return NewProcessor(
		store,
		extraction.NewOrchestrator(provider, reg, nil),
		metadata.NewApplier(store, nil),
		address.NewEngine(dir, ledger, nil),
		reg,
		nil,
	)
}

func stageByName(t *testing.T, result DocumentResult, stage constants.Stage) StageResult {
	t.Helper()
	for _, s := range result.Stages {
		if s.Stage == stage {
			return s
		}
	}
	t.Fatalf("stage %s not recorded", stage)
	return StageResult{}
}

func TestProcessDocumentHappyPath(t *testing.T) {
	store := newFakeStore(map[string]string{"f1": "2023 W2 acme.pdf"})
	provider := &fakeProvider{
		byTemplate: map[string]map[string]any{
			constants.TemplateBase: {
				"documentType": "W-2",
				"issuerName":   "Acme Corp",
				"isLegible":    "Yes",
			},
			constants.TemplateIRSW2: {
				"box1Wages": "85,400.50",
			},
		},
		addressRes: map[string]any{
			"street_address": "12 Elm St.",
			"city":           "Springfield",
			"state_province": "IL",
			"postal_code":    "62704",
		},
	}
	dir := &memDirectory{addrs: map[string]address.Address{
		"c1": {Street: "12 Elm Street", City: "Springfield", Region: "IL", Postal: "62704"},
	}}
	ledger := newMemLedger()
	proc := newTestProcessor(store, provider, dir, ledger)

	result := proc.ProcessDocument(context.Background(), Document{ObjectID: "f1", ClientID: "c1"})
	require.False(t, result.Failed)
	for _, s := range result.Stages {
		assert.True(t, s.Success, "stage %s: %s", s.Stage, s.Message)
	}
	assert.Equal(t, constants.StageDone, result.Stages[len(result.Stages)-1].Stage)
	assert.Equal(t, string(constants.DocW2), stageByName(t, result, constants.StageTypeDetermined).Message)

	base, err := store.GetMetadata(context.Background(), "f1", constants.TemplateBase)
	require.NoError(t, err)
	assert.Equal(t, "W-2", base["documentType"])

	w2, err := store.GetMetadata(context.Background(), "f1", constants.TemplateIRSW2)
	require.NoError(t, err)
	assert.Equal(t, 85400.50, w2["box1Wages"])

	addr, err := store.GetMetadata(context.Background(), "f1", constants.TemplateAddressValidation)
	require.NoError(t, err)
	assert.Equal(t, constants.ValidationMatch, addr["validation_status"])
	assert.NotEmpty(t, addr["full_address"])
	assert.Empty(t, ledger.records)
}

func TestProcessDocumentObjectLookupIsTerminal(t *testing.T) {
	store := newFakeStore(map[string]string{})
	proc := newTestProcessor(store, &fakeProvider{}, &memDirectory{addrs: map[string]address.Address{}}, newMemLedger())

	result := proc.ProcessDocument(context.Background(), Document{ObjectID: "missing"})
	assert.True(t, result.Failed)
	assert.Empty(t, result.Stages)
}

func TestProcessDocumentProviderDownDegrades(t *testing.T) {
	store := newFakeStore(map[string]string{"f1": "mortgage statement.pdf"})
	provider := &fakeProvider{err: errors.New("upstream 503")}
	proc := newTestProcessor(store, provider, &memDirectory{addrs: map[string]address.Address{}}, newMemLedger())

	result := proc.ProcessDocument(context.Background(), Document{ObjectID: "f1"})
	require.False(t, result.Failed)

	base := stageByName(t, result, constants.StageBaseExtracted)
	assert.True(t, base.Success)
	assert.True(t, base.UsedFallback)
	// fallback typed the document from its filename
	assert.Equal(t, string(constants.DocMortgageStatement), stageByName(t, result, constants.StageTypeDetermined).Message)

	rec, err := store.GetMetadata(context.Background(), "f1", constants.TemplateBase)
	require.NoError(t, err)
	assert.Equal(t, string(constants.DocMortgageStatement), rec["documentType"])
}

func TestProcessDocumentUnknownTypeSkipsTypePass(t *testing.T) {
	store := newFakeStore(map[string]string{"f1": "scan0001.pdf"})
	provider := &fakeProvider{err: errors.New("upstream 503")}
	proc := newTestProcessor(store, provider, &memDirectory{addrs: map[string]address.Address{}}, newMemLedger())

	result := proc.ProcessDocument(context.Background(), Document{ObjectID: "f1"})
	require.False(t, result.Failed)
	determined := stageByName(t, result, constants.StageTypeDetermined)
	assert.False(t, determined.Success)
	assert.Equal(t, "skipped", stageByName(t, result, constants.StageTypeExtracted).Message)
	// the document still reaches the end of the pipeline
	assert.Equal(t, constants.StageDone, result.Stages[len(result.Stages)-1].Stage)
}

func TestProcessDocumentMismatchRecorded(t *testing.T) {
	store := newFakeStore(map[string]string{"f1": "statement bank.pdf"})
	provider := &fakeProvider{
		byTemplate: map[string]map[string]any{
			constants.TemplateBase:             {"documentType": "Account Statement"},
			constants.TemplateAccountStatement: {"institutionName": "First National"},
		},
		addressRes: map[string]any{
			"street_address": "99 Oak Avenue",
			"city":           "Shelbyville",
			"state_province": "KY",
			"postal_code":    "40065",
		},
	}
	dir := &memDirectory{addrs: map[string]address.Address{
		"c1": {Street: "12 Elm Street", City: "Springfield", Region: "IL", Postal: "62704"},
	}}
	ledger := newMemLedger()
	proc := newTestProcessor(store, provider, dir, ledger)

	result := proc.ProcessDocument(context.Background(), Document{ObjectID: "f1", ClientID: "c1"})
	require.False(t, result.Failed)
	assert.Equal(t, constants.ValidationMismatch, stageByName(t, result, constants.StageCompared).Message)
	require.Len(t, ledger.records, 1)

	addr, err := store.GetMetadata(context.Background(), "f1", constants.TemplateAddressValidation)
	require.NoError(t, err)
	assert.Equal(t, constants.ValidationMismatch, addr["validation_status"])
}

// panickyProvider blows up for one object and behaves normally otherwise.
type panickyProvider struct {
	fakeProvider
	panicObjectID string
}

func (p *panickyProvider) ExtractStructured(ctx context.Context, req extraction.ExtractRequest) (map[string]any, error) {
	if req.ObjectID == p.panicObjectID {
		panic("provider exploded")
	}
	return p.fakeProvider.ExtractStructured(ctx, req)
}

func TestProcessBatchIsolatesPanics(t *testing.T) {
	store := newFakeStore(map[string]string{
		"f0": "2023 1099 acme.pdf",
		"f1": "2023 1099 acme.pdf",
		"f2": "2023 1099 acme.pdf",
	})
	provider := &panickyProvider{
		fakeProvider: fakeProvider{
			byTemplate: map[string]map[string]any{
				constants.TemplateBase:    {"documentType": "1099"},
				constants.TemplateIRS1099: {"formVariant": "INT"},
			},
			addressRes: map[string]any{"street_address": "12 Elm St"},
		},
		panicObjectID: "f1",
	}
	proc := newTestProcessor(store, provider, &memDirectory{addrs: map[string]address.Address{}}, newMemLedger())

	docs := []Document{{ObjectID: "f0"}, {ObjectID: "f1"}, {ObjectID: "f2"}}
	batch := proc.ProcessBatch(context.Background(), docs, BatchOptions{Workers: 2})
	require.Len(t, batch.Results, 3)
	assert.Equal(t, 2, batch.Succeeded)
	assert.Equal(t, 1, batch.Failed)

	assert.False(t, batch.Results[0].Failed)
	assert.False(t, batch.Results[2].Failed)
	failed := batch.Results[1]
	assert.True(t, failed.Failed)
	assert.Equal(t, "f1", failed.Document.ObjectID)
	assert.Contains(t, failed.Err, "panic")
}

func TestProcessBatchBoundedAndOrdered(t *testing.T) {
	objects := map[string]string{}
	var docs []Document
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("f%d", i)
		objects[id] = fmt.Sprintf("doc %d 1099.pdf", i)
		docs = append(docs, Document{ObjectID: id})
	}
	// one document that cannot be looked up
	docs = append(docs, Document{ObjectID: "missing"})

	store := newFakeStore(objects)
	provider := &fakeProvider{
		byTemplate: map[string]map[string]any{
			constants.TemplateBase:    {"documentType": "1099"},
			constants.TemplateIRS1099: {"formVariant": "INT"},
		},
		addressRes: map[string]any{"street_address": "12 Elm St"},
	}
	proc := newTestProcessor(store, provider, &memDirectory{addrs: map[string]address.Address{}}, newMemLedger())

	batch := proc.ProcessBatch(context.Background(), docs, BatchOptions{Workers: 3})
	require.Len(t, batch.Results, len(docs))
	assert.Equal(t, 8, batch.Succeeded)
	assert.Equal(t, 1, batch.Failed)
	for i, res := range batch.Results {
		assert.Equal(t, docs[i].ObjectID, res.Document.ObjectID)
	}
	assert.True(t, batch.Results[len(docs)-1].Failed)
}
