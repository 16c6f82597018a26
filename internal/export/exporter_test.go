package export

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memorySource is an in-memory Source keyed by slash-separated collection
// path. It records every fetched path so tests can assert walk boundaries.
type memorySource struct {
	collections map[string][]Document
	subs        map[string][]string

	fetchPaths []string
	failFetch  map[string]bool
	failList   map[string]bool
}

func (s *memorySource) FetchPage(ctx context.Context, path string, offset, limit int) ([]Document, error) {
	s.fetchPaths = append(s.fetchPaths, path)
	if s.failFetch[path] {
		return nil, errors.New("simulated fetch failure")
	}
	docs := s.collections[path]
	if offset >= len(docs) {
		return nil, nil
	}
	end := offset + limit
	if end > len(docs) {
		end = len(docs)
	}
	return docs[offset:end], nil
}

func (s *memorySource) ListSubcollections(ctx context.Context, docPath string) ([]string, error) {
	if s.failList[docPath] {
		return nil, errors.New("simulated listing failure")
	}
	return s.subs[docPath], nil
}

// memoryWriter captures appended records per relation.
type memoryWriter struct {
	records  map[string][]map[string]any
	failOn   string
	finished bool
}

func newMemoryWriter() *memoryWriter {
	return &memoryWriter{records: make(map[string][]map[string]any)}
}

func (w *memoryWriter) Append(relation string, record map[string]any) error {
	if relation == w.failOn {
		return errors.New("simulated write failure")
	}
	w.records[relation] = append(w.records[relation], record)
	return nil
}

func (w *memoryWriter) Finish() error {
	w.finished = true
	return nil
}

func teamsSource() *memorySource {
	return &memorySource{
		collections: map[string][]Document{
			"teams": {
				{ID: "t1", Data: map[string]any{"name": "alpha"}},
				{ID: "t2", Data: map[string]any{"name": "beta"}},
			},
			"teams/t1/members": {
				{ID: "m1", Data: map[string]any{"role": "lead"}},
				{ID: "m2", Data: map[string]any{"role": "dev"}},
				{ID: "m3", Data: map[string]any{"role": "dev"}},
			},
			"teams/t2/members": {
				{ID: "m4", Data: map[string]any{"role": "lead"}},
				{ID: "m5", Data: map[string]any{"role": "ops"}},
				{ID: "m6", Data: map[string]any{"role": "dev"}},
			},
		},
		subs: map[string][]string{
			"teams/t1": {"members"},
			"teams/t2": {"members"},
		},
	}
}

func TestExport_RootAndOneSubcollectionLevel(t *testing.T) {
	source := teamsSource()
	writer := newMemoryWriter()

	stats, err := New(source, writer, nil, nil).Export(context.Background(), Options{
		Collection:            "teams",
		IncludeSubcollections: true,
		MaxDepth:              1,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Counts["teams"])
	assert.Equal(t, 6, stats.Counts["teams_members"])
	assert.True(t, writer.finished)

	// Every child record links back to an exported root document.
	rootIDs := map[string]bool{"t1": true, "t2": true}
	for _, rec := range writer.records["teams_members"] {
		assert.Equal(t, "teams", rec[FieldParentCollection])
		assert.True(t, rootIDs[rec[FieldParentDocumentID].(string)],
			"parent %v is not an exported root document", rec[FieldParentDocumentID])
		assert.Equal(t, "teams/members", rec[FieldCollectionPath])
	}

	// Root records carry no linkage fields.
	for _, rec := range writer.records["teams"] {
		assert.NotContains(t, rec, FieldParentCollection)
		assert.NotContains(t, rec, FieldParentDocumentID)
		assert.NotContains(t, rec, FieldCollectionPath)
	}
}

func TestExport_MaxDepthZeroExportsRootOnly(t *testing.T) {
	source := teamsSource()
	writer := newMemoryWriter()

	stats, err := New(source, writer, nil, nil).Export(context.Background(), Options{
		Collection:            "teams",
		IncludeSubcollections: true,
		MaxDepth:              0,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Counts["teams"])
	assert.NotContains(t, stats.Counts, "teams_members")

	// No fetch beyond the root collection was ever issued.
	for _, path := range source.fetchPaths {
		assert.Equal(t, "teams", path)
	}
}

func TestExport_DepthBoundStopsFetching(t *testing.T) {
	source := teamsSource()
	// Deeper data exists but must never be fetched at MaxDepth=1.
	source.subs["teams/t1/members/m1"] = []string{"badges"}
	source.collections["teams/t1/members/m1/badges"] = []Document{
		{ID: "b1", Data: map[string]any{"kind": "gold"}},
	}

	writer := newMemoryWriter()
	stats, err := New(source, writer, nil, nil).Export(context.Background(), Options{
		Collection:            "teams",
		IncludeSubcollections: true,
		MaxDepth:              1,
	})
	require.NoError(t, err)

	assert.NotContains(t, stats.Counts, "teams_members_badges")
	assert.NotContains(t, source.fetchPaths, "teams/t1/members/m1/badges")
}

func TestExport_IdentityUsesFirstFreeCandidate(t *testing.T) {
	source := &memorySource{
		collections: map[string][]Document{
			"users": {
				{ID: "u1", Data: map[string]any{"name": "ada"}},
				{ID: "u2", Data: map[string]any{"name": "bo", "firestore_id": "kept"}},
			},
		},
	}
	writer := newMemoryWriter()

	_, err := New(source, writer, nil, nil).Export(context.Background(), Options{Collection: "users"})
	require.NoError(t, err)
	require.Len(t, writer.records["users"], 2)

	assert.Equal(t, "u1", writer.records["users"][0]["firestore_id"])

	// Occupied first candidate: identifier lands on the next free field and
	// the existing value is untouched.
	second := writer.records["users"][1]
	assert.Equal(t, "kept", second["firestore_id"])
	assert.Equal(t, "u2", second["firestore_doc_id"])
}

func TestExport_IdentityDroppedWhenAllCandidatesTaken(t *testing.T) {
	data := map[string]any{
		"firestore_id":     "a",
		"firestore_doc_id": "b",
		"original_doc_id":  "c",
		"fs_id":            "d",
	}
	source := &memorySource{
		collections: map[string][]Document{
			"users": {{ID: "u1", Data: data}},
		},
	}
	writer := newMemoryWriter()

	_, err := New(source, writer, nil, nil).Export(context.Background(), Options{Collection: "users"})
	require.NoError(t, err)

	rec := writer.records["users"][0]
	for field, want := range data {
		assert.Equal(t, want, rec[field])
	}
	// The store identifier "u1" appears nowhere: silently dropped.
	for _, v := range rec {
		assert.NotEqual(t, "u1", v)
	}
}

func TestExport_TransformRunsBeforeIdentity(t *testing.T) {
	source := &memorySource{
		collections: map[string][]Document{
			"users": {{ID: "u1", Data: map[string]any{"name": "ada"}}},
		},
	}
	writer := newMemoryWriter()
	transform := func(collectionPath string, doc Document) Document {
		doc.Data["path_seen"] = collectionPath
		doc.Data["name"] = "ADA"
		return doc
	}

	_, err := New(source, writer, transform, nil).Export(context.Background(), Options{Collection: "users"})
	require.NoError(t, err)

	rec := writer.records["users"][0]
	assert.Equal(t, "ADA", rec["name"])
	assert.Equal(t, "users", rec["path_seen"])
	assert.Equal(t, "u1", rec["firestore_id"])
}

func TestExport_SubcollectionFailureIsContained(t *testing.T) {
	source := teamsSource()
	source.failFetch = map[string]bool{"teams/t1/members": true}

	writer := newMemoryWriter()
	stats, err := New(source, writer, nil, nil).Export(context.Background(), Options{
		Collection:            "teams",
		IncludeSubcollections: true,
		MaxDepth:              1,
	})
	require.NoError(t, err)

	// Both roots and the sibling subcollection still exported.
	assert.Equal(t, 2, stats.Counts["teams"])
	assert.Equal(t, 3, stats.Counts["teams_members"])
}

func TestExport_ListingFailureIsContained(t *testing.T) {
	source := teamsSource()
	source.failList = map[string]bool{"teams/t1": true}

	writer := newMemoryWriter()
	stats, err := New(source, writer, nil, nil).Export(context.Background(), Options{
		Collection:            "teams",
		IncludeSubcollections: true,
		MaxDepth:              1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Counts["teams"])
	assert.Equal(t, 3, stats.Counts["teams_members"])
}

func TestExport_RootFetchFailureFinalizesWriter(t *testing.T) {
	source := &memorySource{failFetch: map[string]bool{"users": true}}
	writer := newMemoryWriter()

	_, err := New(source, writer, nil, nil).Export(context.Background(), Options{Collection: "users"})
	require.Error(t, err)
	assert.True(t, writer.finished, "writer must be finalized even on walk failure")
}

// Fixed-ID layouts (users/{id}/profile/main) repeat the same document ID
// under every parent; each occurrence is a distinct document and must be
// exported with its own linkage.
func TestExport_SharedChildIDAcrossParents(t *testing.T) {
	source := &memorySource{
		collections: map[string][]Document{
			"users": {
				{ID: "u1", Data: map[string]any{"name": "ada"}},
				{ID: "u2", Data: map[string]any{"name": "bo"}},
			},
			"users/u1/profile": {
				{ID: "main", Data: map[string]any{"bio": "ada's bio"}},
			},
			"users/u2/profile": {
				{ID: "main", Data: map[string]any{"bio": "bo's bio"}},
			},
		},
		subs: map[string][]string{
			"users/u1": {"profile"},
			"users/u2": {"profile"},
		},
	}
	writer := newMemoryWriter()

	stats, err := New(source, writer, nil, nil).Export(context.Background(), Options{
		Collection:            "users",
		IncludeSubcollections: true,
		MaxDepth:              1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Counts["users_profile"])

	parents := map[string]bool{}
	for _, rec := range writer.records["users_profile"] {
		parents[rec[FieldParentDocumentID].(string)] = true
	}
	assert.True(t, parents["u1"] && parents["u2"], "both parents' profiles must survive, got %v", parents)
}

func TestExport_DuplicateDocumentIDsWrittenOnce(t *testing.T) {
	source := &memorySource{
		collections: map[string][]Document{
			"users": {
				{ID: "u1", Data: map[string]any{"v": 1}},
				{ID: "u1", Data: map[string]any{"v": 2}},
			},
		},
	}
	writer := newMemoryWriter()

	stats, err := New(source, writer, nil, nil).Export(context.Background(), Options{Collection: "users"})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Counts["users"])
	assert.Len(t, writer.records["users"], 1)
}

func TestExport_GlobalLimitCapsRootDocuments(t *testing.T) {
	source := teamsSource()
	writer := newMemoryWriter()

	stats, err := New(source, writer, nil, nil).Export(context.Background(), Options{
		Collection: "teams",
		Limit:      1,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Counts["teams"])
}

func TestExport_WriteFailureSkipsCountOnly(t *testing.T) {
	source := teamsSource()
	writer := newMemoryWriter()
	writer.failOn = "teams_members"

	stats, err := New(source, writer, nil, nil).Export(context.Background(), Options{
		Collection:            "teams",
		IncludeSubcollections: true,
		MaxDepth:              1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Counts["teams"])
	assert.Equal(t, 0, stats.Counts["teams_members"])
}

func TestExport_CanceledContext(t *testing.T) {
	source := teamsSource()
	writer := newMemoryWriter()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(source, writer, nil, nil).Export(ctx, Options{Collection: "teams"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, writer.finished)
}

func TestExport_MissingCollectionName(t *testing.T) {
	_, err := New(teamsSource(), newMemoryWriter(), nil, nil).Export(context.Background(), Options{})
	assert.Error(t, err)
}
