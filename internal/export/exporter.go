package export

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// identityCandidates are the field names tried, in fixed order, for
// preserving a document's original store identifier on the exported record.
// If the source document already occupies all four, the identifier is
// dropped silently; this mirrors observed source behavior and is flagged as
// ambiguous, not fixed here.
var identityCandidates = [4]string{"firestore_id", "firestore_doc_id", "original_doc_id", "fs_id"}

// Linkage field names stamped on every non-root record.
const (
	FieldParentCollection = "parentCollection"
	FieldParentDocumentID = "parentDocumentId"
	FieldCollectionPath   = "collectionPath"
)

// Options configures one export run. MaxDepth strictly bounds recursion and
// SubcollectionLimit strictly bounds per-collection fan-out; both are
// correctness guards against unbounded or accidentally cyclic hierarchies,
// not performance tweaks.
type Options struct {
	Collection            string
	BatchSize             int
	Limit                 int // 0 = no global cap
	IncludeSubcollections bool
	MaxDepth              int
	SubcollectionLimit    int
}

// Stats is the run-scoped accumulator: per-relation record counts. Created
// fresh per Export call, single writer, never reused across runs.
type Stats struct {
	Counts map[string]int

	// seen tracks (relation, store path) pairs for deduplication. The full
	// document path is the key, not the bare ID: distinct documents under
	// different parents may share a fixed ID (users/{id}/profile/main).
	seen map[string]map[string]bool
}

func newStats() *Stats {
	return &Stats{Counts: make(map[string]int), seen: make(map[string]map[string]bool)}
}

func (s *Stats) markSeen(relation, docPath string) bool {
	paths, ok := s.seen[relation]
	if !ok {
		paths = make(map[string]bool)
		s.seen[relation] = paths
	}
	if paths[docPath] {
		return false
	}
	paths[docPath] = true
	return true
}

// Exporter walks a document tree depth-first and sequentially, flattening
// each collection level into its own relation.
type Exporter struct {
	source    Source
	writer    RelationWriter
	transform TransformFunc
	log       *zap.Logger
}

// New returns an Exporter. transform may be nil.
func New(source Source, writer RelationWriter, transform TransformFunc, log *zap.Logger) *Exporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{source: source, writer: writer, transform: transform, log: log}
}

// Export pages through the root collection and writes every reached record.
// Per-record counts are returned; writer finalization runs even when paging
// stops early on error or cancellation, so partial output stays valid.
func (e *Exporter) Export(ctx context.Context, opts Options) (*Stats, error) {
	if opts.Collection == "" {
		return nil, fmt.Errorf("export: collection name is required")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.SubcollectionLimit <= 0 {
		opts.SubcollectionLimit = 100
	}

	stats := newStats()
	rootRelation := SanitizeIdentifier(opts.Collection)

	walkErr := e.pageRoot(ctx, opts, rootRelation, stats)

	if err := e.writer.Finish(); err != nil {
		e.log.Warn("finalizing writer", zap.Error(err))
		if walkErr == nil {
			walkErr = err
		}
	}

	for relation, count := range stats.Counts {
		e.log.Info("exported relation", zap.String("relation", relation), zap.Int("records", count))
	}
	return stats, walkErr
}

// pageRoot is the Paging state: fetch fixed-size batches of root documents
// until the store is exhausted or the optional global limit is reached.
func (e *Exporter) pageRoot(ctx context.Context, opts Options, rootRelation string, stats *Stats) error {
	offset := 0
	exported := 0
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("export canceled: %w", err)
		}

		batch := opts.BatchSize
		if opts.Limit > 0 && opts.Limit-exported < batch {
			batch = opts.Limit - exported
		}
		if batch <= 0 {
			return nil
		}

		docs, err := e.source.FetchPage(ctx, opts.Collection, offset, batch)
		if err != nil {
			return fmt.Errorf("paging %s: %w", opts.Collection, err)
		}
		if len(docs) == 0 {
			return nil
		}

		for _, doc := range docs {
			e.walkDocument(ctx, walkFrame{
				relation:       rootRelation,
				logicalPath:    opts.Collection,
				collectionPath: opts.Collection,
				depth:          0,
			}, doc, opts, stats)
		}

		offset += len(docs)
		exported += len(docs)
		e.log.Debug("page complete", zap.String("collection", opts.Collection), zap.Int("offset", offset))
	}
}

// walkFrame carries the per-level walk state through the recursion.
type walkFrame struct {
	relation       string // output relation name for this level
	logicalPath    string // collection-name chain, no document IDs
	collectionPath string // physical store path, with document IDs
	depth          int

	// parent linkage; zero values at the root.
	parentCollection string
	parentDocumentID string
}

// walkDocument is the PerDocument state: apply the transform hook, preserve
// the original identity, stamp linkage on non-root records, descend into
// subcollections while depth allows, then write the record.
func (e *Exporter) walkDocument(ctx context.Context, frame walkFrame, doc Document, opts Options, stats *Stats) {
	if e.transform != nil {
		doc = e.transform(frame.logicalPath, doc)
	}

	record := make(map[string]any, len(doc.Data)+4)
	for k, v := range doc.Data {
		record[k] = v
	}
	assignIdentity(record, doc.ID)

	if frame.depth > 0 {
		record[FieldParentCollection] = frame.parentCollection
		record[FieldParentDocumentID] = frame.parentDocumentID
		record[FieldCollectionPath] = frame.logicalPath
	}

	if opts.IncludeSubcollections && frame.depth < opts.MaxDepth {
		e.walkSubcollections(ctx, frame, doc.ID, opts, stats)
	}

	// Written state: dedup, then persist immediately for crash safety.
	if !stats.markSeen(frame.relation, frame.collectionPath+"/"+doc.ID) {
		return
	}
	if err := e.writer.Append(frame.relation, record); err != nil {
		e.log.Error("writing record",
			zap.String("relation", frame.relation),
			zap.String("doc_id", doc.ID),
			zap.Error(err))
		return
	}
	stats.Counts[frame.relation]++
}

// walkSubcollections is the SubcollectionWalk state. A listing or fetch
// error degrades that single collection to an empty result: siblings and the
// parent walk are unaffected.
func (e *Exporter) walkSubcollections(ctx context.Context, frame walkFrame, docID string, opts Options, stats *Stats) {
	docPath := frame.collectionPath + "/" + docID

	names, err := e.source.ListSubcollections(ctx, docPath)
	if err != nil {
		e.log.Error("listing subcollections", zap.String("doc", docPath), zap.Error(err))
		return
	}

	for _, name := range names {
		childPath := docPath + "/" + name
		children, err := e.source.FetchPage(ctx, childPath, 0, opts.SubcollectionLimit)
		if err != nil {
			e.log.Error("fetching subcollection", zap.String("collection", childPath), zap.Error(err))
			continue
		}

		child := walkFrame{
			relation:         frame.relation + "_" + SanitizeIdentifier(name),
			logicalPath:      frame.logicalPath + "/" + name,
			collectionPath:   childPath,
			depth:            frame.depth + 1,
			parentCollection: lastSegment(frame.logicalPath),
			parentDocumentID: docID,
		}
		for _, childDoc := range children {
			e.walkDocument(ctx, child, childDoc, opts, stats)
		}
	}
}

// assignIdentity preserves the document's store identifier under the first
// unoccupied candidate field name. If every candidate is taken the
// identifier is dropped without a warning (see identityCandidates).
func assignIdentity(record map[string]any, docID string) {
	for _, name := range identityCandidates {
		if _, taken := record[name]; !taken {
			record[name] = docID
			return
		}
	}
}

func lastSegment(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
