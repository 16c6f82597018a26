package export

import (
	"github.com/firelift/firelift/internal/store"
)

// SQLiteWriter adapts the relation store to the RelationWriter interface.
// Each relation's table is reset the first time it is seen in a run, so a
// re-run overwrites rather than merges.
type SQLiteWriter struct {
	store   *store.Store
	created map[string]bool
}

// NewSQLiteWriter wraps an opened store. The caller owns the store's
// lifecycle; Finish does not close it.
func NewSQLiteWriter(st *store.Store) *SQLiteWriter {
	return &SQLiteWriter{store: st, created: make(map[string]bool)}
}

// Append implements RelationWriter.
func (w *SQLiteWriter) Append(relation string, record map[string]any) error {
	if !w.created[relation] {
		if err := w.store.ResetRelation(relation); err != nil {
			return err
		}
		w.created[relation] = true
	}
	return w.store.AppendRecord(relation, record)
}

// Finish implements RelationWriter. SQLite inserts are already durable per
// statement, so there is nothing to finalize.
func (w *SQLiteWriter) Finish() error {
	return nil
}
