package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// RelationWriter persists exported records incrementally, one relation per
// backing location. Append is called once per record as soon as the record
// is produced; Finish performs any finalization a backend needs (closing
// array brackets, flushing, releasing handles).
//
// Re-running an export overwrites each relation's backing location rather
// than merging into it.
type RelationWriter interface {
	Append(relation string, record map[string]any) error
	Finish() error
}

// JSONWriter writes one reloadable JSON array file per relation under a
// directory. Records are appended as they arrive; an interrupted run leaves
// a partial but inspectable file that Finish would have closed with the
// trailing bracket.
type JSONWriter struct {
	dir   string
	files map[string]*os.File
}

// NewJSONWriter creates the output directory if needed.
func NewJSONWriter(dir string) (*JSONWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating export dir: %w", err)
	}
	return &JSONWriter{dir: dir, files: make(map[string]*os.File)}, nil
}

// Append writes one record to the relation's file, creating (and truncating)
// the file the first time the relation is seen in this run. The record is
// marshaled before anything is written, so a marshal failure leaves the file
// without a dangling separator and later appends stay valid.
func (w *JSONWriter) Append(relation string, record map[string]any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling record for %s: %w", relation, err)
	}

	f, seen := w.files[relation]
	if !seen {
		f, err = os.Create(filepath.Join(w.dir, relation+".json"))
		if err != nil {
			return fmt.Errorf("creating relation file %s: %w", relation, err)
		}
		if _, err := f.WriteString("[\n"); err != nil {
			return fmt.Errorf("writing relation %s: %w", relation, err)
		}
		w.files[relation] = f
	} else {
		if _, err := f.WriteString(",\n"); err != nil {
			return fmt.Errorf("writing relation %s: %w", relation, err)
		}
	}

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing relation %s: %w", relation, err)
	}
	return nil
}

// Finish closes every relation's array bracket and file handle.
func (w *JSONWriter) Finish() error {
	var firstErr error
	for relation, f := range w.files {
		if _, err := f.WriteString("\n]\n"); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("finalizing relation %s: %w", relation, err)
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing relation %s: %w", relation, err)
		}
	}
	w.files = make(map[string]*os.File)
	return firstErr
}
