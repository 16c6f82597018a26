package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firelift/firelift/internal/store"
)

func TestSQLiteWriter_AppendAndRerun(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "export.db"))
	require.NoError(t, err)
	defer st.Close()

	w := NewSQLiteWriter(st)
	require.NoError(t, w.Append("users", map[string]any{"id": "u1"}))
	require.NoError(t, w.Append("users", map[string]any{"id": "u2"}))
	require.NoError(t, w.Finish())

	count, err := st.CountRecords("users")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// A fresh writer models a re-run: first Append resets the relation.
	w2 := NewSQLiteWriter(st)
	require.NoError(t, w2.Append("users", map[string]any{"id": "u3"}))
	require.NoError(t, w2.Finish())

	count, err = st.CountRecords("users")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteWriter_InvalidRelationName(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "export.db"))
	require.NoError(t, err)
	defer st.Close()

	w := NewSQLiteWriter(st)
	assert.Error(t, w.Append("DROP TABLE", map[string]any{}))
}
