package store

import (
	"encoding/json"
	"fmt"
)

// ResetRelation drops and recreates a relation's table. Called once per
// relation per run: a re-run overwrites the relation, it never merges.
func (s *Store) ResetRelation(relation string) error {
	if err := validRelationName(relation); err != nil {
		return fmt.Errorf("reset relation: %w", err)
	}

	if _, err := s.db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %q`, relation)); err != nil {
		return fmt.Errorf("reset relation %s: drop: %w", relation, err)
	}
	_, err := s.db.Exec(fmt.Sprintf(`
		CREATE TABLE %q (
			seq    INTEGER PRIMARY KEY AUTOINCREMENT,
			record TEXT NOT NULL
		)
	`, relation))
	if err != nil {
		return fmt.Errorf("reset relation %s: create: %w", relation, err)
	}
	return nil
}

// AppendRecord inserts one record into a relation's table as a JSON payload.
// Records accumulate monotonically within a run; nothing is ever rewritten.
func (s *Store) AppendRecord(relation string, record map[string]any) error {
	if err := validRelationName(relation); err != nil {
		return fmt.Errorf("append record: %w", err)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("append record to %s: marshal: %w", relation, err)
	}

	_, err = s.db.Exec(fmt.Sprintf(`INSERT INTO %q (record) VALUES (?)`, relation), string(payload))
	if err != nil {
		return fmt.Errorf("append record to %s: %w", relation, err)
	}
	return nil
}

// CountRecords returns the number of records in a relation's table.
func (s *Store) CountRecords(relation string) (int, error) {
	if err := validRelationName(relation); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}

	var count int
	err := s.db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %q`, relation)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count records in %s: %w", relation, err)
	}
	return count, nil
}
