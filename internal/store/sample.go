package store

import (
	"database/sql"
	"encoding/json"

	"github.com/ayusman/mudra/internal/classify"
	"github.com/ayusman/mudra/internal/feature"
)

// SampleRepository provides access to recorded samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Append inserts a batch of recorded samples in a single transaction.
func (r *SampleRepository) Append(samples []classify.Sample) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO samples (session_id, label, vector, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range samples {
		vec, err := json.Marshal(s.Vector)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(s.SessionID, string(s.Label), string(vec), s.Timestamp); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Dataset loads every recorded sample into a dataset, in recording order.
func (r *SampleRepository) Dataset() (*classify.Dataset, error) {
	rows, err := r.db.Query(
		`SELECT session_id, label, vector, created_at FROM samples ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ds := classify.NewDataset()
	for rows.Next() {
		var s classify.Sample
		var label, vec string
		if err := rows.Scan(&s.SessionID, &label, &vec, &s.Timestamp); err != nil {
			return nil, err
		}
		s.Label = classify.Label(label)
		var v feature.Vector
		if err := json.Unmarshal([]byte(vec), &v); err != nil {
			return nil, err
		}
		s.Vector = v
		ds.Add(s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ds, nil
}

// CountByLabel returns the sample count per label.
func (r *SampleRepository) CountByLabel() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT label, COUNT(*) FROM samples GROUP BY label ORDER BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		counts[label] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

// DeleteByLabel removes every sample for a label. Returns ErrNotFound when
// the label has no samples.
func (r *SampleRepository) DeleteByLabel(label string) error {
	result, err := r.db.Exec(`DELETE FROM samples WHERE label = ?`, label)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
