package store

import (
	"database/sql"
	"errors"

	"github.com/ayusman/mudra/internal/classify"
)

// ModelRepository provides access to persisted model artifacts.
type ModelRepository struct {
	db *sql.DB
}

// Models returns the model repository for this store.
func (s *Store) Models() *ModelRepository {
	return &ModelRepository{db: s.db}
}

// Save persists a trained artifact.
func (r *ModelRepository) Save(a *classify.Artifact) error {
	data, err := a.Encode()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(
		`INSERT INTO models (id, kind, artifact, created_at) VALUES (?, ?, ?, ?)`,
		a.ID, string(a.Kind), string(data), a.CreatedAt,
	)
	return err
}

// Latest returns the most recently created artifact.
func (r *ModelRepository) Latest() (*classify.Artifact, error) {
	var data string
	err := r.db.QueryRow(
		`SELECT artifact FROM models ORDER BY created_at DESC, id DESC LIMIT 1`,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return classify.DecodeArtifact([]byte(data))
}

// GetByID returns the artifact with the given id.
func (r *ModelRepository) GetByID(id string) (*classify.Artifact, error) {
	var data string
	err := r.db.QueryRow(`SELECT artifact FROM models WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return classify.DecodeArtifact([]byte(data))
}
