package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/javault/javault/internal/models"
)

type EntityRepository struct {
	db *sql.DB
}

func NewEntityRepository(db *sql.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

// Resolve maps an entity name to its stable id, inserting a new row only
// when the name is unseen. The single upsert statement makes concurrent
// resolution of the same new name converge on one id: the name column's
// uniqueness constraint decides the winner and the no-op DO UPDATE lets
// the statement return the surviving row's id either way.
func (r *EntityRepository) Resolve(q Querier, kind models.EntityKind, name string, photoPath *string) (uuid.UUID, error) {
	query := fmt.Sprintf(
		`INSERT INTO %s (id, name, photo_path) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, kind.Table())
	var id uuid.UUID
	if err := q.QueryRow(query, uuid.New(), name, photoPath).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("resolve %s %q: %w", kind, name, err)
	}
	return id, nil
}

// Attach ensures exactly one junction row links the movie to the entity.
// Calling it again for the same pair is a no-op.
func (r *EntityRepository) Attach(q Querier, kind models.EntityKind, movieID, entityID uuid.UUID) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (movie_id, %s) VALUES ($1, $2)
		ON CONFLICT (movie_id, %s) DO NOTHING`,
		kind.MappingTable(), kind.JoinColumn(), kind.JoinColumn())
	if _, err := q.Exec(query, movieID, entityID); err != nil {
		return fmt.Errorf("attach %s %s to movie %s: %w", kind, entityID, movieID, err)
	}
	return nil
}

// GetByID returns (nil, nil) when no entity of the kind has the id.
func (r *EntityRepository) GetByID(kind models.EntityKind, id uuid.UUID) (*models.Entity, error) {
	query := fmt.Sprintf(
		`SELECT id, name, photo_path, updated_at FROM %s WHERE id = $1`, kind.Table())
	e := &models.Entity{}
	err := r.db.QueryRow(query, id).Scan(&e.ID, &e.Name, &e.PhotoPath, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListIDsByMovie returns the entity ids linked to a movie, in attach order.
func (r *EntityRepository) ListIDsByMovie(kind models.EntityKind, movieID uuid.UUID) ([]uuid.UUID, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE movie_id = $1 ORDER BY id`,
		kind.JoinColumn(), kind.MappingTable())
	rows, err := r.db.Query(query, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
