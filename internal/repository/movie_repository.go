package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/javault/javault/internal/models"
)

type MovieRepository struct {
	db *sql.DB
}

func NewMovieRepository(db *sql.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

const movieColumns = `id, title, company_name, company_id, cover_path, release_date, updated_at`

func scanMovie(row interface{ Scan(...interface{}) error }) (*models.Movie, error) {
	m := &models.Movie{}
	err := row.Scan(&m.ID, &m.Title, &m.CompanyName, &m.CompanyID,
		&m.CoverPath, &m.ReleaseDate, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Create inserts the base row. The compound key carries a uniqueness
// constraint, so a concurrent insert of the same key fails instead of
// producing a second row.
func (r *MovieRepository) Create(q Querier, m *models.Movie) error {
	query := `INSERT INTO movies (id, title, company_name, company_id, cover_path, release_date)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING updated_at`
	return q.QueryRow(query, m.ID, m.Title, m.CompanyName, m.CompanyID,
		m.CoverPath, m.ReleaseDate).Scan(&m.UpdatedAt)
}

// GetByID returns (nil, nil) when no movie exists with the id.
func (r *MovieRepository) GetByID(id uuid.UUID) (*models.Movie, error) {
	return scanMovie(r.db.QueryRow(
		`SELECT `+movieColumns+` FROM movies WHERE id = $1`, id))
}

// GetByKey returns (nil, nil) when the compound key is unknown.
func (r *MovieRepository) GetByKey(key models.MovieKey) (*models.Movie, error) {
	return scanMovie(r.db.QueryRow(
		`SELECT `+movieColumns+` FROM movies WHERE company_name = $1 AND company_id = $2`,
		key.CompanyName, key.CompanyID))
}

// List returns one page of movies ordered by release date, newest first.
func (r *MovieRepository) List(page, size int) ([]*models.Movie, error) {
	rows, err := r.db.Query(
		`SELECT `+movieColumns+` FROM movies
		ORDER BY release_date DESC, updated_at DESC LIMIT $1 OFFSET $2`,
		size, (page-1)*size)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movies []*models.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, m)
	}
	return movies, rows.Err()
}

func (r *MovieRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM movies`).Scan(&n)
	return n, err
}

// ListIDsByEntity returns one page of movie ids linked to the entity,
// most recently linked first (junction row id descending).
func (r *MovieRepository) ListIDsByEntity(kind models.EntityKind, entityID uuid.UUID, page, size int) ([]uuid.UUID, error) {
	query := fmt.Sprintf(
		`SELECT movie_id FROM %s WHERE %s = $1 ORDER BY id DESC LIMIT $2 OFFSET $3`,
		kind.MappingTable(), kind.JoinColumn())
	rows, err := r.db.Query(query, entityID, size, (page-1)*size)
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

func (r *MovieRepository) CountByEntity(kind models.EntityKind, entityID uuid.UUID) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`,
		kind.MappingTable(), kind.JoinColumn())
	var n int
	err := r.db.QueryRow(query, entityID).Scan(&n)
	return n, err
}
