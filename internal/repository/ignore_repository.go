package repository

import (
	"database/sql"
	"time"

	"github.com/javault/javault/internal/models"
)

// IgnoreRepository remembers compound keys whose extraction yielded no
// usable associations, so later lookups short-circuit without re-fetching.
type IgnoreRepository struct {
	db *sql.DB
}

func NewIgnoreRepository(db *sql.DB) *IgnoreRepository {
	return &IgnoreRepository{db: db}
}

func (r *IgnoreRepository) Mark(key models.MovieKey) error {
	_, err := r.db.Exec(
		`INSERT INTO ignored_movies (company_name, company_id) VALUES ($1, $2)
		ON CONFLICT (company_name, company_id) DO NOTHING`,
		key.CompanyName, key.CompanyID)
	return err
}

func (r *IgnoreRepository) IsIgnored(key models.MovieKey) (bool, error) {
	var one int
	err := r.db.QueryRow(
		`SELECT 1 FROM ignored_movies WHERE company_name = $1 AND company_id = $2`,
		key.CompanyName, key.CompanyID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *IgnoreRepository) Remove(key models.MovieKey) error {
	_, err := r.db.Exec(
		`DELETE FROM ignored_movies WHERE company_name = $1 AND company_id = $2`,
		key.CompanyName, key.CompanyID)
	return err
}

// ListStale returns keys ignored before the cutoff, oldest first, for the
// periodic re-scrape sweep.
func (r *IgnoreRepository) ListStale(before time.Time, limit int) ([]models.MovieKey, error) {
	rows, err := r.db.Query(
		`SELECT company_name, company_id FROM ignored_movies
		WHERE created_at < $1 ORDER BY created_at LIMIT $2`, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []models.MovieKey
	for rows.Next() {
		var k models.MovieKey
		if err := rows.Scan(&k.CompanyName, &k.CompanyID); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
