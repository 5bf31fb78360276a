package catalog

import (
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/javault/javault/internal/models"
)

// GetByID returns the assembled record, or (nil, nil) when the id is
// unknown. A miss is an empty result, not an error.
func (s *Service) GetByID(id uuid.UUID) (*models.MovieDetail, error) {
	m, err := s.movies.GetByID(id)
	if err != nil || m == nil {
		return nil, err
	}
	return s.assemble(m)
}

// List returns one page of records, newest release first, plus the total.
func (s *Service) List(page, size int) (*models.MovieList, error) {
	page, size = normalizePage(page, size)

	movies, err := s.movies.List(page, size)
	if err != nil {
		return nil, err
	}
	total, err := s.movies.Count()
	if err != nil {
		return nil, err
	}

	list := &models.MovieList{Movies: []*models.MovieDetail{}, Total: total, Page: page, Size: size}
	for _, m := range movies {
		detail, err := s.assemble(m)
		if err != nil {
			return nil, err
		}
		list.Movies = append(list.Movies, detail)
	}
	return list, nil
}

// ListByEntity returns the page of records linked to the entity, most
// recently linked first, along with the entity's own info and the total
// junction count. Returns (nil, nil) when the entity does not exist.
func (s *Service) ListByEntity(kind models.EntityKind, entityID uuid.UUID, page, size int) (*models.EntityMovieList, error) {
	page, size = normalizePage(page, size)

	info, err := s.entity(kind, entityID)
	if err != nil || info == nil {
		return nil, err
	}

	ids, err := s.movies.ListIDsByEntity(kind, entityID, page, size)
	if err != nil {
		return nil, err
	}
	total, err := s.movies.CountByEntity(kind, entityID)
	if err != nil {
		return nil, err
	}

	list := &models.EntityMovieList{Entity: info, Movies: []*models.MovieDetail{}, Total: total, Page: page, Size: size}
	for _, id := range ids {
		detail, err := s.GetByID(id)
		if err != nil {
			return nil, err
		}
		if detail != nil {
			list.Movies = append(list.Movies, detail)
		}
	}
	return list, nil
}

// assemble reconstitutes a full record from its normalized pieces: proxied
// cover, display code, and associations fetched through the entity cache.
func (s *Service) assemble(m *models.Movie) (*models.MovieDetail, error) {
	detail := &models.MovieDetail{
		ID:            m.ID,
		Title:         m.Title,
		JavID:         m.Key().Display(),
		PosterFileURL: s.rewrite.Proxify(m.CoverPath),
		ReleaseDate:   m.ReleaseDate,
		UpdatedAt:     m.UpdatedAt,
		Tags:          []models.EntityInfo{},
		Stars:         []models.EntityInfo{},
	}

	for _, kind := range models.Kinds {
		ids, err := s.entities.ListIDsByMovie(kind, m.ID)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			info, err := s.entity(kind, id)
			if err != nil {
				return nil, err
			}
			if info == nil {
				continue
			}
			switch kind {
			case models.KindTag:
				detail.Tags = append(detail.Tags, *info)
			case models.KindStar:
				detail.Stars = append(detail.Stars, *info)
			case models.KindSeries:
				if detail.Series == nil {
					detail.Series = info
				}
			}
		}
	}
	return detail, nil
}

// entity reads an entity through the memoizing cache. Entities are
// immutable once created, so hits never expire; misses are not cached so a
// just-resolved id is visible on the next read.
func (s *Service) entity(kind models.EntityKind, id uuid.UUID) (*models.EntityInfo, error) {
	cacheKey := kind.String() + ":" + id.String()
	if v, ok := s.cache.Get(cacheKey); ok {
		return v.(*models.EntityInfo), nil
	}

	e, err := s.entities.GetByID(kind, id)
	if err != nil || e == nil {
		return nil, err
	}

	info := &models.EntityInfo{ID: e.ID, Name: e.Name}
	if e.PhotoPath != nil {
		info.PhotoURL = s.rewrite.Proxify(*e.PhotoPath)
	}
	s.cache.Set(cacheKey, info, gocache.NoExpiration)
	return info, nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	return page, size
}
