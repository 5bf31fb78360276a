package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/javault/javault/internal/mediaurl"
	"github.com/javault/javault/internal/models"
	"github.com/javault/javault/internal/repository"
	"github.com/javault/javault/internal/source"
)

// ErrNoResult means the key has no catalogable record: the source had no
// page for it, or extraction produced nothing worth keeping. It is a
// definitive outcome, not a failure.
var ErrNoResult = errors.New("catalog: no result for key")

// Store is the transactional store handle; the live *db.DB satisfies it.
type Store interface {
	repository.Querier
	RunInTx(ctx context.Context, fn func(q repository.Querier) error) error
}

type movieStore interface {
	Create(q repository.Querier, m *models.Movie) error
	GetByID(id uuid.UUID) (*models.Movie, error)
	GetByKey(key models.MovieKey) (*models.Movie, error)
	List(page, size int) ([]*models.Movie, error)
	Count() (int, error)
	ListIDsByEntity(kind models.EntityKind, entityID uuid.UUID, page, size int) ([]uuid.UUID, error)
	CountByEntity(kind models.EntityKind, entityID uuid.UUID) (int, error)
}

type entityStore interface {
	Resolve(q repository.Querier, kind models.EntityKind, name string, photoPath *string) (uuid.UUID, error)
	Attach(q repository.Querier, kind models.EntityKind, movieID, entityID uuid.UUID) error
	GetByID(kind models.EntityKind, id uuid.UUID) (*models.Entity, error)
	ListIDsByMovie(kind models.EntityKind, movieID uuid.UUID) ([]uuid.UUID, error)
}

type ignoreStore interface {
	Mark(key models.MovieKey) error
	IsIgnored(key models.MovieKey) (bool, error)
}

type fetcher interface {
	FetchDocument(ctx context.Context, key models.MovieKey) (string, error)
}

// resolveWorkers bounds concurrent entity resolution during a creation.
const resolveWorkers = 4

// Service orchestrates the write path (fetch, extract, resolve, attach,
// all-or-nothing transaction) and the read-side assembly of movies from
// their normalized pieces.
type Service struct {
	store    Store
	movies   movieStore
	entities entityStore
	ignored  ignoreStore
	fetch    fetcher
	rewrite  *mediaurl.Rewriter
	cache    *gocache.Cache

	// keyLocks serializes GetOrCreate per compound key so two concurrent
	// lookups of one unseen key fetch and insert exactly once.
	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex
}

func NewService(store Store, movies movieStore, entities entityStore, ignored ignoreStore, fetch fetcher, rewrite *mediaurl.Rewriter) *Service {
	return &Service{
		store:    store,
		movies:   movies,
		entities: entities,
		ignored:  ignored,
		fetch:    fetch,
		rewrite:  rewrite,
		cache:    gocache.New(gocache.NoExpiration, 0),
		keyLocks: make(map[string]*sync.Mutex),
	}
}

func (s *Service) lockKey(display string) func() {
	s.mu.Lock()
	l, ok := s.keyLocks[display]
	if !ok {
		l = &sync.Mutex{}
		s.keyLocks[display] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// GetOrCreate returns the record for key, creating it from the source page
// when unseen. Returns ErrNoResult when the source has nothing usable for
// the key; transport exhaustion and store failures surface as errors.
func (s *Service) GetOrCreate(ctx context.Context, key models.MovieKey) (*models.MovieDetail, error) {
	if !key.Valid() {
		return nil, fmt.Errorf("catalog: invalid key %q", key.Display())
	}

	unlock := s.lockKey(key.Display())
	defer unlock()

	existing, err := s.movies.GetByKey(key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.assemble(existing)
	}

	ignored, err := s.ignored.IsIgnored(key)
	if err != nil {
		return nil, err
	}
	if ignored {
		return nil, ErrNoResult
	}

	doc, err := s.fetch.FetchDocument(ctx, key)
	if errors.Is(err, source.ErrNotFound) {
		return nil, ErrNoResult
	}
	if err != nil {
		return nil, err
	}

	fields := source.Extract(doc)
	if !fields.HasInfo {
		// Indistinguishable from an upstream not-found; no ignore entry.
		return nil, ErrNoResult
	}
	if !fields.Usable() {
		if err := s.ignored.Mark(key); err != nil {
			return nil, err
		}
		log.Printf("Catalog: %s parsed with no tags or stars, marked ignored", key.Display())
		return nil, ErrNoResult
	}

	movie, err := s.create(ctx, key, fields)
	if err != nil {
		return nil, err
	}
	return s.assemble(movie)
}

// create resolves every extracted entity name, then materializes the base
// row and all junction rows in a single transaction. Entity resolution runs
// before the transaction: the upserts are idempotent, so entities created
// for a rolled-back record are harmless and get reused on the next attempt.
func (s *Service) create(ctx context.Context, key models.MovieKey, fields source.Fields) (*models.Movie, error) {
	resolved, err := s.resolveAll(fields)
	if err != nil {
		return nil, err
	}

	movie := &models.Movie{
		ID:          uuid.New(),
		Title:       fields.Title,
		CompanyName: key.CompanyName,
		CompanyID:   key.CompanyID,
		CoverPath:   fields.Cover,
		ReleaseDate: fields.ReleaseDate,
	}

	err = s.store.RunInTx(ctx, func(q repository.Querier) error {
		if err := s.movies.Create(q, movie); err != nil {
			return fmt.Errorf("insert movie %s: %w", key.Display(), err)
		}
		for _, e := range resolved {
			if err := s.entities.Attach(q, e.kind, movie.ID, e.id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Catalog: created %s (%d tags, %d stars, series=%v)",
		key.Display(), len(fields.Tags), len(fields.Stars), fields.Series != "")
	return movie, nil
}

type pendingEntity struct {
	kind  models.EntityKind
	name  string
	photo *string
}

type resolvedEntity struct {
	kind models.EntityKind
	id   uuid.UUID
}

// resolveAll turns extracted names into stable entity ids with a bounded
// worker fan-out. Paths are stored raw; the proxy prefix is applied on
// every read instead, so one rewrite rule covers covers and photos alike.
func (s *Service) resolveAll(fields source.Fields) ([]resolvedEntity, error) {
	var pending []pendingEntity
	for _, name := range fields.Tags {
		pending = append(pending, pendingEntity{kind: models.KindTag, name: name})
	}
	for _, star := range fields.Stars {
		photo := star.Photo
		pending = append(pending, pendingEntity{kind: models.KindStar, name: star.Name, photo: &photo})
	}
	if fields.Series != "" {
		pending = append(pending, pendingEntity{kind: models.KindSeries, name: fields.Series})
	}

	resolved := make([]resolvedEntity, len(pending))
	sem := make(chan struct{}, resolveWorkers)
	var wg sync.WaitGroup
	var errMu sync.Mutex
	var firstErr error

	for i, p := range pending {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, p pendingEntity) {
			defer wg.Done()
			defer func() { <-sem }()
			id, err := s.entities.Resolve(s.store, p.kind, p.name, p.photo)
			if err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
				return
			}
			resolved[i] = resolvedEntity{kind: p.kind, id: id}
		}(i, p)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return resolved, nil
}
