package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/javault/javault/internal/models"
	"github.com/javault/javault/internal/repository"
	"github.com/javault/javault/internal/source"
)

// fakeStore is an in-memory stand-in for the Postgres-backed repositories.
// It mirrors the store-level guarantees the real schema provides: unique
// compound keys, unique entity names per kind, and at most one junction
// row per (movie, entity) pair.
type fakeStore struct {
	mu sync.Mutex

	movies  map[uuid.UUID]*models.Movie
	byKey   map[string]uuid.UUID
	ents    map[models.EntityKind]map[uuid.UUID]*models.Entity
	byName  map[models.EntityKind]map[string]uuid.UUID
	links   map[models.EntityKind][]junction
	ignored map[string]bool

	nextLinkID   int64
	resolveCalls int32
	failAttach   bool
}

type junction struct {
	id       int64
	movieID  uuid.UUID
	entityID uuid.UUID
}

// fakeMovies and fakeEntities expose the movie and entity views of the
// shared fake state, mirroring the two real repository types.
type fakeMovies struct{ *fakeStore }

type fakeEntities struct{ *fakeStore }

func newFakeStore() *fakeStore {
	f := &fakeStore{
		movies:  make(map[uuid.UUID]*models.Movie),
		byKey:   make(map[string]uuid.UUID),
		ents:    make(map[models.EntityKind]map[uuid.UUID]*models.Entity),
		byName:  make(map[models.EntityKind]map[string]uuid.UUID),
		links:   make(map[models.EntityKind][]junction),
		ignored: make(map[string]bool),
	}
	for _, k := range models.Kinds {
		f.ents[k] = make(map[uuid.UUID]*models.Entity)
		f.byName[k] = make(map[string]uuid.UUID)
	}
	return f
}

// ── Store (Querier + RunInTx) ──

func (f *fakeStore) Exec(string, ...interface{}) (sql.Result, error) { panic("not used") }
func (f *fakeStore) Query(string, ...interface{}) (*sql.Rows, error) { panic("not used") }
func (f *fakeStore) QueryRow(string, ...interface{}) *sql.Row        { panic("not used") }

type fakeSnapshot struct {
	movies map[uuid.UUID]*models.Movie
	byKey  map[string]uuid.UUID
	links  map[models.EntityKind][]junction
}

func (f *fakeStore) RunInTx(_ context.Context, fn func(q repository.Querier) error) error {
	f.mu.Lock()
	snap := fakeSnapshot{
		movies: make(map[uuid.UUID]*models.Movie, len(f.movies)),
		byKey:  make(map[string]uuid.UUID, len(f.byKey)),
		links:  make(map[models.EntityKind][]junction, len(f.links)),
	}
	for id, m := range f.movies {
		snap.movies[id] = m
	}
	for k, id := range f.byKey {
		snap.byKey[k] = id
	}
	for kind, ls := range f.links {
		snap.links[kind] = append([]junction(nil), ls...)
	}
	f.mu.Unlock()

	if err := fn(f); err != nil {
		f.mu.Lock()
		f.movies = snap.movies
		f.byKey = snap.byKey
		f.links = snap.links
		f.mu.Unlock()
		return err
	}
	return nil
}

// ── movieStore ──

func (f fakeMovies) Create(_ repository.Querier, m *models.Movie) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, dup := f.byKey[m.Key().Display()]; dup {
		return fmt.Errorf("duplicate key %s", m.Key().Display())
	}
	cp := *m
	f.movies[m.ID] = &cp
	f.byKey[m.Key().Display()] = m.ID
	return nil
}

func (f fakeMovies) GetByID(id uuid.UUID) (*models.Movie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.movies[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (f fakeMovies) GetByKey(key models.MovieKey) (*models.Movie, error) {
	f.mu.Lock()
	id, ok := f.byKey[key.Display()]
	f.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return f.GetByID(id)
}

func (f fakeMovies) List(page, size int) ([]*models.Movie, error) {
	f.mu.Lock()
	all := make([]*models.Movie, 0, len(f.movies))
	for _, m := range f.movies {
		cp := *m
		all = append(all, &cp)
	}
	f.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		return strings.Compare(all[i].ReleaseDate, all[j].ReleaseDate) > 0
	})
	start := (page - 1) * size
	if start >= len(all) {
		return nil, nil
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (f fakeMovies) Count() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.movies), nil
}

func (f fakeMovies) ListIDsByEntity(kind models.EntityKind, entityID uuid.UUID, page, size int) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []junction
	for _, l := range f.links[kind] {
		if l.entityID == entityID {
			matched = append(matched, l)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].id > matched[j].id })

	start := (page - 1) * size
	if start >= len(matched) {
		return nil, nil
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	var ids []uuid.UUID
	for _, l := range matched[start:end] {
		ids = append(ids, l.movieID)
	}
	return ids, nil
}

func (f fakeMovies) CountByEntity(kind models.EntityKind, entityID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, l := range f.links[kind] {
		if l.entityID == entityID {
			n++
		}
	}
	return n, nil
}

// ── entityStore ──

func (f fakeEntities) Resolve(_ repository.Querier, kind models.EntityKind, name string, photoPath *string) (uuid.UUID, error) {
	atomic.AddInt32(&f.resolveCalls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.byName[kind][name]; ok {
		return id, nil
	}
	e := &models.Entity{ID: uuid.New(), Name: name, PhotoPath: photoPath}
	f.ents[kind][e.ID] = e
	f.byName[kind][name] = e.ID
	return e.ID, nil
}

func (f fakeEntities) Attach(_ repository.Querier, kind models.EntityKind, movieID, entityID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAttach {
		return fmt.Errorf("attach failed (injected)")
	}
	for _, l := range f.links[kind] {
		if l.movieID == movieID && l.entityID == entityID {
			return nil
		}
	}
	f.nextLinkID++
	f.links[kind] = append(f.links[kind], junction{id: f.nextLinkID, movieID: movieID, entityID: entityID})
	return nil
}

func (f fakeEntities) GetByID(kind models.EntityKind, id uuid.UUID) (*models.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.ents[kind][id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (f fakeEntities) ListIDsByMovie(kind models.EntityKind, movieID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for _, l := range f.links[kind] {
		if l.movieID == movieID {
			ids = append(ids, l.entityID)
		}
	}
	return ids, nil
}

// ── ignoreStore ──

func (f *fakeStore) Mark(key models.MovieKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ignored[key.Display()] = true
	return nil
}

func (f *fakeStore) IsIgnored(key models.MovieKey) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ignored[key.Display()], nil
}

// ── fetcher ──

type fakeFetcher struct {
	mu    sync.Mutex
	docs  map[string]string
	err   error
	calls int32
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{docs: make(map[string]string)}
}

func (f *fakeFetcher) FetchDocument(_ context.Context, key models.MovieKey) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	doc, ok := f.docs[key.Display()]
	if !ok {
		return "", source.ErrNotFound
	}
	return doc, nil
}

// buildDoc renders a minimal source page carrying the given fields.
func buildDoc(title, cover, series, release string, tags []string, stars map[string]string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="container">`)
	if cover != "" {
		fmt.Fprintf(&b, `<a class="bigImage" href="%s"><img src="%s" alt="%s"></a>`, cover, cover, title)
	}
	b.WriteString(`<div class="info">`)
	if release != "" {
		fmt.Fprintf(&b, `<p><span class="header">Release Date:</span> %s</p>`, release)
	}
	if series != "" {
		fmt.Fprintf(&b, `<p><a href="/series/1">%s</a></p>`, series)
	}
	b.WriteString(`<p class="genre">`)
	for i, tag := range tags {
		fmt.Fprintf(&b, `<a href="/genre/%d">%s</a>`, i+1, tag)
	}
	b.WriteString(`</p>`)
	names := make([]string, 0, len(stars))
	for name := range stars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, `<img src="%s" alt="%s">`, stars[name], name)
	}
	b.WriteString(`</div></div></body></html>`)
	return b.String()
}
