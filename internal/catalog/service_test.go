package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javault/javault/internal/mediaurl"
	"github.com/javault/javault/internal/models"
)

const proxyBase = "https://proxy.test/media"

var keyABC = models.MovieKey{CompanyName: "ABC", CompanyID: "001"}

func newTestService(store *fakeStore, fetch *fakeFetcher) *Service {
	return NewService(store, fakeMovies{store}, fakeEntities{store}, store, fetch,
		mediaurl.NewRewriter(proxyBase))
}

func seedABC(fetch *fakeFetcher) {
	fetch.docs["ABC-001"] = buildDoc("T", "/cover/x.jpg", "S1", "2020-01-01",
		[]string{"Drama", "HD"}, map[string]string{"Jane": "/actress/j.jpg"})
}

func TestGetOrCreateRoundTrip(t *testing.T) {
	store := newFakeStore()
	fetch := newFakeFetcher()
	seedABC(fetch)
	svc := newTestService(store, fetch)

	detail, err := svc.GetOrCreate(context.Background(), keyABC)
	require.NoError(t, err)
	require.NotNil(t, detail)

	assert.Equal(t, "ABC-001", detail.JavID)
	assert.Equal(t, "T", detail.Title)
	assert.Equal(t, proxyBase+"/cover/x.jpg", detail.PosterFileURL)
	assert.Equal(t, "2020-01-01", detail.ReleaseDate)
	require.Len(t, detail.Tags, 2)
	assert.Equal(t, "Drama", detail.Tags[0].Name)
	assert.Equal(t, "HD", detail.Tags[1].Name)
	require.Len(t, detail.Stars, 1)
	assert.Equal(t, "Jane", detail.Stars[0].Name)
	assert.Equal(t, proxyBase+"/actress/j.jpg", detail.Stars[0].PhotoURL)
	require.NotNil(t, detail.Series)
	assert.Equal(t, "S1", detail.Series.Name)

	// Reads after creation reassemble from stored rows, never re-fetch.
	again, err := svc.GetByID(detail.ID)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, detail, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetch.calls))
}

func TestGetOrCreateConcurrentSameKey(t *testing.T) {
	store := newFakeStore()
	fetch := newFakeFetcher()
	seedABC(fetch)
	svc := newTestService(store, fetch)

	const callers = 8
	ids := make([]uuid.UUID, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			detail, err := svc.GetOrCreate(context.Background(), keyABC)
			errs[i] = err
			if detail != nil {
				ids[i] = detail.ID
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id, "every caller observes the same record")
	}
	n, _ := fakeMovies{store}.Count()
	assert.Equal(t, 1, n, "exactly one base row for the key")
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetch.calls), "the source is fetched once")
}

func TestGetOrCreateConcurrentKeysShareEntities(t *testing.T) {
	store := newFakeStore()
	fetch := newFakeFetcher()
	for i := 1; i <= 4; i++ {
		key := models.MovieKey{CompanyName: "ABC", CompanyID: fmt.Sprintf("%03d", i)}
		fetch.docs[key.Display()] = buildDoc("T", "/cover/x.jpg", "", "2020-01-01",
			[]string{"Drama"}, map[string]string{"Jane": "/actress/j.jpg"})
	}
	svc := newTestService(store, fetch)

	errs := make([]error, 4)
	var wg sync.WaitGroup
	for i := 1; i <= 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := models.MovieKey{CompanyName: "ABC", CompanyID: fmt.Sprintf("%03d", i)}
			_, errs[i-1] = svc.GetOrCreate(context.Background(), key)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	assert.Len(t, store.byName[models.KindTag], 1, "one tag row despite concurrent resolution")
	assert.Len(t, store.byName[models.KindStar], 1, "one star row despite concurrent resolution")
	n, _ := fakeMovies{store}.Count()
	assert.Equal(t, 4, n)
}

func TestGetOrCreateDuplicateNamesAttachOnce(t *testing.T) {
	store := newFakeStore()
	fetch := newFakeFetcher()
	// The source repeats the same genre link twice; resolution dedups it.
	fetch.docs["ABC-001"] = `<div class="info">
		<p><a href="/genre/1">Drama</a><a href="/genre/1">Drama</a></p>
		<img src="/actress/j.jpg" alt="Jane"></div>`
	svc := newTestService(store, fetch)

	detail, err := svc.GetOrCreate(context.Background(), keyABC)
	require.NoError(t, err)

	assert.Len(t, detail.Tags, 1, "duplicate name converges to one junction row")
	assert.Len(t, store.links[models.KindTag], 1)
}

func TestGetOrCreateEmptyExtractionIsIgnored(t *testing.T) {
	store := newFakeStore()
	fetch := newFakeFetcher()
	fetch.docs["ABC-001"] = `<div class="info"><p><a href="/studio/1">StudioOne</a></p></div>`
	svc := newTestService(store, fetch)

	_, err := svc.GetOrCreate(context.Background(), keyABC)
	assert.ErrorIs(t, err, ErrNoResult)

	ignored, _ := store.IsIgnored(keyABC)
	assert.True(t, ignored)
	n, _ := fakeMovies{store}.Count()
	assert.Equal(t, 0, n, "a record with no tags and no stars is never persisted")

	// The next lookup short-circuits on the ignore register.
	_, err = svc.GetOrCreate(context.Background(), keyABC)
	assert.ErrorIs(t, err, ErrNoResult)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetch.calls))
}

func TestGetOrCreateTagsOnlyIsPersisted(t *testing.T) {
	store := newFakeStore()
	fetch := newFakeFetcher()
	fetch.docs["ABC-001"] = buildDoc("T", "/cover/x.jpg", "", "2020-01-01",
		[]string{"Drama"}, nil)
	svc := newTestService(store, fetch)

	detail, err := svc.GetOrCreate(context.Background(), keyABC)
	require.NoError(t, err)
	assert.Len(t, detail.Tags, 1)
	assert.Empty(t, detail.Stars)

	ignored, _ := store.IsIgnored(keyABC)
	assert.False(t, ignored)
}

func TestGetOrCreateMissingInfoBlockIsNotIgnored(t *testing.T) {
	store := newFakeStore()
	fetch := newFakeFetcher()
	fetch.docs["ABC-001"] = `<html><body><p>maintenance page</p></body></html>`
	svc := newTestService(store, fetch)

	_, err := svc.GetOrCreate(context.Background(), keyABC)
	assert.ErrorIs(t, err, ErrNoResult)

	ignored, _ := store.IsIgnored(keyABC)
	assert.False(t, ignored, "an upstream not-found leaves no ignore entry")
	n, _ := fakeMovies{store}.Count()
	assert.Equal(t, 0, n)
}

func TestGetOrCreateUpstreamNotFound(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, newFakeFetcher())

	_, err := svc.GetOrCreate(context.Background(), keyABC)
	assert.ErrorIs(t, err, ErrNoResult)

	ignored, _ := store.IsIgnored(keyABC)
	assert.False(t, ignored)
}

func TestGetOrCreateTransportErrorPropagates(t *testing.T) {
	store := newFakeStore()
	fetch := newFakeFetcher()
	fetch.err = errors.New("retries exhausted")
	svc := newTestService(store, fetch)

	_, err := svc.GetOrCreate(context.Background(), keyABC)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoResult, "exhausted retries are a fatal error, not an empty result")
	ignored, _ := store.IsIgnored(keyABC)
	assert.False(t, ignored, "transport failure must not poison the ignore register")
	n, _ := fakeMovies{store}.Count()
	assert.Equal(t, 0, n)
}

func TestGetOrCreateAttachFailureRollsBack(t *testing.T) {
	store := newFakeStore()
	fetch := newFakeFetcher()
	seedABC(fetch)
	store.failAttach = true
	svc := newTestService(store, fetch)

	_, err := svc.GetOrCreate(context.Background(), keyABC)

	require.Error(t, err)
	n, _ := fakeMovies{store}.Count()
	assert.Equal(t, 0, n, "no partial record survives a failed attach")
	for _, kind := range models.Kinds {
		assert.Empty(t, store.links[kind])
	}
}

func TestGetOrCreateInvalidKey(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeFetcher())

	_, err := svc.GetOrCreate(context.Background(), models.MovieKey{CompanyName: "ABC"})
	assert.Error(t, err)
}
