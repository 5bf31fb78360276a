package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/javault/javault/internal/models"
)

// Catalog is the slice of the catalog service the handlers need.
type Catalog interface {
	GetOrCreate(ctx context.Context, key models.MovieKey) (*models.MovieDetail, error)
	GetByID(id uuid.UUID) (*models.MovieDetail, error)
	List(page, size int) (*models.MovieList, error)
	ListByEntity(kind models.EntityKind, entityID uuid.UUID, page, size int) (*models.EntityMovieList, error)
}

// Enqueuer schedules a background scrape for a key. Satisfied by jobs.Queue.
type Enqueuer interface {
	EnqueueScrape(key models.MovieKey) (string, error)
}

type Server struct {
	catalog Catalog
	queue   Enqueuer
	wsHub   *WSHub
	router  *http.ServeMux
}

func NewServer(catalog Catalog, queue Enqueuer, hub *WSHub) *Server {
	s := &Server{
		catalog: catalog,
		queue:   queue,
		wsHub:   hub,
		router:  http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) WSHub() *WSHub {
	return s.wsHub
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /api/health", s.handleHealth)

	s.router.HandleFunc("GET /api/movies", s.handleListMovies)
	s.router.HandleFunc("GET /api/movies/{id}", s.handleGetMovie)
	s.router.HandleFunc("POST /api/movies/lookup", s.handleLookup)
	s.router.HandleFunc("POST /api/movies/scrape", s.handleScrape)

	s.router.HandleFunc("GET /api/tags/{id}/movies", s.entityMoviesHandler(models.KindTag))
	s.router.HandleFunc("GET /api/stars/{id}/movies", s.entityMoviesHandler(models.KindStar))
	s.router.HandleFunc("GET /api/series/{id}/movies", s.entityMoviesHandler(models.KindSeries))

	s.router.HandleFunc("GET /api/ws", s.handleWebSocket)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
