package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/javault/javault/internal/catalog"
	"github.com/javault/javault/internal/httputil"
	"github.com/javault/javault/internal/models"
	"github.com/javault/javault/internal/version"
)

// ──────────────────── Health ────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": version.Version,
	})
}

// ──────────────────── Movies ────────────────────

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	page := httputil.QueryInt(r, "page", 1)
	size := httputil.QueryInt(r, "size", 20)

	list, err := s.catalog.List(page, size)
	if err != nil {
		log.Printf("API: list movies failed: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "internal_error", "failed to list movies")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_id", "invalid movie id")
		return
	}

	detail, err := s.catalog.GetByID(id)
	if err != nil {
		log.Printf("API: get movie %s failed: %v", id, err)
		httputil.WriteError(w, http.StatusInternalServerError, "internal_error", "failed to get movie")
		return
	}
	if detail == nil {
		httputil.WriteError(w, http.StatusNotFound, "not_found", "movie not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

// lookupRequest names a record by its compound source key.
type lookupRequest struct {
	CompanyName string `json:"company_name"`
	CompanyID   string `json:"company_id"`
}

func (r lookupRequest) key() models.MovieKey {
	return models.MovieKey{CompanyName: r.CompanyName, CompanyID: r.CompanyID}
}

// handleLookup resolves a key synchronously, scraping the source when the
// record is unseen. Definitive empty results map to no_result rather than
// a server error.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	key := req.key()
	if !key.Valid() {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_request", "company_name and company_id are required")
		return
	}

	detail, err := s.catalog.GetOrCreate(r.Context(), key)
	if errors.Is(err, catalog.ErrNoResult) {
		httputil.WriteError(w, http.StatusNotFound, "no_result", "no result for "+key.Display())
		return
	}
	if err != nil {
		log.Printf("API: lookup %s failed: %v", key.Display(), err)
		httputil.WriteError(w, http.StatusBadGateway, "lookup_failed", "failed to look up "+key.Display())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

// handleScrape queues a background scrape and returns immediately. Progress
// is pushed over the websocket as scrape:update events.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "queue_unavailable", "background scraping is not available")
		return
	}

	var req lookupRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	key := req.key()
	if !key.Valid() {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_request", "company_name and company_id are required")
		return
	}

	taskID, err := s.queue.EnqueueScrape(key)
	if err != nil {
		log.Printf("API: enqueue scrape %s failed: %v", key.Display(), err)
		httputil.WriteError(w, http.StatusInternalServerError, "enqueue_failed", "failed to queue scrape")
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{
		"task_id": taskID,
		"javid":   key.Display(),
	})
}

// ──────────────────── Reverse lookups ────────────────────

// entityMoviesHandler returns the handler for one entity kind's reverse
// lookup, paginated most recently linked first.
func (s *Server) entityMoviesHandler(kind models.EntityKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid_id", "invalid "+kind.String()+" id")
			return
		}

		page := httputil.QueryInt(r, "page", 1)
		size := httputil.QueryInt(r, "size", 20)

		list, err := s.catalog.ListByEntity(kind, id, page, size)
		if err != nil {
			log.Printf("API: list movies by %s %s failed: %v", kind, id, err)
			httputil.WriteError(w, http.StatusInternalServerError, "internal_error", "failed to list movies")
			return
		}
		if list == nil {
			httputil.WriteError(w, http.StatusNotFound, "not_found", kind.String()+" not found")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, list)
	}
}
