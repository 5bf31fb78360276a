package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/javault/javault/internal/catalog"
	"github.com/javault/javault/internal/models"
)

// ──────── Scrape Handler ────────

// ScrapePayload names the record to scrape by its compound source key.
type ScrapePayload struct {
	CompanyName string `json:"company_name"`
	CompanyID   string `json:"company_id"`
}

// lookupService is the slice of the catalog the handler needs.
type lookupService interface {
	GetOrCreate(ctx context.Context, key models.MovieKey) (*models.MovieDetail, error)
}

type ScrapeHandler struct {
	catalog  lookupService
	notifier EventNotifier
}

func NewScrapeHandler(cat lookupService, notifier EventNotifier) *ScrapeHandler {
	return &ScrapeHandler{catalog: cat, notifier: notifier}
}

func (h *ScrapeHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ScrapePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	key := models.MovieKey{CompanyName: payload.CompanyName, CompanyID: payload.CompanyID}
	if !key.Valid() {
		return fmt.Errorf("invalid scrape payload: %q/%q", payload.CompanyName, payload.CompanyID)
	}

	h.broadcast(key, "running", nil)

	detail, err := h.catalog.GetOrCreate(ctx, key)
	if errors.Is(err, catalog.ErrNoResult) {
		// Definitive outcome, the task must not be retried.
		log.Printf("Jobs: scrape %s produced no result", key.Display())
		h.broadcast(key, "no_result", nil)
		return nil
	}
	if err != nil {
		log.Printf("Jobs: scrape %s failed: %v", key.Display(), err)
		h.broadcast(key, "failed", nil)
		return fmt.Errorf("scrape %s: %w", key.Display(), err)
	}

	h.broadcast(key, "complete", detail)
	return nil
}

func (h *ScrapeHandler) broadcast(key models.MovieKey, status string, detail *models.MovieDetail) {
	if h.notifier == nil {
		return
	}
	data := map[string]interface{}{
		"javid":  key.Display(),
		"status": status,
	}
	if detail != nil {
		data["movie_id"] = detail.ID.String()
	}
	h.notifier.Broadcast("scrape:update", data)
}

// EnqueueScrape queues a background scrape for key. The task ID is derived
// from the key, so a key already pending or running is not queued twice.
func (q *Queue) EnqueueScrape(key models.MovieKey) (string, error) {
	payload := ScrapePayload{CompanyName: key.CompanyName, CompanyID: key.CompanyID}
	return q.EnqueueUnique(TaskScrapeMovie, payload, "scrape:"+key.Display())
}
