package scheduler

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/javault/javault/internal/models"
)

// staleBatchSize caps how many ignored keys one sweep re-queues.
const staleBatchSize = 100

// ignoreRegister is the slice of the ignore repository the sweep needs.
type ignoreRegister interface {
	ListStale(before time.Time, limit int) ([]models.MovieKey, error)
	Remove(key models.MovieKey) error
}

// scrapeQueue re-queues a key for a fresh source lookup.
type scrapeQueue interface {
	EnqueueScrape(key models.MovieKey) (string, error)
}

// Scheduler periodically retries ignored keys: a key whose source page once
// carried no usable associations may have been filled in since. Keys ignored
// longer than retryAfter are dropped from the register and re-queued.
type Scheduler struct {
	ignored    ignoreRegister
	queue      scrapeQueue
	retryAfter time.Duration
	cron       *cron.Cron
}

func New(ignored ignoreRegister, queue scrapeQueue, retryAfter time.Duration) *Scheduler {
	return &Scheduler{
		ignored:    ignored,
		queue:      queue,
		retryAfter: retryAfter,
		cron:       cron.New(),
	}
}

// Start registers the nightly sweep and begins the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@daily", s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("[scheduler] stale-ignore sweep started (retry after %s)", s.retryAfter)
	return nil
}

// Stop stops the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("[scheduler] scheduler stopped")
}

func (s *Scheduler) sweep() {
	cutoff := time.Now().Add(-s.retryAfter)
	keys, err := s.ignored.ListStale(cutoff, staleBatchSize)
	if err != nil {
		log.Printf("[scheduler] error listing stale ignored keys: %v", err)
		return
	}
	if len(keys) == 0 {
		return
	}

	log.Printf("[scheduler] retrying %d ignored keys older than %s", len(keys), s.retryAfter)
	for _, key := range keys {
		// Drop the register entry first so the re-scrape is not short-circuited
		if err := s.ignored.Remove(key); err != nil {
			log.Printf("[scheduler] error removing ignore entry %s: %v", key.Display(), err)
			continue
		}
		if _, err := s.queue.EnqueueScrape(key); err != nil {
			log.Printf("[scheduler] error queueing re-scrape %s: %v", key.Display(), err)
		}
	}
}
