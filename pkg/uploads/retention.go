package uploads

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/packbazaar/bazaar/pkg/observability"
)

// Sweeper periodically deletes upload records older than the retention
// window. Promotion copies everything it needs onto the catalog entity, so
// an old record is either promoted already or abandoned.
type Sweeper struct {
	store  *Store
	logger *observability.Logger
	maxAge time.Duration
	cron   *cron.Cron
}

// NewSweeper creates a retention sweeper; maxAge is how long records are kept
func NewSweeper(store *Store, logger *observability.Logger, maxAge time.Duration) *Sweeper {
	return &Sweeper{
		store:  store,
		logger: logger,
		maxAge: maxAge,
		cron:   cron.New(),
	}
}

// Start schedules the sweep on the given cron expression (e.g. "@hourly")
func (s *Sweeper) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, s.sweep)
	if err != nil {
		return fmt.Errorf("failed to schedule retention sweep: %w", err)
	}
	s.cron.Start()
	s.logger.WithFields(map[string]interface{}{
		"schedule": schedule,
		"max_age":  s.maxAge.String(),
	}).Info("Upload retention sweeper started")
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-s.maxAge)
	n, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.WithError(err).Error("Upload retention sweep failed")
		return
	}
	if n > 0 {
		s.logger.WithField("deleted", n).Info("Swept stale upload records")
	}
}
