package export

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/dvloznov/sheets-ledger/internal/jobs"
)

// Scheduler publishes export jobs for a set of targets on a cron schedule.
type Scheduler struct {
	cron      *cron.Cron
	publisher jobs.Publisher
	targets   []string
	log       zerolog.Logger
}

// NewScheduler creates a Scheduler publishing one job per target on each run.
func NewScheduler(publisher jobs.Publisher, targets []string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		publisher: publisher,
		targets:   targets,
		log:       log.With().Str("component", "export_scheduler").Logger(),
	}
}

// Schedule registers the export run. Specs use the standard five cron fields
// or descriptors such as "@daily" and "@every 6h".
func (s *Scheduler) Schedule(ctx context.Context, spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.Trigger(ctx) }); err != nil {
		return fmt.Errorf("Schedule: invalid spec %q: %w", spec, err)
	}

	s.log.Info().
		Str("schedule", spec).
		Strs("targets", s.targets).
		Msg("Export schedule registered")
	return nil
}

// Trigger publishes one export job per target now. It returns the number of
// jobs published.
func (s *Scheduler) Trigger(ctx context.Context) int {
	published := 0
	for _, target := range s.targets {
		job := &jobs.ExportJob{Target: target}
		if err := s.publisher.PublishExport(ctx, job); err != nil {
			s.log.Error().Err(err).Str("target", target).Msg("Failed to schedule export")
			continue
		}
		published++
	}
	s.log.Debug().Int("published", published).Msg("Scheduled exports published")
	return published
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for a running trigger to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("Scheduler stopped")
}
