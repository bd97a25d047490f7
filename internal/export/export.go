// Package export writes ledger snapshots to external targets.
package export

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/sheets-ledger/internal/jobs"
	"github.com/dvloznov/sheets-ledger/internal/ledger"
	"github.com/dvloznov/sheets-ledger/internal/logger"
)

// Export target names.
const (
	TargetGCS      = "gcs"
	TargetBigQuery = "bigquery"
	TargetNotion   = "notion"
)

// ErrUnknownTarget is returned for a target with no registered sink.
var ErrUnknownTarget = errors.New("export: unknown or unconfigured target")

// Sink writes a snapshot somewhere and reports where.
type Sink interface {
	Name() string
	Write(ctx context.Context, snap *ledger.Snapshot) (location string, err error)
}

// Snapshotter produces the snapshot to export.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*ledger.Snapshot, error)
}

// Result describes a finished export.
type Result struct {
	Target      string `json:"target"`
	RecordCount int    `json:"record_count"`
	Location    string `json:"location"`
}

// Service runs exports against the registered sinks.
type Service struct {
	source Snapshotter
	sinks  map[string]Sink
	log    zerolog.Logger
}

// NewService creates a Service. Sinks registered later under the same name win.
func NewService(source Snapshotter, log zerolog.Logger, sinks ...Sink) *Service {
	s := &Service{
		source: source,
		sinks:  make(map[string]Sink, len(sinks)),
		log:    log,
	}
	for _, sink := range sinks {
		s.sinks[sink.Name()] = sink
	}
	return s
}

// Targets lists the registered target names in sorted order.
func (s *Service) Targets() []string {
	names := make([]string, 0, len(s.sinks))
	for name := range s.sinks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether target is registered.
func (s *Service) Has(target string) bool {
	_, ok := s.sinks[target]
	return ok
}

// Run snapshots the ledger and writes it to target.
func (s *Service) Run(ctx context.Context, target string) (Result, error) {
	sink, ok := s.sinks[target]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}

	start := time.Now()
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("Run: %w", err)
	}

	location, err := sink.Write(ctx, snap)
	if err != nil {
		return Result{}, fmt.Errorf("Run: write %s: %w", target, err)
	}

	s.log.Info().
		Str("target", target).
		Int("record_count", len(snap.Records)).
		Str("location", location).
		Dur("duration", time.Since(start)).
		Msg("Snapshot exported")

	return Result{Target: target, RecordCount: len(snap.Records), Location: location}, nil
}

// Handle is a jobs.JobHandler running export jobs.
func (s *Service) Handle(ctx context.Context, job jobs.Job) error {
	exportJob, ok := job.(*jobs.ExportJob)
	if !ok {
		return fmt.Errorf("Handle: unsupported job type %s", job.GetType())
	}

	ctx = logger.WithContext(ctx, s.log.With().
		Str("job_id", exportJob.JobID).
		Str("target", exportJob.Target).
		Logger())

	result, err := s.Run(ctx, exportJob.Target)
	if err != nil {
		s.log.Error().Err(err).
			Str("job_id", exportJob.JobID).
			Int("retry_count", exportJob.RetryCount).
			Msg("Export job failed")
		return err
	}

	exportJob.RecordCount = result.RecordCount
	exportJob.Location = result.Location
	return nil
}
