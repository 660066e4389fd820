// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watch re-runs saved queries on a cron schedule and refreshes
// their exported results.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/pdiddy/gscientist/internal/export"
	"github.com/pdiddy/gscientist/internal/search"
)

// Runner executes a stored query and returns the fresh results.
type Runner func(ctx context.Context, qf *search.QueryFile) (search.Result, error)

// Job is one saved query to refresh.
type Job struct {
	// QueryFile is rewritten with the new results after every run.
	QueryFile string

	// Output, when set, receives the results in Format.
	Output string
	Format export.Format
}

// Watcher schedules Jobs. Runs of the same job never overlap.
type Watcher struct {
	cron *cron.Cron
	run  Runner
	log  zerolog.Logger
	now  func() time.Time
}

// New returns a Watcher that executes queries with run.
func New(run Runner, log zerolog.Logger) *Watcher {
	cl := cronLogger{log}
	return &Watcher{
		cron: cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		run:  run,
		log:  log,
		now:  time.Now,
	}
}

// Add schedules job with a standard five-field cron spec or a descriptor
// such as "@daily" or "@every 6h". ctx is passed to every run.
func (w *Watcher) Add(ctx context.Context, spec string, job Job) (cron.EntryID, error) {
	id, err := w.cron.AddFunc(spec, func() {
		if err := w.RunOnce(ctx, job); err != nil {
			w.log.Error().Err(err).Str("query_file", job.QueryFile).Msg("watch run failed")
		}
	})
	if err != nil {
		return 0, fmt.Errorf("schedule %q: %w", spec, err)
	}
	w.log.Info().Str("schedule", spec).Str("query_file", job.QueryFile).Msg("watching query")
	return id, nil
}

// RunOnce loads the query file, runs it, exports the results, and writes
// the refreshed query file back.
func (w *Watcher) RunOnce(ctx context.Context, job Job) error {
	qf, err := search.ReadQueryFile(job.QueryFile)
	if err != nil {
		return err
	}
	q, err := qf.Query.ToQuery()
	if err != nil {
		return err
	}

	start := w.now()
	res, err := w.run(ctx, qf)
	if err != nil {
		return err
	}

	if job.Output != "" {
		f := job.Format
		if f == "" {
			f = export.FormatForPath(job.Output)
		}
		if err := export.Write(res.Papers, job.Output, f); err != nil {
			return err
		}
	}
	if err := search.WriteQueryFile(job.QueryFile, qf.Source, q, qf.Config.EngineConfig(), res); err != nil {
		return err
	}

	w.log.Info().
		Str("query_file", job.QueryFile).
		Int("papers", len(res.Papers)).
		Dur("elapsed", w.now().Sub(start)).
		Msg("watch run complete")
	return nil
}

// Run starts the scheduler and blocks until ctx is done, then waits for
// running jobs to finish.
func (w *Watcher) Run(ctx context.Context) error {
	w.cron.Start()
	<-ctx.Done()
	<-w.cron.Stop().Done()
	return nil
}

// Entries returns the scheduled jobs.
func (w *Watcher) Entries() []cron.Entry {
	return w.cron.Entries()
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
