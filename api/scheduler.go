/*
scheduler.go - Periodic snapshot export

PURPOSE:
  Every write already leaves a fresh CSV snapshot of its partition. The
  scheduler re-exports every partition of every store on an interval,
  so the snapshot directory is complete even after manual edits to the
  backend or a failed per-write snapshot.

DESIGN:
  - Runs a background goroutine with configurable interval
  - Runs once immediately on start
  - Records each run when a RunStore is configured

USAGE:
  scheduler := NewSnapshotScheduler(book, records.DirSink{Dir: "snapshots"}, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - records/exchange.go: Book.ExportAll
  - store/sqlite: ExportRun history
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/cashbook/records"
	"github.com/warp/cashbook/store/sqlite"
)

// RunStore persists snapshot run history.
type RunStore interface {
	SaveExportRun(ctx context.Context, r sqlite.ExportRun) error
	ExportRuns(ctx context.Context, limit int) ([]sqlite.ExportRun, error)
}

// SnapshotScheduler periodically writes every partition to Sink.
type SnapshotScheduler struct {
	Book     *records.Book
	Sink     records.SnapshotSink
	Runs     RunStore
	Interval time.Duration
	Enabled  bool
	Log      logrus.FieldLogger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
	runMu  sync.Mutex
}

// NewSnapshotScheduler creates a scheduler with an hourly interval.
func NewSnapshotScheduler(book *records.Book, sink records.SnapshotSink, log logrus.FieldLogger) *SnapshotScheduler {
	return &SnapshotScheduler{
		Book:     book,
		Sink:     sink,
		Interval: time.Hour,
		Enabled:  true,
		Log:      log,
	}
}

// Start begins the scheduler.
func (s *SnapshotScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled || s.Sink == nil {
		s.Log.Info("snapshot scheduler disabled")
		return
	}
	if s.Interval <= 0 {
		s.Log.WithField("interval", s.Interval.String()).Warn("snapshot scheduler disabled: interval must be positive")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run()

	s.Log.WithField("interval", s.Interval.String()).Info("snapshot scheduler started")
}

// Stop stops the scheduler and waits for a running export to finish.
func (s *SnapshotScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.Log.Info("snapshot scheduler stopped")
}

func (s *SnapshotScheduler) run() {
	defer s.wg.Done()

	s.RunOnce(context.Background())
	for {
		select {
		case <-s.ticker.C:
			s.RunOnce(context.Background())
		case <-s.stop:
			return
		}
	}
}

// RunOnce exports every partition now. Runs never overlap.
func (s *SnapshotScheduler) RunOnce(ctx context.Context) sqlite.ExportRun {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	run := sqlite.ExportRun{StartedAt: s.Book.Now()}
	n, err := s.Book.ExportAll(ctx, s.Sink)
	run.Files = n
	run.FinishedAt = s.Book.Now()

	entry := s.Log.WithField("files", n)
	if err != nil {
		run.Error = err.Error()
		entry.WithError(err).Error("snapshot export failed")
	} else {
		entry.Info("snapshot export complete")
	}

	if s.Runs != nil {
		if err := s.Runs.SaveExportRun(ctx, run); err != nil {
			s.Log.WithError(err).Warn("failed to record snapshot run")
		}
	}
	return run
}
