package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/acadarchive/archive-api/pkg/logger"
)

// Job is a background task. It receives the worker's context and should
// return early when that context is cancelled.
type Job func(ctx context.Context) error

// Worker runs background and scheduled maintenance tasks, like the orphan
// file sweep, on a bounded pool.
type Worker struct {
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	queue    chan Job
	asyncSem chan struct{}

	statsMu sync.RWMutex
	stats   Stats
}

// Stats is a snapshot of worker activity
type Stats struct {
	ActiveJobs   int   `json:"active_jobs"`
	FinishedJobs int64 `json:"finished_jobs"`
	FailedJobs   int64 `json:"failed_jobs"`
	QueueLength  int   `json:"queue_length"`
}

// NewWorker starts numWorkers queue processors
func NewWorker(numWorkers int) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	asyncLimit := numWorkers * 2
	if asyncLimit < 10 {
		asyncLimit = 10
	}

	w := &Worker{
		ctx:      ctx,
		cancel:   cancel,
		queue:    make(chan Job, 100),
		asyncSem: make(chan struct{}, asyncLimit),
	}

	for i := 0; i < numWorkers; i++ {
		w.wg.Add(1)
		go w.process()
	}

	return w
}

// Enqueue hands a job to the pool. A full queue runs the job inline rather
// than dropping it.
func (w *Worker) Enqueue(job Job) {
	select {
	case w.queue <- job:
	default:
		logger.Warn("Job queue full, running job inline")
		w.run("inline", job)
	}
}

// EnqueueAsync runs a job on its own goroutine, bounded by a semaphore.
// The waitgroup is joined before the goroutine starts so Shutdown cannot
// slip past a job that is spawned but not yet running.
func (w *Worker) EnqueueAsync(job Job) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		w.asyncSem <- struct{}{}
		defer func() { <-w.asyncSem }()

		w.run("async", job)
	}()
}

// ScheduleEvery runs a job at a fixed interval, starting one interval from now
func (w *Worker) ScheduleEvery(interval time.Duration, job Job) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.run("scheduled", job)
			}
		}
	}()
}

// Shutdown cancels the worker context and waits for running jobs to drain
func (w *Worker) Shutdown() {
	w.cancel()
	close(w.queue)
	w.wg.Wait()
}

// Snapshot returns current worker activity counters
func (w *Worker) Snapshot() Stats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()
	s := w.stats
	s.QueueLength = len(w.queue)
	return s
}

func (w *Worker) process() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case job, ok := <-w.queue:
			if !ok {
				return
			}
			w.run("queued", job)
		}
	}
}

// run executes one job with panic recovery and stats accounting.
// FinishedJobs counts every completed run; FailedJobs is the subset that
// errored or panicked.
func (w *Worker) run(kind string, job Job) {
	w.jobStart()
	defer w.jobEnd()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Background job panicked", "kind", kind, "panic", r)
			w.jobFailed()
		}
	}()

	start := time.Now()
	if err := job(w.ctx); err != nil {
		logger.Error("Background job failed", "kind", kind, "error", err)
		w.jobFailed()
		return
	}
	logger.Debug("Background job completed", "kind", kind, "duration", time.Since(start))
}

func (w *Worker) jobStart() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs++
}

func (w *Worker) jobEnd() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.ActiveJobs--
	w.stats.FinishedJobs++
}

func (w *Worker) jobFailed() {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	w.stats.FailedJobs++
}
