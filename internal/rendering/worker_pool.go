package rendering

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rmitchellscott/ditherbox/internal/imageprocessing"
	"github.com/rmitchellscott/ditherbox/internal/logging"
)

var (
	// ErrQueueFull is returned when every queue slot is taken
	ErrQueueFull = errors.New("dither queue is full")
	// ErrPoolStopped is returned for jobs submitted to a stopped pool
	ErrPoolStopped = errors.New("dither pool is not running")
)

// DitherJob is one image waiting to be dithered
type DitherJob struct {
	ID        uuid.UUID
	Data      []byte
	Algorithm string
	Options   imageprocessing.Options
}

// JobResult is the outcome of a dither job
type JobResult struct {
	JobID      uuid.UUID
	PNG        []byte
	Error      error
	DurationMs int
}

// ProcessFunc turns a job into PNG bytes
type ProcessFunc func(job DitherJob) ([]byte, error)

// DitherImageJob runs the image pipeline for a job
func DitherImageJob(job DitherJob) ([]byte, error) {
	return imageprocessing.DitherImage(job.Data, job.Algorithm, job.Options)
}

// WorkerMetrics tracks worker pool performance
type WorkerMetrics struct {
	TotalJobs     int64 `json:"total_jobs"`
	SuccessJobs   int64 `json:"success_jobs"`
	FailedJobs    int64 `json:"failed_jobs"`
	SkippedJobs   int64 `json:"skipped_jobs"`
	ActiveWorkers int32 `json:"active_workers"`
	BusyWorkers   int32 `json:"busy_workers"`
	QueueLength   int32 `json:"queue_length"`
}

type request struct {
	ctx    context.Context
	job    DitherJob
	result chan JobResult
}

// WorkerPool runs dither jobs on a fixed number of goroutines so request
// handlers never dither inline
type WorkerPool struct {
	workerCount int
	process     ProcessFunc
	jobChan     chan request
	quitChan    chan struct{}
	wg          sync.WaitGroup
	metrics     WorkerMetrics

	mu      sync.RWMutex
	running bool
}

// NewWorkerPool creates a pool. Non-positive sizes fall back to defaults.
func NewWorkerPool(workerCount, queueSize int, process ProcessFunc) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if process == nil {
		process = DitherImageJob
	}
	return &WorkerPool{
		workerCount: workerCount,
		process:     process,
		jobChan:     make(chan request, queueSize),
		quitChan:    make(chan struct{}),
	}
}

// Start launches the workers
func (p *WorkerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	logging.InfoWithComponent(logging.ComponentPool, "Starting dither worker pool", "workers", p.workerCount, "queue_size", cap(p.jobChan))

	p.running = true
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop waits for in-flight jobs, then fails everything still queued with
// ErrPoolStopped
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.quitChan)
	p.mu.Unlock()

	logging.InfoWithComponent(logging.ComponentPool, "Stopping dither worker pool")
	p.wg.Wait()

	for {
		select {
		case req := <-p.jobChan:
			atomic.AddInt32(&p.metrics.QueueLength, -1)
			req.result <- JobResult{JobID: req.job.ID, Error: ErrPoolStopped}
		default:
			logging.InfoWithComponent(logging.ComponentPool, "Dither worker pool stopped")
			return
		}
	}
}

// Submit queues a job and waits for its result. If ctx ends first Submit
// returns ctx.Err(); a job that already started still runs to completion and
// its result is discarded.
func (p *WorkerPool) Submit(ctx context.Context, job DitherJob) (JobResult, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	req := request{ctx: ctx, job: job, result: make(chan JobResult, 1)}

	p.mu.RLock()
	if !p.running {
		p.mu.RUnlock()
		return JobResult{JobID: job.ID}, ErrPoolStopped
	}
	atomic.AddInt32(&p.metrics.QueueLength, 1)
	select {
	case p.jobChan <- req:
		p.mu.RUnlock()
	default:
		p.mu.RUnlock()
		atomic.AddInt32(&p.metrics.QueueLength, -1)
		logging.WarnWithComponent(logging.ComponentPool, "Job queue full, rejecting job", "job_id", job.ID)
		return JobResult{JobID: job.ID}, ErrQueueFull
	}

	select {
	case res := <-req.result:
		return res, res.Error
	case <-ctx.Done():
		return JobResult{JobID: job.ID}, ctx.Err()
	}
}

// GetMetrics returns a snapshot of the pool counters
func (p *WorkerPool) GetMetrics() WorkerMetrics {
	return WorkerMetrics{
		TotalJobs:     atomic.LoadInt64(&p.metrics.TotalJobs),
		SuccessJobs:   atomic.LoadInt64(&p.metrics.SuccessJobs),
		FailedJobs:    atomic.LoadInt64(&p.metrics.FailedJobs),
		SkippedJobs:   atomic.LoadInt64(&p.metrics.SkippedJobs),
		ActiveWorkers: atomic.LoadInt32(&p.metrics.ActiveWorkers),
		BusyWorkers:   atomic.LoadInt32(&p.metrics.BusyWorkers),
		QueueLength:   atomic.LoadInt32(&p.metrics.QueueLength),
	}
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	atomic.AddInt32(&p.metrics.ActiveWorkers, 1)
	defer atomic.AddInt32(&p.metrics.ActiveWorkers, -1)

	for {
		select {
		case <-p.quitChan:
			return
		case req := <-p.jobChan:
			atomic.AddInt32(&p.metrics.QueueLength, -1)
			p.processJob(id, req)
		}
	}
}

func (p *WorkerPool) processJob(workerID int, req request) {
	// Nobody is waiting for jobs whose caller gave up while queued.
	if err := req.ctx.Err(); err != nil {
		atomic.AddInt64(&p.metrics.SkippedJobs, 1)
		req.result <- JobResult{JobID: req.job.ID, Error: err}
		return
	}

	atomic.AddInt32(&p.metrics.BusyWorkers, 1)
	defer atomic.AddInt32(&p.metrics.BusyWorkers, -1)
	atomic.AddInt64(&p.metrics.TotalJobs, 1)

	start := time.Now()
	out, err := p.process(req.job)
	duration := int(time.Since(start).Milliseconds())

	if err != nil {
		atomic.AddInt64(&p.metrics.FailedJobs, 1)
		logging.DebugWithComponent(logging.ComponentPool, "Dither job failed", "worker", workerID, "job_id", req.job.ID, "error", err)
	} else {
		atomic.AddInt64(&p.metrics.SuccessJobs, 1)
		logging.DebugWithComponent(logging.ComponentPool, "Dither job finished", "worker", workerID, "job_id", req.job.ID, "duration_ms", duration)
	}

	req.result <- JobResult{JobID: req.job.ID, PNG: out, Error: err, DurationMs: duration}
}
