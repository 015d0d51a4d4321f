// Package worker provides a bounded asynchronous worker pool.
//
// The pool decouples slow side effects, such as event delivery to a
// broker, from the turn loop's hot path. Jobs are plain closures so the
// pool stays agnostic of what runs on it.
package worker

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/crosstalkco/crosstalk/pkg/logger"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute.
type Job func()

// Config is the configuration options for the worker pool.
type Config struct {
	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger receives pool lifecycle and drop messages.
	Logger *slog.Logger
}

// Pool executes jobs asynchronously on a fixed set of workers.
type Pool struct {
	queue chan Job
	wg    sync.WaitGroup
	log   *slog.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	p := &Pool{
		queue: make(chan Job, c.QueueSize),
		log:   log,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// Submit queues a job for execution.
// Returns true if queued, false if the queue is full, resulting in the job being dropped.
func (p *Pool) Submit(job Job) bool {
	if job == nil {
		return false
	}

	select {
	case p.queue <- job:
		return true
	default:
		p.log.Error("job not queued, queue full, job dropped")
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the last Submit.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.log.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		job()
	}

	p.log.Debug("worker stopped", "worker_id", id)
}
