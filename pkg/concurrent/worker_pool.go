package concurrent

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrScheduleTimeout = errors.New("schedule error: timed out")
	ErrPoolClosed      = errors.New("schedule error: pool closed")
)

type JobFunc[T any, G any] func(job T) G

// WorkerPool runs jobs in two modes: a fixed set of workers fed through AddJob with results
// collected from CollectResults, and ad-hoc tasks via Schedule that reuse up to numWorkers
// goroutines.
type WorkerPool[T any, G any] struct {
	numWorkers int
	jobQueue   chan T
	results    chan G
	wg         sync.WaitGroup

	sem       chan struct{}
	work      chan func()
	quit      chan struct{}
	closeOnce sync.Once
}

func NewWorkerPool[T any, G any](numWorkers, jobQueueSize int) *WorkerPool[T, G] {
	return &WorkerPool[T, G]{
		numWorkers: numWorkers,
		jobQueue:   make(chan T, jobQueueSize),
		results:    make(chan G, jobQueueSize),
		sem:        make(chan struct{}, numWorkers),
		work:       make(chan func(), jobQueueSize),
		quit:       make(chan struct{}),
	}
}

func (wp *WorkerPool[T, G]) worker(jobFunc JobFunc[T, G]) {
	defer wp.wg.Done()
	for job := range wp.jobQueue {
		wp.results <- jobFunc(job)
	}
}

func (wp *WorkerPool[T, G]) Start(jobFunc JobFunc[T, G]) {
	for i := 1; i <= wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(jobFunc)
	}
}

// Wait blocks until every started worker has drained the job queue, then closes the results.
func (wp *WorkerPool[T, G]) Wait() {
	wp.wg.Wait()
	close(wp.results)
}

func (wp *WorkerPool[T, G]) AddJob(job T) {
	wp.jobQueue <- job
}

func (wp *WorkerPool[T, G]) CollectResults() chan G {
	return wp.results
}

// Close stops accepting jobs and tasks. Scheduled goroutines exit once idle.
func (wp *WorkerPool[T, G]) Close() {
	wp.closeOnce.Do(func() {
		close(wp.jobQueue)
		close(wp.quit)
	})
}

// Spawn starts n task goroutines up front, bounded by numWorkers.
func (wp *WorkerPool[T, G]) Spawn(n int) {
	for i := 0; i < n; i++ {
		select {
		case wp.sem <- struct{}{}:
			go wp.taskWorker(func() {})
		default:
			return
		}
	}
}

// Schedule runs task on an idle goroutine, blocking until one is available.
func (wp *WorkerPool[T, G]) Schedule(task func()) error {
	return wp.schedule(task, nil)
}

// ScheduleTimeout is Schedule giving up with ErrScheduleTimeout after timeout.
func (wp *WorkerPool[T, G]) ScheduleTimeout(timeout time.Duration, task func()) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	return wp.schedule(task, timer.C)
}

func (wp *WorkerPool[T, G]) schedule(task func(), timeout <-chan time.Time) error {
	select {
	case <-wp.quit:
		return ErrPoolClosed
	default:
	}

	select {
	case <-wp.quit:
		return ErrPoolClosed
	case <-timeout:
		return ErrScheduleTimeout
	case wp.work <- task:
		return nil
	case wp.sem <- struct{}{}:
		go wp.taskWorker(task)
		return nil
	}
}

func (wp *WorkerPool[T, G]) taskWorker(task func()) {
	defer func() { <-wp.sem }()

	task()
	for {
		select {
		case task := <-wp.work:
			task()
		case <-wp.quit:
			return
		}
	}
}
