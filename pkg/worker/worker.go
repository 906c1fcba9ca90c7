package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"

	"github.com/openshelf/openshelf/pkg/config"
)

var (
	ErrQueueFull    = errors.New("worker queue is full")
	ErrShuttingDown = errors.New("worker pool is shutting down")
)

// Task is a unit of background work. Run gets a fresh context carrying a
// logger tagged with the task's ID and kind. Finish, if set, is called with
// Run's error once Run returns or panics.
type Task struct {
	ID     string
	Kind   string
	Run    func(ctx context.Context) error
	Finish func(err error)
}

// Pool runs tasks on a fixed number of goroutines fed by a buffered queue.
type Pool struct {
	log       logger.Logger
	processes int

	mu             sync.Mutex
	closed         bool
	queue          chan Task
	doneProcessing chan struct{}
}

func New(cfg *config.Config) *Pool {
	return &Pool{
		log:            logger.New(),
		processes:      cfg.WorkerProcesses,
		queue:          make(chan Task, cfg.WorkerQueueSize),
		doneProcessing: make(chan struct{}, cfg.WorkerProcesses),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.processes; i++ {
		go p.processTasks()
	}
}

// Submit enqueues a task without blocking. It returns ErrQueueFull when the
// queue has no room.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrShuttingDown
	}
	select {
	case p.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Pool) processTasks() {
	for task := range p.queue {
		log := p.log.ID(task.ID).Root(logger.Data{"job_id": task.ID, "kind": task.Kind})
		ctx := log.WithContext(context.Background())

		err := run(ctx, task)
		if err != nil {
			log.Err(err).Error("process error")
		}
		if task.Finish != nil {
			task.Finish(err)
		}
	}
	p.doneProcessing <- struct{}{}
}

func run(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(fmt.Sprintf("unexpected error: %v", r))
		}
	}()
	return task.Run(ctx)
}

// Shutdown stops accepting tasks and waits for the queued ones to finish.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	for i := 0; i < p.processes; i++ {
		<-p.doneProcessing
	}
}
