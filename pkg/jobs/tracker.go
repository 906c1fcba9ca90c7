package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/openshelf/openshelf/pkg/errcodes"
	"github.com/openshelf/openshelf/pkg/worker"
)

// Func is the body of a job. It returns the message shown when the job
// completes successfully.
type Func func(ctx context.Context, progress *Progress) (string, error)

// Submitter runs tasks in the background.
type Submitter interface {
	Submit(task worker.Task) error
}

// Tracker keeps the status of every job started in this process. Entries
// are kept for the life of the process.
type Tracker struct {
	pool Submitter
	now  func() time.Time

	mu       sync.RWMutex
	statuses map[string]*Status
}

func NewTracker(pool Submitter) *Tracker {
	return &Tracker{
		pool:     pool,
		now:      time.Now,
		statuses: map[string]*Status{},
	}
}

// Start registers a job and hands it to the worker pool. It returns the
// job ID immediately.
func (t *Tracker) Start(kind string, fn Func) (string, error) {
	id := uuid.NewString()
	now := t.now()

	t.mu.Lock()
	t.statuses[id] = &Status{Message: startingMessage, Kind: kind, CreatedAt: now, UpdatedAt: now}
	t.mu.Unlock()

	progress := &Progress{tracker: t, id: id}
	var final string
	err := t.pool.Submit(worker.Task{
		ID:   id,
		Kind: kind,
		Run: func(ctx context.Context) error {
			msg, err := fn(ctx, progress)
			final = msg
			return err
		},
		Finish: func(err error) {
			if err != nil {
				t.fail(id, err.Error())
				return
			}
			t.complete(id, final)
		},
	})
	if err != nil {
		t.mu.Lock()
		delete(t.statuses, id)
		t.mu.Unlock()
		if errors.Is(err, worker.ErrQueueFull) || errors.Is(err, worker.ErrShuttingDown) {
			return "", errcodes.QueueFull()
		}
		return "", errors.WithStack(err)
	}
	return id, nil
}

// Poll returns a copy of the job's status. Unknown IDs report an error
// status rather than failing.
func (t *Tracker) Poll(id string) Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.statuses[id]
	if !ok {
		return Status{Message: unknownMessage, IsError: true}
	}
	return *s
}

func (t *Tracker) update(id string, percent int, message string) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	t.set(id, func(s *Status) {
		s.Percent = percent
		s.Message = message
	})
}

func (t *Tracker) complete(id, message string) {
	t.set(id, func(s *Status) {
		s.Percent = 100
		s.Message = message
		s.IsComplete = true
	})
}

func (t *Tracker) fail(id, message string) {
	t.set(id, func(s *Status) {
		s.Message = message
		s.IsError = true
	})
}

func (t *Tracker) set(id string, fn func(s *Status)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.statuses[id]
	if !ok || s.Done() {
		return
	}
	fn(s)
	s.UpdatedAt = t.now()
}

// Progress lets a running job report how far along it is.
type Progress struct {
	tracker *Tracker
	id      string
}

// Update sets the job's percentage (clamped to 0-100) and message.
func (p *Progress) Update(percent int, message string) {
	p.tracker.update(p.id, percent, message)
}

func (p *Progress) ID() string {
	return p.id
}
