package task

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/pillbox-api/internal/domain"
	"github.com/phrazzld/pillbox-api/internal/notify"
	"github.com/phrazzld/pillbox-api/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memJobStore is an in-memory JobStore.
type memJobStore struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]*Job
	saveErr error
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[uuid.UUID]*Job)}
}

func (s *memJobStore) Save(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *memJobStore) GetByID(_ context.Context, id uuid.UUID) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *memJobStore) ClaimDue(_ context.Context, now time.Time, limit int) ([]*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*Job
	for _, j := range s.jobs {
		if j.Status == JobStatusPending && !j.RunAt.After(now) {
			due = append(due, j)
		}
	}
	sort.Slice(due, func(a, b int) bool { return due[a].RunAt.Before(due[b].RunAt) })
	if len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]*Job, 0, len(due))
	for _, j := range due {
		j.Status = JobStatusProcessing
		j.Attempts++
		j.UpdatedAt = now
		cp := *j
		claimed = append(claimed, &cp)
	}
	return claimed, nil
}

func (s *memJobStore) update(id uuid.UUID, fn func(j *Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return store.ErrJobNotFound
	}
	fn(j)
	return nil
}

func (s *memJobStore) MarkCompleted(_ context.Context, id uuid.UUID, now time.Time) error {
	return s.update(id, func(j *Job) {
		j.Status = JobStatusCompleted
		j.UpdatedAt = now
	})
}

func (s *memJobStore) MarkFailed(_ context.Context, id uuid.UUID, errMsg string, now time.Time) error {
	return s.update(id, func(j *Job) {
		j.Status = JobStatusFailed
		j.LastError = errMsg
		j.UpdatedAt = now
	})
}

func (s *memJobStore) Reschedule(_ context.Context, id uuid.UUID, runAt time.Time, errMsg string, now time.Time) error {
	return s.update(id, func(j *Job) {
		j.Status = JobStatusPending
		j.RunAt = runAt
		j.LastError = errMsg
		j.UpdatedAt = now
	})
}

func (s *memJobStore) ResetStuck(_ context.Context, olderThan time.Time, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, j := range s.jobs {
		if j.Status == JobStatusProcessing && j.UpdatedAt.Before(olderThan) {
			j.Status = JobStatusPending
			j.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (s *memJobStore) all() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		cp := *j
		out = append(out, &cp)
	}
	return out
}

// memPillStore is an in-memory store.PillStore.
type memPillStore struct {
	mu        sync.Mutex
	pills     map[uuid.UUID]*domain.Pill
	getErr    error
	updateErr error
}

func newMemPillStore(pills ...*domain.Pill) *memPillStore {
	s := &memPillStore{pills: make(map[uuid.UUID]*domain.Pill)}
	for _, p := range pills {
		s.pills[p.ID] = p
	}
	return s
}

var _ store.PillStore = (*memPillStore)(nil)

func (s *memPillStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Pill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Pill
	for _, p := range s.pills {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memPillStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Pill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	p, ok := s.pills[id]
	if !ok {
		return nil, store.ErrPillNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memPillStore) Create(_ context.Context, pill *domain.Pill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *pill
	s.pills[pill.ID] = &cp
	return nil
}

func (s *memPillStore) Update(_ context.Context, pill *domain.Pill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pills[pill.ID]; !ok {
		return store.ErrPillNotFound
	}
	cp := *pill
	s.pills[pill.ID] = &cp
	return nil
}

func (s *memPillStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pills[id]; !ok {
		return store.ErrPillNotFound
	}
	delete(s.pills, id)
	return nil
}

func (s *memPillStore) UpdateCurrentDate(_ context.Context, id uuid.UUID, current time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	p, ok := s.pills[id]
	if !ok {
		return store.ErrPillNotFound
	}
	p.Rule.CurrentDate = &current
	return nil
}

func (s *memPillStore) WithTx(_ *sql.Tx) store.PillStore {
	return s
}

// recordingDispatcher records reminders. A method listed in failing fails
// with its error; err fails every other method.
type recordingDispatcher struct {
	mu        sync.Mutex
	reminders []notify.Reminder
	err       error
	failing   map[string]error
}

func (d *recordingDispatcher) Deliver(_ context.Context, r notify.Reminder) notify.Report {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reminders = append(d.reminders, r)

	report := notify.Report{Failed: make(map[string]error)}
	for _, method := range r.Methods {
		err := d.err
		if e, ok := d.failing[method]; ok {
			err = e
		}
		if err != nil {
			report.Failed[method] = err
			continue
		}
		report.Delivered = append(report.Delivered, method)
	}
	return report
}

// countingNotifier counts deliveries per method and fails methods listed in failing.
type countingNotifier struct {
	mu        sync.Mutex
	delivered map[string]int
	failing   map[string]error
}

func newCountingNotifier() *countingNotifier {
	return &countingNotifier{delivered: make(map[string]int), failing: make(map[string]error)}
}

func (n *countingNotifier) Notify(_ context.Context, method string, _ notify.Reminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err, ok := n.failing[method]; ok {
		return err
	}
	n.delivered[method]++
	return nil
}

func (n *countingNotifier) count(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.delivered[method]
}

// fixedClock returns a settable clock.
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
