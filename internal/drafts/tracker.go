// Package drafts holds in-progress maintenance records while their tasks
// receive relevance verdicts. Each verdict runs under its own cancellable
// context keyed by task id, so discarding a draft or removing a task drops
// any result that arrives afterwards.
package drafts

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ioezgamer/studio/internal/store"
)

var (
	ErrNotFound     = errors.New("draft not found")
	ErrTaskNotFound = errors.New("draft task not found")
	ErrEmptyTask    = errors.New("task description is required")
)

type Checker interface {
	CheckRelevance(ctx context.Context, equipmentType, taskDescription string) store.Relevance
}

type Task struct {
	ID          string           `json:"id"`
	Description string           `json:"description"`
	Pending     bool             `json:"pending"`
	Relevance   *store.Relevance `json:"relevance,omitempty"`
}

type Draft struct {
	ID            string    `json:"id"`
	Owner         string    `json:"-"`
	EquipmentType string    `json:"equipmentType"`
	Tasks         []Task    `json:"tasks"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type entry struct {
	draft   Draft
	cancels map[string]context.CancelFunc
}

type Tracker struct {
	checker Checker
	ttl     time.Duration
	now     func() time.Time

	base   context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	drafts map[string]*entry
}

func NewTracker(checker Checker, ttl time.Duration) *Tracker {
	base, stop := context.WithCancel(context.Background())
	return &Tracker{
		checker: checker,
		ttl:     ttl,
		now:     time.Now,
		base:    base,
		stop:    stop,
		drafts:  map[string]*entry{},
	}
}

func (t *Tracker) Create(owner, equipmentType string) Draft {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweepLocked()

	d := Draft{
		ID:            uuid.NewString(),
		Owner:         owner,
		EquipmentType: strings.TrimSpace(equipmentType),
		Tasks:         []Task{},
		UpdatedAt:     t.now(),
	}
	t.drafts[d.ID] = &entry{draft: d, cancels: map[string]context.CancelFunc{}}
	return copyDraft(d)
}

// Get returns a snapshot; verdicts still in flight show as Pending.
func (t *Tracker) Get(owner, draftID string) (Draft, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, err := t.lookupLocked(owner, draftID)
	if err != nil {
		return Draft{}, err
	}
	return copyDraft(e.draft), nil
}

// AddTask appends the task immediately in the pending state and starts its
// relevance check in the background.
func (t *Tracker) AddTask(owner, draftID, description string) (Task, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return Task{}, ErrEmptyTask
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	e, err := t.lookupLocked(owner, draftID)
	if err != nil {
		return Task{}, err
	}

	task := Task{ID: uuid.NewString(), Description: description, Pending: true}
	e.draft.Tasks = append(e.draft.Tasks, task)
	e.draft.UpdatedAt = t.now()

	ctx, cancel := context.WithCancel(t.base)
	e.cancels[task.ID] = cancel
	equipment := e.draft.EquipmentType

	t.wg.Add(1)
	go t.check(ctx, draftID, task.ID, equipment, description)
	return task, nil
}

func (t *Tracker) check(ctx context.Context, draftID, taskID, equipment, description string) {
	defer t.wg.Done()
	verdict := t.checker.CheckRelevance(ctx, equipment, description)

	t.mu.Lock()
	defer t.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	e, ok := t.drafts[draftID]
	if !ok {
		return
	}
	if cancel, ok := e.cancels[taskID]; ok {
		cancel()
		delete(e.cancels, taskID)
	}
	for i := range e.draft.Tasks {
		if e.draft.Tasks[i].ID == taskID {
			e.draft.Tasks[i].Pending = false
			e.draft.Tasks[i].Relevance = &verdict
			return
		}
	}
}

func (t *Tracker) RemoveTask(owner, draftID, taskID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, err := t.lookupLocked(owner, draftID)
	if err != nil {
		return err
	}
	for i := range e.draft.Tasks {
		if e.draft.Tasks[i].ID != taskID {
			continue
		}
		if cancel, ok := e.cancels[taskID]; ok {
			cancel()
			delete(e.cancels, taskID)
		}
		e.draft.Tasks = append(e.draft.Tasks[:i], e.draft.Tasks[i+1:]...)
		e.draft.UpdatedAt = t.now()
		return nil
	}
	return ErrTaskNotFound
}

// Discard cancels every in-flight check of the draft and forgets it.
func (t *Tracker) Discard(owner, draftID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, err := t.lookupLocked(owner, draftID)
	if err != nil {
		return err
	}
	t.dropLocked(draftID, e)
	return nil
}

// Close cancels all outstanding checks and waits for their goroutines.
func (t *Tracker) Close() {
	t.stop()
	t.mu.Lock()
	for id, e := range t.drafts {
		t.dropLocked(id, e)
	}
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sweepLocked()
	return len(t.drafts)
}

func (t *Tracker) lookupLocked(owner, draftID string) (*entry, error) {
	t.sweepLocked()
	e, ok := t.drafts[draftID]
	if !ok || e.draft.Owner != owner {
		return nil, ErrNotFound
	}
	return e, nil
}

func (t *Tracker) sweepLocked() {
	if t.ttl <= 0 {
		return
	}
	cutoff := t.now().Add(-t.ttl)
	for id, e := range t.drafts {
		if e.draft.UpdatedAt.Before(cutoff) {
			t.dropLocked(id, e)
		}
	}
}

func (t *Tracker) dropLocked(draftID string, e *entry) {
	for _, cancel := range e.cancels {
		cancel()
	}
	delete(t.drafts, draftID)
}

func copyDraft(d Draft) Draft {
	out := d
	out.Tasks = make([]Task, len(d.Tasks))
	for i, task := range d.Tasks {
		out.Tasks[i] = task
		if task.Relevance != nil {
			verdict := *task.Relevance
			out.Tasks[i].Relevance = &verdict
		}
	}
	return out
}
