package profile

import (
	"context"

	"github.com/google/uuid"

	"github.com/kalambet/internmatch/internal/analysis"
)

// maxTrackedTasks bounds how many finished tasks Store.Task can still find.
const maxTrackedTasks = 64

// TaskState is the externally visible progress of a Task.
type TaskState string

const (
	TaskRunning   TaskState = "analyzing"
	TaskSucceeded TaskState = "done"
	TaskFailed    TaskState = "failed"
)

// Task is a pending analysis started by Import or Reanalyze. It completes
// exactly once.
type Task struct {
	taskID string
	id     string
	kind   analysis.Kind
	done   chan struct{}

	// Set before done is closed.
	rec Record
	err error
}

func newTask(id string, kind analysis.Kind) *Task {
	return &Task{taskID: uuid.New().String(), id: id, kind: kind, done: make(chan struct{})}
}

// TaskID identifies the task itself; see Store.Task.
func (t *Task) TaskID() string { return t.taskID }

// ID is the id of the record the task creates or updates.
func (t *Task) ID() string { return t.id }

// Kind reports whether the task imports a new profile or re-analyzes one.
func (t *Task) Kind() analysis.Kind { return t.kind }

// Done is closed when the task has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finishes or ctx ends. It returns the stored
// record on success. Cancelling ctx stops the wait, not the task.
func (t *Task) Wait(ctx context.Context) (Record, error) {
	select {
	case <-ctx.Done():
		return Record{}, ctx.Err()
	case <-t.done:
		if t.err != nil {
			return Record{}, t.err
		}
		return t.rec.clone(), nil
	}
}

// State reports progress without blocking. The error is set for TaskFailed.
func (t *Task) State() (TaskState, error) {
	select {
	case <-t.done:
		if t.err != nil {
			return TaskFailed, t.err
		}
		return TaskSucceeded, nil
	default:
		return TaskRunning, nil
	}
}

func (t *Task) finish(rec Record, err error) {
	t.rec = rec
	t.err = err
	close(t.done)
}
