package stores

import (
	"context"
	"sync"

	"github.com/agentmesh/agentmesh/pkg/a2a"
	"github.com/agentmesh/agentmesh/pkg/errors"
)

/*
TaskStore abstracts where tracked tasks live. The platform ships an
in-memory implementation; registries are process-local by design, so a
restart loses them. Backing implementations must be safe for concurrent
use.
*/
type TaskStore interface {
	Get(context.Context, string) (*a2a.Task, *errors.RpcError)
	Put(context.Context, *a2a.Task) *errors.RpcError
	Delete(context.Context, string) *errors.RpcError
	List(context.Context) []a2a.Task
}

// InMemoryTaskStore keeps tasks in a mutex-guarded map.
type InMemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*a2a.Task
}

func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{
		tasks: make(map[string]*a2a.Task),
	}
}

func (store *InMemoryTaskStore) Get(ctx context.Context, id string) (*a2a.Task, *errors.RpcError) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	task, ok := store.tasks[id]

	if !ok {
		return nil, errors.ErrTaskNotFound.WithMessagef("task %s not found", id)
	}

	// Return a copy so callers cannot mutate the stored task without
	// going through Put.
	clone := *task
	return &clone, nil
}

func (store *InMemoryTaskStore) Put(ctx context.Context, task *a2a.Task) *errors.RpcError {
	if task.ID == "" {
		return errors.ErrInvalidParams.WithMessagef("task has no id")
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	clone := *task
	store.tasks[task.ID] = &clone

	return nil
}

func (store *InMemoryTaskStore) Delete(ctx context.Context, id string) *errors.RpcError {
	store.mu.Lock()
	defer store.mu.Unlock()

	if _, ok := store.tasks[id]; !ok {
		return errors.ErrTaskNotFound.WithMessagef("task %s not found", id)
	}

	delete(store.tasks, id)
	return nil
}

func (store *InMemoryTaskStore) List(ctx context.Context) []a2a.Task {
	store.mu.RLock()
	defer store.mu.RUnlock()

	tasks := make([]a2a.Task, 0, len(store.tasks))

	for _, task := range store.tasks {
		tasks = append(tasks, *task)
	}

	return tasks
}
