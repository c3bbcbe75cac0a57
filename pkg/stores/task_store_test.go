package stores

import (
	"context"
	"testing"

	"github.com/agentmesh/agentmesh/pkg/a2a"
	"github.com/stretchr/testify/assert"
)

func TestNewInMemoryTaskStore(t *testing.T) {
	store := NewInMemoryTaskStore()
	assert.NotNil(t, store)
	assert.Empty(t, store.tasks)
}

func TestTaskStore_PutGet(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	task := a2a.NewTask("session-1")
	assert.Nil(t, store.Put(ctx, task))

	got, rpcErr := store.Get(ctx, task.ID)
	assert.Nil(t, rpcErr)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, a2a.TaskStatePending, got.Status.State)

	// The store hands out copies; mutating one must not affect the other.
	got.Status.State = a2a.TaskStateFailed
	again, rpcErr := store.Get(ctx, task.ID)
	assert.Nil(t, rpcErr)
	assert.Equal(t, a2a.TaskStatePending, again.Status.State)
}

func TestTaskStore_PutRejectsEmptyID(t *testing.T) {
	store := NewInMemoryTaskStore()

	rpcErr := store.Put(context.Background(), &a2a.Task{})
	assert.NotNil(t, rpcErr)
	assert.Equal(t, -32602, rpcErr.Code)
}

func TestTaskStore_GetMissing(t *testing.T) {
	store := NewInMemoryTaskStore()

	task, rpcErr := store.Get(context.Background(), "nonexistent")
	assert.Nil(t, task)
	assert.NotNil(t, rpcErr)
	assert.Equal(t, -32001, rpcErr.Code)
}

func TestTaskStore_Delete(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	task := a2a.NewTask("session-1")
	assert.Nil(t, store.Put(ctx, task))
	assert.Nil(t, store.Delete(ctx, task.ID))

	_, rpcErr := store.Get(ctx, task.ID)
	assert.NotNil(t, rpcErr)

	// Deleting twice reports not found.
	assert.NotNil(t, store.Delete(ctx, task.ID))
}

func TestTaskStore_List(t *testing.T) {
	store := NewInMemoryTaskStore()
	ctx := context.Background()

	assert.Empty(t, store.List(ctx))

	assert.Nil(t, store.Put(ctx, a2a.NewTask("session-1")))
	assert.Nil(t, store.Put(ctx, a2a.NewTask("session-2")))

	assert.Len(t, store.List(ctx), 2)
}
