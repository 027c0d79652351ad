package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(path string, op Operation) FileEvent {
	return FileEvent{Path: path, Operation: op, Timestamp: time.Now()}
}

func receiveBatch(t *testing.T, d *Debouncer) []FileEvent {
	t.Helper()
	select {
	case batch := <-d.Output():
		return batch
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced batch")
		return nil
	}
}

func TestDebouncer_CoalescesSamePath(t *testing.T) {
	// Given three rapid modifications of the same file
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(event("a.md", OpModify))
	d.Add(event("a.md", OpModify))
	d.Add(event("a.md", OpModify))

	// Then one event survives
	batch := receiveBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, "a.md", batch[0].Path)
	assert.Equal(t, OpModify, batch[0].Operation)
}

func TestDebouncer_CreateThenModifyIsCreate(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(event("new.md", OpCreate))
	d.Add(event("new.md", OpModify))

	batch := receiveBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpCreate, batch[0].Operation)
}

func TestDebouncer_CreateThenDeleteCancels(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(event("temp.md", OpCreate))
	d.Add(event("temp.md", OpDelete))
	d.Add(event("other.md", OpModify))

	batch := receiveBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, "other.md", batch[0].Path)
}

func TestDebouncer_DeleteThenCreateIsModify(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(event("swap.md", OpDelete))
	d.Add(event("swap.md", OpCreate))

	batch := receiveBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpModify, batch[0].Operation)
}

func TestDebouncer_SeparatePathsKeptApart(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(event("a.md", OpModify))
	d.Add(event("b.md", OpDelete))

	batch := receiveBatch(t, d)
	assert.Len(t, batch, 2)
}

func TestDebouncer_AddAfterStopIsNoop(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	d.Stop()
	d.Add(event("late.md", OpModify))

	_, open := <-d.Output()
	assert.False(t, open)
}
