package tracker

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_SetGetTake(t *testing.T) {
	r := NewRegistry()
	r.Set(&JobTracker{JobID: "a", Title: "A"})

	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, "A", got.Title)
	assert.True(t, r.Has("a"))
	assert.Equal(t, 1, r.Len())

	taken, ok := r.Take("a")
	require.True(t, ok)
	assert.Equal(t, "a", taken.JobID)
	assert.False(t, r.Has("a"))

	_, ok = r.Take("a")
	assert.False(t, ok, "second take finds nothing")
	assert.False(t, r.Delete("a"))
}

func TestRegistry_TakeHasSingleWinner(t *testing.T) {
	r := NewRegistry()
	r.Set(&JobTracker{JobID: "job"})

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := r.Take("job"); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestRegistry_ValuesOrderedAndDetached(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRegistry()
	r.Set(&JobTracker{JobID: "late", StartedAt: base.Add(time.Minute)})
	r.Set(&JobTracker{JobID: "b", StartedAt: base})
	r.Set(&JobTracker{JobID: "a", StartedAt: base})

	vals := r.Values()
	require.Len(t, vals, 3)
	assert.Equal(t, []string{"a", "b", "late"}, []string{vals[0].JobID, vals[1].JobID, vals[2].JobID})

	vals[0].Title = "mutated"
	got, _ := r.Get("a")
	assert.Empty(t, got.Title, "Values returns copies")
}

func TestRegistry_Drain(t *testing.T) {
	r := NewRegistry()
	halted := 0
	for _, id := range []string{"x", "y"} {
		r.Set(&JobTracker{JobID: id, stop: func() { halted++ }})
	}

	drained := r.Drain()
	require.Len(t, drained, 2)
	assert.Equal(t, 0, r.Len())

	for _, tr := range drained {
		tr.halt()
	}
	assert.Equal(t, 2, halted)
	assert.Empty(t, r.Drain())
}

func TestJobTracker_HaltWithoutStop(t *testing.T) {
	tr := &JobTracker{JobID: "x"}
	assert.NotPanics(t, tr.halt)
}

func TestJobTracker_WhileActive(t *testing.T) {
	tr := &JobTracker{JobID: "x", life: newLifecycle()}

	ran := tr.whileActive(func() bool { return true })
	assert.True(t, ran)

	tr.halt()
	called := false
	ran = tr.whileActive(func() bool { called = true; return true })
	assert.False(t, ran)
	assert.False(t, called, "no update after halt")
}

func TestJobTracker_HaltWaitsForUpdate(t *testing.T) {
	tr := &JobTracker{JobID: "x", life: newLifecycle()}
	entered := make(chan struct{})
	release := make(chan struct{})
	var order []string
	var mu sync.Mutex
	note := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, s)
	}

	go tr.whileActive(func() bool {
		close(entered)
		<-release
		note("update")
		return true
	})
	<-entered

	halted := make(chan struct{})
	go func() {
		tr.halt()
		note("halt")
		close(halted)
	}()

	select {
	case <-halted:
		t.Fatal("halt returned while an update was being applied")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-halted

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"update", "halt"}, order)
}
