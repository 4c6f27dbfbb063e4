package runstore

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nemonet1337/zaiSupplySim/pkg/simulation"
)

func dataset(id string) *simulation.Dataset {
	return &simulation.Dataset{Run: simulation.RunInfo{ID: id}}
}

func TestStore_PutGet(t *testing.T) {
	s := New(3)
	s.Put(dataset("a"))

	ds, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", ds.Run.ID)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestStore_EvictsOldest(t *testing.T) {
	s := New(2)
	s.Put(dataset("a"))
	s.Put(dataset("b"))
	s.Put(dataset("c"))

	_, err := s.Get("a")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.Equal(t, 2, s.Len())

	ids := []string{}
	for _, run := range s.List() {
		ids = append(ids, run.ID)
	}
	assert.Equal(t, []string{"c", "b"}, ids)
}

func TestStore_ReplaceKeepsPosition(t *testing.T) {
	s := New(2)
	s.Put(dataset("a"))
	s.Put(dataset("b"))
	replacement := dataset("a")
	replacement.Run.Seed = 9
	s.Put(replacement)

	ds, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, int64(9), ds.Run.Seed)
	assert.Equal(t, 2, s.Len())
}

func TestStore_Concurrent(t *testing.T) {
	s := New(10)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("run-%d", i)
			s.Put(dataset(id))
			_ = s.List()
			_, _ = s.Get(id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, s.Len())
}

func TestNew_MinimumCapacity(t *testing.T) {
	s := New(0)
	s.Put(dataset("a"))
	s.Put(dataset("b"))

	assert.Equal(t, 1, s.Len())
}
