// Package runstore keeps completed datasets in memory for the API
package runstore

import (
	"errors"
	"sync"

	"github.com/nemonet1337/zaiSupplySim/pkg/simulation"
)

// ErrRunNotFound is returned when no dataset is stored under an identifier
// 実行結果が見つからない場合のエラー
var ErrRunNotFound = errors.New("実行結果が見つかりません")

// Store is a bounded registry of datasets; the oldest entry is evicted first
// 実行結果を保持するメモリストア（上限超過時は古い順に削除）
type Store struct {
	mu       sync.RWMutex
	capacity int
	order    []string // 登録順
	runs     map[string]*simulation.Dataset
}

// New creates a store holding at most capacity datasets
func New(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	return &Store{
		capacity: capacity,
		runs:     make(map[string]*simulation.Dataset, capacity),
	}
}

// Put stores ds under its run identifier
func (s *Store) Put(ds *simulation.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := ds.Run.ID
	if _, exists := s.runs[id]; exists {
		s.runs[id] = ds
		return
	}

	for len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.runs, oldest)
	}
	s.order = append(s.order, id)
	s.runs[id] = ds
}

// Get returns the dataset stored under id
func (s *Store) Get(id string) (*simulation.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return ds, nil
}

// List returns the stored run headers, newest first
func (s *Store) List() []simulation.RunInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]simulation.RunInfo, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.runs[s.order[i]].Run)
	}
	return out
}

// Len returns the number of stored datasets
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
