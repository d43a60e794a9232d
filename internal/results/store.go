// Package results holds the successful outputs of one batch, keyed by original filename in processing order.
package results

import (
	"github.com/UnendingLoop/BackgroundRemover/internal/model"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Store is filled by the batch runner and becomes read-only once the batch is published.
// A repeated filename overwrites the value but keeps the position of the first insertion.
type Store struct {
	entries *orderedmap.OrderedMap[string, *model.ProcessedResult]
}

func New() *Store {
	return &Store{entries: orderedmap.New[string, *model.ProcessedResult]()}
}

func (s *Store) Put(res *model.ProcessedResult) {
	if res == nil {
		return
	}
	s.entries.Set(res.Filename, res)
}

func (s *Store) Get(filename string) (*model.ProcessedResult, bool) {
	if s == nil {
		return nil, false
	}
	return s.entries.Get(filename)
}

func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return s.entries.Len()
}

func (s *Store) Names() []string {
	names := make([]string, 0, s.Len())
	s.Range(func(res *model.ProcessedResult) bool {
		names = append(names, res.Filename)
		return true
	})
	return names
}

// Range walks entries in stored order until fn returns false.
func (s *Store) Range(fn func(res *model.ProcessedResult) bool) {
	if s == nil {
		return
	}
	for pair := s.entries.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Value) {
			return
		}
	}
}
