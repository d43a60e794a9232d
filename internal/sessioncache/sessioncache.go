// Package sessioncache keeps one loaded segmentation session per model identifier for the whole process lifetime.
package sessioncache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/UnendingLoop/BackgroundRemover/internal/model"
	"github.com/UnendingLoop/BackgroundRemover/internal/segment"
	"golang.org/x/sync/singleflight"
)

// Cache lazily constructs and memoizes sessions. A failed construction is not stored,
// so the next Get retries it. Concurrent Get calls for the same id share one construction.
type Cache struct {
	loader   segment.Loader
	mu       sync.RWMutex
	sessions map[model.ModelID]segment.Session
	group    singleflight.Group
}

func New(loader segment.Loader) *Cache {
	return &Cache{
		loader:   loader,
		sessions: make(map[model.ModelID]segment.Session),
	}
}

func (c *Cache) Get(ctx context.Context, id model.ModelID) (segment.Session, error) {
	if s, ok := c.lookup(id); ok {
		return s, nil
	}

	v, err, _ := c.group.Do(string(id), func() (any, error) {
		// повторная проверка: пока ждали очередь, сессию мог создать предыдущий вызов
		if s, ok := c.lookup(id); ok {
			return s, nil
		}

		s, err := c.loader(ctx, id)
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, errors.New("loader returned nil session")
		}

		c.mu.Lock()
		c.sessions[id] = s
		c.mu.Unlock()

		log.Printf("Model session %q loaded", id)
		return s, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", model.ErrModelLoad, id, err)
	}

	return v.(segment.Session), nil
}

func (c *Cache) lookup(id model.ModelID) (segment.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.sessions[id]
	return s, ok
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.sessions)
}

// Close destroys every live session. The cache stays usable: next Get loads the model again.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for id, s := range c.sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close session %q: %w", id, err))
		}
		delete(c.sessions, id)
	}
	return errors.Join(errs...)
}
