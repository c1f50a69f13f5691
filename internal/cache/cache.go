// Package cache holds the most recent match list per profile snapshot. It never computes
// matches itself; callers decide to compute on a miss and store the result with Put or
// GetOrCompute. The first stored result for a key wins until the key is invalidated.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/david/scholar-match/internal/models"
)

var (
	ErrMiss     = errors.New("cache: key not found")
	ErrKeyEmpty = errors.New("cache: key cannot be empty")
)

// Store is the storage behind MatchCache. PutIfAbsent must be atomic per key: when a
// value already exists it is returned unchanged with created=false.
type Store interface {
	Get(ctx context.Context, key string) (models.MatchSet, error)
	PutIfAbsent(ctx context.Context, key string, set models.MatchSet) (stored models.MatchSet, created bool, err error)
	Delete(ctx context.Context, key string) error
}

// Observer is notified of lookups. A nil Observer is ignored.
type Observer interface {
	ObserveCacheLookup(hit bool)
}

type MatchCache struct {
	store    Store
	logger   *zap.Logger
	observer Observer
	group    singleflight.Group

	// genMu orders Invalidate against stores made by GetOrCompute. A key's generation
	// moves on every Invalidate, and a computation started under an older generation is
	// returned to its callers but never stored.
	genMu       sync.Mutex
	generations map[string]uint64
}

func NewMatchCache(store Store, logger *zap.Logger, observer Observer) *MatchCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchCache{
		store:       store,
		logger:      logger.Named("cache"),
		observer:    observer,
		generations: make(map[string]uint64),
	}
}

// Get returns the cached set for identity. Store failures are logged and reported as a miss.
func (c *MatchCache) Get(ctx context.Context, identity string) (models.MatchSet, bool) {
	if identity == "" {
		return models.MatchSet{}, false
	}
	set, err := c.store.Get(ctx, identity)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Warn("cache read failed", zap.String("key", identity), zap.Error(err))
		}
		c.observe(false)
		return models.MatchSet{}, false
	}
	c.observe(true)
	return set, true
}

// Put stores set unless a result already exists for identity, and returns whichever
// result is stored after the call.
func (c *MatchCache) Put(ctx context.Context, identity string, set models.MatchSet) (models.MatchSet, error) {
	if identity == "" {
		return models.MatchSet{}, ErrKeyEmpty
	}
	stored, created, err := c.store.PutIfAbsent(ctx, identity, set)
	if err != nil {
		return set, fmt.Errorf("cache put %s: %w", identity, err)
	}
	if !created {
		c.logger.Debug("discarding duplicate computation", zap.String("key", identity))
	}
	return stored, nil
}

// Invalidate drops the stored set for identity. A computation already in flight for it
// still answers its own callers but cannot store its result afterwards.
func (c *MatchCache) Invalidate(ctx context.Context, identity string) error {
	if identity == "" {
		return ErrKeyEmpty
	}
	c.genMu.Lock()
	defer c.genMu.Unlock()
	c.generations[identity]++
	c.group.Forget(identity)
	if err := c.store.Delete(ctx, identity); err != nil {
		return fmt.Errorf("cache invalidate %s: %w", identity, err)
	}
	return nil
}

// GetOrCompute serves identity from the store, or runs compute once for all concurrent
// callers of the same identity and stores its result. cached reports whether the result
// came from the store. A compute error is returned to every waiting caller and nothing is
// stored.
//
// The shared computation runs detached from any single caller's cancellation, so one
// caller giving up does not fail the others. A caller whose ctx ends stops waiting and
// gets ctx.Err(); the computation still finishes and is stored for the next request.
func (c *MatchCache) GetOrCompute(ctx context.Context, identity string, compute func(ctx context.Context) (models.MatchSet, error)) (set models.MatchSet, cached bool, err error) {
	if identity == "" {
		return models.MatchSet{}, false, ErrKeyEmpty
	}
	if set, ok := c.Get(ctx, identity); ok {
		return set, true, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(identity, func() (interface{}, error) {
		gen := c.generation(identity)
		if set, ok := c.Get(flightCtx, identity); ok {
			return set, nil
		}
		computed, err := compute(flightCtx)
		if err != nil {
			return nil, err
		}
		return c.storeIfCurrent(flightCtx, identity, gen, computed), nil
	})

	select {
	case <-ctx.Done():
		return models.MatchSet{}, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return models.MatchSet{}, false, res.Err
		}
		return cloneSet(res.Val.(models.MatchSet)), false, nil
	}
}

func (c *MatchCache) generation(identity string) uint64 {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	return c.generations[identity]
}

// storeIfCurrent puts computed unless identity was invalidated after gen was read, and
// returns the set callers should see.
func (c *MatchCache) storeIfCurrent(ctx context.Context, identity string, gen uint64, computed models.MatchSet) models.MatchSet {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	if c.generations[identity] != gen {
		c.logger.Debug("skipping store of pre-invalidation result", zap.String("key", identity))
		return computed
	}
	stored, err := c.Put(ctx, identity, computed)
	if err != nil {
		c.logger.Warn("failed to store match set", zap.String("key", identity), zap.Error(err))
		return computed
	}
	return stored
}

func (c *MatchCache) observe(hit bool) {
	if c.observer != nil {
		c.observer.ObserveCacheLookup(hit)
	}
}

// cloneSet copies set deeply enough that callers cannot reach stored state through it.
func cloneSet(set models.MatchSet) models.MatchSet {
	if set.Matches == nil {
		return set
	}
	matches := make([]models.MatchResult, len(set.Matches))
	for i, m := range set.Matches {
		m.MatchReasons = cloneStrings(m.MatchReasons)
		m.RequirementsMet = cloneStrings(m.RequirementsMet)
		m.PotentialConcerns = cloneStrings(m.PotentialConcerns)
		if m.Scholarship != nil {
			sch := *m.Scholarship
			sch.Countries = cloneStrings(sch.Countries)
			sch.EducationLevels = cloneStrings(sch.EducationLevels)
			sch.FieldsOfStudy = cloneStrings(sch.FieldsOfStudy)
			sch.RequiredDocuments = cloneStrings(sch.RequiredDocuments)
			if sch.Deadline != nil {
				d := *sch.Deadline
				sch.Deadline = &d
			}
			m.Scholarship = &sch
		}
		matches[i] = m
	}
	set.Matches = matches
	return set
}

func cloneStrings(v []string) []string {
	if v == nil {
		return nil
	}
	return append([]string(nil), v...)
}
