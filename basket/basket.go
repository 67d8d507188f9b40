// Package basket keeps the visitor's selected services between requests.
package basket

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"slices"
	"sync"
	"time"

	"github.com/pitabwire/util"

	"github.com/renovo-atelier/atelier/cache"
)

const lockStripes = 64

// ErrNoSession is returned when a basket without a session is changed.
var ErrNoSession = errors.New("basket has no session")

// Item is one selected service. ID is the product title and is unique
// within a basket.
type Item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Price string `json:"price"`
	Image string `json:"image"`
}

// Store holds basket contents per session in a cache backend. Mutations of
// one session are serialized within the process; concurrent writers in
// other processes race and the last write wins.
type Store struct {
	items *cache.JSON[[]Item]
	ttl   time.Duration
	locks [lockStripes]sync.Mutex
}

// NewStore keeps baskets in raw under "basket:<session>" keys. Every
// write refreshes the entry for ttl.
func NewStore(raw cache.RawCache, ttl time.Duration) *Store {
	return &Store{
		items: cache.NewJSON[[]Item](raw, "basket"),
		ttl:   ttl,
	}
}

func (s *Store) lock(session string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(session))
	mu := &s.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

// Items lists the basket of a session in insertion order.
func (s *Store) Items(ctx context.Context, session string) ([]Item, error) {
	if session == "" {
		return nil, nil
	}
	items, _, err := s.items.Get(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("load basket: %w", err)
	}
	return items, nil
}

// Contains reports whether the basket holds an item with id.
func (s *Store) Contains(ctx context.Context, session, id string) (bool, error) {
	items, err := s.Items(ctx, session)
	if err != nil {
		return false, err
	}
	return indexOf(items, id) >= 0, nil
}

// Add appends item unless an item with the same ID is already present.
// It reports whether the basket changed.
func (s *Store) Add(ctx context.Context, session string, item Item) (bool, error) {
	defer s.lock(session)()

	items, err := s.Items(ctx, session)
	if err != nil {
		return false, err
	}
	if indexOf(items, item.ID) >= 0 {
		return false, nil
	}
	if err = s.save(ctx, session, append(items, item)); err != nil {
		return false, err
	}

	util.Log(ctx).WithField("session", session).WithField("item", item.ID).Debug("basket item added")
	return true, nil
}

// Remove deletes the item with id. It reports whether the basket changed.
func (s *Store) Remove(ctx context.Context, session, id string) (bool, error) {
	defer s.lock(session)()

	items, err := s.Items(ctx, session)
	if err != nil {
		return false, err
	}
	idx := indexOf(items, id)
	if idx < 0 {
		return false, nil
	}
	if err = s.save(ctx, session, slices.Delete(items, idx, idx+1)); err != nil {
		return false, err
	}

	util.Log(ctx).WithField("session", session).WithField("item", id).Debug("basket item removed")
	return true, nil
}

// Toggle removes item when present and adds it otherwise, as one step.
// It reports whether the item is in the basket afterwards.
func (s *Store) Toggle(ctx context.Context, session string, item Item) (bool, error) {
	defer s.lock(session)()

	items, err := s.Items(ctx, session)
	if err != nil {
		return false, err
	}

	added := true
	if idx := indexOf(items, item.ID); idx >= 0 {
		items = slices.Delete(items, idx, idx+1)
		added = false
	} else {
		items = append(items, item)
	}
	if err = s.save(ctx, session, items); err != nil {
		return false, err
	}

	util.Log(ctx).WithFields(map[string]any{
		"session": session,
		"item":    item.ID,
		"added":   added,
	}).Debug("basket item toggled")
	return added, nil
}

// Clear empties the basket of a session.
func (s *Store) Clear(ctx context.Context, session string) error {
	defer s.lock(session)()

	if err := s.items.Delete(ctx, session); err != nil {
		return fmt.Errorf("clear basket: %w", err)
	}
	return nil
}

func (s *Store) save(ctx context.Context, session string, items []Item) error {
	if err := s.items.Set(ctx, session, items, s.ttl); err != nil {
		return fmt.Errorf("save basket: %w", err)
	}
	return nil
}

func indexOf(items []Item, id string) int {
	return slices.IndexFunc(items, func(it Item) bool { return it.ID == id })
}
