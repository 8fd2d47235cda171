// Package optimistic provides a controller for collections that are mutated
// locally before the backing store confirms the change. The caller sees the
// mutation immediately; a failed remote operation rolls the collection back.
package optimistic

import (
	"context"
	"sort"
	"sync"
	"time"
)

// State describes the outcome of the most recent mutation.
type State string

const (
	StateIdle       State = "idle"
	StatePending    State = "pending"
	StateConfirmed  State = "confirmed"
	StateRolledBack State = "rolled_back"
)

// Controller holds an ordered collection, newest first by creation time.
// Mutations are applied to the collection synchronously and undone if the
// remote operation fails. Concurrent mutations each hold their own undo
// delta, so an interleaved rollback may restore an item out of position
// before the re-sort; the collection is always re-sorted newest-first after
// a rollback.
type Controller[T any] struct {
	mu        sync.Mutex
	items     []T
	state     State
	id        func(T) string
	createdAt func(T) time.Time
}

// NewController creates a controller keyed by the given identity and
// creation-time accessors.
func NewController[T any](id func(T) string, createdAt func(T) time.Time) *Controller[T] {
	return &Controller[T]{
		state:     StateIdle,
		id:        id,
		createdAt: createdAt,
	}
}

// Replace swaps in a fresh collection, sorted newest first. Used when the
// authoritative list has been re-fetched.
func (c *Controller[T]) Replace(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]T(nil), items...)
	c.sortLocked()
	c.state = StateIdle
}

// Items returns a copy of the current collection.
func (c *Controller[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.items...)
}

// State returns the outcome of the most recent mutation.
func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Add prepends item to the collection, then runs remote. On failure the item
// is removed again and the remote error is returned; the error is recoverable
// and the collection is left as it was.
func (c *Controller[T]) Add(ctx context.Context, item T, remote func(context.Context) error) error {
	c.mu.Lock()
	c.items = append([]T{item}, c.items...)
	c.state = StatePending
	c.mu.Unlock()

	if err := remote(ctx); err != nil {
		c.mu.Lock()
		c.removeLocked(c.id(item))
		c.sortLocked()
		c.state = StateRolledBack
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.state = StateConfirmed
	c.mu.Unlock()
	return nil
}

// Remove deletes the item with the given id from the collection, then runs
// remote. On failure the item is restored and the collection re-sorted
// newest first.
func (c *Controller[T]) Remove(ctx context.Context, id string, remote func(context.Context) error) error {
	c.mu.Lock()
	removed, found := c.removeLocked(id)
	c.state = StatePending
	c.mu.Unlock()

	if err := remote(ctx); err != nil {
		c.mu.Lock()
		if found {
			c.items = append(c.items, removed)
			c.sortLocked()
		}
		c.state = StateRolledBack
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.state = StateConfirmed
	c.mu.Unlock()
	return nil
}

func (c *Controller[T]) removeLocked(id string) (T, bool) {
	for i, item := range c.items {
		if c.id(item) == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (c *Controller[T]) sortLocked() {
	sort.SliceStable(c.items, func(i, j int) bool {
		return c.createdAt(c.items[i]).After(c.createdAt(c.items[j]))
	})
}
