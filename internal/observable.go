package internal

import (
	"sync"
	"time"
)

// Observable is a push stream of values. Subscribe registers a callback and
// returns a function that cancels the subscription. Implementations with
// current-value semantics replay the latest value synchronously on Subscribe.
type Observable[T any] interface {
	Subscribe(fn func(T)) func()
}

// Cell is a current-value broadcast cell: it always holds a value from
// construction on, notifies subscribers on Set, and replays the latest value
// to new subscribers. Callbacks run outside the internal lock, in
// subscription order, with last-value-wins semantics.
type Cell[T any] struct {
	mu     sync.Mutex
	value  T
	nextID int
	subs   []cellSub[T]
}

type cellSub[T any] struct {
	id int
	fn func(T)
}

// NewCell returns a cell holding initial.
func NewCell[T any](initial T) *Cell[T] {
	return &Cell[T]{value: initial}
}

// Get returns the current value.
func (c *Cell[T]) Get() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set stores v and notifies all current subscribers.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	c.value = v
	fns := make([]func(T), len(c.subs))
	for i, s := range c.subs {
		fns[i] = s.fn
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

// Subscribe registers fn, replays the current value to it synchronously, and
// returns the cancel function. Cancelling twice is a no-op.
func (c *Cell[T]) Subscribe(fn func(T)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs = append(c.subs, cellSub[T]{id: id, fn: fn})
	v := c.value
	c.mu.Unlock()
	fn(v)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				break
			}
		}
	}
}

// funcObservable adapts a subscribe function to the Observable interface.
type funcObservable[T any] struct {
	sub func(fn func(T)) func()
}

func (o funcObservable[T]) Subscribe(fn func(T)) func() {
	return o.sub(fn)
}

// Just returns an observable that emits v once to every subscriber.
func Just[T any](v T) Observable[T] {
	return funcObservable[T]{sub: func(fn func(T)) func() {
		fn(v)
		return func() {}
	}}
}

// Map transforms every emission of src with f.
func Map[T, R any](src Observable[T], f func(T) R) Observable[R] {
	return funcObservable[R]{sub: func(fn func(R)) func() {
		return src.Subscribe(func(v T) {
			fn(f(v))
		})
	}}
}

// Distinct suppresses emissions that eq reports equal to the previous one.
// The first emission always passes.
func Distinct[T any](src Observable[T], eq func(a, b T) bool) Observable[T] {
	return funcObservable[T]{sub: func(fn func(T)) func() {
		var mu sync.Mutex
		var last T
		seen := false
		return src.Subscribe(func(v T) {
			mu.Lock()
			if seen && eq(last, v) {
				mu.Unlock()
				return
			}
			seen = true
			last = v
			mu.Unlock()
			fn(v)
		})
	}}
}

// Debounce delays every emission by window and drops it when a newer value
// arrives first: the output only updates once the input has been stable for
// the whole window, and the last value within a burst wins. Earlier values
// are dropped, never queued.
func Debounce[T any](src Observable[T], window time.Duration) Observable[T] {
	return funcObservable[T]{sub: func(fn func(T)) func() {
		var mu sync.Mutex
		var timer *time.Timer
		cancelled := false
		stop := src.Subscribe(func(v T) {
			mu.Lock()
			defer mu.Unlock()
			if cancelled {
				return
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(window, func() {
				mu.Lock()
				done := cancelled
				mu.Unlock()
				if !done {
					fn(v)
				}
			})
		})
		return func() {
			mu.Lock()
			cancelled = true
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			stop()
		}
	}}
}

// CombineLatest3 recomputes combine from the latest value of every input
// whenever any one of them emits, starting once all three have emitted at
// least once. With current-value inputs the first emission happens during
// subscription.
func CombineLatest3[A, B, C, R any](a Observable[A], b Observable[B], c Observable[C],
	combine func(A, B, C) R) Observable[R] {
	return funcObservable[R]{sub: func(fn func(R)) func() {
		var mu sync.Mutex
		var va A
		var vb B
		var vc C
		var seenA, seenB, seenC bool
		update := func(apply func()) {
			mu.Lock()
			apply()
			ready := seenA && seenB && seenC
			var r R
			if ready {
				r = combine(va, vb, vc)
			}
			mu.Unlock()
			if ready {
				fn(r)
			}
		}
		stopA := a.Subscribe(func(v A) { update(func() { va = v; seenA = true }) })
		stopB := b.Subscribe(func(v B) { update(func() { vb = v; seenB = true }) })
		stopC := c.Subscribe(func(v C) { update(func() { vc = v; seenC = true }) })
		return func() {
			stopA()
			stopB()
			stopC()
		}
	}}
}
