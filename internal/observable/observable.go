// Package observable provides a small publish/subscribe value container used
// by the form view-models. A Value holds the current state; subscribers are
// called after every Set, outside the lock, in subscription order.
package observable

import (
	"sort"
	"sync"
)

// Readable is the read-only side of a Value.
type Readable[T any] interface {
	Get() T
	Subscribe(fn func(T)) (unsubscribe func())
}

type Value[T any] struct {
	mu   sync.RWMutex
	v    T
	subs map[int]func(T)
	next int
}

func New[T any](initial T) *Value[T] {
	return &Value[T]{v: initial, subs: make(map[int]func(T))}
}

func (o *Value[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.v
}

func (o *Value[T]) Set(v T) {
	o.mu.Lock()
	o.v = v
	fns := o.snapshot()
	o.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Subscribe registers fn for future changes. It does not fire for the
// current value.
func (o *Value[T]) Subscribe(fn func(T)) func() {
	o.mu.Lock()
	id := o.next
	o.next++
	o.subs[id] = fn
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
		})
	}
}

// snapshot must be called with mu held.
func (o *Value[T]) snapshot() []func(T) {
	ids := make([]int, 0, len(o.subs))
	for id := range o.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(T), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, o.subs[id])
	}
	return fns
}

// Map derives a value from src. fn runs once immediately and again on every
// change of src.
func Map[S, T any](src Readable[S], fn func(S) T) Readable[T] {
	out := New(fn(src.Get()))
	src.Subscribe(func(s S) { out.Set(fn(s)) })
	return out
}
