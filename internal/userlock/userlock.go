// Package userlock serializes work per key (normally a user id) so that
// check-then-act sequences for the same user never interleave.
package userlock

import (
	"context"
	"sync"
)

// Locker acquires an exclusive lock for key, blocking until it is free or
// ctx is done. The returned unlock func is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type entry struct {
	ch   chan struct{}
	refs int
}

// Memory is an in-process keyed mutex. Entries are dropped once no caller
// holds or waits for them.
type Memory struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// NewMemory builds an in-process locker.
func NewMemory() *Memory {
	return &Memory{locks: make(map[string]*entry)}
}

func (m *Memory) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		m.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			m.release(key, e)
		})
	}, nil
}

func (m *Memory) release(key string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
}

func (m *Memory) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
