// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package semaphore provides a named counting semaphore with usage
// counters, used to bound parser concurrency during mining.
package semaphore

import (
	"context"
	"sync/atomic"
)

// Semaphore bounds concurrent work to a fixed capacity.
type Semaphore struct {
	name string
	ch   chan struct{}

	waits atomic.Int64
	reqs  atomic.Int64
}

// New creates a semaphore with name and capacity n.
func New(name string, n int) *Semaphore {
	ch := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		ch <- struct{}{}
	}
	return &Semaphore{name: name, ch: ch}
}

// WaitAcquire acquires a slot. It returns a func to release the slot, or
// the context's error if the context finishes first.
func (s *Semaphore) WaitAcquire(ctx context.Context) (func(), error) {
	s.waits.Add(1)
	defer s.waits.Add(-1)
	select {
	case <-s.ch:
		s.reqs.Add(1)
		return func() {
			s.ch <- struct{}{}
		}, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	}
}

// Name returns name of the semaphore.
func (s *Semaphore) Name() string {
	return s.name
}

// Capacity returns capacity of the semaphore.
func (s *Semaphore) Capacity() int {
	if s == nil {
		return 0
	}
	return cap(s.ch)
}

// NumServs returns number of slots currently held.
func (s *Semaphore) NumServs() int {
	return cap(s.ch) - len(s.ch)
}

// NumWaits returns number of waiters.
func (s *Semaphore) NumWaits() int {
	return int(s.waits.Load())
}

// NumRequests returns total number of acquisitions.
func (s *Semaphore) NumRequests() int {
	return int(s.reqs.Load())
}

// Do runs f while holding a slot.
func (s *Semaphore) Do(ctx context.Context, f func(ctx context.Context) error) error {
	done, err := s.WaitAcquire(ctx)
	if err != nil {
		return err
	}
	defer done()
	return f(ctx)
}
