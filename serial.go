// Copyright 2021 The httpq Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpq

import "sync"

// serial runs functions one at a time, in the order they were posted,
// on a single goroutine. Its mailbox is unbounded so posting never
// blocks, which lets task goroutines report to the client while the
// client is waiting for them to stop.
type serial struct {
	mu     sync.Mutex
	fns    []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func newSerial() *serial {
	s := &serial{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go s.loop()
	return s
}

// post schedules fn and reports false if s has been closed.
func (s *serial) post(fn func()) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.fns = append(s.fns, fn)
	s.mu.Unlock()
	s.signal()
	return true
}

// sync runs fn and waits for it to return. It must never be called
// from the serial goroutine itself.
func (s *serial) sync(fn func()) bool {
	ch := make(chan struct{})
	if !s.post(func() {
		defer close(ch)
		fn()
	}) {
		return false
	}
	<-ch
	return true
}

// close stops accepting new functions. Functions already posted still
// run before the goroutine exits.
func (s *serial) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.signal()
}

func (s *serial) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *serial) loop() {
	defer close(s.done)
	for {
		s.mu.Lock()
		fns := s.fns
		s.fns = nil
		closed := s.closed
		s.mu.Unlock()

		if len(fns) == 0 {
			if closed {
				return
			}
			<-s.wake
			continue
		}
		for _, fn := range fns {
			fn()
		}
	}
}
