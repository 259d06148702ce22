// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/z5labs/webserver/lifecycle"
)

// State is shared by the accept loop and every connection handler
// of a single [Runtime].
type State struct {
	lifecycle *lifecycle.Tracker

	listener atomic.Pointer[Listener]

	nextID   atomic.Uint64
	inFlight atomic.Int64

	mu    sync.Mutex
	conns map[uint64]net.Conn
	wg    sync.WaitGroup
}

func newState() *State {
	return &State{
		lifecycle: lifecycle.NewTracker(),
		conns:     make(map[uint64]net.Conn),
	}
}

// Lifecycle returns the current lifecycle state.
func (s *State) Lifecycle() lifecycle.State {
	return s.lifecycle.State()
}

// Watch returns a channel receiving each lifecycle state entered
// after the call.
func (s *State) Watch() <-chan lifecycle.State {
	return s.lifecycle.Watch()
}

// InFlight returns the number of connections currently being handled.
func (s *State) InFlight() int64 {
	return s.inFlight.Load()
}

// Addr returns the bound address, or nil before the listener is bound.
func (s *State) Addr() net.Addr {
	ls := s.listener.Load()
	if ls == nil {
		return nil
	}
	return ls.Addr()
}

// track must only be called from the accept loop so it never races
// with idle.
func (s *State) track(conn net.Conn) uint64 {
	id := s.nextID.Add(1)
	s.inFlight.Add(1)
	s.wg.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[id] = conn
	return id
}

func (s *State) done(id uint64) {
	s.mu.Lock()
	delete(s.conns, id)
	s.mu.Unlock()

	s.inFlight.Add(-1)
	s.wg.Done()
}

// idle is closed once every tracked connection is done.
func (s *State) idle() <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		defer close(ch)
		s.wg.Wait()
	}()
	return ch
}

// closeAll force closes every tracked connection and returns how many
// there were.
func (s *State) closeAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		conn.Close()
	}
	return len(s.conns)
}
