package session

import (
	"sync"
	"sync/atomic"
)

// Store owns a PageState value and serializes every change to it.
// Reads return a copy of the current value; updates go through a
// replace-by-function so partial writes can never be observed.
type Store struct {
	mu     sync.Mutex
	state  PageState
	gen    atomic.Uint64
	subs   map[uint64]*subscriber
	nextID uint64
}

// NewStore returns a store seeded with the given initial state.
func NewStore(initial PageState) *Store {
	return &Store{state: initial, subs: make(map[uint64]*subscriber)}
}

// Read returns the current snapshot.
func (s *Store) Read() PageState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update atomically replaces the state with fn(current) and publishes
// the new value to every subscriber. It returns the new state.
func (s *Store) Update(fn func(PageState) PageState) PageState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = fn(s.state)
	s.publishLocked(s.state)
	return s.state
}

// BeginGeneration advances the store's refresh generation and returns
// the new value. Work started under an older generation is stale.
func (s *Store) BeginGeneration() uint64 {
	return s.gen.Add(1)
}

// Generation returns the current refresh generation.
func (s *Store) Generation() uint64 {
	return s.gen.Load()
}

// UpdateIf applies fn only when gen is still the current generation,
// reporting whether the update happened. Stale callers get false and
// the state is left untouched.
func (s *Store) UpdateIf(gen uint64, fn func(PageState) PageState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen.Load() != gen {
		return false
	}
	s.state = fn(s.state)
	s.publishLocked(s.state)
	return true
}

// Subscribe returns a channel that receives every state published after
// this call, in publish order, plus a cancel function. The current value
// is not replayed; callers wanting it pair Subscribe with Read. A slow
// receiver never blocks writers: values queue per subscriber.
func (s *Store) Subscribe() (<-chan PageState, func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	sub := newSubscriber()
	s.subs[id] = sub
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		sub.stop()
	}
	return sub.out, cancel
}

func (s *Store) publishLocked(v PageState) {
	for _, sub := range s.subs {
		sub.push(v)
	}
}

// subscriber decouples publishing from delivery with an unbounded queue
// drained by a dedicated goroutine, so Update never waits on a receiver.
type subscriber struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []PageState
	closed bool
	done   chan struct{}
	out    chan PageState
}

func newSubscriber() *subscriber {
	sub := &subscriber{
		done: make(chan struct{}),
		out:  make(chan PageState),
	}
	sub.cond = sync.NewCond(&sub.mu)
	go sub.run()
	return sub
}

func (sub *subscriber) push(v PageState) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed {
		return
	}
	sub.queue = append(sub.queue, v)
	sub.cond.Signal()
}

func (sub *subscriber) stop() {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return
	}
	sub.closed = true
	close(sub.done)
	sub.mu.Unlock()
	sub.cond.Signal()
}

func (sub *subscriber) run() {
	for {
		sub.mu.Lock()
		for len(sub.queue) == 0 && !sub.closed {
			sub.cond.Wait()
		}
		if sub.closed {
			sub.mu.Unlock()
			close(sub.out)
			return
		}
		v := sub.queue[0]
		sub.queue = sub.queue[1:]
		sub.mu.Unlock()

		select {
		case sub.out <- v:
		case <-sub.done:
			close(sub.out)
			return
		}
	}
}
