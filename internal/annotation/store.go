package annotation

import "sync"

// Store holds the current State for a canvas shared between goroutines.
type Store struct {
	mu       sync.Mutex
	notifyMu sync.Mutex
	state    State
	onChange func(State)
}

func NewStore(m Measurer) *Store {
	return &Store{state: NewState(m)}
}

// OnChange registers fn to run after every update. Calls are serialized in
// update order; fn must not update the store.
func (s *Store) OnChange(fn func(State)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update applies fn atomically and returns the new state.
func (s *Store) Update(fn func(State) State) State {
	s.mu.Lock()
	version := s.state.Version
	s.state = fn(s.state)
	s.state.Version = version + 1
	next, notify := s.state, s.onChange
	// taken before mu is released so notifications keep update order
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	if notify != nil {
		notify(next)
	}
	return next
}

// UpdateEffect is Update for transitions that also return an Effect.
func (s *Store) UpdateEffect(fn func(State) (State, Effect)) Effect {
	var effect Effect
	s.Update(func(st State) State {
		st, effect = fn(st)
		return st
	})
	return effect
}

// TryUpdate applies fn and keeps the result only if fn succeeds.
func (s *Store) TryUpdate(fn func(State) (State, error)) (State, error) {
	var err error
	next := s.Update(func(st State) State {
		var n State
		n, err = fn(st)
		if err != nil {
			return st
		}
		return n
	})
	return next, err
}
