package ws

import "sync"

// serializer hands out one mutex per project id. Holding a project's lock
// across a persist-and-broadcast sequence (and any assistant call it
// triggers) keeps the project's log and broadcasts strictly ordered, while
// other projects proceed in parallel. Entries are reference-counted and
// removed when unused, so idle projects cost nothing.
type serializer struct {
	mu    sync.Mutex
	locks map[string]*projectLock
}

type projectLock struct {
	mu   sync.Mutex
	refs int
}

func newSerializer() *serializer {
	return &serializer{locks: make(map[string]*projectLock)}
}

// acquire blocks until the project's lock is held and returns the release
// function.
func (s *serializer) acquire(projectID string) func() {
	s.mu.Lock()
	l, ok := s.locks[projectID]
	if !ok {
		l = &projectLock{}
		s.locks[projectID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, projectID)
		}
		s.mu.Unlock()
	}
}
