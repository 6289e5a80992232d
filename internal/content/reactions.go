package content

// Like bumps the like counter and returns the new value. Repeated calls keep
// counting; there is no per-user like state.
func (s *Store) Like(id int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.find(id)
	if a == nil {
		return 0, ErrNotFound
	}
	a.LikeCount++
	return a.LikeCount, nil
}

// Unlike decrements the like counter, stopping at zero.
func (s *Store) Unlike(id int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.find(id)
	if a == nil {
		return 0, ErrNotFound
	}
	a.LikeCount = max(0, a.LikeCount-1)
	return a.LikeCount, nil
}
