package auth

// WithCompare swaps the password comparer.
func (s *Service) WithCompare(compare func(hash, password []byte) error) *Service {
	s.compare = compare
	return s
}
