package cache

import "fmt"

// CheckIndex verifies that entries and the tag index agree with each other.
func CheckIndex(s *Store) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, e := range s.entries {
		if e.Key != k {
			return fmt.Errorf("entry %s is stored as %s", e.Key, k)
		}
		for t := range e.Tags {
			if _, ok := s.tags[t][k]; !ok {
				return fmt.Errorf("tag %s of %s is not indexed", t, k)
			}
		}
	}
	for t, keys := range s.tags {
		if len(keys) == 0 {
			return fmt.Errorf("tag %s has no keys", t)
		}
		for k := range keys {
			e, ok := s.entries[k]
			if !ok {
				return fmt.Errorf("tag %s refers missing key %s", t, k)
			}
			if _, ok := e.Tags[t]; !ok {
				return fmt.Errorf("tag %s refers %s, but the entry does not have it", t, k)
			}
		}
	}
	return nil
}
