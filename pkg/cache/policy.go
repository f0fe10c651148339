package cache

import (
	"fmt"
	"strings"
)

// Policy is a time-to-live tier of cache entries.
type Policy int

const (
	// never stored.
	NoCache Policy = iota

	// 30 seconds
	ShortTerm

	// 2 minutes
	MediumTerm

	// 5 minutes
	LongTerm

	// never expires by time. It lives until invalidated (or evicted by size).
	Persistent
)

// TTLSeconds returns time-to-live in seconds.
//
// 0 means "do not store", and negative means "no time-based expiry".
func (p Policy) TTLSeconds() int {
	switch p {
	case ShortTerm:
		return 30
	case MediumTerm:
		return 120
	case LongTerm:
		return 300
	case Persistent:
		return -1
	default:
		return 0
	}
}

func (p Policy) String() string {
	switch p {
	case NoCache:
		return "no_cache"
	case ShortTerm:
		return "short_term"
	case MediumTerm:
		return "medium_term"
	case LongTerm:
		return "long_term"
	case Persistent:
		return "persistent"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy parses a name of Policy, as String() returns.
func ParsePolicy(s string) (Policy, error) {
	for _, p := range []Policy{NoCache, ShortTerm, MediumTerm, LongTerm, Persistent} {
		if strings.EqualFold(s, p.String()) {
			return p, nil
		}
	}
	return NoCache, fmt.Errorf("unknown cache policy: %s", s)
}
