package cache

import (
	"encoding/json"
	"sort"
	"time"
)

// Entry is a cached value with its bookkeeping.
type Entry struct {
	Key  string
	Data any

	CreatedAt time.Time

	// 0: never stored. negative: never expires by time.
	TTLSeconds int

	AccessCount    int
	LastAccessedAt time.Time

	Tags map[string]struct{}
}

// Expired reports whether the entry has outlived its TTL at now.
//
// The entry is still alive just at CreatedAt + TTL.
func (e *Entry) Expired(now time.Time) bool {
	if e.TTLSeconds <= 0 {
		return false
	}
	return now.Sub(e.CreatedAt) > time.Duration(e.TTLSeconds)*time.Second
}

// EntryInfo is a snapshot of Entry for reports. It does not contain Data itself.
type EntryInfo struct {
	Key         string   `json:"key"`
	SizeBytes   int      `json:"size_bytes"`
	AgeSeconds  float64  `json:"age_seconds"`
	TTLSeconds  int      `json:"ttl_seconds"`
	AccessCount int      `json:"access_count"`
	Tags        []string `json:"tags"`
	Expired     bool     `json:"is_expired"`
}

func (e *Entry) info(now time.Time) EntryInfo {
	size := 0
	if e.Data != nil {
		if b, err := json.Marshal(e.Data); err == nil {
			size = len(b)
		}
	}
	tags := make([]string, 0, len(e.Tags))
	for t := range e.Tags {
		tags = append(tags, t)
	}
	sort.Strings(tags)

	return EntryInfo{
		Key:         e.Key,
		SizeBytes:   size,
		AgeSeconds:  now.Sub(e.CreatedAt).Seconds(),
		TTLSeconds:  e.TTLSeconds,
		AccessCount: e.AccessCount,
		Tags:        tags,
		Expired:     e.Expired(now),
	}
}

// Stats is a snapshot of cache statistics.
type Stats struct {
	Size           int     `json:"size"`
	MaxSize        int     `json:"max_size"`
	Hits           uint64  `json:"hits"`
	Misses         uint64  `json:"misses"`
	HitRatePercent float64 `json:"hit_rate_percent"`
	Evictions      uint64  `json:"evictions"`
	Invalidations  uint64  `json:"invalidations"`
	DistinctTags   int     `json:"tags_count"`
}
