package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// keys longer than this are shortened with hash.
const maxKeyLength = 200

// Key derives a cache key from prefix and named parameters.
//
// Parameters with empty value are omitted. The others are joined in order of names:
//
//	prefix?k1=v1&k2=v2
//
// When no parameters remain, the key is prefix itself.
// When the key gets longer than 200 characters, it is replaced with
//
//	prefix:<first 16 hex chars of SHA-256 of the long key>
//
// so it stays addressable by a "prefix*" pattern.
func Key(prefix string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		names = append(names, k)
	}
	if len(names) == 0 {
		return prefix
	}
	sort.Strings(names)

	b := new(strings.Builder)
	b.WriteString(prefix)
	b.WriteString("?")
	for i, k := range names {
		if 0 < i {
			b.WriteString("&")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
	}

	key := b.String()
	if len(key) <= maxKeyLength {
		return key
	}
	sum := sha256.Sum256([]byte(key))
	return prefix + ":" + hex.EncodeToString(sum[:])[:16]
}
