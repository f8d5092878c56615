// Package selection holds the winner draw. It is pure: no I/O, no side
// effects, and the random source is injected so tests can fix the outcome.
package selection

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sort"
)

// Pick draws a uniform sample of size count from entrantIDs without
// replacement. Every entrant has equal selection probability regardless of
// iteration order: the ids are sorted before the draw so the outcome depends
// only on the id set and the source. If count covers the whole set, the
// full set is returned; an empty set yields an empty draw.
func Pick(entrantIDs []string, count int, src rand.Source) []string {
	if count <= 0 || len(entrantIDs) == 0 {
		return []string{}
	}

	pool := make([]string, len(entrantIDs))
	copy(pool, entrantIDs)
	sort.Strings(pool)

	if len(pool) <= count {
		return pool
	}

	// Partial Fisher-Yates: only the first count positions need settling.
	rng := rand.New(src)
	for i := 0; i < count; i++ {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}

	return pool[:count]
}

// NewDrawSource returns a math/rand source seeded from crypto/rand. One
// source is created per draw, never per entrant.
func NewDrawSource() rand.Source {
	var seed int64
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(buf[:]))
	}
	return rand.NewSource(seed)
}
