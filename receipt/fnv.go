package receipt

import "hash/fnv"

// fnvHash is the literal §4.5 "sort-by-hash" algorithm: FNV-1a over the
// string's bytes. Deliberately stdlib (hash/fnv) rather than a third-party
// hash — the spec mandates this specific, simple algorithm for
// canonicalisation, not a cryptographic or higher-quality hash, so there is
// no library substitution opportunity here.
func fnvHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
