package hashfunc

// HashAlgorithm - Interface that permits an implementation using the hash table to supply a custom hash function
// suited for its particular distribution of keys.
//
// The hash function is agnostic of the table size, the table itself maps the returned value to a bucket by
// taking it modulo the number of buckets. Implementations must be deterministic (same bytes always give the same
// value) and safe for concurrent use, since the table calls HashFunc from many goroutines without any locking.
type HashAlgorithm interface {
	// HashFunc - Given key it generates a 32 bit hash value.
	// Empty keys are valid and must yield a defined value.
	HashFunc(key []byte) uint32
}
