// Package hashtable implements a fixed size, separately chained hash table that is safe for concurrent use.
//
// Every bucket carries its own read/write lock. Insert, Lookup, Update, Compute and Remove take exactly one bucket
// lock each, so they can never deadlock against each other and operations on different buckets run fully in
// parallel. The few operations that need the whole table (Count, Snapshot, Range and Stat) acquire the bucket locks
// in ascending bucket order and release them in reverse order.
//
// The number of buckets is fixed when the table is created; there is no resizing.
package hashtable

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/ryanengphoto/concurrent-hash-table/hashfunc"
	"github.com/ryanengphoto/concurrent-hash-table/internal/hash"
	"github.com/ryanengphoto/concurrent-hash-table/internal/utils"
	"go.uber.org/zap"
)

// LockMode - Tells whether a bucket lock is held shared (ReadLock) or exclusively (WriteLock)
type LockMode int

const (
	ReadLock LockMode = iota
	WriteLock
)

// String - Returns READ or WRITE
func (L LockMode) String() string {
	if L == WriteLock {
		return "WRITE"
	}
	return "READ"
}

// LockObserver - Receives an event every time a bucket lock is acquired or released.
// Both methods are called while the lock is held, Acquired right after acquiring and Released right before
// releasing. Implementations must be safe for concurrent use and must never call back into the table.
type LockObserver interface {
	Acquired(bucketNo int, mode LockMode)
	Released(bucketNo int, mode LockMode)
}

type nopObserver struct{}

func (nopObserver) Acquired(int, LockMode) {}
func (nopObserver) Released(int, LockMode) {}

// Entry - One key/value pair stored in a bucket, along with the hash value of its key
type Entry[K comparable, V any] struct {
	Hash  uint32
	Key   K
	Value V
}

// HashMapStat - Statistics on the overall usage and distribution over buckets
//   - Records is the total number of records stored
//   - BucketsInUse is the number of buckets holding at least one record
//   - LongestChain is the number of records in the fullest bucket
//   - BucketDistribution is the number of records stored in each bucket, nil unless asked for
type HashMapStat struct {
	Records            int
	BucketsInUse       int
	LongestChain       int
	BucketDistribution []int
}

type bucket[K comparable, V any] struct {
	mu       sync.RWMutex
	entries  []Entry[K, V]
	poisoned atomic.Bool
}

// find - Returns the index of the entry with the given key, or -1. Must be called with the bucket lock held.
func (b *bucket[K, V]) find(hashValue uint32, key K) int {
	for i := range b.entries {
		if b.entries[i].Hash == hashValue && b.entries[i].Key == key {
			return i
		}
	}
	return -1
}

// removeAt - Removes entry i by moving the last entry into its place. Must be called with the bucket write lock held.
func (b *bucket[K, V]) removeAt(i int) {
	last := len(b.entries) - 1
	b.entries[i] = b.entries[last]
	b.entries[last] = Entry[K, V]{}
	b.entries = b.entries[:last]
}

type options struct {
	hashAlgorithm hashfunc.HashAlgorithm
	logger        *zap.Logger
	observer      LockObserver
}

// Option - Optional configuration given to New
type Option func(*options)

// WithHashAlgorithm - Uses a custom hash algorithm instead of the default Jenkins one-at-a-time hash
func WithHashAlgorithm(hashAlgorithm hashfunc.HashAlgorithm) Option {
	return func(o *options) {
		if hashAlgorithm != nil {
			o.hashAlgorithm = hashAlgorithm
		}
	}
}

// WithLogger - Sets the logger used to report poisoned and reset buckets
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLockObserver - Registers an observer of every bucket lock acquisition and release
func WithLockObserver(observer LockObserver) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// Table - The main implementation struct. It must be shared by pointer and must not be copied after first use.
type Table[K comparable, V any] struct {
	buckets       []*bucket[K, V]
	hashAlgorithm hashfunc.HashAlgorithm
	logger        *zap.Logger
	observer      LockObserver
	checkKeys     bool
	size          atomic.Int64
}

// New - Returns a new, empty table with a fixed number of buckets.
//   - bucketCount is the number of buckets, it must be a positive value higher than 0 (zero)
//   - opts are optional settings, see WithHashAlgorithm, WithLogger and WithLockObserver
//
// It returns:
//   - table is a pointer to a Table struct
//   - err is of type InvalidBucketCount if bucketCount is zero or negative, the count is never silently clamped
func New[K comparable, V any](bucketCount int, opts ...Option) (table *Table[K, V], err error) {
	if bucketCount <= 0 {
		err = InvalidBucketCount{msg: fmt.Sprintf("bucket count must be a positive value higher than 0 (zero), got %d", bucketCount)}
		return
	}

	o := options{
		hashAlgorithm: hash.NewJenkinsHashAlgorithm(),
		logger:        zap.NewNop(),
		observer:      nopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	buckets := make([]*bucket[K, V], bucketCount)
	for i := range buckets {
		buckets[i] = &bucket[K, V]{}
	}

	table = &Table[K, V]{
		buckets:       buckets,
		hashAlgorithm: o.hashAlgorithm,
		logger:        o.logger,
		observer:      o.observer,
		checkKeys:     utils.MayHoldUncomparable(reflect.TypeFor[K]()),
	}

	return
}

// NumberOfBuckets - Returns the fixed number of buckets the table was created with
func (T *Table[K, V]) NumberOfBuckets() int {
	return len(T.buckets)
}

// HashOf - Returns the raw hash value of the key, before it is mapped to a bucket
func (T *Table[K, V]) HashOf(key K) uint32 {
	return T.hashAlgorithm.HashFunc(utils.KeyBytes(key))
}

// GetBucketNo - Returns which bucket number that the given key results in
func (T *Table[K, V]) GetBucketNo(key K) int {
	return utils.BucketNo(T.HashOf(key), len(T.buckets))
}

// locate - Returns the hash value and bucket number for key.
// Keys whose type can hold an interface are checked first, a key that would panic when compared is refused with
// UncomparableKey before any lock is taken.
func (T *Table[K, V]) locate(key K) (hashValue uint32, bucketNo int, err error) {
	if T.checkKeys && !utils.IsComparable(key) {
		err = UncomparableKey{msg: fmt.Sprintf("key of type %T is not comparable", key)}
		return
	}

	hashValue = T.HashOf(key)
	bucketNo = utils.BucketNo(hashValue, len(T.buckets))
	return
}

// lock - Locks the bucket. The caller defers unlock right after and only then notifies the observer, so that a
// panicking observer can't leave the bucket locked.
func (T *Table[K, V]) lock(bucketNo int, mode LockMode) *bucket[K, V] {
	b := T.buckets[bucketNo]
	if mode == WriteLock {
		b.mu.Lock()
	} else {
		b.mu.RLock()
	}
	return b
}

func (T *Table[K, V]) tryLock(bucketNo int, mode LockMode) (*bucket[K, V], bool) {
	b := T.buckets[bucketNo]
	if mode == WriteLock {
		return b, b.mu.TryLock()
	}
	return b, b.mu.TryRLock()
}

// unlock - Notifies the observer and unlocks the bucket, the bucket is unlocked even if the observer panics
func (T *Table[K, V]) unlock(bucketNo int, mode LockMode) {
	b := T.buckets[bucketNo]
	if mode == WriteLock {
		defer b.mu.Unlock()
	} else {
		defer b.mu.RUnlock()
	}
	T.observer.Released(bucketNo, mode)
}

// critical - Runs fn on a bucket whose lock is already held in the given mode.
// A poisoned bucket is refused. A panic inside fn poisons the bucket and is returned as a BucketPoisoned error
// instead of unwinding further; the caller's deferred unlock still runs. This holds for read locked sections too,
// although with uncomparable keys refused by locate only a Compute callback can panic while a bucket is locked.
func (T *Table[K, V]) critical(b *bucket[K, V], bucketNo int, mode LockMode, fn func(b *bucket[K, V])) (err error) {
	if b.poisoned.Load() {
		return BucketPoisoned{bucketNo: bucketNo}
	}

	defer func() {
		if r := recover(); r != nil {
			b.poisoned.Store(true)
			T.logger.Error("bucket poisoned by panic in critical section",
				zap.Int("bucket", bucketNo),
				zap.Stringer("mode", mode),
				zap.Any("panic", r),
			)
			err = BucketPoisoned{bucketNo: bucketNo, cause: r}
		}
	}()

	fn(b)

	return
}

// withBucket - Locks a single bucket in the given mode for exactly the duration of fn
func (T *Table[K, V]) withBucket(bucketNo int, mode LockMode, fn func(b *bucket[K, V])) error {
	b := T.lock(bucketNo, mode)
	defer T.unlock(bucketNo, mode)
	T.observer.Acquired(bucketNo, mode)

	return T.critical(b, bucketNo, mode, fn)
}

// tryWithBucket - As withBucket, but returns BucketBusy rather than waiting for the lock
func (T *Table[K, V]) tryWithBucket(bucketNo int, mode LockMode, fn func(b *bucket[K, V])) error {
	b, ok := T.tryLock(bucketNo, mode)
	if !ok {
		return BucketBusy{bucketNo: bucketNo}
	}
	defer T.unlock(bucketNo, mode)
	T.observer.Acquired(bucketNo, mode)

	return T.critical(b, bucketNo, mode, fn)
}

// withAllBuckets - Read locks every bucket in ascending bucket order, runs fn and releases the locks in reverse
// order. This is the only place where more than one bucket lock is held at a time.
func (T *Table[K, V]) withAllBuckets(fn func(buckets []*bucket[K, V])) error {
	for i := range T.buckets {
		T.lock(i, ReadLock)
		defer T.unlock(i, ReadLock)
		T.observer.Acquired(i, ReadLock)
	}

	for i, b := range T.buckets {
		if b.poisoned.Load() {
			return BucketPoisoned{bucketNo: i}
		}
	}

	fn(T.buckets)

	return nil
}
