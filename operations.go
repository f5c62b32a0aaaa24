package hashtable

import (
	"fmt"

	"go.uber.org/zap"
)

// Insert - Updates the value of an existing entry with the same key or adds a new entry if no existing is found.
//   - key is the identifier of the entry
//   - value is stored by value, a later Lookup returns a copy of it
//
// It returns:
//   - err is of type UncomparableKey if key holds a value that can't be compared, otherwise nil unless the
//     bucket is poisoned, in which case it is of type BucketPoisoned
func (T *Table[K, V]) Insert(key K, value V) (err error) {
	hashValue, bucketNo, err := T.locate(key)
	if err != nil {
		return
	}

	return T.withBucket(bucketNo, WriteLock, func(b *bucket[K, V]) {
		T.set(b, hashValue, key, value)
	})
}

// TryInsert - As Insert, but returns an error of type BucketBusy instead of waiting if the bucket is locked
func (T *Table[K, V]) TryInsert(key K, value V) (err error) {
	hashValue, bucketNo, err := T.locate(key)
	if err != nil {
		return
	}

	return T.tryWithBucket(bucketNo, WriteLock, func(b *bucket[K, V]) {
		T.set(b, hashValue, key, value)
	})
}

// InsertIfAbsent - Adds a new entry only if no entry with the same key exists, an existing value is left untouched.
//
// It returns:
//   - inserted is true if the entry was added and false if the key was already present
//   - err is of type UncomparableKey if key holds a value that can't be compared, otherwise nil unless the
//     bucket is poisoned, in which case it is of type BucketPoisoned
func (T *Table[K, V]) InsertIfAbsent(key K, value V) (inserted bool, err error) {
	hashValue, bucketNo, err := T.locate(key)
	if err != nil {
		return
	}

	err = T.withBucket(bucketNo, WriteLock, func(b *bucket[K, V]) {
		if b.find(hashValue, key) >= 0 {
			return
		}
		b.entries = append(b.entries, Entry[K, V]{Hash: hashValue, Key: key, Value: value})
		T.size.Add(1)
		inserted = true
	})

	return
}

// Update - Replaces the value of an existing entry, nothing is added if the key is not present.
//
// It returns:
//   - old is the value that was replaced, the zero value if not found
//   - found is false if there was no entry with the key, which is not an error
//   - err is of type UncomparableKey if key holds a value that can't be compared, otherwise nil unless the
//     bucket is poisoned, in which case it is of type BucketPoisoned
func (T *Table[K, V]) Update(key K, value V) (old V, found bool, err error) {
	hashValue, bucketNo, err := T.locate(key)
	if err != nil {
		return
	}

	err = T.withBucket(bucketNo, WriteLock, func(b *bucket[K, V]) {
		i := b.find(hashValue, key)
		if i < 0 {
			return
		}
		old = b.entries[i].Value
		b.entries[i].Value = value
		found = true
	})

	return
}

// Compute - Atomically reads, modifies and writes the entry for key while holding its bucket lock.
//   - fn gets the current value (zero value if not found) and whether it was found. It returns the new value and
//     whether to keep it; keep false removes an existing entry or skips adding a new one. fn must not call back
//     into the table, and a panic inside fn poisons the bucket.
//
// It returns:
//   - value is the value stored after the call, the zero value if no entry is left
//   - present is true if an entry for key exists after the call
//   - err is of type UncomparableKey if key holds a value that can't be compared, otherwise nil unless the
//     bucket is or becomes poisoned, in which case it is of type BucketPoisoned
func (T *Table[K, V]) Compute(key K, fn func(old V, found bool) (newValue V, keep bool)) (value V, present bool, err error) {
	hashValue, bucketNo, err := T.locate(key)
	if err != nil {
		return
	}

	err = T.withBucket(bucketNo, WriteLock, func(b *bucket[K, V]) {
		i := b.find(hashValue, key)

		var old V
		if i >= 0 {
			old = b.entries[i].Value
		}

		newValue, keep := fn(old, i >= 0)
		switch {
		case keep && i >= 0:
			b.entries[i].Value = newValue
		case keep:
			b.entries = append(b.entries, Entry[K, V]{Hash: hashValue, Key: key, Value: newValue})
			T.size.Add(1)
		case i >= 0:
			b.removeAt(i)
			T.size.Add(-1)
		}

		if keep {
			value = newValue
			present = true
		}
	})

	return
}

// Lookup - Gets the value of the entry that corresponds to the given key.
//
// It returns:
//   - value is a copy of the stored value, the zero value if not found
//   - found is false if there is no entry with the key, which is not an error
//   - err is of type UncomparableKey if key holds a value that can't be compared, otherwise nil unless the
//     bucket is poisoned, in which case it is of type BucketPoisoned
func (T *Table[K, V]) Lookup(key K) (value V, found bool, err error) {
	hashValue, bucketNo, err := T.locate(key)
	if err != nil {
		return
	}

	err = T.withBucket(bucketNo, ReadLock, func(b *bucket[K, V]) {
		value, found = get(b, hashValue, key)
	})

	return
}

// TryLookup - As Lookup, but returns an error of type BucketBusy instead of waiting if the bucket is write locked
func (T *Table[K, V]) TryLookup(key K) (value V, found bool, err error) {
	hashValue, bucketNo, err := T.locate(key)
	if err != nil {
		return
	}

	err = T.tryWithBucket(bucketNo, ReadLock, func(b *bucket[K, V]) {
		value, found = get(b, hashValue, key)
	})

	return
}

// Remove - Returns the value of the entry corresponding to key and removes it from the table.
// The order of the remaining entries in the bucket is not preserved.
//
// It returns:
//   - value is the removed value, the zero value if not found
//   - found is false if there was no entry with the key, which is not an error
//   - err is of type UncomparableKey if key holds a value that can't be compared, otherwise nil unless the
//     bucket is poisoned, in which case it is of type BucketPoisoned
func (T *Table[K, V]) Remove(key K) (value V, found bool, err error) {
	hashValue, bucketNo, err := T.locate(key)
	if err != nil {
		return
	}

	err = T.withBucket(bucketNo, WriteLock, func(b *bucket[K, V]) {
		i := b.find(hashValue, key)
		if i < 0 {
			return
		}
		value = b.entries[i].Value
		found = true
		b.removeAt(i)
		T.size.Add(-1)
	})

	return
}

// Size - Returns the number of entries in the table from a running counter, without taking any lock.
// The counter is only changed while the mutating operation holds its bucket lock, so with no concurrent mutations
// it is exact, and while mutations are in flight it is the true count as of some point between them.
// Use Count for a value taken with the whole table locked.
func (T *Table[K, V]) Size() int {
	return int(T.size.Load())
}

// Count - Returns the number of entries by locking every bucket (in ascending order) and summing their lengths.
// It fails with BucketPoisoned if any bucket is poisoned.
func (T *Table[K, V]) Count() (n int, err error) {
	err = T.withAllBuckets(func(buckets []*bucket[K, V]) {
		for _, b := range buckets {
			n += len(b.entries)
		}
	})

	return
}

// Snapshot - Returns a copy of every entry, taken with all buckets locked at the same time so that the result is a
// consistent view of the table. Entries come in bucket order.
// It fails with BucketPoisoned if any bucket is poisoned.
func (T *Table[K, V]) Snapshot() (entries []Entry[K, V], err error) {
	err = T.withAllBuckets(func(buckets []*bucket[K, V]) {
		entries = make([]Entry[K, V], 0, T.Size())
		for _, b := range buckets {
			entries = append(entries, b.entries...)
		}
	})
	if err != nil {
		entries = nil
	}

	return
}

// Range - Calls fn for every entry of a consistent snapshot of the table until fn returns false.
// No locks are held while fn runs, so fn may use the table.
func (T *Table[K, V]) Range(fn func(entry Entry[K, V]) bool) (err error) {
	entries, err := T.Snapshot()
	if err != nil {
		return
	}

	for _, e := range entries {
		if !fn(e) {
			return
		}
	}

	return
}

// Stat - Walks through the entire set of buckets and produces a HashMapStat struct with information.
//   - includeDistribution set to true will include a slice of length NumberOfBuckets with number of records per
//     bucket, false will set HashMapStat.BucketDistribution to nil.
func (T *Table[K, V]) Stat(includeDistribution bool) (hashMapStat *HashMapStat, err error) {
	var hms HashMapStat
	if includeDistribution {
		hms.BucketDistribution = make([]int, len(T.buckets))
	}

	err = T.withAllBuckets(func(buckets []*bucket[K, V]) {
		for i, b := range buckets {
			n := len(b.entries)
			hms.Records += n
			if n > 0 {
				hms.BucketsInUse++
			}
			if n > hms.LongestChain {
				hms.LongestChain = n
			}
			if includeDistribution {
				hms.BucketDistribution[i] = n
			}
		}
	})
	if err != nil {
		return
	}

	hashMapStat = &hms
	return
}

// ResetBucket - Empties a bucket and clears its poisoned state. This is the only way to make a poisoned bucket
// usable again; the entries it held are discarded since they may be inconsistent.
//   - bucketNo is the number of the bucket, as returned by GetBucketNo or BucketPoisoned.BucketNo
//
// It returns:
//   - discarded is the number of entries that were dropped
//   - err is of type NoSuchBucket if bucketNo is outside the table
func (T *Table[K, V]) ResetBucket(bucketNo int) (discarded int, err error) {
	if bucketNo < 0 || bucketNo >= len(T.buckets) {
		err = NoSuchBucket{msg: fmt.Sprintf("bucket %d is outside 0 - %d", bucketNo, len(T.buckets)-1)}
		return
	}

	b := T.lock(bucketNo, WriteLock)
	defer T.unlock(bucketNo, WriteLock)
	T.observer.Acquired(bucketNo, WriteLock)

	discarded = len(b.entries)
	T.size.Add(-int64(discarded))
	b.entries = nil
	wasPoisoned := b.poisoned.Swap(false)

	T.logger.Warn("bucket reset",
		zap.Int("bucket", bucketNo),
		zap.Int("discarded", discarded),
		zap.Bool("was_poisoned", wasPoisoned),
	)

	return
}

// set - Updates or appends the entry. Must be called with the bucket write lock held.
func (T *Table[K, V]) set(b *bucket[K, V], hashValue uint32, key K, value V) {
	if i := b.find(hashValue, key); i >= 0 {
		b.entries[i].Value = value
		return
	}
	b.entries = append(b.entries, Entry[K, V]{Hash: hashValue, Key: key, Value: value})
	T.size.Add(1)
}

// get - Returns the value stored for key. Must be called with the bucket lock held.
func get[K comparable, V any](b *bucket[K, V], hashValue uint32, key K) (value V, found bool) {
	if i := b.find(hashValue, key); i >= 0 {
		return b.entries[i].Value, true
	}
	return
}
