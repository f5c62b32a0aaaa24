package hashtable

// Records - Is used to iterate over the entries of a table one by one.
// Buckets are visited in ascending order and each one is copied under its own shared lock when the iteration
// reaches it, so at most one bucket lock is held at a time and never while the caller handles an entry. The result
// is not a point in time view of the table, use Snapshot for that.
type Records[K comparable, V any] struct {
	table    *Table[K, V]
	bucketNo int
	pending  []Entry[K, V]
	err      error
}

// Records - Returns a pointer to a new Records iterator positioned before the first bucket
func (T *Table[K, V]) Records() *Records[K, V] {
	return &Records[K, V]{table: T}
}

// HasNext - Returns true if a call to Next will return an entry or an error.
func (R *Records[K, V]) HasNext() bool {
	R.fill()
	return len(R.pending) > 0 || R.err != nil
}

// Next - Returns the next entry.
// It returns:
//   - entry is the next entry in bucket order.
//   - err is BucketPoisoned if the bucket being visited is poisoned, the iteration then continues with the next
//     bucket. If there are no more entries when calling this function an error of type NoRecordFound is returned.
func (R *Records[K, V]) Next() (entry Entry[K, V], err error) {
	R.fill()
	if R.err != nil {
		err, R.err = R.err, nil
		return
	}
	if len(R.pending) == 0 {
		err = NoRecordFound{}
		return
	}

	entry = R.pending[0]
	R.pending = R.pending[1:]

	return
}

// fill - Copies buckets until there is something to return or all buckets are visited
func (R *Records[K, V]) fill() {
	for len(R.pending) == 0 && R.err == nil && R.bucketNo < len(R.table.buckets) {
		bucketNo := R.bucketNo
		R.bucketNo++
		R.err = R.table.withBucket(bucketNo, ReadLock, func(b *bucket[K, V]) {
			R.pending = append(R.pending, b.entries...)
		})
	}
}
