package hashtable

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingObserver counts lock events and checks mutual exclusion per bucket
type countingObserver struct {
	acquired   atomic.Int64
	released   atomic.Int64
	violations atomic.Int64
	readers    []atomic.Int32
	writers    []atomic.Int32
}

func newCountingObserver(buckets int) *countingObserver {
	return &countingObserver{
		readers: make([]atomic.Int32, buckets),
		writers: make([]atomic.Int32, buckets),
	}
}

func (c *countingObserver) Acquired(bucketNo int, mode LockMode) {
	c.acquired.Add(1)
	if c.readers == nil {
		return
	}
	if mode == WriteLock {
		if c.writers[bucketNo].Add(1) != 1 || c.readers[bucketNo].Load() != 0 {
			c.violations.Add(1)
		}
		return
	}
	c.readers[bucketNo].Add(1)
	if c.writers[bucketNo].Load() != 0 {
		c.violations.Add(1)
	}
}

func (c *countingObserver) Released(bucketNo int, mode LockMode) {
	c.released.Add(1)
	if c.readers == nil {
		return
	}
	if mode == WriteLock {
		c.writers[bucketNo].Add(-1)
		return
	}
	c.readers[bucketNo].Add(-1)
}

// waitOrFail fails the test if wg is not done within timeout, which would mean a deadlock
func waitOrFail(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		require.FailNow(t, "workers did not finish in time, possible deadlock")
	}
}

func TestTable_ConcurrentDisjointInserts(t *testing.T) {
	t.Run("no lost updates across buckets", func(t *testing.T) {
		// Prepare
		const threads = 32
		tbl, err := New[string, int](1024)
		require.NoError(t, err, "create table")

		keys := make([]string, 0, threads)
		used := map[int]bool{}
		for i := 0; len(keys) < threads; i++ {
			k := fmt.Sprintf("worker-%d", i)
			if b := tbl.GetBucketNo(k); !used[b] {
				used[b] = true
				keys = append(keys, k)
			}
		}

		// Execute
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i, k := range keys {
			wg.Add(1)
			go func(i int, k string) {
				defer wg.Done()
				<-start
				assert.NoError(t, tbl.Insert(k, i), "insert %s", k)
			}(i, k)
		}
		close(start)
		waitOrFail(t, &wg, 10*time.Second)

		// Check
		assert.Equal(t, threads, tbl.Size(), "all entries counted")
		for i, k := range keys {
			v, found, err := tbl.Lookup(k)
			assert.NoError(t, err, "lookup %s", k)
			assert.True(t, found, "found %s", k)
			assert.Equal(t, i, v, "value of %s", k)
		}
	})

	t.Run("no lost updates within one bucket", func(t *testing.T) {
		// Prepare
		const threads, perThread = 16, 200
		tbl, err := New[string, int](1)
		require.NoError(t, err, "create table")

		// Execute
		var wg sync.WaitGroup
		for w := 0; w < threads; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < perThread; i++ {
					assert.NoError(t, tbl.Insert(fmt.Sprintf("w%d-%d", w, i), i))
				}
			}(w)
		}
		waitOrFail(t, &wg, 30*time.Second)

		// Check
		assert.Equal(t, threads*perThread, tbl.Size(), "size")
		count, err := tbl.Count()
		assert.NoError(t, err, "count")
		assert.Equal(t, threads*perThread, count, "count")
	})
}

type pair struct {
	A int
	B int
}

func TestTable_ConcurrentSameKey(t *testing.T) {
	t.Run("last writer wins without torn values", func(t *testing.T) {
		// Prepare
		const threads = 64
		tbl, err := New[string, pair](8)
		require.NoError(t, err, "create table")

		// Execute
		var wg sync.WaitGroup
		start := make(chan struct{})
		for i := 0; i < threads; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				for j := 0; j < 100; j++ {
					assert.NoError(t, tbl.Insert("contended", pair{A: i, B: -i}))
					v, found, err := tbl.Lookup("contended")
					assert.NoError(t, err, "lookup")
					assert.True(t, found, "found")
					assert.Equal(t, -v.A, v.B, "value not torn")
				}
			}(i)
		}
		close(start)
		waitOrFail(t, &wg, 30*time.Second)

		// Check
		v, found, err := tbl.Lookup("contended")
		assert.NoError(t, err, "lookup")
		assert.True(t, found, "found")
		assert.GreaterOrEqual(t, v.A, 0, "written by a worker")
		assert.Less(t, v.A, threads, "written by a worker")
		assert.Equal(t, -v.A, v.B, "value not torn")
		assert.Equal(t, 1, tbl.Size(), "single entry")
	})

	t.Run("compute increments are atomic", func(t *testing.T) {
		// Prepare
		const threads, perThread = 32, 500
		tbl, err := New[string, int](4)
		require.NoError(t, err, "create table")

		// Execute
		var wg sync.WaitGroup
		for i := 0; i < threads; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < perThread; j++ {
					_, _, err := tbl.Compute("hits", func(old int, _ bool) (int, bool) { return old + 1, true })
					assert.NoError(t, err, "compute")
				}
			}()
		}
		waitOrFail(t, &wg, 30*time.Second)

		// Check
		v, _, err := tbl.Lookup("hits")
		assert.NoError(t, err, "lookup")
		assert.Equal(t, threads*perThread, v, "no increment lost")
	})
}

func TestTable_MixedLoad(t *testing.T) {
	t.Run("random operations with whole table scans terminate", func(t *testing.T) {
		// Prepare
		const threads, ops, keySpace, buckets = 32, 2000, 256, 16
		obs := newCountingObserver(buckets)
		tbl, err := New[int, int](buckets, WithLockObserver(obs))
		require.NoError(t, err, "create table")

		// Execute
		var wg sync.WaitGroup
		for w := 0; w < threads; w++ {
			wg.Add(1)
			go func(seed int64) {
				defer wg.Done()
				r := rand.New(rand.NewSource(seed))
				for i := 0; i < ops; i++ {
					k := r.Intn(keySpace)
					switch op := r.Intn(100); {
					case op < 40:
						assert.NoError(t, tbl.Insert(k, i))
					case op < 70:
						_, _, err := tbl.Lookup(k)
						assert.NoError(t, err)
					case op < 90:
						_, _, err := tbl.Remove(k)
						assert.NoError(t, err)
					case op < 95:
						_, _, err := tbl.Update(k, -i)
						assert.NoError(t, err)
					case op < 98:
						_, err := tbl.Count()
						assert.NoError(t, err)
					default:
						_, err := tbl.Snapshot()
						assert.NoError(t, err)
					}
				}
			}(int64(w))
		}
		waitOrFail(t, &wg, 60*time.Second)

		// Check
		count, err := tbl.Count()
		assert.NoError(t, err, "count")
		assert.Equal(t, tbl.Size(), count, "running size matches locked count")
		assert.LessOrEqual(t, count, keySpace, "no duplicate keys")
		assert.Zero(t, obs.violations.Load(), "mutual exclusion held")
		assert.Equal(t, obs.acquired.Load(), obs.released.Load(), "every acquired lock released")
	})
}

func TestTable_ConcurrentScans(t *testing.T) {
	t.Run("concurrent snapshots see consistent sizes", func(t *testing.T) {
		// Prepare
		const buckets = 32
		tbl, err := New[int, int](buckets)
		require.NoError(t, err, "create table")
		for i := 0; i < 100; i++ {
			require.NoError(t, tbl.Insert(i, i), "insert")
		}

		// Execute
		// Writers only modify existing keys, so every snapshot must hold exactly 100 entries.
		var wg sync.WaitGroup
		stop := make(chan struct{})
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; ; i++ {
					select {
					case <-stop:
						return
					default:
					}
					_, _, err := tbl.Compute((w*13+i)%100, func(old int, _ bool) (int, bool) { return old + 1, true })
					assert.NoError(t, err)
				}
			}(w)
		}
		for s := 0; s < 4; s++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 200; i++ {
					entries, err := tbl.Snapshot()
					assert.NoError(t, err, "snapshot")
					assert.Len(t, entries, 100, "consistent snapshot")
				}
			}()
		}
		time.Sleep(200 * time.Millisecond)
		close(stop)
		waitOrFail(t, &wg, 60*time.Second)

		// Check
		assert.Equal(t, 100, tbl.Size(), "size unchanged")
	})
}
