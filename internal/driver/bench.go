package driver

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	hashtable "github.com/ryanengphoto/concurrent-hash-table"
	"github.com/ryanengphoto/concurrent-hash-table/internal/config"
	"github.com/ryanengphoto/concurrent-hash-table/internal/metrics"
	"go.uber.org/zap"
)

// BenchTable is the table type used by the mixed load benchmark.
type BenchTable = hashtable.Table[string, uint64]

// BenchResult summarizes one benchmark run.
type BenchResult struct {
	RunID      string
	Threads    int
	Operations int
	Elapsed    time.Duration
	FinalSize  int
	FinalCount int
	Stat       *hashtable.HashMapStat
}

// Throughput returns operations per second.
func (b *BenchResult) Throughput() float64 {
	if b.Elapsed <= 0 {
		return 0
	}
	return float64(b.Operations) / b.Elapsed.Seconds()
}

// Report writes a human readable summary of the run and the gathered counters.
func (b *BenchResult) Report(w io.Writer, m *metrics.Metrics) error {
	fmt.Fprintf(w, "run %s: %d threads, %d operations in %s (%.0f ops/s)\n",
		b.RunID, b.Threads, b.Operations, b.Elapsed.Round(time.Microsecond), b.Throughput())
	fmt.Fprintf(w, "final size %d, locked count %d, buckets in use %d, longest chain %d\n",
		b.FinalSize, b.FinalCount, b.Stat.BucketsInUse, b.Stat.LongestChain)

	if m == nil {
		return nil
	}
	samples, err := m.Gather()
	if err != nil {
		return err
	}
	for _, s := range samples {
		fmt.Fprintf(w, "%s %.0f\n", s, s.Value)
	}
	return nil
}

// Bench runs cfg.Threads workers, each performing cfg.Ops random operations over a key space of cfg.Keys keys
// shared by all workers, and waits for all of them to finish.
func Bench(table *BenchTable, cfg config.BenchConfig, logger *zap.Logger, m *metrics.Metrics) (*BenchResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New(logger)
	}

	runID := uuid.NewString()
	log := logger.With(zap.String("run_id", runID))

	pool, err := ants.NewPool(cfg.Threads)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	keys := make([]string, cfg.Keys)
	for i := range keys {
		keys[i] = "key-" + strconv.Itoa(i)
	}

	log.Info("bench started",
		zap.Int("threads", cfg.Threads),
		zap.Int("ops_per_thread", cfg.Ops),
		zap.Int("keys", cfg.Keys),
		zap.Int("buckets", table.NumberOfBuckets()),
	)

	var wg sync.WaitGroup
	var errMu sync.Mutex
	var errs []error
	record := func(err error) {
		errMu.Lock()
		errs = append(errs, err)
		errMu.Unlock()
	}
	start := time.Now()
	for w := 0; w < cfg.Threads; w++ {
		seed := start.UnixNano() + int64(w)
		wg.Add(1)
		err = pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					log.Error("bench worker panic", zap.Any("panic", p))
					record(fmt.Errorf("bench worker panicked: %v", p))
				}
			}()
			if err := benchWorker(table, cfg, keys, rand.New(rand.NewSource(seed)), m); err != nil {
				record(err)
			}
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("failed to submit bench worker: %w", err)
		}
	}
	wg.Wait()
	elapsed := time.Since(start)

	if err = errors.Join(errs...); err != nil {
		return nil, err
	}

	count, err := table.Count()
	if err != nil {
		return nil, err
	}
	stat, err := table.Stat(false)
	if err != nil {
		return nil, err
	}

	result := &BenchResult{
		RunID:      runID,
		Threads:    cfg.Threads,
		Operations: cfg.Threads * cfg.Ops,
		Elapsed:    elapsed,
		FinalSize:  table.Size(),
		FinalCount: count,
		Stat:       stat,
	}

	log.Info("bench finished",
		zap.Duration("elapsed", elapsed),
		zap.Float64("ops_per_second", result.Throughput()),
		zap.Int("final_size", result.FinalSize),
	)

	return result, nil
}

func benchWorker(table *BenchTable, cfg config.BenchConfig, keys []string, r *rand.Rand, m *metrics.Metrics) error {
	for i := 0; i < cfg.Ops; i++ {
		key := keys[r.Intn(len(keys))]
		p := r.Float64()

		switch {
		case p < cfg.ReadRatio:
			_, found, err := table.Lookup(key)
			if err != nil {
				return err
			}
			m.ObserveOperation("lookup", foundResult(found))
		case p < cfg.ReadRatio+cfg.RemoveRatio:
			_, found, err := table.Remove(key)
			if err != nil {
				return err
			}
			m.ObserveOperation("remove", foundResult(found))
		default:
			if err := table.Insert(key, uint64(i)); err != nil {
				return err
			}
			m.ObserveOperation("insert", "ok")
		}
	}
	return nil
}

func foundResult(found bool) string {
	if found {
		return "found"
	}
	return "not_found"
}
