// Package driver runs workloads against a shared table from a pool of workers: the command file replay of
// chtable run and the random mixed load of chtable bench.
package driver

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/panjf2000/ants/v2"
	hashtable "github.com/ryanengphoto/concurrent-hash-table"
	"github.com/ryanengphoto/concurrent-hash-table/internal/command"
	"github.com/ryanengphoto/concurrent-hash-table/internal/metrics"
	"go.uber.org/zap"
)

// Table is the table type driven by the command file: employee name to salary.
type Table = hashtable.Table[string, uint32]

// Runner executes parsed commands, one pool task per command.
type Runner struct {
	table   *Table
	pool    *ants.Pool
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu  sync.Mutex // serializes writes to out
	out io.Writer
}

// NewRunner creates a runner. The pool is owned by the caller.
func NewRunner(table *Table, pool *ants.Pool, logger *zap.Logger, m *metrics.Metrics, out io.Writer) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.New(logger)
	}
	return &Runner{table: table, pool: pool, logger: logger, metrics: m, out: out}
}

// Run submits every command to the pool, waits for all of them and prints the final table.
// Commands run concurrently, so their relative order is not the file order.
func (r *Runner) Run(cmds []command.Command) error {
	var wg sync.WaitGroup
	var errMu sync.Mutex
	var errs []error
	record := func(err error) {
		errMu.Lock()
		errs = append(errs, err)
		errMu.Unlock()
	}

	for _, cmd := range cmds {
		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					r.logger.Error("command panicked", zap.Int("line", cmd.Line), zap.Any("panic", p))
					record(fmt.Errorf("line %d: command panicked: %v", cmd.Line, p))
				}
			}()
			if err := r.Execute(cmd); err != nil {
				record(fmt.Errorf("line %d: %w", cmd.Line, err))
			}
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return fmt.Errorf("failed to submit command on line %d: %w", cmd.Line, err)
		}
	}
	wg.Wait()

	if err := r.Print(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Execute runs a single command against the table and prints its outcome.
func (r *Runner) Execute(cmd command.Command) error {
	log := r.logger.With(zap.Uint32("thread", cmd.Priority))
	if cmd.Kind == command.Print {
		log.Info(cmd.Kind.String())
		return r.Print()
	}

	h := r.table.HashOf(cmd.Name)
	log = log.With(zap.Uint32("hash", h), zap.String("key", cmd.Name))

	switch cmd.Kind {
	case command.Insert:
		log.Info(cmd.Kind.String(), zap.Uint32("value", cmd.Salary))
		inserted, err := r.table.InsertIfAbsent(cmd.Name, cmd.Salary)
		if err != nil {
			return r.failed("insert", err)
		}
		if !inserted {
			r.metrics.ObserveOperation("insert", "duplicate")
			r.printf("Insert failed.  Entry %d is a duplicate.\n", h)
			return nil
		}
		r.metrics.ObserveOperation("insert", "ok")
		r.printf("Inserted %d,%s,%d\n", h, cmd.Name, cmd.Salary)

	case command.Update:
		log.Info(cmd.Kind.String(), zap.Uint32("value", cmd.Salary))
		old, found, err := r.table.Update(cmd.Name, cmd.Salary)
		if err != nil {
			return r.failed("update", err)
		}
		if !found {
			r.metrics.ObserveOperation("update", "not_found")
			r.printf("Update failed.  Entry %d not found.\n", h)
			return nil
		}
		r.metrics.ObserveOperation("update", "ok")
		r.printf("Updated record %d from %d,%s,%d to %d,%s,%d\n", h, h, cmd.Name, old, h, cmd.Name, cmd.Salary)

	case command.Delete:
		log.Info(cmd.Kind.String())
		old, found, err := r.table.Remove(cmd.Name)
		if err != nil {
			return r.failed("delete", err)
		}
		if !found {
			r.metrics.ObserveOperation("delete", "not_found")
			r.printf("Entry %d not deleted.  Not in database.\n", h)
			return nil
		}
		r.metrics.ObserveOperation("delete", "ok")
		r.printf("Deleted record for %d,%s,%d\n", h, cmd.Name, old)

	case command.Search:
		log.Info(cmd.Kind.String())
		v, found, err := r.table.Lookup(cmd.Name)
		if err != nil {
			return r.failed("search", err)
		}
		if !found {
			r.metrics.ObserveOperation("search", "not_found")
			r.printf("Not Found:  %s not found.\n", cmd.Name)
			return nil
		}
		r.metrics.ObserveOperation("search", "found")
		r.printf("Found: %d,%s,%d\n", h, cmd.Name, v)

	default:
		return fmt.Errorf("unsupported command %s", cmd.Kind)
	}

	return nil
}

// Print writes the whole table sorted by hash value, taken from a consistent snapshot.
func (r *Runner) Print() error {
	entries, err := r.table.Snapshot()
	if err != nil {
		return r.failed("print", err)
	}
	r.metrics.ObserveOperation("print", "ok")

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Hash != entries[j].Hash {
			return entries[i].Hash < entries[j].Hash
		}
		return entries[i].Key < entries[j].Key
	})

	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "Current Database:")
	for _, e := range entries {
		fmt.Fprintf(r.out, "%d,%s,%d\n", e.Hash, e.Key, e.Value)
	}

	return nil
}

func (r *Runner) failed(operation string, err error) error {
	r.metrics.ObserveOperation(operation, "error")
	r.logger.Error("operation failed", zap.String("operation", operation), zap.Error(err))
	return fmt.Errorf("%s: %w", operation, err)
}

func (r *Runner) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}
