// Package stress drives a stripeset.Set with concurrent workers and checks
// every result against an independent oracle map.
package stress

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/llxisdsh/pb"
	"github.com/llxisdsh/stripeset"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrMismatch is returned when the set disagrees with the oracle.
var ErrMismatch = errors.New("stress: set disagrees with oracle")

// Config describes one stress run.
type Config struct {
	// Workers is the number of goroutines issuing operations.
	Workers int
	// KeysPerWorker is the size of each worker's private key range.
	KeysPerWorker int
	// OpsPerWorker bounds the run; zero means run until Duration expires.
	OpsPerWorker int
	// Duration bounds the run; zero means run until OpsPerWorker is done.
	Duration time.Duration
	// RemoveRatio is the share of operations that are removals.
	RemoveRatio float64
	// Readers is the number of goroutines enumerating the set while the
	// workers run.
	Readers int
	// SampleInterval is how often set statistics are published.
	SampleInterval time.Duration

	ConcurrencyLevel int
	Capacity         int
	FairLocks        bool
}

// DefaultConfig returns a short run suitable for tests.
func DefaultConfig() Config {
	return Config{
		Workers:        4,
		KeysPerWorker:  1 << 10,
		OpsPerWorker:   10_000,
		RemoveRatio:    0.3,
		Readers:        1,
		SampleInterval: 100 * time.Millisecond,
	}
}

func (c Config) options() []func(*stripeset.SetConfig) {
	var opts []func(*stripeset.SetConfig)
	if c.ConcurrencyLevel > 0 {
		opts = append(opts, stripeset.WithConcurrencyLevel(c.ConcurrencyLevel))
	}
	if c.Capacity > 0 {
		opts = append(opts, stripeset.WithCapacity(c.Capacity))
	}
	if c.FairLocks {
		opts = append(opts, stripeset.WithFairLocks())
	}
	return opts
}

func (c Config) validate() error {
	if c.Workers < 1 || c.KeysPerWorker < 1 {
		return errors.New("stress: workers and keys per worker must be positive")
	}
	if c.OpsPerWorker <= 0 && c.Duration <= 0 {
		return errors.New("stress: either ops per worker or duration must be set")
	}
	if c.RemoveRatio < 0 || c.RemoveRatio > 1 {
		return fmt.Errorf("stress: remove ratio %v out of [0, 1]", c.RemoveRatio)
	}
	return nil
}

// Result summarizes a finished run.
type Result struct {
	Ops         int64
	Adds        int64
	Removes     int64
	Enumerated  int64
	FinalCount  int
	OracleCount int
	Stats       stripeset.SetStats
	Elapsed     time.Duration
}

// Run executes the stress workload. Each worker owns a disjoint key range
// and mirrors its operations into a pb.MapOf, so the oracle is exact even
// though the workers run concurrently. metrics may be nil.
func Run(ctx context.Context, cfg Config, metrics *Metrics) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}
	set, err := stripeset.NewSet[int](cfg.options()...)
	if err != nil {
		return Result{}, err
	}
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	var (
		oracle  pb.MapOf[int, struct{}]
		start   = time.Now()
		results = make([]Result, cfg.Workers+cfg.Readers)
	)
	// a reader failure aborts the workers too
	runCtx, abort := context.WithCancel(ctx)
	defer abort()
	workers, workCtx := errgroup.WithContext(runCtx)
	readCtx, stopReaders := context.WithCancel(workCtx)
	defer stopReaders()

	for w := range cfg.Workers {
		workers.Go(func() error {
			return runWorker(workCtx, cfg, w, set, &oracle, metrics, &results[w])
		})
	}

	readers, readCtx := errgroup.WithContext(readCtx)
	for r := range cfg.Readers {
		readers.Go(func() error {
			err := readSet(readCtx, set, &results[cfg.Workers+r])
			if err != nil {
				abort()
			}
			return err
		})
	}
	if metrics != nil && cfg.SampleInterval > 0 {
		readers.Go(func() error {
			sample(readCtx, set, metrics, cfg.SampleInterval)
			return nil
		})
	}

	werr := workers.Wait()
	stopReaders()
	rerr := readers.Wait()
	if err := errors.Join(werr, rerr); err != nil {
		return Result{}, err
	}

	var res Result
	for _, r := range results {
		res.Ops += r.Ops
		res.Adds += r.Adds
		res.Removes += r.Removes
		res.Enumerated += r.Enumerated
	}
	res.Elapsed = time.Since(start)
	res.FinalCount = set.Count()
	res.OracleCount = oracle.Size()
	res.Stats = set.Stats()
	if metrics != nil {
		metrics.observe(res.Stats)
	}
	if err := verify(set, &oracle, res); err != nil {
		if metrics != nil {
			metrics.Failures.Inc()
		}
		return res, err
	}
	log.Info().
		Int64("ops", res.Ops).
		Int("count", res.FinalCount).
		Uint32("resizes", res.Stats.TotalResizes).
		Int("locks", res.Stats.Locks).
		Dur("elapsed", res.Elapsed).
		Msg("stress run verified")
	return res, nil
}

func runWorker(
	ctx context.Context,
	cfg Config,
	id int,
	set *stripeset.Set[int],
	oracle *pb.MapOf[int, struct{}],
	metrics *Metrics,
	res *Result,
) error {
	r := rand.New(rand.NewPCG(uint64(id), uint64(time.Now().UnixNano())))
	base := id * cfg.KeysPerWorker
	logger := log.With().Int("worker", id).Logger()
	logger.Debug().Int("base", base).Msg("worker started")

	for i := 0; cfg.OpsPerWorker <= 0 || i < cfg.OpsPerWorker; i++ {
		if i&0xFF == 0 && ctx.Err() != nil {
			break
		}
		k := base + r.IntN(cfg.KeysPerWorker)
		_, present := oracle.Load(k)
		var op string
		var ok, want bool
		if r.Float64() < cfg.RemoveRatio {
			op, want = "remove", present
			ok = set.TryRemove(k)
			oracle.Delete(k)
			res.Removes++
		} else {
			op, want = "add", !present
			ok = set.Add(k)
			oracle.Store(k, struct{}{})
			res.Adds++
		}
		res.Ops++
		if metrics != nil {
			metrics.Ops.WithLabelValues(op, resultLabel(ok)).Inc()
		}
		if ok != want {
			logger.Error().Str("op", op).Int("key", k).Bool("got", ok).Msg("oracle mismatch")
			if metrics != nil {
				metrics.Failures.Inc()
			}
			return fmt.Errorf("%w: worker %d %s(%d) = %v", ErrMismatch, id, op, k, ok)
		}
	}
	logger.Debug().Int64("ops", res.Ops).Msg("worker finished")
	return nil
}

// readSet is the reader loop started by Run.
var readSet = runReader

// runReader enumerates the set until ctx ends and fails if a walk yields
// an element twice.
func runReader(ctx context.Context, set *stripeset.Set[int], res *Result) error {
	seen := make(map[int]struct{})
	for ctx.Err() == nil {
		clear(seen)
		for k := range set.All() {
			if _, dup := seen[k]; dup {
				return fmt.Errorf("%w: enumeration yielded %d twice", ErrMismatch, k)
			}
			seen[k] = struct{}{}
			res.Enumerated++
		}
	}
	return nil
}

func sample(
	ctx context.Context,
	set *stripeset.Set[int],
	metrics *Metrics,
	interval time.Duration,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := set.Stats()
			metrics.observe(stats)
			log.Debug().
				Int("size", stats.Size).
				Int("buckets", stats.Buckets).
				Int("locks", stats.Locks).
				Msg("set sampled")
		}
	}
}

func verify(set *stripeset.Set[int], oracle *pb.MapOf[int, struct{}], res Result) error {
	if res.FinalCount != res.OracleCount {
		return fmt.Errorf("%w: count %d, oracle %d", ErrMismatch, res.FinalCount, res.OracleCount)
	}
	if res.Stats.Size != res.Stats.Counter {
		return fmt.Errorf("%w: chains hold %d, counters say %d",
			ErrMismatch, res.Stats.Size, res.Stats.Counter)
	}
	var err error
	oracle.Range(func(k int, _ struct{}) bool {
		if !set.Contains(k) {
			err = fmt.Errorf("%w: set is missing %d", ErrMismatch, k)
			return false
		}
		return true
	})
	return err
}
