// Package runner executes many checks concurrently with a bounded pool of
// workers. Each check is still a single synchronous engine evaluation.
package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/y0f/httpcheck/internal/checker"
)

// Result holds the outcome of one check.
type Result struct {
	Name    string
	Verdict checker.Verdict
	Err     error // configuration error; Verdict is empty when set
	Elapsed time.Duration
}

// Runner manages a fixed set of worker goroutines.
type Runner struct {
	engine  *checker.Engine
	workers int
	limiter *rate.Limiter
	timeout time.Duration
	logger  *slog.Logger
	metrics *Metrics
}

type job struct {
	index int
	opts  checker.Options
}

// New returns a Runner. A nil limiter starts checks as fast as workers allow;
// a zero timeout leaves the deadline to the client options.
func New(engine *checker.Engine, workers int, limiter *rate.Limiter, timeout time.Duration, logger *slog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		engine:  engine,
		workers: workers,
		limiter: limiter,
		timeout: timeout,
		logger:  logger,
	}
}

// WithMetrics makes r record every result in m.
func (r *Runner) WithMetrics(m *Metrics) *Runner {
	r.metrics = m
	return r
}

// Run executes every check and returns results in input order. A failing
// check never stops the others.
func (r *Runner) Run(ctx context.Context, checks []checker.Options) []Result {
	results := make([]Result, len(checks))
	jobs := make(chan job)

	var wg sync.WaitGroup
	for i := 0; i < min(r.workers, len(checks)); i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			r.worker(ctx, id, jobs, results)
		}(i)
	}

feed:
	for i, opts := range checks {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				r.cancelFrom(i, checks, results, err)
				break feed
			}
		}
		select {
		case jobs <- job{index: i, opts: opts}:
		case <-ctx.Done():
			r.cancelFrom(i, checks, results, ctx.Err())
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return results
}

func (r *Runner) worker(ctx context.Context, id int, jobs <-chan job, results []Result) {
	for j := range jobs {
		results[j.index] = r.execute(ctx, id, j.opts)
		r.metrics.observe(results[j.index])
	}
}

func (r *Runner) execute(ctx context.Context, worker int, opts checker.Options) Result {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	v, err := r.engine.Run(ctx, opts)
	res := Result{Name: opts.Name, Verdict: v, Err: err, Elapsed: time.Since(start)}

	if err != nil {
		r.logger.Error("check failed", "check", opts.Name, "worker", worker, "error", err)
	} else {
		r.logger.Info("check done", "check", opts.Name, "status", v.Status, "message", v.Message, "elapsed", res.Elapsed)
	}
	return res
}

// cancelFrom records err for every check that was never started.
func (r *Runner) cancelFrom(from int, checks []checker.Options, results []Result, err error) {
	for i := from; i < len(checks); i++ {
		results[i] = Result{Name: checks[i].Name, Err: err}
		r.metrics.observe(results[i])
	}
	r.logger.Warn("run cancelled", "skipped", len(checks)-from, "error", err)
}
