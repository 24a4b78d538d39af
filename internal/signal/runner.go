package signal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"beacon/internal/logging"
)

// Collector is the capability interface implemented by each signal probe.
// Available reports whether the underlying API exists in the current runtime;
// Collect produces the module's reading.
type Collector interface {
	Name() string
	Available() bool
	Collect(ctx context.Context) (any, error)
}

// CollectorFunc adapts plain functions into Collectors.
type CollectorFunc struct {
	ModuleName string
	Probe      func(ctx context.Context) (any, error)
	Supported  func() bool
}

func (c CollectorFunc) Name() string { return c.ModuleName }

func (c CollectorFunc) Available() bool {
	if c.Supported == nil {
		return true
	}
	return c.Supported()
}

func (c CollectorFunc) Collect(ctx context.Context) (any, error) {
	return c.Probe(ctx)
}

// Result aggregates one collection run. Data maps module name to its reading;
// Failures records why a module produced nothing (timeout, error, unavailable).
type Result struct {
	Data     map[string]any
	Failures map[string]string
	Elapsed  time.Duration
}

// Runner invokes collectors concurrently with a per-module deadline.
type Runner struct {
	timeout time.Duration
	logger  *slog.Logger
}

// NewRunner constructs a runner. A non-positive timeout falls back to two seconds.
func NewRunner(timeout time.Duration, logger *slog.Logger) *Runner {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Runner{timeout: timeout, logger: logging.WithComponent(logger, "collector")}
}

// Collect runs every available collector concurrently. Each collector is raced
// against the per-module deadline; whichever resolves first wins. A timeout,
// error, or panic marks that module unavailable and never aborts the batch.
// Aggregation is keyed by module name, so completion order is irrelevant.
func (r *Runner) Collect(ctx context.Context, collectors []Collector) Result {
	start := time.Now()
	result := Result{
		Data:     make(map[string]any, len(collectors)),
		Failures: make(map[string]string),
	}

	type outcome struct {
		name   string
		data   any
		reason string
	}

	var wg sync.WaitGroup
	outcomes := make(chan outcome, len(collectors))

	for _, collector := range collectors {
		if collector == nil {
			continue
		}
		name := collector.Name()
		if !collector.Available() {
			result.Failures[name] = "unavailable"
			continue
		}

		wg.Add(1)
		go func(c Collector) {
			defer wg.Done()

			moduleCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			done := make(chan outcome, 1)
			go func() {
				defer func() {
					if rec := recover(); rec != nil {
						done <- outcome{name: name, reason: fmt.Sprintf("panic: %v", rec)}
					}
				}()
				data, err := c.Collect(moduleCtx)
				if err != nil {
					done <- outcome{name: name, reason: err.Error()}
					return
				}
				done <- outcome{name: name, data: data}
			}()

			select {
			case out := <-done:
				outcomes <- out
			case <-moduleCtx.Done():
				outcomes <- outcome{name: name, reason: "deadline exceeded"}
			}
		}(collector)
	}

	wg.Wait()
	close(outcomes)

	for out := range outcomes {
		if out.reason != "" {
			result.Failures[out.name] = out.reason
			r.logger.Debug("signal module failed",
				logging.String("module", out.name),
				logging.String("reason", out.reason))
			continue
		}
		result.Data[out.name] = out.data
	}

	result.Elapsed = time.Since(start)
	return result
}
