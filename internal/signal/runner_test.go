package signal_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"beacon/internal/signal"
)

func staticCollector(name string, value any) signal.Collector {
	return signal.CollectorFunc{
		ModuleName: name,
		Probe: func(ctx context.Context) (any, error) {
			return value, nil
		},
	}
}

func TestCollectAggregatesByName(t *testing.T) {
	runner := signal.NewRunner(time.Second, nil)
	result := runner.Collect(context.Background(), []signal.Collector{
		staticCollector("timezone", "Europe/Amsterdam"),
		staticCollector("platform", "Linux x86_64"),
	})

	if len(result.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", result.Failures)
	}
	if result.Data["timezone"] != "Europe/Amsterdam" {
		t.Fatalf("timezone reading lost: %v", result.Data)
	}
	if result.Data["platform"] != "Linux x86_64" {
		t.Fatalf("platform reading lost: %v", result.Data)
	}
}

func TestCollectDeadlineMarksUnavailable(t *testing.T) {
	runner := signal.NewRunner(20*time.Millisecond, nil)
	slow := signal.CollectorFunc{
		ModuleName: "fonts",
		Probe: func(ctx context.Context) (any, error) {
			select {
			case <-time.After(5 * time.Second):
				return "never", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}

	result := runner.Collect(context.Background(), []signal.Collector{
		slow,
		staticCollector("timezone", "UTC"),
	})

	if _, ok := result.Data["fonts"]; ok {
		t.Fatal("slow module should not produce data")
	}
	if result.Failures["fonts"] == "" {
		t.Fatalf("expected fonts failure recorded, got %v", result.Failures)
	}
	if result.Data["timezone"] != "UTC" {
		t.Fatal("fast module should be unaffected by slow peer")
	}
}

func TestCollectErrorAndPanicNonFatal(t *testing.T) {
	runner := signal.NewRunner(time.Second, nil)
	failing := signal.CollectorFunc{
		ModuleName: "webgl",
		Probe: func(ctx context.Context) (any, error) {
			return nil, errors.New("context lost")
		},
	}
	panicking := signal.CollectorFunc{
		ModuleName: "canvas",
		Probe: func(ctx context.Context) (any, error) {
			panic("renderer crash")
		},
	}

	result := runner.Collect(context.Background(), []signal.Collector{
		failing,
		panicking,
		staticCollector("screen", "1920x1080"),
	})

	if result.Failures["webgl"] != "context lost" {
		t.Fatalf("error not recorded: %v", result.Failures)
	}
	if result.Failures["canvas"] == "" {
		t.Fatalf("panic not recorded: %v", result.Failures)
	}
	if result.Data["screen"] != "1920x1080" {
		t.Fatal("healthy module should still report")
	}
}

func TestCollectSkipsUnavailable(t *testing.T) {
	runner := signal.NewRunner(time.Second, nil)
	unsupported := signal.CollectorFunc{
		ModuleName: "battery",
		Supported:  func() bool { return false },
		Probe: func(ctx context.Context) (any, error) {
			t.Fatal("probe must not run when unavailable")
			return nil, nil
		},
	}

	result := runner.Collect(context.Background(), []signal.Collector{unsupported})
	if result.Failures["battery"] != "unavailable" {
		t.Fatalf("expected unavailable marker, got %v", result.Failures)
	}
}
