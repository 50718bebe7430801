package maintenance

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ctxforge/ctxbudget"
	"github.com/ctxforge/ctxbudget/checkpoint"
	"github.com/ctxforge/ctxbudget/compaction"
)

type fixedEstimator struct {
	tokens int
}

func (e fixedEstimator) Estimate(text string) int {
	return e.tokens
}

type lenEstimator struct{}

func (lenEstimator) Estimate(text string) int {
	return len(text)
}

func newManager(t *testing.T, budget, tokensPerItem, items int, opts ...ctxbudget.Option) *ctxbudget.Manager {
	t.Helper()
	cfg := ctxbudget.DefaultConfig()
	cfg.BudgetTokens = budget
	opts = append(opts, ctxbudget.WithEstimator(fixedEstimator{tokens: tokensPerItem}))
	mgr, err := ctxbudget.New(cfg, opts...)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	for i := 0; i < items; i++ {
		if _, err := mgr.Track(context.Background(), "maintenance test entry", "user", "general", nil); err != nil {
			t.Fatalf("Track() error: %v", err)
		}
	}
	return mgr
}

func TestMonitorRunOnceCompacts(t *testing.T) {
	// 20 x 4500 = 45% of the budget, enough to warrant a pass.
	mgr := newManager(t, 200000, 4500, 20)
	monitor := NewMonitor(mgr, nil)

	result := monitor.RunOnce(context.Background())
	if len(result.Errors) != 0 {
		t.Fatalf("RunOnce() errors: %v", result.Errors)
	}
	if result.Outcome == nil {
		t.Fatal("expected a compaction outcome")
	}
	if result.Outcome.Strategy != compaction.StrategyBasic {
		t.Errorf("Strategy = %q, want basic", result.Outcome.Strategy)
	}
	if result.Halted {
		t.Error("pass should not halt")
	}
}

func TestMonitorRunOnceHealthy(t *testing.T) {
	mgr := newManager(t, 200000, 100, 3)
	monitor := NewMonitor(mgr, nil)

	result := monitor.RunOnce(context.Background())
	if result.Outcome != nil {
		t.Errorf("Outcome = %+v for healthy usage, want nil", result.Outcome)
	}
	if len(result.Errors) != 0 {
		t.Errorf("RunOnce() errors: %v", result.Errors)
	}
}

func TestMonitorRunOnceCheckpoints(t *testing.T) {
	store := checkpoint.NewFileStore(t.TempDir())
	mgr := newManager(t, 200000, 100, 3, ctxbudget.WithCheckpointStore(store))
	monitor := NewMonitor(mgr, &MonitorConfig{
		Interval:           time.Hour,
		CheckpointEachPass: true,
	})

	result := monitor.RunOnce(context.Background())
	if len(result.Errors) != 0 {
		t.Fatalf("RunOnce() errors: %v", result.Errors)
	}
	if result.Snapshot == nil {
		t.Fatal("expected a checkpoint snapshot")
	}
	if got := len(result.Snapshot.Items); got != 3 {
		t.Errorf("snapshot has %d items, want 3", got)
	}
}

func TestMonitorRunOnceHaltsWithoutCompactableContent(t *testing.T) {
	// 8 x 11000 = 88% of the budget, all of it inside the recent window,
	// so no compaction is warranted but the ceiling is breached.
	mgr := newManager(t, 100000, 11000, 8)
	monitor := NewMonitor(mgr, nil)

	result := monitor.RunOnce(context.Background())
	if result.Outcome != nil {
		t.Errorf("Outcome = %+v, want nil", result.Outcome)
	}
	if !result.Halted {
		t.Fatal("monitor pass did not report the emergency halt")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("RunOnce() errors = %v, want one", result.Errors)
	}
	if !errors.Is(result.Errors[0], ctxbudget.ErrEmergencyStop) {
		t.Errorf("error = %v, want ErrEmergencyStop", result.Errors[0])
	}
	if !strings.Contains(result.Errors[0].Error(), "emergency ceiling") {
		t.Errorf("error = %q, want mention of the emergency ceiling", result.Errors[0])
	}
}

func TestMonitorStartStop(t *testing.T) {
	mgr := newManager(t, 200000, 100, 3)
	monitor := NewMonitor(mgr, &MonitorConfig{Interval: time.Hour})
	ctx := context.Background()

	if err := monitor.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if !monitor.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}
	if err := monitor.Start(ctx); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() = %v, want ErrAlreadyStarted", err)
	}

	if err := monitor.Stop(ctx); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if monitor.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
	if err := monitor.Stop(ctx); !errors.Is(err, ErrNotStarted) {
		t.Errorf("second Stop() = %v, want ErrNotStarted", err)
	}
}

func TestMonitorStopsOnEmergency(t *testing.T) {
	cfg := ctxbudget.DefaultConfig()
	cfg.BudgetTokens = 100000
	mgr, err := ctxbudget.New(cfg, ctxbudget.WithEstimator(lenEstimator{}))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx := context.Background()
	// Usage basic compaction cannot bring below the ceiling.
	for i := 0; i < 12; i++ {
		if _, err := mgr.Track(ctx, strings.Repeat("a", 1000), "user", "general", nil); err != nil {
			t.Fatalf("Track() error: %v", err)
		}
	}
	for i := 0; i < 8; i++ {
		if _, err := mgr.Track(ctx, strings.Repeat("b", 10000), "user", "general", nil); err != nil {
			t.Fatalf("Track() error: %v", err)
		}
	}

	reasons := make(chan string, 1)
	monitor := NewMonitor(mgr, &MonitorConfig{
		Interval:        time.Hour,
		OnEmergencyStop: func(reason string) { reasons <- reason },
	})

	if err := monitor.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer monitor.Stop(ctx)

	select {
	case reason := <-reasons:
		if !strings.Contains(reason, "emergency ceiling") {
			t.Errorf("reason = %q, want mention of the emergency ceiling", reason)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("monitor never reported the emergency stop")
	}
}
