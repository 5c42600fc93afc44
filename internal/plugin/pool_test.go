package plugin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolBoundsConcurrency(t *testing.T) {
	p := NewPool(context.Background(), 2, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var running, peak, done atomic.Int32
	for i := 0; i < 8; i++ {
		p.Go("job", func(ctx context.Context) error {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			done.Add(1)
			return nil
		})
	}
	p.Wait()

	if done.Load() != 8 {
		t.Fatalf("completed jobs = %d, want 8", done.Load())
	}
	if peak.Load() > 2 {
		t.Fatalf("peak concurrency = %d, want <= 2", peak.Load())
	}
}

func TestPoolIsolatesFailures(t *testing.T) {
	p := NewPool(context.Background(), 1, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var ran atomic.Int32
	p.Go("fails", func(ctx context.Context) error { return errors.New("broken") })
	p.Go("panics", func(ctx context.Context) error { panic("boom") })
	p.Go("works", func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})
	p.Wait()

	if ran.Load() != 1 {
		t.Fatal("job after failures did not run")
	}
}

func TestPoolSkipsJobsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewPool(ctx, 0, nil)

	var ran atomic.Int32
	p.Go("late", func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})
	p.Wait()

	if ran.Load() != 0 {
		t.Fatal("job ran after cancellation")
	}
}
