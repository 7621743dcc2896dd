package preload

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/charmbracelet/folio/cache"
	"github.com/charmbracelet/folio/paginate"
)

func TestPredict(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		total    int
		samples  []Sample
		maxPages int
		want     []int
	}{
		{
			name:    "no history looks ahead the maximum",
			current: 0, total: 100,
			want: []int{1, 2, 3, 4, 5},
		},
		{
			name:    "clamped to the last page",
			current: 8, total: 10,
			want: []int{9},
		},
		{
			name:    "last page",
			current: 9, total: 10,
			want: nil,
		},
		{
			name:    "slow reader",
			current: 3, total: 100,
			samples: []Sample{{Seconds: 60}, {Seconds: 60}},
			want:    []int{4, 5},
		},
		{
			name:    "very slow reader still gets one page",
			current: 3, total: 100,
			samples: []Sample{{Seconds: 600}},
			want:    []int{4},
		},
		{
			name:    "fast reader capped",
			current: 0, total: 100,
			samples:  []Sample{{Seconds: 2}},
			maxPages: 3,
			want:     []int{1, 2, 3},
		},
		{
			name:    "zero average",
			current: 0, total: 100,
			samples: []Sample{{Seconds: 0}},
			want:    []int{1, 2, 3, 4, 5},
		},
		{
			name:    "moderate reader",
			current: 10, total: 100,
			samples: []Sample{{Seconds: 30}, {Seconds: 40}, {Seconds: 50}},
			want:    []int{11, 12, 13},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Predict(tt.current, tt.total, tt.samples, tt.maxPages)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Predict() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTelemetry(t *testing.T) {
	tel := NewTelemetry(3)
	if tel.PagesPerMinute() != 0 {
		t.Fatalf("empty telemetry reports a reading speed")
	}
	for i := range 5 {
		tel.Record(i, float64(10*(i+1)))
	}
	want := []Sample{{2, 30}, {3, 40}, {4, 50}}
	if diff := cmp.Diff(want, tel.Samples()); diff != "" {
		t.Fatalf("Samples() mismatch (-want +got):\n%s", diff)
	}
	if got := tel.PagesPerMinute(); got != 1.5 {
		t.Fatalf("PagesPerMinute()=%v want 1.5", got)
	}

	tel.Record(5, -4)
	if s := tel.Samples(); s[len(s)-1].Seconds != 0 {
		t.Fatalf("negative duration was recorded as %v", s[len(s)-1].Seconds)
	}
	tel.Reset()
	if tel.Len() != 0 {
		t.Fatalf("Len()=%d after Reset", tel.Len())
	}
}

func TestSchedulerRunsTasks(t *testing.T) {
	s := NewScheduler(WithWorkers(2))
	var ran atomic.Int32
	for range 10 {
		if _, err := s.Submit("count", func(context.Context) error {
			ran.Add(1)
			return nil
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	s.Shutdown()
	if got := ran.Load(); got != 10 {
		t.Fatalf("ran %d tasks want 10", got)
	}
}

func TestSchedulerSurvivesFailures(t *testing.T) {
	s := NewScheduler(WithWorkers(1))
	defer s.Shutdown()

	_, _ = s.Submit("panics", func(context.Context) error { panic("boom") })
	_, _ = s.Submit("fails", func(context.Context) error { return errors.New("nope") })

	done := make(chan struct{})
	if _, err := s.Submit("after", func(context.Context) error {
		close(done)
		return nil
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("worker did not survive a failing task")
	}
}

func TestSchedulerQueueFull(t *testing.T) {
	s := NewScheduler(WithWorkers(1), WithQueueSize(1))
	release := make(chan struct{})
	started := make(chan struct{})

	if _, err := s.Submit("block", func(context.Context) error {
		close(started)
		<-release
		return nil
	}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-started

	if _, err := s.Submit("queued", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	_, err := s.Submit("overflow", func(context.Context) error { return nil })
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}

	close(release)
	s.Shutdown()

	if _, err := s.Submit("late", func(context.Context) error { return nil }); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	s.Shutdown() // idempotent
}

func TestSchedulerSupersede(t *testing.T) {
	s := NewScheduler(WithWorkers(1))
	started := make(chan struct{})
	var stale, fresh atomic.Bool
	var cancelled atomic.Bool

	_, _ = s.Submit("running", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	})
	<-started
	_, _ = s.Submit("stale", func(context.Context) error {
		stale.Store(true)
		return nil
	})

	s.Supersede()

	_, _ = s.Submit("fresh", func(ctx context.Context) error {
		if ctx.Err() == nil {
			fresh.Store(true)
		}
		return nil
	})
	s.Shutdown()

	if !cancelled.Load() {
		t.Fatalf("running task was not cancelled")
	}
	if stale.Load() {
		t.Fatalf("superseded task ran")
	}
	if !fresh.Load() {
		t.Fatalf("task of the new generation did not run")
	}
}

func TestWarm(t *testing.T) {
	c := cache.New()
	m := paginate.Metrics{CharsPerLine: 10, LinesPerPage: 1}
	content := "one\n\ntwo\n\nthree\n\nfour"
	key := cache.Fingerprint(content, m, paginate.Dynamic)

	e := cache.NewEntry(paginate.Paginate(content, m, paginate.Dynamic)).ForVariant("plain")
	e.Rendered[1] = "already"
	c.Set(key, e, 0)

	var calls atomic.Int32
	render := func(p paginate.Page, n int) string {
		calls.Add(1)
		return "<" + p.String() + ">"
	}
	if err := Warm(c, key, "plain", []int{1, 2, 3, 9}, render)(context.Background()); err != nil {
		t.Fatalf("Warm: %v", err)
	}

	got, _ := c.Get(key)
	want := []string{"", "already", "<three>", "<four>"}
	if diff := cmp.Diff(want, got.Rendered); diff != "" {
		t.Fatalf("rendered pages mismatch (-want +got):\n%s", diff)
	}
	if calls.Load() != 2 {
		t.Fatalf("rendered %d pages want 2", calls.Load())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Warm(c, key, "plain", []int{0}, render)(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected a cancelled warm-up, got %v", err)
	}
	if err := Warm(c, "missing", "plain", []int{0}, render)(context.Background()); err != nil {
		t.Fatalf("warming a missing entry failed: %v", err)
	}

	before := calls.Load()
	if err := Warm(c, key, "styled", []int{0}, render)(context.Background()); err != nil {
		t.Fatalf("Warm: %v", err)
	}
	if got, _ := c.Get(key); got.IsRendered(0) || calls.Load() != before {
		t.Fatalf("pages were rendered into an entry of another variant: %q", got.Rendered)
	}
}
