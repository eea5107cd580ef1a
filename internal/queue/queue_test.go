package queue

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/scriptplay/internal/script"
)

// fakeWarmer records warmed lines. A non-nil hook runs instead of returning
// at once.
type fakeWarmer struct {
	mu    sync.Mutex
	lines []Line
	hook  func(ctx context.Context, line Line) error
}

func (w *fakeWarmer) Warm(ctx context.Context, text, voice string) error {
	line := Line{Text: text, Voice: voice}
	w.mu.Lock()
	w.lines = append(w.lines, line)
	hook := w.hook
	w.mu.Unlock()

	if hook != nil {
		return hook(ctx, line)
	}
	return nil
}

func (w *fakeWarmer) warmed() []Line {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Line, len(w.lines))
	copy(out, w.lines)
	return out
}

func newTestQueue(t *testing.T, w Warmer, size int) *Lookahead {
	t.Helper()
	q := New(w, size, log.New(io.Discard))
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestLookahead_WarmsInOrder(t *testing.T) {
	w := &fakeWarmer{}
	q := newTestQueue(t, w, 8)

	lines := []Line{{"one", "Alice"}, {"two", "Bob"}, {"three", "Alice"}}
	if err := q.Enqueue(context.Background(), lines...); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	waitFor(t, "three lines", func() bool { return q.GetStats().TotalWarmed == 3 })

	got := w.warmed()
	for i := range lines {
		if got[i] != lines[i] {
			t.Errorf("warmed[%d] = %v, want %v", i, got[i], lines[i])
		}
	}
}

func TestLookahead_SkipsDuplicates(t *testing.T) {
	w := &fakeWarmer{}
	q := newTestQueue(t, w, 8)

	line := Line{"again", "Alice"}
	_ = q.Enqueue(context.Background(), line, line)
	waitFor(t, "first warm", func() bool { return q.GetStats().TotalWarmed == 1 })
	_ = q.Enqueue(context.Background(), line)

	time.Sleep(20 * time.Millisecond)
	if n := len(w.warmed()); n != 1 {
		t.Errorf("warmed %d times, want 1", n)
	}

	q.Clear()
	_ = q.Enqueue(context.Background(), line)
	waitFor(t, "warm after clear", func() bool { return len(w.warmed()) == 2 })
}

func TestLookahead_Full(t *testing.T) {
	release := make(chan struct{})
	w := &fakeWarmer{hook: func(ctx context.Context, _ Line) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}}
	q := newTestQueue(t, w, 2)
	defer close(release)

	_ = q.Enqueue(context.Background(), Line{"busy", "A"})
	waitFor(t, "worker busy", func() bool { return len(w.warmed()) == 1 })

	err := q.Enqueue(context.Background(), Line{"1", "A"}, Line{"2", "A"}, Line{"3", "A"})
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}
	if q.Size() != 2 {
		t.Errorf("size = %d, want 2", q.Size())
	}
	if s := q.GetStats(); s.TotalDropped != 1 || s.PeakSize != 2 {
		t.Errorf("stats = %+v", s)
	}
}

func TestLookahead_CanceledContextIsDropped(t *testing.T) {
	w := &fakeWarmer{}
	q := newTestQueue(t, w, 8)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = q.Enqueue(ctx, Line{"stale", "A"})
	_ = q.Enqueue(context.Background(), Line{"fresh", "A"})

	waitFor(t, "fresh line", func() bool { return q.GetStats().TotalWarmed == 1 })
	if got := w.warmed(); len(got) != 1 || got[0].Text != "fresh" {
		t.Errorf("warmed = %v", got)
	}
}

func TestLookahead_ClearAbortsInFlight(t *testing.T) {
	aborted := make(chan struct{})
	w := &fakeWarmer{hook: func(ctx context.Context, _ Line) error {
		<-ctx.Done()
		close(aborted)
		return ctx.Err()
	}}
	q := newTestQueue(t, w, 8)

	_ = q.Enqueue(context.Background(), Line{"slow", "A"}, Line{"next", "A"})
	waitFor(t, "worker busy", func() bool { return len(w.warmed()) == 1 })

	q.Clear()
	select {
	case <-aborted:
	case <-time.After(time.Second):
		t.Fatal("Clear did not abort the line being warmed")
	}

	waitFor(t, "failure recorded", func() bool { return q.GetStats().TotalFailed == 1 })
	if q.Size() != 0 {
		t.Errorf("size = %d after Clear", q.Size())
	}
	if n := len(w.warmed()); n != 1 {
		t.Errorf("cleared lines were warmed: %d", n)
	}
}

func TestLookahead_FailedLineCanRetry(t *testing.T) {
	var fail sync.Once
	w := &fakeWarmer{}
	w.hook = func(context.Context, Line) error {
		var err error
		fail.Do(func() { err = errors.New("engine busy") })
		return err
	}
	q := newTestQueue(t, w, 8)

	line := Line{"retry", "A"}
	_ = q.Enqueue(context.Background(), line)
	waitFor(t, "failure", func() bool { return q.GetStats().TotalFailed == 1 })

	_ = q.Enqueue(context.Background(), line)
	waitFor(t, "retry", func() bool { return q.GetStats().TotalWarmed == 1 })
}

func TestLookahead_Prefetch(t *testing.T) {
	w := &fakeWarmer{}
	q := newTestQueue(t, w, 8)

	q.Prefetch(context.Background(), []script.Item{
		script.NewSpeech("Alice", "spoken"),
		script.NewAudio("boom.wav", "data:audio/wav;base64,UklGRg==", script.RoleEffect),
		script.NewSpeech("Bob", "also spoken"),
	})

	waitFor(t, "two lines", func() bool { return q.GetStats().TotalWarmed == 2 })
	got := w.warmed()
	if got[0] != (Line{"spoken", "Alice"}) || got[1] != (Line{"also spoken", "Bob"}) {
		t.Errorf("warmed = %v", got)
	}
}

func TestLookahead_Close(t *testing.T) {
	w := &fakeWarmer{hook: func(ctx context.Context, _ Line) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	q := New(w, 4, log.New(io.Discard))

	_ = q.Enqueue(context.Background(), Line{"blocked", "A"})
	waitFor(t, "worker busy", func() bool { return len(w.warmed()) == 1 })

	done := make(chan struct{})
	go func() {
		_ = q.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}

	if err := q.Enqueue(context.Background(), Line{"late", "A"}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("err = %v, want ErrQueueClosed", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
