package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/scriptplay/internal/script"
)

var (
	// ErrQueueFull is returned when the queue is at capacity
	ErrQueueFull = errors.New("queue is full")

	// ErrQueueClosed is returned when operations are attempted on a closed queue
	ErrQueueClosed = errors.New("queue is closed")
)

// Line is one spoken line to prepare.
type Line struct {
	Text  string
	Voice string
}

// Warmer prepares a line so it can be spoken without delay.
type Warmer interface {
	Warm(ctx context.Context, text, voiceName string) error
}

// Stats tracks queue activity.
type Stats struct {
	TotalEnqueued int64
	TotalWarmed   int64
	TotalFailed   int64
	TotalDropped  int64
	CurrentSize   int
	PeakSize      int
	LastWarm      time.Time
	AverageWarm   time.Duration
}

type request struct {
	line Line
	ctx  context.Context
}

// Lookahead warms lines in the order they were enqueued. All methods are
// safe for concurrent use and never block on synthesis.
type Lookahead struct {
	warmer  Warmer
	maxSize int
	logger  *log.Logger

	mu      sync.Mutex
	pending []request
	seen    map[Line]struct{}
	closed  bool
	stats   Stats
	cancel  context.CancelFunc // aborts the line being warmed

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// New starts a lookahead queue holding at most maxSize pending lines.
func New(warmer Warmer, maxSize int, logger *log.Logger) *Lookahead {
	if maxSize <= 0 {
		maxSize = 16
	}
	if logger == nil {
		logger = log.Default()
	}
	q := &Lookahead{
		warmer:  warmer,
		maxSize: maxSize,
		logger:  logger,
		seen:    make(map[Line]struct{}),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	q.wg.Add(1)
	go q.process()
	return q
}

// Enqueue adds lines to warm. Lines already queued or warmed since the last
// Clear are skipped. Work for a line is abandoned once ctx is done. When the
// queue is full the remaining lines are dropped and ErrQueueFull returned.
func (q *Lookahead) Enqueue(ctx context.Context, lines ...Line) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	var err error
	for _, line := range lines {
		if _, ok := q.seen[line]; ok {
			continue
		}
		if len(q.pending) >= q.maxSize {
			q.stats.TotalDropped++
			err = ErrQueueFull
			continue
		}
		q.seen[line] = struct{}{}
		q.pending = append(q.pending, request{line: line, ctx: ctx})
		q.stats.TotalEnqueued++
	}

	q.stats.CurrentSize = len(q.pending)
	if q.stats.CurrentSize > q.stats.PeakSize {
		q.stats.PeakSize = q.stats.CurrentSize
	}

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return err
}

// Prefetch enqueues the spoken lines among items and ignores clips.
func (q *Lookahead) Prefetch(ctx context.Context, items []script.Item) {
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		if s, ok := item.(script.SpeechItem); ok {
			lines = append(lines, Line{Text: s.Text, Voice: s.VoiceName})
		}
	}
	if len(lines) == 0 {
		return
	}
	if err := q.Enqueue(ctx, lines...); err != nil {
		q.logger.Debug("lookahead skipped lines", "err", err)
	}
}

// Clear drops every pending line, aborts the one being warmed and forgets
// which lines were seen.
func (q *Lookahead) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = nil
	q.seen = make(map[Line]struct{})
	q.stats.CurrentSize = 0
	if q.cancel != nil {
		q.cancel()
	}
}

// Size returns the number of pending lines.
func (q *Lookahead) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// GetStats returns a snapshot of the queue counters.
func (q *Lookahead) GetStats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

// Close stops the worker and waits for it to exit.
func (q *Lookahead) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.pending = nil
	if q.cancel != nil {
		q.cancel()
	}
	close(q.done)
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

func (q *Lookahead) process() {
	defer q.wg.Done()

	for {
		req, ok := q.next()
		if !ok {
			select {
			case <-q.done:
				return
			case <-q.wake:
			}
			continue
		}
		q.warm(req)
	}
}

// next pops the oldest request whose context is still live.
func (q *Lookahead) next() (request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.pending) > 0 {
		req := q.pending[0]
		q.pending = q.pending[1:]
		q.stats.CurrentSize = len(q.pending)
		if req.ctx.Err() == nil && !q.closed {
			return req, true
		}
		q.stats.TotalDropped++
	}
	return request{}, false
}

func (q *Lookahead) warm(req request) {
	ctx, cancel := context.WithCancel(req.ctx)
	defer cancel()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.cancel = cancel
	q.mu.Unlock()

	start := time.Now()
	err := q.warmer.Warm(ctx, req.line.Text, req.line.Voice)
	elapsed := time.Since(start)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.cancel = nil

	if err != nil {
		q.stats.TotalFailed++
		// Let a later Enqueue retry the line
		delete(q.seen, req.line)
		q.logger.Debug("lookahead failed", "voice", req.line.Voice, "err", err)
		return
	}

	q.stats.TotalWarmed++
	q.stats.LastWarm = time.Now()
	if q.stats.AverageWarm == 0 {
		q.stats.AverageWarm = elapsed
	} else {
		q.stats.AverageWarm = (q.stats.AverageWarm*9 + elapsed) / 10
	}
}
