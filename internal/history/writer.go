package history

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrWriterClosed is returned by Flush once the writer has been closed.
var ErrWriterClosed = errors.New("history: writer closed")

const (
	// DefaultQueueSize bounds the number of pending writes.
	DefaultQueueSize = 256
	jobTimeout       = 5 * time.Second
	slowJob          = 100 * time.Millisecond
)

type job struct {
	name string
	// key makes a newer job replace a pending one with the same key.
	key string
	// bestEffort jobs are dropped first when the queue is full.
	bestEffort bool
	fn         func(ctx context.Context) error
	done       chan struct{}
}

// AsyncWriter runs persistence jobs one at a time, in submission order, on a
// single background goroutine. A keyed job replaces the pending job with the
// same key, so only the latest snapshot of a conversation waits in the queue.
// When the queue is full, best-effort jobs are dropped before anything else,
// then the oldest job. Flush markers are never dropped.
type AsyncWriter struct {
	mu       sync.Mutex
	cond     *sync.Cond
	closed   bool
	pending  []*job
	capacity int
	wg       sync.WaitGroup
	logger   *slog.Logger

	dropped   int
	coalesced int
	written   int
	failed    int
}

// NewAsyncWriter starts a writer with the given queue capacity.
func NewAsyncWriter(size int, logger *slog.Logger) *AsyncWriter {
	if logger == nil {
		logger = slog.Default()
	}
	if size <= 0 {
		size = DefaultQueueSize
	}

	w := &AsyncWriter{
		capacity: size,
		logger:   logger,
	}
	w.cond = sync.NewCond(&w.mu)

	w.wg.Add(1)
	go w.process()

	return w
}

// Enqueue schedules fn. It never blocks; it reports false when the writer is
// closed or the job could not be queued.
func (w *AsyncWriter) Enqueue(name string, fn func(ctx context.Context) error) bool {
	return w.enqueue(&job{name: name, fn: fn})
}

// Replace schedules fn under key. A pending job with the same key is
// superseded in place and keeps its position in the queue.
func (w *AsyncWriter) Replace(key string, fn func(ctx context.Context) error) bool {
	return w.enqueue(&job{name: key, key: key, fn: fn})
}

// EnqueueBestEffort schedules fn as the first candidate for dropping when
// the queue is full.
func (w *AsyncWriter) EnqueueBestEffort(name string, fn func(ctx context.Context) error) bool {
	return w.enqueue(&job{name: name, bestEffort: true, fn: fn})
}

func (w *AsyncWriter) enqueue(j *job) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		w.logger.Debug("history writer closed, dropping job", "job", j.name)
		return false
	}

	if j.key != "" {
		for _, p := range w.pending {
			if p.key == j.key {
				p.fn = j.fn
				w.coalesced++
				return true
			}
		}
	}

	// Flush markers carry no data and bypass the bound.
	if j.done == nil && w.queuedLocked() >= w.capacity {
		if !w.makeRoomLocked(j) {
			w.dropped++
			w.logger.Warn("history queue full, dropping write", "job", j.name)
			return false
		}
	}

	w.pending = append(w.pending, j)
	w.cond.Signal()
	return true
}

// queuedLocked counts pending jobs that hold data.
func (w *AsyncWriter) queuedLocked() int {
	n := 0
	for _, p := range w.pending {
		if p.done == nil {
			n++
		}
	}
	return n
}

// makeRoomLocked drops one pending job so that incoming fits. It reports
// false when incoming itself should be dropped instead.
func (w *AsyncWriter) makeRoomLocked(incoming *job) bool {
	victim := -1
	for i, p := range w.pending {
		if p.done == nil && p.bestEffort {
			victim = i
			break
		}
	}
	if victim < 0 {
		if incoming.bestEffort {
			return false
		}
		for i, p := range w.pending {
			if p.done == nil {
				victim = i
				break
			}
		}
	}
	if victim < 0 {
		return false
	}

	old := w.pending[victim]
	w.pending = append(w.pending[:victim], w.pending[victim+1:]...)
	w.dropped++
	w.logger.Warn("history queue full, dropped pending write",
		"dropped_job", old.name,
		"queue_len", len(w.pending),
	)
	return true
}

func (w *AsyncWriter) process() {
	defer w.wg.Done()

	for {
		w.mu.Lock()
		for len(w.pending) == 0 && !w.closed {
			w.cond.Wait()
		}
		if len(w.pending) == 0 {
			w.mu.Unlock()
			return
		}
		j := w.pending[0]
		w.pending[0] = nil
		w.pending = w.pending[1:]
		w.mu.Unlock()

		w.run(j)
	}
}

func (w *AsyncWriter) run(j *job) {
	if j.done != nil {
		defer close(j.done)
	}
	if j.fn == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	err := j.fn(ctx)
	duration := time.Since(start)

	w.mu.Lock()
	if err != nil {
		w.failed++
	} else {
		w.written++
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Warn("history write failed", "job", j.name, "error", err)
		return
	}
	if duration > slowJob {
		w.logger.Warn("slow history write", "job", j.name, "duration_ms", duration.Milliseconds())
	}
}

// Flush waits until every job enqueued before the call has run.
func (w *AsyncWriter) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if !w.enqueue(&job{name: "flush", done: done}) {
		return ErrWriterClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs, runs the ones still queued and waits for the
// worker to exit or ctx to expire.
func (w *AsyncWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	remaining := len(w.pending)
	w.cond.Broadcast()
	w.mu.Unlock()

	w.logger.Info("history writer closing", "queue_remaining", remaining)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		w.logger.Warn("history writer shutdown timeout", "error", ctx.Err())
		return ctx.Err()
	}
}

// WriterStats is a snapshot of writer counters.
type WriterStats struct {
	QueueLen      int `json:"queueLen"`
	QueueCapacity int `json:"queueCapacity"`
	Written       int `json:"written"`
	Failed        int `json:"failed"`
	Dropped       int `json:"dropped"`
	Coalesced     int `json:"coalesced"`
}

// Stats returns writer statistics.
func (w *AsyncWriter) Stats() WriterStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WriterStats{
		QueueLen:      w.queuedLocked(),
		QueueCapacity: w.capacity,
		Written:       w.written,
		Failed:        w.failed,
		Dropped:       w.dropped,
		Coalesced:     w.coalesced,
	}
}
