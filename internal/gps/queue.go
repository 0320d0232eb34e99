package gps

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// QueuedSink moves a network sink off the ingest goroutine. Snapshots are
// handed to a single worker through a bounded queue; when the queue is full
// the new snapshot is dropped and PublishFix reports it, so a stalled broker
// never holds up the receiver read.
type QueuedSink struct {
	name  string
	inner Sink

	mu     sync.Mutex
	closed bool
	ch     chan Snapshot
	done   chan struct{}

	dropped atomic.Uint64
	failed  atomic.Uint64
}

func NewQueuedSink(name string, inner Sink, size int) *QueuedSink {
	if size <= 0 {
		size = 16
	}
	q := &QueuedSink{
		name:  name,
		inner: inner,
		ch:    make(chan Snapshot, size),
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *QueuedSink) run() {
	defer close(q.done)
	for snap := range q.ch {
		if err := q.inner.PublishFix(snap); err != nil {
			n := q.failed.Add(1)
			// First failure, then every 100th.
			if n == 1 || n%100 == 0 {
				log.Printf("gps sink %s publish failed count=%d: %v", q.name, n, err)
			}
		}
	}
}

func (q *QueuedSink) PublishFix(snap Snapshot) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("%s: sink closed", q.name)
	}
	select {
	case q.ch <- snap:
		return nil
	default:
		n := q.dropped.Add(1)
		return fmt.Errorf("%s: queue full, dropped=%d", q.name, n)
	}
}

// Dropped counts snapshots rejected because the queue was full.
func (q *QueuedSink) Dropped() uint64 { return q.dropped.Load() }

// Failed counts snapshots the inner sink returned an error for.
func (q *QueuedSink) Failed() uint64 { return q.failed.Load() }

// Close stops accepting snapshots and waits for the queued ones to be
// published. It does not close the inner sink.
func (q *QueuedSink) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()
	<-q.done
}
