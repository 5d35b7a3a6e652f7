package progress

import (
	"sync"

	"github.com/yokitheyo/avatarpipeline/internal/domain"
)

// QueuedListener decouples a listener from the pipeline. Listen only enqueues; a single
// goroutine delivers events to the target in FIFO order.
type QueuedListener struct {
	target domain.ProgressListener

	mu     sync.Mutex
	queue  []domain.ProgressEvent
	closed bool

	wake chan struct{}
	done chan struct{}
}

func NewQueuedListener(target domain.ProgressListener) *QueuedListener {
	q := &QueuedListener{
		target: target,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *QueuedListener) Listen(ev domain.ProgressEvent) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.queue = append(q.queue, ev)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Close stops accepting events and waits until everything queued has been delivered.
func (q *QueuedListener) Close() {
	q.mu.Lock()
	already := q.closed
	q.closed = true
	q.mu.Unlock()

	if !already {
		select {
		case q.wake <- struct{}{}:
		default:
		}
	}
	<-q.done
}

func (q *QueuedListener) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		batch := q.queue
		q.queue = nil
		closed := q.closed
		q.mu.Unlock()

		for _, ev := range batch {
			deliver(q.target, ev)
		}

		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-q.wake
	}
}
