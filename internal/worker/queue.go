package worker

import (
	"sync"
)

// Queue hands file paths to the pool. A path already waiting or in progress
// is not queued twice.
type Queue struct {
	ch        chan string
	mu        sync.Mutex
	enqueued  map[string]struct{}
	accepting bool
}

func NewQueue(buf int) *Queue {
	return &Queue{
		ch:        make(chan string, buf*2+10),
		enqueued:  make(map[string]struct{}),
		accepting: true,
	}
}

// Enqueue reports whether path was added. A full queue drops the path; the
// next event or scan for it queues it again.
func (q *Queue) Enqueue(path string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.accepting {
		return false
	}
	if _, ok := q.enqueued[path]; ok {
		return false
	}
	select {
	case q.ch <- path:
		q.enqueued[path] = struct{}{}
		return true
	default:
		return false
	}
}

func (q *Queue) Dequeued(path string) {
	q.mu.Lock()
	delete(q.enqueued, path)
	q.mu.Unlock()
}

func (q *Queue) StopAccepting() {
	q.mu.Lock()
	q.accepting = false
	q.mu.Unlock()
}

func (q *Queue) Chan() <-chan string { return q.ch }

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.enqueued)
}
