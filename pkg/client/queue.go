package client

import (
	"sync"

	"github.com/vango-dev/wsession/pkg/message"
)

// messageQueue is an unbounded FIFO of messages guarded by a mutex. Each
// direction has exactly one producer and one consumer, so the lock only
// arbitrates the hand-off between the transport context and the consumer
// tick.
type messageQueue struct {
	mu   sync.Mutex
	msgs []*message.Message
}

// enqueue appends a message.
func (q *messageQueue) enqueue(msg *message.Message) {
	q.mu.Lock()
	q.msgs = append(q.msgs, msg)
	q.mu.Unlock()
}

// tryDequeue pops the oldest message, if any.
func (q *messageQueue) tryDequeue() (*message.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.msgs) == 0 {
		return nil, false
	}
	msg := q.msgs[0]
	q.msgs = q.msgs[1:]
	return msg, true
}

// clear discards all buffered messages.
func (q *messageQueue) clear() {
	q.mu.Lock()
	q.msgs = nil
	q.mu.Unlock()
}

// len returns the number of buffered messages.
func (q *messageQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs)
}
