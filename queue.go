// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mirror

import (
	"context"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
)

// Queue carries events from one producer goroutine (the transport reader)
// to one consumer goroutine (the one that owns the [Reconciler]).
//
// Transport is a bounded lock-free SPSC queue from lfq. Push and Pop are
// non-blocking and return [iox.ErrWouldBlock] at the boundary: Push when
// the queue is full, Pop when it is empty. Events are delivered in the
// order they were pushed, and no event is lost or duplicated.
type Queue struct {
	q      lfq.SPSC[Event]
	slot   Event
	closed atomix.Uint32
	pushed atomix.Uint64
	popped atomix.Uint64
	full   atomix.Uint64
}

// NewQueue returns an empty queue sized for capacity events. The lfq ring
// may round the size up. A capacity below 2 is raised to 2.
func NewQueue(capacity int) *Queue {
	q := &Queue{}
	q.q.Init(max(capacity, 2))
	return q
}

// Push enqueues ev. It must only be called from the producer goroutine.
// Non-blocking: returns iox.ErrWouldBlock if the queue is full, and
// ErrClosed once Close has been called.
func (q *Queue) Push(ev Event) error {
	if q.closed.Load() != 0 {
		return ErrClosed
	}
	q.slot = ev
	if err := q.q.Enqueue(&q.slot); err != nil {
		q.full.Add(1)
		return err
	}
	q.pushed.Add(1)
	return nil
}

// PushWait enqueues ev, backing off while the queue is full.
// It returns ctx.Err() if ctx is done first.
func (q *Queue) PushWait(ctx context.Context, ev Event) error {
	var bo iox.Backoff
	for {
		err := q.Push(ev)
		if !iox.IsWouldBlock(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		bo.Wait()
	}
}

// Pop dequeues the oldest event. It must only be called from the consumer
// goroutine. Non-blocking: returns iox.ErrWouldBlock if the queue is empty
// and still open, and ErrClosed once it is closed and drained.
func (q *Queue) Pop() (Event, error) {
	ev, err := q.q.Dequeue()
	if err == nil {
		q.popped.Add(1)
		return ev, nil
	}
	if q.closed.Load() == 0 {
		return nil, err
	}
	// a final Push may have landed between the first Dequeue and Load
	if ev, err = q.q.Dequeue(); err == nil {
		q.popped.Add(1)
		return ev, nil
	}
	return nil, ErrClosed
}

// Close marks the queue closed. Events already pushed remain poppable.
// The producer calls Close after its last Push; calling it more than once
// is harmless.
func (q *Queue) Close() {
	q.closed.Add(1)
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	return q.closed.Load() != 0
}

// QueueStats counts the traffic through a Queue.
type QueueStats struct {
	Pushed uint64
	Popped uint64
	// Rejected counts pushes refused because the queue was full.
	Rejected uint64
}

// Stats returns the traffic counters of q.
func (q *Queue) Stats() QueueStats {
	return QueueStats{Pushed: q.pushed.Load(), Popped: q.popped.Load(), Rejected: q.full.Load()}
}
