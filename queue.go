package qcore

import (
	"sync"

	"github.com/kwik-transport/qcore/ackhandler"
)

// dispatchQueue is the sender loop's waiting-packet queue, grounded on
// Sender.java's incomingPacketQueue (a LinkedBlockingQueue) but split
// into a normal lane and a priority "urgent" lane: ack-only and probe
// packets enqueued via the urgent lane must be servable while the
// loop is stuck in admission-wait on a normal packet blocked by the
// congestion window (see the design ledger's concurrency-realization
// note and scenario S4).
type dispatchQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	normal []*ackhandler.OutgoingPacket
	urgent []*ackhandler.OutgoingPacket
	closed bool
}

func newDispatchQueue() *dispatchQueue {
	q := &dispatchQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// pushNormal appends to the FIFO lane ordinary enqueue() calls use.
func (q *dispatchQueue) pushNormal(p *ackhandler.OutgoingPacket) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.normal = append(q.normal, p)
	q.cond.Broadcast()
	return true
}

// pushUrgent appends to the priority lane send-probe and ack-dispatch
// use.
func (q *dispatchQueue) pushUrgent(p *ackhandler.OutgoingPacket) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.urgent = append(q.urgent, p)
	q.cond.Broadcast()
	return true
}

// tryPopUrgent pops the head of the urgent lane without blocking, or
// reports false if it's empty. Used by the admission-wait loop to
// service urgent arrivals while a normal packet is held back by the
// congestion window.
func (q *dispatchQueue) tryPopUrgent() (*ackhandler.OutgoingPacket, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.urgent) == 0 {
		return nil, false
	}
	p := q.urgent[0]
	q.urgent = q.urgent[1:]
	return p, true
}

// next blocks until a packet is available (urgent lane first) or the
// queue is closed, mirroring incomingPacketQueue.take() with
// interruption-on-shutdown instead of a checked InterruptedException.
func (q *dispatchQueue) next() (*ackhandler.OutgoingPacket, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if len(q.urgent) > 0 {
			p := q.urgent[0]
			q.urgent = q.urgent[1:]
			return p, true
		}
		if len(q.normal) > 0 {
			p := q.normal[0]
			q.normal = q.normal[1:]
			return p, true
		}
		if q.closed {
			return nil, false
		}
		q.cond.Wait()
	}
}

// isClosed reports whether the queue has been shut down, so a blocked
// admission-wait loop can give up on shutdown instead of only on a
// congestion-window update.
func (q *dispatchQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// close marks the queue shut; next() unblocks and returns false to
// every caller from this point on.
func (q *dispatchQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
