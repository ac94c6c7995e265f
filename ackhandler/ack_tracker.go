package ackhandler

import (
	"sync"
	"time"

	"github.com/kwik-transport/qcore/internal/protocol"
	"github.com/kwik-transport/qcore/internal/wire"
)

// AckTracker is the per-epoch record of received packet numbers,
// grounded on GlobalAckGenerator/AckGenerator in the original source:
// it decides when a return ack is owed, collapses the received set
// into ranges on demand, and retires numbers the peer has confirmed it
// already knows we received.
type AckTracker struct {
	mu sync.Mutex

	received *receivedRanges
	dirty    bool

	largestReceived     protocol.PacketNumber
	largestReceivedTime time.Time

	// sentAcks maps a packet number we sent (that carried an ack frame)
	// to the largest-acked value that frame reported, so
	// OnPeerAckOfOurPacket can look up what it covered.
	sentAcks map[protocol.PacketNumber]protocol.PacketNumber
}

// NewAckTracker creates an empty per-epoch ack tracker.
func NewAckTracker() *AckTracker {
	return &AckTracker{
		received: newReceivedRanges(),
		sentAcks: make(map[protocol.PacketNumber]protocol.PacketNumber),
	}
}

// OnPacketReceived registers pn as received, if the packet is
// ack-eliciting, and marks the tracker dirty so a future ack covers
// it.
func (t *AckTracker) OnPacketReceived(pn protocol.PacketNumber, ackEliciting bool, receiveTime time.Time) {
	if !ackEliciting {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.received.insert(pn)
	t.dirty = true
	if t.largestReceivedTime.IsZero() || pn > t.largestReceived {
		t.largestReceived = pn
		t.largestReceivedTime = receiveTime
	}
}

// HasNewAck reports whether packets have arrived since the last
// GenerateAck call.
func (t *AckTracker) HasNewAck() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dirty
}

// HasAnyAck reports whether the received set is non-empty at all.
func (t *AckTracker) HasAnyAck() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.received.isEmpty()
}

// GenerateAck collapses the received set into an AckFrame and records
// that currentPacketNumber carries it, so a later
// OnPeerAckOfOurPacket(currentPacketNumber) can retire what it covers.
// Callers must check HasAnyAck first; GenerateAck panics on an empty
// received set; that contract mirrors GlobalAckGenerator's
// hasAckToSend/generateAckForPacket pairing.
func (t *AckTracker) GenerateAck(currentPacketNumber protocol.PacketNumber, now time.Time) *wire.AckFrame {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.received.isEmpty() {
		panic("ackhandler: GenerateAck called with nothing to ack")
	}

	intervals := t.received.descendingRanges()
	ranges := make([]wire.AckRange, len(intervals))
	for i, iv := range intervals {
		ranges[i] = wire.AckRange{Smallest: iv.start, Largest: iv.end}
	}
	largestAcked := ranges[0].Largest

	frame := &wire.AckFrame{
		Ranges:   ranges,
		AckDelay: now.Sub(t.largestReceivedTime),
	}

	t.sentAcks[currentPacketNumber] = largestAcked
	t.dirty = false
	return frame
}

// OnPeerAckOfOurPacket drops every received number <= the largest-acked
// value reported by the ack frame our packet ourPacketNumber carried,
// if it carried one at all — the peer now knows we received them, so
// there is no need to keep re-advertising them.
func (t *AckTracker) OnPeerAckOfOurPacket(ourPacketNumber protocol.PacketNumber) {
	t.mu.Lock()
	defer t.mu.Unlock()
	largestAcked, ok := t.sentAcks[ourPacketNumber]
	if !ok {
		return
	}
	t.received.removeUpTo(largestAcked)
	delete(t.sentAcks, ourPacketNumber)
}
