package qcore

import (
	"net"
	"sync"
	"time"

	"github.com/kwik-transport/qcore/ackhandler"
	"github.com/kwik-transport/qcore/internal/protocol"
)

// fakeSink is a hand-written collaborator double for DatagramSink, in
// the generated-mock idiom: it records every send for assertions
// instead of touching a real socket.
type fakeSink struct {
	mu   sync.Mutex
	sent [][]byte
	err  error
}

func (f *fakeSink) Send(b []byte, _ net.Addr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakeClock is a settable ClockSource so tests never depend on real
// wall-clock timing.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Now()} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeLossDetection is a stand-in for LossDetection that records every
// sent record and counts ack events, so tests can assert on its calls.
type fakeLossDetection struct {
	mu        sync.Mutex
	sent      []ackhandler.Record
	ackEvents int
}

func (f *fakeLossDetection) OnPacketSent(r ackhandler.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, r)
}

func (f *fakeLossDetection) OnAckReceived(protocol.Epoch, protocol.PacketNumber, time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ackEvents++
}

func sizedPacket(epoch protocol.Epoch, size protocol.ByteCount, inFlight bool) *ackhandler.OutgoingPacket {
	return &ackhandler.OutgoingPacket{
		Epoch:        epoch,
		AckEliciting: inFlight,
		InFlight:     inFlight,
		Size:         size,
		Encode: func(pn protocol.PacketNumber) ([]byte, error) {
			return make([]byte, size), nil
		},
		LargestAcked: protocol.InvalidPacketNumber,
	}
}

func waitUntil(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}
