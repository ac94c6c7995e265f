package congestion

import (
	"sync"
	"time"

	"github.com/kwik-transport/qcore/internal/protocol"
)

// Packet is the minimal shape the congestion controller needs to know
// about a sent or acked/lost packet: how large it was, when it went out,
// and whether it counts against the window at all.
type Packet struct {
	SendTime  time.Time
	Size      protocol.ByteCount
	InFlight  bool
}

// Controller implements NewReno-style congestion control: it admits or
// defers outgoing packets against a byte-denominated window, and grows or
// cuts that window on acks and declared losses.
//
// wait-for-update is realized as a condition variable owned by the
// controller (see design note on the cyclic sender/controller coupling):
// the sender loop blocks on it and, on waking, re-reads the current state
// rather than being handed a pushed delta.
type Controller struct {
	mu sync.Mutex
	cv *sync.Cond

	maxDatagramSize protocol.ByteCount
	minimumWindow   protocol.ByteCount
	reductionFactor float64

	congestionWindow  protocol.ByteCount
	bytesInFlight     protocol.ByteCount
	slowStartThresh   protocol.ByteCount
	recoveryStartTime time.Time

	// generation increments every time RegisterAcked, OnLost or Broadcast
	// runs. WaitForUpdate compares against a caller-supplied snapshot so a
	// signal that lands between CanSend and WaitForUpdate is never missed.
	generation uint64
}

// NewController builds a controller, mirroring the explicit-parameter
// constructor shape of the teacher's NewCubicSender: every tunable is a
// positional argument rather than a config struct, so the congestion
// package stays ignorant of how its callers assemble those numbers.
func NewController(maxDatagramSize, initialWindow, minimumWindow protocol.ByteCount, reductionFactor float64) *Controller {
	if maxDatagramSize <= 0 {
		maxDatagramSize = protocol.DefaultMaxDatagramSize
	}
	if initialWindow <= 0 {
		initialWindow = protocol.InitialWindowPackets * maxDatagramSize
	}
	if minimumWindow <= 0 {
		minimumWindow = protocol.MinimumWindowPackets * maxDatagramSize
	}
	if reductionFactor <= 0 {
		reductionFactor = protocol.LossReductionFactor
	}
	c := &Controller{
		maxDatagramSize:   maxDatagramSize,
		minimumWindow:     minimumWindow,
		reductionFactor:   reductionFactor,
		congestionWindow:  initialWindow,
		slowStartThresh:   protocol.ByteCount(1<<62 - 1),
	}
	c.cv = sync.NewCond(&c.mu)
	return c
}

// CanSend reports whether a packet of the given size may be admitted right
// now, ignoring the not-in-flight bypass (see Controller doc and §4.2).
func (c *Controller) CanSend(size protocol.ByteCount) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytesInFlight+size <= c.congestionWindow
}

// Generation returns a counter that advances on every RegisterAcked, OnLost
// or Broadcast call. Callers that need to block until the next such event —
// without risking a missed wakeup between their last CanSend and the call
// to WaitForUpdate — capture Generation() first and pass it to
// WaitForUpdate.
func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// WaitForUpdate blocks until the generation counter advances past seen,
// i.e. until some RegisterAcked, OnLost or Broadcast call happens after the
// caller observed seen. Passing a stale (already-advanced) seen returns
// immediately, which is what makes the CanSend-then-WaitForUpdate sequence
// race-free despite CanSend and WaitForUpdate not sharing one critical
// section.
func (c *Controller) WaitForUpdate(seen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.generation == seen {
		c.cv.Wait()
	}
}

// Broadcast wakes every goroutine blocked in WaitForUpdate without an
// accompanying state change; the Transmitter uses this to interrupt a
// blocked sender loop when an urgent ack-only packet becomes ready, even
// though the congestion window itself hasn't moved.
func (c *Controller) Broadcast() {
	c.mu.Lock()
	c.generation++
	c.cv.Broadcast()
	c.mu.Unlock()
}

// RegisterInFlight accounts for a packet that has just been handed to the
// sink: if it consumes congestion window, bytesInFlight grows by its size.
func (c *Controller) RegisterInFlight(p Packet) {
	if !p.InFlight {
		return
	}
	c.mu.Lock()
	c.bytesInFlight += p.Size
	c.mu.Unlock()
}

// RegisterAcked retires a batch of acked packets atomically: bytesInFlight
// is reduced for all of them before cwnd growth is computed for any of
// them, matching the §5 ordering guarantee ("an ack retires in-flight
// records in one atomic step before congestion-window growth is computed").
func (c *Controller) RegisterAcked(packets []Packet) {
	if len(packets) == 0 {
		return
	}
	c.mu.Lock()
	for _, p := range packets {
		if p.InFlight {
			c.bytesInFlight -= p.Size
		}
	}
	for _, p := range packets {
		if !p.InFlight {
			continue
		}
		if p.SendTime.After(c.recoveryStartTime) {
			if c.congestionWindow < c.slowStartThresh {
				c.congestionWindow += p.Size
			} else {
				// Congestion-avoidance growth must never outpace what
				// slow start itself would have granted for this ack.
				growth := protocol.ByteCount(float64(p.Size) * float64(c.maxDatagramSize) / float64(c.congestionWindow))
				c.congestionWindow += protocol.MinByteCount(growth, p.Size)
			}
		}
	}
	c.generation++
	c.mu.Unlock()
	c.cv.Broadcast()
}

// OnLost accounts for declared losses. If any lost packet was sent after
// the current recovery episode began, a new recovery episode starts: the
// window is cut to max(cwnd*reductionFactor, minimumWindow).
func (c *Controller) OnLost(packets []Packet) {
	if len(packets) == 0 {
		return
	}
	c.mu.Lock()
	enteredRecovery := false
	for _, p := range packets {
		if p.InFlight {
			c.bytesInFlight -= p.Size
		}
		if p.SendTime.After(c.recoveryStartTime) {
			enteredRecovery = true
		}
	}
	if enteredRecovery {
		c.slowStartThresh = protocol.MaxByteCount(
			protocol.ByteCount(float64(c.congestionWindow)*c.reductionFactor),
			c.minimumWindow,
		)
		c.congestionWindow = c.slowStartThresh
		c.recoveryStartTime = time.Now()
	}
	c.generation++
	c.mu.Unlock()
	c.cv.Broadcast()
}

// BytesInFlight returns the current bytes-in-flight accounting.
func (c *Controller) BytesInFlight() protocol.ByteCount {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytesInFlight
}

// CongestionWindow returns the current window size in bytes.
func (c *Controller) CongestionWindow() protocol.ByteCount {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.congestionWindow
}

// InSlowStart reports whether the controller is below its slow-start
// threshold.
func (c *Controller) InSlowStart() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.congestionWindow < c.slowStartThresh
}
