package qcore

import (
	"net"
	"time"

	"github.com/kwik-transport/qcore/ackhandler"
	"github.com/kwik-transport/qcore/internal/monotime"
	"github.com/kwik-transport/qcore/internal/protocol"
)

// DatagramSink is the one-datagram-at-a-time send side of the socket
// collaborator; everything below "send these bytes to this peer" is
// out of the transmission core's scope.
type DatagramSink interface {
	Send(b []byte, peer net.Addr) error
}

// ClockSource is the core's sole source of "now", so tests can run
// against a fake clock instead of wall time.
type ClockSource interface {
	Now() time.Time
}

// LossDetection is notified of every packet handed to the sink and
// every ack processed, and is expected to call back into the
// Transmitter's OnLost when it declares a loss. Owning PTO/loss-timer
// logic itself is out of the transmission core's scope (see the
// design notes on the probe/PTO bookkeeping surface).
type LossDetection interface {
	OnPacketSent(record ackhandler.Record)
	OnAckReceived(epoch protocol.Epoch, largestAcked protocol.PacketNumber, receiveTime time.Time)
}

// realClock is the default ClockSource, backing production wiring
// that doesn't hand in a fake.
type realClock struct{}

func (realClock) Now() time.Time { return monotime.Now() }
