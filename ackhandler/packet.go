// Package ackhandler holds the per-epoch bookkeeping the Transmitter
// needs on both sides of a packet's lifetime: the in-flight log that
// retires records on ack or loss, and the AckTracker that watches
// incoming packet numbers to decide when we owe the peer an ack.
package ackhandler

import (
	"time"

	"github.com/kwik-transport/qcore/internal/protocol"
)

// Outcome is the one value a packet's settlement callback is ever
// invoked with, exactly once.
type Outcome int

const (
	// OutcomeAcked means the peer confirmed receipt.
	OutcomeAcked Outcome = iota
	// OutcomeLost means loss detection declared the packet lost.
	OutcomeLost
)

func (o Outcome) String() string {
	if o == OutcomeAcked {
		return "acked"
	}
	return "lost"
}

// OutgoingPacket is the shape the Transmitter needs of a packet handed
// to it for sending. Encoding and encryption happen in the
// caller-supplied Encode closure; apart from that, this struct only
// carries what the sender loop and congestion controller need to know
// about it.
type OutgoingPacket struct {
	Epoch protocol.Epoch

	// AckEliciting is true iff the packet carries at least one frame
	// that obliges the peer to acknowledge it.
	AckEliciting bool
	// InFlight is true iff the packet consumes congestion window.
	// Pure-ack and probe packets are typically false.
	InFlight bool
	// Size is the packet's declared encoded length, known to the
	// caller before a packet number is even assigned (it does not
	// depend on the packet number's own encoding). This is the value
	// admission control checks against; deferring the admission check
	// until after Encode runs, the way the source does, is exactly the
	// bug this core's packet-number assignment was redesigned to avoid.
	Size protocol.ByteCount

	// Encode produces the wire bytes once a packet number has been
	// assigned. It is called at most once, from the sender loop, only
	// after the packet has been admitted.
	Encode func(pn protocol.PacketNumber) ([]byte, error)

	// OnSettled is invoked exactly once, with OutcomeAcked or
	// OutcomeLost, when the packet leaves the in-flight log. May be
	// nil.
	OnSettled func(Outcome)

	// LargestAcked is the highest packet number this packet's own ack
	// frame (if any) acknowledges; protocol.InvalidPacketNumber if the
	// packet carries no ack frame. Used by AckTracker.OnPeerAckOfOurPacket
	// to retire our own received-set once the peer has confirmed seeing
	// our ack.
	LargestAcked protocol.PacketNumber
}

// Record is the bookkeeping kept for a packet from the moment it is
// handed to the sink until it is acked or declared lost.
type Record struct {
	ID           protocol.PacketId
	SendTime     time.Time
	Size         protocol.ByteCount
	AckEliciting bool
	InFlight     bool
	LargestAcked protocol.PacketNumber

	Packet *OutgoingPacket
}
