// Package wire holds the ack frame as the transmission core consumes and
// produces it. Parsing these structs from, or serializing them to, the
// wire is the job of the (out of scope) PacketEncoder collaborator; this
// package only models the data once decoded.
package wire

import (
	"time"

	"github.com/kwik-transport/qcore/internal/protocol"
)

// AckRange is a closed, inclusive range of packet numbers [Smallest, Largest].
type AckRange struct {
	Smallest protocol.PacketNumber
	Largest  protocol.PacketNumber
}

// Len returns the number of packet numbers covered by the range.
func (r AckRange) Len() protocol.PacketNumber {
	return r.Largest - r.Smallest + 1
}

// AckFrame is a non-empty, descending, disjoint list of AckRanges plus the
// peer-reported delay between receiving the largest acknowledged packet and
// sending this ack.
type AckFrame struct {
	// Ranges is ordered from the range containing LargestAcked down to the
	// range containing LowestAcked; ranges never touch or overlap.
	Ranges []AckRange
	// AckDelay is the peer's reported gap between receiving the largest
	// acked packet and sending this frame.
	AckDelay time.Duration
}

// LargestAcked returns the highest packet number this frame acknowledges.
func (f *AckFrame) LargestAcked() protocol.PacketNumber {
	return f.Ranges[0].Largest
}

// LowestAcked returns the lowest packet number this frame acknowledges.
func (f *AckFrame) LowestAcked() protocol.PacketNumber {
	return f.Ranges[len(f.Ranges)-1].Smallest
}

// HasMissingRanges reports whether the frame covers more than one
// contiguous range, i.e. whether there are gaps between LowestAcked and
// LargestAcked that were not acknowledged.
func (f *AckFrame) HasMissingRanges() bool {
	return len(f.Ranges) > 1
}

// Acks reports whether pn falls within any of the frame's ranges.
func (f *AckFrame) Acks(pn protocol.PacketNumber) bool {
	// Ranges are sorted descending, so a linear scan stops early for the
	// common case of acking recently sent packets.
	for _, r := range f.Ranges {
		if pn > r.Largest {
			continue
		}
		return pn >= r.Smallest
	}
	return false
}
