package ackhandler

import (
	"container/list"

	"github.com/kwik-transport/qcore/internal/protocol"
)

type packetInterval struct {
	start, end protocol.PacketNumber
}

// receivedRanges collapses a set of received packet numbers into
// disjoint, merged intervals, ascending by start. Grounded directly on
// the teacher's receivedPacketHistory (ackhandlernew/received_packet_history.go):
// a doubly-linked list of intervals, extended or merged in place on
// each insert rather than rebuilt from scratch.
type receivedRanges struct {
	ranges *list.List
}

func newReceivedRanges() *receivedRanges {
	return &receivedRanges{ranges: list.New()}
}

// insert records pn, extending or merging an existing interval, or
// starting a new one. A pn already covered by an interval is a no-op.
func (h *receivedRanges) insert(pn protocol.PacketNumber) {
	if h.ranges.Len() == 0 {
		h.ranges.PushBack(packetInterval{start: pn, end: pn})
		return
	}

	for el := h.ranges.Back(); el != nil; el = el.Prev() {
		iv := el.Value.(packetInterval)
		if pn >= iv.start && pn <= iv.end {
			return
		}

		extended := false
		if iv.end == pn-1 {
			iv.end = pn
			extended = true
		} else if iv.start == pn+1 {
			iv.start = pn
			extended = true
		}

		if extended {
			el.Value = iv
			if prev := el.Prev(); prev != nil {
				pv := prev.Value.(packetInterval)
				if pv.end+1 == iv.start {
					pv.end = iv.end
					prev.Value = pv
					h.ranges.Remove(el)
				}
			}
			return
		}

		if pn > iv.end {
			h.ranges.InsertAfter(packetInterval{start: pn, end: pn}, el)
			return
		}
	}

	h.ranges.InsertBefore(packetInterval{start: pn, end: pn}, h.ranges.Front())
}

// removeUpTo drops every packet number <= threshold, splitting or
// dropping intervals as needed. Used when the peer has confirmed it
// already knows about everything up to threshold (an ack of our ack).
func (h *receivedRanges) removeUpTo(threshold protocol.PacketNumber) {
	for el := h.ranges.Front(); el != nil; {
		next := el.Next()
		iv := el.Value.(packetInterval)
		switch {
		case iv.end <= threshold:
			h.ranges.Remove(el)
		case iv.start <= threshold:
			iv.start = threshold + 1
			el.Value = iv
		}
		el = next
	}
}

// isEmpty reports whether any packet number is currently retained.
func (h *receivedRanges) isEmpty() bool {
	return h.ranges.Len() == 0
}

// largest returns the highest retained packet number; callers must
// check isEmpty first.
func (h *receivedRanges) largest() protocol.PacketNumber {
	back := h.ranges.Back()
	return back.Value.(packetInterval).end
}

// descendingRanges returns every retained interval from largest to
// smallest, matching the descending, disjoint ordering an AckFrame
// requires.
func (h *receivedRanges) descendingRanges() []packetInterval {
	out := make([]packetInterval, 0, h.ranges.Len())
	for el := h.ranges.Back(); el != nil; el = el.Prev() {
		out = append(out, el.Value.(packetInterval))
	}
	return out
}
