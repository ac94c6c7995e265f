package ackhandler

import "github.com/kwik-transport/qcore/internal/protocol"

// History is the per-epoch in-flight log: an ordered map from packet
// number to Record. Grounded on the teacher's sentPacketHistory, but
// without its skipped-packet-number bookkeeping — this core's redesign
// (see the transmission core's design notes on packet-number
// assignment) never skips a number, so every slot from the first
// retained entry onward is either a live Record or one already removed
// and nil'd out, never a placeholder for a number that was never sent.
type History struct {
	records []*Record

	numOutstanding int

	highestPacketNumber protocol.PacketNumber
}

// NewHistory creates an empty per-epoch in-flight log.
func NewHistory() *History {
	return &History{
		records:              make([]*Record, 0, 32),
		highestPacketNumber:  protocol.InvalidPacketNumber,
	}
}

// Insert records a newly in-flight packet. Packet numbers must be
// inserted in strictly increasing order; the sender loop is the only
// writer, and it assigns numbers sequentially.
func (h *History) Insert(r *Record) {
	if h.highestPacketNumber != protocol.InvalidPacketNumber && r.ID.Number <= h.highestPacketNumber {
		panic("ackhandler: non-sequential packet number insert")
	}
	h.records = append(h.records, r)
	if r.InFlight {
		h.numOutstanding++
	}
	h.highestPacketNumber = r.ID.Number
}

func (h *History) indexOf(pn protocol.PacketNumber) (int, bool) {
	if len(h.records) == 0 {
		return 0, false
	}
	first := h.records[0].ID.Number
	if pn < first {
		return 0, false
	}
	idx := int(pn - first)
	if idx > len(h.records)-1 {
		return 0, false
	}
	return idx, true
}

// Get returns the record for pn, or nil if it isn't outstanding
// (never sent under this epoch, or already retired).
func (h *History) Get(pn protocol.PacketNumber) *Record {
	idx, ok := h.indexOf(pn)
	if !ok {
		return nil
	}
	return h.records[idx]
}

// Remove retires pn from the log, returning its record or nil if pn
// was not outstanding (e.g. a duplicate ack of an already-retired
// packet, or an ack for a number that was never sent).
func (h *History) Remove(pn protocol.PacketNumber) *Record {
	idx, ok := h.indexOf(pn)
	if !ok {
		return nil
	}
	r := h.records[idx]
	if r == nil {
		return nil
	}
	if r.InFlight {
		h.numOutstanding--
	}
	h.records[idx] = nil
	if idx == 0 {
		h.cleanupStart()
	}
	return r
}

// delete all nil entries at the beginning of the log, the way the
// teacher's cleanupStart trims retired prefixes off sentPacketHistory.
func (h *History) cleanupStart() {
	for i, r := range h.records {
		if r != nil {
			h.records = h.records[i:]
			return
		}
	}
	h.records = h.records[:0]
}

// HasOutstanding reports whether any in-flight (congestion-window
// consuming) record is still unretired.
func (h *History) HasOutstanding() bool {
	return h.numOutstanding > 0
}

// Len returns the number of slots in the log, including retired ones
// not yet trimmed from the front.
func (h *History) Len() int {
	return len(h.records)
}
