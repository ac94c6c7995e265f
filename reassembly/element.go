// Package reassembly implements the per-stream ReassemblyBuffer: an
// ordered set of received byte ranges that produces a gap-free prefix
// for readers, grounded on BaseStream.java in the original source and
// on the ordering contract the teacher's ByteInterval type
// (internal/utils/streamframe_interval.go) expresses for an analogous
// problem.
package reassembly

// Element is a contiguous byte range of a stream, as received off the
// wire. Upto is derived, not stored redundantly on the wire, but kept
// here because every ordering and read computation needs it.
type Element struct {
	Offset  uint64
	Length  uint32
	Payload []byte
	IsFinal bool
}

// Upto returns the exclusive upper bound of the range this element
// covers.
func (e Element) Upto() uint64 {
	return e.Offset + uint64(e.Length)
}

// less orders elements by offset ascending, breaking ties by Upto
// ascending — ties matter because the second of two same-offset
// elements must be walked after the first so its extra bytes, if any,
// are picked up.
func less(a, b Element) bool {
	if a.Offset != b.Offset {
		return a.Offset < b.Offset
	}
	return a.Upto() < b.Upto()
}

// equalRange reports whether a and b cover exactly the same range,
// the duplicate-suppression criterion Add uses.
func equalRange(a, b Element) bool {
	return a.Offset == b.Offset && a.Upto() == b.Upto()
}
