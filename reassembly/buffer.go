package reassembly

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kwik-transport/qcore/internal/protocol"
)

// BackpressureError is returned by Add once a buffer's configured byte
// ceiling would be exceeded. It is a typed value rather than a bare
// string so a caller can inspect how far over the ceiling the buffer
// is.
type BackpressureError struct {
	Buffered protocol.ByteCount
	Ceiling  protocol.ByteCount
}

func (e *BackpressureError) Error() string {
	return fmt.Sprintf("reassembly: buffered bytes %d exceed ceiling %d", e.Buffered, e.Ceiling)
}

// Buffer accepts arbitrarily overlapping byte ranges of a single
// stream and produces a gap-free prefix for readers.
//
// The ordered set of pending elements is a sorted slice rather than a
// balanced tree: every operation (BytesAvailable, Read) already walks
// the whole pending set in order on every call, so a tree's better
// asymptotic lookup cost buys nothing here — the access pattern is
// sequential-scan, not point-query. See the design ledger for the
// balanced-tree alternative this was weighed against.
type Buffer struct {
	mu sync.Mutex

	elements []Element
	readUpTo uint64

	finalLength    uint64
	hasFinalLength bool

	bufferedBytes protocol.ByteCount
	ceiling       protocol.ByteCount
}

// NewBuffer creates an empty ReassemblyBuffer. ceiling <= 0 means
// unbounded.
func NewBuffer(ceiling protocol.ByteCount) *Buffer {
	return &Buffer{ceiling: ceiling}
}

// Add inserts element into the ordered set, unless it is already fully
// consumed (element.Upto() <= processed-to-offset) in which case it
// reports false and adds nothing. Exact duplicates of an already
// pending element are also dropped. Returns a BackpressureError if the
// buffer's configured ceiling would be exceeded; the element is not
// added in that case either.
func (b *Buffer) Add(e Element) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e.Upto() <= b.readUpTo {
		return false, nil
	}

	idx := sort.Search(len(b.elements), func(i int) bool { return !less(b.elements[i], e) })
	if idx < len(b.elements) && equalRange(b.elements[idx], e) {
		return false, nil
	}

	if b.ceiling > 0 {
		projected := b.bufferedBytes + protocol.ByteCount(len(e.Payload))
		if projected > b.ceiling {
			return false, &BackpressureError{Buffered: projected, Ceiling: b.ceiling}
		}
	}

	b.elements = append(b.elements, Element{})
	copy(b.elements[idx+1:], b.elements[idx:])
	b.elements[idx] = e
	b.bufferedBytes += protocol.ByteCount(len(e.Payload))

	if e.IsFinal {
		b.finalLength = e.Upto()
		b.hasFinalLength = true
	}
	return true, nil
}

// BytesAvailable returns the number of contiguous bytes that would be
// returned by a Read right now, without consuming anything.
func (b *Buffer) BytesAvailable() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available()
}

func (b *Buffer) available() int {
	r := b.readUpTo
	for _, e := range b.elements {
		if e.Offset > r {
			break
		}
		if e.Upto() > r {
			r = e.Upto()
		}
	}
	return int(r - b.readUpTo)
}

// Read copies as many contiguous bytes as fit into dst, starting from
// the current read offset, stopping at the first gap. It returns the
// number of bytes copied.
func (b *Buffer) Read(dst []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.elements) == 0 || len(dst) == 0 {
		return 0
	}

	read := 0
	r := b.readUpTo
	for read < len(dst) {
		e, ok := b.elementCovering(r)
		if !ok {
			break
		}
		available := int(e.Upto() - r)
		toRead := len(dst) - read
		if toRead > available {
			toRead = available
		}
		start := r - e.Offset
		copy(dst[read:read+toRead], e.Payload[start:start+uint64(toRead)])
		read += toRead
		r += uint64(toRead)
	}

	b.readUpTo = r
	b.purgeConsumed()
	return read
}

// elementCovering finds the first pending element, in order, whose
// range starts at or before r and extends past it — the element the
// walk should continue reading from at cursor r.
func (b *Buffer) elementCovering(r uint64) (Element, bool) {
	for _, e := range b.elements {
		if e.Offset > r {
			return Element{}, false
		}
		if e.Upto() > r {
			return e, true
		}
	}
	return Element{}, false
}

// purgeConsumed drops every leading element fully covered by
// readUpTo; elements are sorted by offset so once one isn't fully
// consumed, none after it are either... except that overlap means a
// later element can have a smaller Upto than an earlier one, so the
// purge has to check every element rather than stop at the first
// survivor.
func (b *Buffer) purgeConsumed() {
	kept := b.elements[:0]
	var freed protocol.ByteCount
	for _, e := range b.elements {
		if e.Upto() <= b.readUpTo {
			freed += protocol.ByteCount(len(e.Payload))
			continue
		}
		kept = append(kept, e)
	}
	b.elements = kept
	b.bufferedBytes -= freed
}

// ReadOffset returns the stream position up to which bytes have been
// read (processed-to-offset).
func (b *Buffer) ReadOffset() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.readUpTo
}

// Closed reports whether the stream's final length is known and every
// byte up to it has been read.
func (b *Buffer) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hasFinalLength && b.readUpTo >= b.finalLength
}
