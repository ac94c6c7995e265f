package protocol

import "time"

// ByteCount is a count of bytes. Named as its own type, as in the teacher
// codebase, so sizes and packet numbers never get mixed up by accident.
type ByteCount int64

// MaxByteCount returns the larger of a and b.
func MaxByteCount(a, b ByteCount) ByteCount {
	if a > b {
		return a
	}
	return b
}

// MinByteCount returns the smaller of a and b.
func MinByteCount(a, b ByteCount) ByteCount {
	if a < b {
		return a
	}
	return b
}

const (
	// DefaultMaxDatagramSize is the MSS this core assumes absent a path MTU
	// discovery collaborator.
	DefaultMaxDatagramSize ByteCount = 1252

	// InitialWindowPackets is the number of MSS-sized packets the
	// congestion window starts at, per RFC 9002.
	InitialWindowPackets = 10

	// MinimumWindowPackets is the floor the congestion window is never
	// reduced below.
	MinimumWindowPackets = 2

	// LossReductionFactor is the multiplicative cwnd cutback applied on
	// the first loss of a recovery episode.
	LossReductionFactor = 0.5

	// DefaultInitialRTT seeds the RttEstimator before any sample exists.
	DefaultInitialRTT = 100 * time.Millisecond

	// TimerGranularity is the minimum resolution assumed for timers; it
	// floors the PTO variance term.
	TimerGranularity = time.Millisecond

	// DefaultMaxAckDelay caps how much of a peer-reported ack delay the
	// RttEstimator will subtract from a sample, per RFC 9002 §5.3.
	DefaultMaxAckDelay = 25 * time.Millisecond
)
