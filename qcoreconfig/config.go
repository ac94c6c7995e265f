// Package qcoreconfig holds the tunables for the transmission and
// reassembly cores. A zero-value Config is valid: Populate fills every
// unset field with the default §4 of the design documents.
package qcoreconfig

import (
	"time"

	"github.com/kwik-transport/qcore/internal/protocol"
)

// Config collects the knobs the RttEstimator, CongestionController and
// ReassemblyBuffer are built from.
type Config struct {
	// InitialRTT seeds the RttEstimator before the first sample arrives.
	// Defaults to protocol.DefaultInitialRTT.
	InitialRTT time.Duration
	// Granularity floors the PTO calculation. Defaults to
	// protocol.TimerGranularity.
	Granularity time.Duration
	// MaxAckDelay caps how much of a peer-reported ack delay the
	// RttEstimator will subtract from a sample. Defaults to
	// protocol.DefaultMaxAckDelay.
	MaxAckDelay time.Duration

	// MaxDatagramSize is the largest datagram the transmitter will ever
	// hand to the sink, and the unit ("MSS") congestion window growth is
	// denominated in. Defaults to protocol.DefaultMaxDatagramSize.
	MaxDatagramSize protocol.ByteCount
	// InitialWindowPackets sizes the starting congestion window, in
	// multiples of MaxDatagramSize. Defaults to 10.
	InitialWindowPackets protocol.ByteCount
	// MinimumWindowPackets floors the congestion window after a loss
	// episode, in multiples of MaxDatagramSize. Defaults to 2.
	MinimumWindowPackets protocol.ByteCount
	// LossReductionFactor scales the window on entering recovery.
	// Defaults to 0.5.
	LossReductionFactor float64

	// ReassemblyByteCeiling caps the bytes a ReassemblyBuffer will hold
	// before Add starts reporting backpressure. Zero means unbounded.
	ReassemblyByteCeiling protocol.ByteCount
}

// Clone returns a shallow copy, the way quic-go's Config.Clone does for
// its own (flat) Config struct.
func (c *Config) Clone() *Config {
	copy := *c
	return &copy
}

// Populate returns config with every unset field filled with its
// documented default; config == nil is accepted and treated as an
// all-zero Config, mirroring populateConfig in the teacher's config.go.
func Populate(config *Config) *Config {
	if config == nil {
		config = &Config{}
	}
	populated := *config
	if populated.InitialRTT == 0 {
		populated.InitialRTT = protocol.DefaultInitialRTT
	}
	if populated.Granularity == 0 {
		populated.Granularity = protocol.TimerGranularity
	}
	if populated.MaxAckDelay == 0 {
		populated.MaxAckDelay = protocol.DefaultMaxAckDelay
	}
	if populated.MaxDatagramSize == 0 {
		populated.MaxDatagramSize = protocol.DefaultMaxDatagramSize
	}
	if populated.InitialWindowPackets == 0 {
		populated.InitialWindowPackets = protocol.InitialWindowPackets
	}
	if populated.MinimumWindowPackets == 0 {
		populated.MinimumWindowPackets = protocol.MinimumWindowPackets
	}
	if populated.LossReductionFactor == 0 {
		populated.LossReductionFactor = protocol.LossReductionFactor
	}
	return &populated
}
