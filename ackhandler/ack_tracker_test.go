package ackhandler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwik-transport/qcore/internal/protocol"
)

func TestAckTrackerIgnoresNonAckEliciting(t *testing.T) {
	tr := NewAckTracker()
	tr.OnPacketReceived(5, false, time.Now())
	assert.False(t, tr.HasAnyAck())
	assert.False(t, tr.HasNewAck())
}

func TestAckTrackerGenerateAckCollapsesContiguousRange(t *testing.T) {
	tr := NewAckTracker()
	now := time.Now()
	tr.OnPacketReceived(0, true, now)
	tr.OnPacketReceived(1, true, now)
	tr.OnPacketReceived(2, true, now)

	require.True(t, tr.HasNewAck())
	frame := tr.GenerateAck(10, now.Add(time.Millisecond))

	require.Len(t, frame.Ranges, 1)
	assert.Equal(t, protocol.PacketNumber(0), frame.Ranges[0].Smallest)
	assert.Equal(t, protocol.PacketNumber(2), frame.Ranges[0].Largest)
	assert.False(t, tr.HasNewAck())
}

func TestAckTrackerGenerateAckSplitsOnGap(t *testing.T) {
	tr := NewAckTracker()
	now := time.Now()
	tr.OnPacketReceived(0, true, now)
	tr.OnPacketReceived(1, true, now)
	tr.OnPacketReceived(5, true, now)

	frame := tr.GenerateAck(10, now)

	require.Len(t, frame.Ranges, 2)
	assert.Equal(t, protocol.PacketNumber(5), frame.Ranges[0].Smallest)
	assert.Equal(t, protocol.PacketNumber(5), frame.Ranges[0].Largest)
	assert.Equal(t, protocol.PacketNumber(0), frame.Ranges[1].Smallest)
	assert.Equal(t, protocol.PacketNumber(1), frame.Ranges[1].Largest)
}

func TestAckTrackerGenerateAckPanicsWhenEmpty(t *testing.T) {
	tr := NewAckTracker()
	assert.Panics(t, func() { tr.GenerateAck(0, time.Now()) })
}

func TestAckTrackerOnPeerAckOfOurPacketRetiresCoveredNumbers(t *testing.T) {
	tr := NewAckTracker()
	now := time.Now()
	tr.OnPacketReceived(0, true, now)
	tr.OnPacketReceived(1, true, now)
	tr.OnPacketReceived(2, true, now)

	tr.GenerateAck(100, now) // sent inside our packet 100, covers up to 2

	tr.OnPeerAckOfOurPacket(100)

	assert.False(t, tr.HasAnyAck())
}

func TestAckTrackerOnPeerAckOfOurPacketIgnoresUnknownPacket(t *testing.T) {
	tr := NewAckTracker()
	now := time.Now()
	tr.OnPacketReceived(0, true, now)

	tr.OnPeerAckOfOurPacket(999)

	assert.True(t, tr.HasAnyAck())
}

func TestAckTrackerNewArrivalAfterAckSentMarksDirtyAgain(t *testing.T) {
	tr := NewAckTracker()
	now := time.Now()
	tr.OnPacketReceived(0, true, now)
	tr.GenerateAck(100, now)
	assert.False(t, tr.HasNewAck())

	tr.OnPacketReceived(1, true, now)
	assert.True(t, tr.HasNewAck())
}
