package congestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRttEstimatorFirstSample(t *testing.T) {
	e := NewRttEstimator(100*time.Millisecond, time.Millisecond, 25*time.Millisecond)
	assert.False(t, e.HasSample())
	assert.Equal(t, 100*time.Millisecond, e.SmoothedRTT())

	base := time.Now()
	e.AddSample(base.Add(20*time.Millisecond), base, 0)

	assert.True(t, e.HasSample())
	assert.Equal(t, 20*time.Millisecond, e.SmoothedRTT())
	assert.Equal(t, 10*time.Millisecond, e.RttVariance())
	assert.Equal(t, 20*time.Millisecond, e.MinRTT())
}

func TestRttEstimatorSubsequentSamplesEWMA(t *testing.T) {
	e := NewRttEstimator(100*time.Millisecond, time.Millisecond, 25*time.Millisecond)
	base := time.Now()

	e.AddSample(base.Add(20*time.Millisecond), base, 0)
	e.AddSample(base.Add(70*time.Millisecond), base.Add(30*time.Millisecond), 0)

	// second latest = 40ms; smoothed = 0.875*20 + 0.125*40 = 22.5ms
	assert.Equal(t, 22500*time.Microsecond, e.SmoothedRTT())
	// variance = 0.75*10 + 0.25*|20-40| = 12.5ms
	assert.Equal(t, 12500*time.Microsecond, e.RttVariance())
}

func TestRttEstimatorRejectsNonPositiveSample(t *testing.T) {
	e := NewRttEstimator(100*time.Millisecond, time.Millisecond, 25*time.Millisecond)
	base := time.Now()

	e.AddSample(base, base.Add(5*time.Millisecond), 0)

	assert.False(t, e.HasSample())
	assert.Equal(t, 100*time.Millisecond, e.SmoothedRTT())
}

func TestRttEstimatorSubtractsAckDelayOnlyAboveMinRTT(t *testing.T) {
	e := NewRttEstimator(100*time.Millisecond, time.Millisecond, 25*time.Millisecond)
	base := time.Now()

	// Establish min-rtt = 42ms with an unadjusted sample first; a sample
	// always lowers min-rtt to itself before the ack-delay check, so the
	// very first sample is never adjusted.
	e.AddSample(base.Add(42*time.Millisecond), base, 0)

	// 50ms > 42ms + 5ms, so the ack delay is subtracted.
	e.AddSample(base.Add(50*time.Millisecond), base, 5*time.Millisecond)
	assert.Equal(t, 45*time.Millisecond, e.LatestRTT())

	// A later sample whose ack-delay would push it below min-rtt is not
	// adjusted.
	e.AddSample(base.Add(46*time.Millisecond), base, 5*time.Millisecond)
	assert.Equal(t, 46*time.Millisecond, e.LatestRTT())
}

func TestRttEstimatorClampsAckDelayToMaximum(t *testing.T) {
	e := NewRttEstimator(100*time.Millisecond, time.Millisecond, 10*time.Millisecond)
	base := time.Now()

	// Establish min-rtt = 30ms first.
	e.AddSample(base.Add(30*time.Millisecond), base, 0)

	// Peer reports a 50ms delay but the cap is 10ms, so only 10ms is
	// subtracted: 60ms raw - 10ms = 50ms (60ms > 30ms + 10ms).
	e.AddSample(base.Add(60*time.Millisecond), base, 50*time.Millisecond)
	assert.Equal(t, 50*time.Millisecond, e.LatestRTT())
}

func TestRttEstimatorPTOBase(t *testing.T) {
	e := NewRttEstimator(100*time.Millisecond, time.Millisecond, 25*time.Millisecond)
	base := time.Now()
	e.AddSample(base.Add(20*time.Millisecond), base, 0)

	// variance = 10ms after first sample; 4*variance = 40ms > granularity.
	assert.Equal(t, 20*time.Millisecond+40*time.Millisecond, e.PTOBase())
}
