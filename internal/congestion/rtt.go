// Package congestion implements the round-trip-time estimator and the
// NewReno-style congestion controller that gate the Transmitter's sender
// loop.
package congestion

import (
	"sync"
	"time"

	"github.com/kwik-transport/qcore/internal/protocol"
	"github.com/kwik-transport/qcore/internal/utils"
)

// RttEstimator maintains smoothed RTT, RTT variance and minimum RTT from
// (send-time, ack-receive-time, peer-reported ack-delay) triples.
//
// It is safe for concurrent use: samples normally arrive from the receive
// path while the sender loop reads SmoothedRTT/PTOBase concurrently.
type RttEstimator struct {
	mu sync.RWMutex

	initialRTT  time.Duration
	granularity time.Duration
	maxAckDelay time.Duration

	smoothedRTT time.Duration
	rttVariance time.Duration
	minRTT      time.Duration
	hasSample   bool
	latestRTT   time.Duration
}

// NewRttEstimator creates an estimator seeded with initialRTT (used until
// the first sample arrives), a timer granularity floor, and a cap on how
// much peer-reported ack delay a sample will have subtracted from it.
func NewRttEstimator(initialRTT, granularity, maxAckDelay time.Duration) *RttEstimator {
	if initialRTT <= 0 {
		initialRTT = protocol.DefaultInitialRTT
	}
	if granularity <= 0 {
		granularity = protocol.TimerGranularity
	}
	if maxAckDelay <= 0 {
		maxAckDelay = protocol.DefaultMaxAckDelay
	}
	return &RttEstimator{
		initialRTT:  initialRTT,
		granularity: granularity,
		maxAckDelay: maxAckDelay,
		smoothedRTT: initialRTT,
		rttVariance: initialRTT / 2,
		minRTT:      time.Duration(1<<63 - 1),
	}
}

// AddSample feeds one RTT measurement into the estimator. Non-positive
// latest RTTs (receiveTime not after sendTime — clock skew, or a stale ack)
// are rejected silently, matching the core's error handling policy for
// transient anomalies.
func (e *RttEstimator) AddSample(receiveTime, sendTime time.Time, peerAckDelay time.Duration) {
	latest := receiveTime.Sub(sendTime)
	if latest <= 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if latest < e.minRTT {
		e.minRTT = latest
	}
	peerAckDelay = utils.MinDuration(peerAckDelay, e.maxAckDelay)
	// Only subtract the peer's reported ack delay if doing so doesn't
	// imply an RTT below what we've ever observed as the floor.
	if latest > e.minRTT+peerAckDelay {
		latest -= peerAckDelay
	}

	e.latestRTT = latest
	if !e.hasSample {
		e.smoothedRTT = latest
		e.rttVariance = latest / 2
	} else {
		e.rttVariance = time.Duration(0.75*float64(e.rttVariance) + 0.25*float64(absDuration(e.smoothedRTT-latest)))
		e.smoothedRTT = time.Duration(0.875*float64(e.smoothedRTT) + 0.125*float64(latest))
	}
	e.hasSample = true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// SmoothedRTT returns the current exponentially weighted moving average.
func (e *RttEstimator) SmoothedRTT() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.smoothedRTT
}

// RttVariance returns the current mean-deviation estimate.
func (e *RttEstimator) RttVariance() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rttVariance
}

// MinRTT returns the lowest RTT observed so far, or 0 if no sample has ever
// been recorded.
func (e *RttEstimator) MinRTT() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.hasSample {
		return 0
	}
	return e.minRTT
}

// LatestRTT returns the most recently recorded sample.
func (e *RttEstimator) LatestRTT() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.latestRTT
}

// HasSample reports whether AddSample has ever accepted a measurement.
func (e *RttEstimator) HasSample() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.hasSample
}

// PTOBase returns smoothed + max(4*variance, granularity), the portion of
// the probe-timeout calculation owned by the RTT estimator; callers add any
// max-ack-delay term themselves.
func (e *RttEstimator) PTOBase() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.smoothedRTT + utils.MaxDuration(4*e.rttVariance, e.granularity)
}
