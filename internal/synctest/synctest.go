//go:build go1.24

// Package synctest wraps testing/synctest so concurrency tests against the
// Transmitter's sender loop and CongestionController condition variable run
// in a deterministic, fake-clock bubble instead of racing real wall time.
package synctest

import (
	"testing"
	"testing/synctest"
)

// Test runs f inside a synctest bubble.
func Test(t *testing.T, f func(t *testing.T)) {
	synctest.Run(func() {
		f(t)
	})
}

// Wait blocks until every other goroutine in the current bubble is durably
// blocked.
func Wait() {
	synctest.Wait()
}
