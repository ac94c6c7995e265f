// Package utils holds small, widely shared helpers: duration min/max, and
// the logging setup used across the transmission, reassembly and ack-
// generation cores.
package utils

import "time"

// MinDuration returns the smaller of a and b.
func MinDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// MaxDuration returns the larger of a and b.
func MaxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
