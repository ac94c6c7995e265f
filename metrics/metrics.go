// Package metrics wires the transmission core's congestion and RTT
// state into Prometheus, grounded on the teacher's metrics/tracer.go
// (NewCounterVec/NewGaugeVec registered against a prometheus.Registerer,
// with AlreadyRegisteredError tolerated so repeated construction in
// tests doesn't panic).
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricNamespace = "qcore"

// Collector holds every metric the transmission core updates. Unlike
// the teacher's package-level vars (appropriate for a singleton
// per-process tracer), this core may run several Transmitters in one
// process in tests, so each Collector is constructed with its own
// Registerer and the caller decides how many to make.
type Collector struct {
	congestionWindow prometheus.Gauge
	bytesInFlight    prometheus.Gauge
	smoothedRTT      prometheus.Gauge

	packetsSent prometheus.CounterVec
	packetsAcked *prometheus.CounterVec
	packetsLost  *prometheus.CounterVec
}

// NewCollector creates a Collector registered against the default
// Prometheus registerer, the way NewTracer wraps NewTracerWithRegisterer.
func NewCollector() *Collector {
	return NewCollectorWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCollectorWithRegisterer creates a Collector registered against a
// caller-supplied registerer, tolerating double-registration the same
// way the teacher's NewTracerWithRegisterer does.
func NewCollectorWithRegisterer(registerer prometheus.Registerer) *Collector {
	c := &Collector{
		congestionWindow: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Name:      "congestion_window_bytes",
			Help:      "Current congestion window size in bytes.",
		}),
		bytesInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Name:      "bytes_in_flight",
			Help:      "Current bytes in flight, pending ack or loss declaration.",
		}),
		smoothedRTT: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Name:      "smoothed_rtt_seconds",
			Help:      "Current smoothed round-trip-time estimate, in seconds.",
		}),
		packetsAcked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "packets_acked_total",
			Help:      "Packets retired by an incoming ack, by epoch.",
		}, []string{"epoch"}),
		packetsLost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "packets_lost_total",
			Help:      "Packets declared lost, by epoch.",
		}, []string{"epoch"}),
	}
	c.packetsSent = *prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricNamespace,
		Name:      "packets_sent_total",
		Help:      "Packets handed to the datagram sink, by epoch.",
	}, []string{"epoch"})

	for _, col := range [...]prometheus.Collector{
		c.congestionWindow,
		c.bytesInFlight,
		c.smoothedRTT,
		&c.packetsSent,
		c.packetsAcked,
		c.packetsLost,
	} {
		if err := registerer.Register(col); err != nil {
			if ok := errors.As(err, &prometheus.AlreadyRegisteredError{}); !ok {
				panic(err)
			}
		}
	}
	return c
}

// SetCongestionWindow reports the current congestion window size.
func (c *Collector) SetCongestionWindow(bytes int64) {
	c.congestionWindow.Set(float64(bytes))
}

// SetBytesInFlight reports the current bytes-in-flight accounting.
func (c *Collector) SetBytesInFlight(bytes int64) {
	c.bytesInFlight.Set(float64(bytes))
}

// ObserveRTT reports a fresh smoothed-RTT value.
func (c *Collector) ObserveRTT(d time.Duration) {
	c.smoothedRTT.Set(d.Seconds())
}

// PacketSent increments the sent counter for epoch.
func (c *Collector) PacketSent(epoch string) {
	c.packetsSent.WithLabelValues(epoch).Inc()
}

// PacketAcked increments the acked counter for epoch.
func (c *Collector) PacketAcked(epoch string) {
	c.packetsAcked.WithLabelValues(epoch).Inc()
}

// PacketLost increments the lost counter for epoch.
func (c *Collector) PacketLost(epoch string) {
	c.packetsLost.WithLabelValues(epoch).Inc()
}
