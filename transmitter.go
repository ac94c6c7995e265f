// Package qcore is the transmission core: it owns the sender loop that
// turns waiting application frames into admitted, packet-numbered
// datagrams, and the ack-processing path that feeds those results back
// into RTT and congestion state. Everything below it (ackhandler,
// reassembly, internal/congestion) is bookkeeping; this file is the
// orchestrator that wires that bookkeeping to a socket.
package qcore

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kwik-transport/qcore/ackhandler"
	"github.com/kwik-transport/qcore/internal/congestion"
	"github.com/kwik-transport/qcore/internal/protocol"
	"github.com/kwik-transport/qcore/internal/qerr"
	"github.com/kwik-transport/qcore/internal/utils"
	"github.com/kwik-transport/qcore/internal/wire"
	"github.com/kwik-transport/qcore/metrics"
	"github.com/kwik-transport/qcore/qcoreconfig"
)

// State is the Transmitter's lifecycle state, mirroring §4.5's
// Idle/Running/Stopping/Stopped enumeration.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// epochState is the per-epoch slice of Transmitter state: the
// monotonic packet-number counter, the in-flight log, and the
// received-packet-number tracker that decides when we owe the peer an
// ack. nextPN and history are guarded by mu; the sender loop and the
// receive path both touch them, so they can't rely on single-goroutine
// ownership. acks is not guarded by mu: the AckTracker carries its own
// lock.
type epochState struct {
	mu sync.Mutex

	nextPN  protocol.PacketNumber
	history *ackhandler.History
	acks    *ackhandler.AckTracker
}

func newEpochState() *epochState {
	return &epochState{
		history: ackhandler.NewHistory(),
		acks:    ackhandler.NewAckTracker(),
	}
}

// EpochStats is one epoch's slice of a Stats() snapshot.
type EpochStats struct {
	PacketsSent   uint64
	PacketsAcked  uint64
	PacketsLost   uint64
	BytesSent     protocol.ByteCount
	NextPacketNum protocol.PacketNumber
}

// Stats is a point-in-time snapshot of the Transmitter's counters,
// grounded on Sender.java's end-of-connection statistics dump but
// exposed as a queryable value rather than only a log line.
type Stats struct {
	CongestionWindow protocol.ByteCount
	BytesInFlight    protocol.ByteCount
	SmoothedRTT      time.Duration
	Epochs           [protocol.EpochCount]EpochStats
}

// Transmitter is the orchestrator described in §4.5: it dequeues
// waiting outgoing packets, assigns packet numbers per epoch, consults
// the CongestionController for admission, hands bytes to the datagram
// sink, logs the packet as in-flight, and on incoming acks drives the
// RttEstimator, CongestionController and recovery bookkeeping.
type Transmitter struct {
	epochs [protocol.EpochCount]*epochState

	congestion *congestion.Controller
	rtt        *congestion.RttEstimator

	queue *dispatchQueue

	sink          DatagramSink
	clock         ClockSource
	lossDetection LossDetection
	metrics       *metrics.Collector
	logger        *slog.Logger
	peer          net.Addr

	stateMu sync.Mutex
	state   State

	statsMu sync.Mutex
	stats   [protocol.EpochCount]EpochStats

	eg      *errgroup.Group
	egCtx   context.Context
	cancel  context.CancelFunc
}

// Option configures a Transmitter at construction time.
type Option func(*Transmitter)

// WithLossDetection installs the collaborator notified of every sent
// packet and ack; if omitted, a no-op implementation is used.
func WithLossDetection(ld LossDetection) Option {
	return func(t *Transmitter) { t.lossDetection = ld }
}

// WithClock overrides the default wall-clock ClockSource, for tests
// that need a fake.
func WithClock(c ClockSource) Option {
	return func(t *Transmitter) { t.clock = c }
}

// WithMetrics installs a Collector; if omitted, metrics are disabled.
func WithMetrics(m *metrics.Collector) Option {
	return func(t *Transmitter) { t.metrics = m }
}

// WithLogger overrides the default package logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transmitter) { t.logger = l }
}

type noopLossDetection struct{}

func (noopLossDetection) OnPacketSent(ackhandler.Record)                               {}
func (noopLossDetection) OnAckReceived(protocol.Epoch, protocol.PacketNumber, time.Time) {}

// NewTransmitter builds a Transmitter wired to sink for peer, tuned by
// config (nil accepted — see qcoreconfig.Populate).
func NewTransmitter(sink DatagramSink, peer net.Addr, config *qcoreconfig.Config, opts ...Option) *Transmitter {
	cfg := qcoreconfig.Populate(config)

	t := &Transmitter{
		congestion: congestion.NewController(
			cfg.MaxDatagramSize,
			cfg.InitialWindowPackets*cfg.MaxDatagramSize,
			cfg.MinimumWindowPackets*cfg.MaxDatagramSize,
			cfg.LossReductionFactor,
		),
		rtt:           congestion.NewRttEstimator(cfg.InitialRTT, cfg.Granularity, cfg.MaxAckDelay),
		queue:         newDispatchQueue(),
		sink:          sink,
		clock:         realClock{},
		lossDetection: noopLossDetection{},
		logger:        utils.DefaultLogger(),
		peer:          peer,
		state:         StateIdle,
	}
	for i := range t.epochs {
		t.epochs[i] = newEpochState()
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start transitions Idle→Running and launches the sender loop on its
// own goroutine, tracked in an errgroup so Shutdown can wait for a
// clean drain.
func (t *Transmitter) Start() error {
	t.stateMu.Lock()
	if t.state != StateIdle {
		t.stateMu.Unlock()
		return fmt.Errorf("qcore: Start called in state %s", t.state)
	}
	t.state = StateRunning
	t.stateMu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	eg, egCtx := errgroup.WithContext(ctx)
	t.cancel = cancel
	t.eg = eg
	t.egCtx = egCtx

	eg.Go(func() error {
		t.run()
		return nil
	})
	return nil
}

// Shutdown transitions Running→Stopping→Stopped: it closes the
// dispatch queue (unblocking the sender loop's suspension points),
// waits for the loop to drain via the errgroup, or for ctx to expire,
// whichever comes first.
func (t *Transmitter) Shutdown(ctx context.Context) error {
	t.stateMu.Lock()
	if t.state != StateRunning {
		t.stateMu.Unlock()
		return nil
	}
	t.state = StateStopping
	t.stateMu.Unlock()

	t.queue.close()
	t.congestion.Broadcast()

	done := make(chan error, 1)
	go func() { done <- t.eg.Wait() }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		t.cancel()
		err = <-done
	}

	t.stateMu.Lock()
	t.state = StateStopped
	t.stateMu.Unlock()
	return err
}

// State returns the Transmitter's current lifecycle state.
func (t *Transmitter) State() State {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.state
}

// Enqueue appends an application-supplied packet to the waiting
// queue. Rejects at the boundary, per §7's "invalid local invocation"
// policy, if the Transmitter isn't Running.
func (t *Transmitter) Enqueue(pkt *ackhandler.OutgoingPacket) error {
	if t.State() != StateRunning {
		return qerr.New(qerr.InternalError, "enqueue after shutdown")
	}
	if !t.queue.pushNormal(pkt) {
		return qerr.New(qerr.InternalError, "enqueue on closed queue")
	}
	return nil
}

// SendProbe enqueues pkt on the urgent lane, bypassing congestion
// admission, and wakes any sender-loop goroutine blocked in
// wait-for-update so the probe isn't delayed behind a full window.
func (t *Transmitter) SendProbe(pkt *ackhandler.OutgoingPacket) error {
	if t.State() != StateRunning {
		return qerr.New(qerr.InternalError, "send-probe after shutdown")
	}
	pkt.InFlight = false
	if !t.queue.pushUrgent(pkt) {
		return qerr.New(qerr.InternalError, "send-probe on closed queue")
	}
	t.congestion.Broadcast()
	return nil
}

// run is the sender loop's body: one cooperative task, not
// user-callable, that dequeues waiting packets, admits them against
// the congestion window, assigns packet numbers and hands bytes to
// the sink.
func (t *Transmitter) run() {
	for {
		pkt, ok := t.queue.next()
		if !ok {
			return
		}
		if !t.admitAndSend(pkt) {
			return
		}
	}
}

// admitAndSend runs the admission-wait loop for one packet (§4.5 main
// loop steps 3-6) and returns false if the sink reported a terminal
// I/O error, which ends the sender loop per §7.
func (t *Transmitter) admitAndSend(pkt *ackhandler.OutgoingPacket) bool {
	if pkt.InFlight {
		for {
			if t.congestion.CanSend(pkt.Size) {
				break
			}
			if t.queue.isClosed() {
				return false
			}
			// Service any urgent arrival before committing to a wait;
			// an ack-only packet queued while we were already stuck
			// here must not wait behind this one (scenario S4).
			if urgent, ok := t.queue.tryPopUrgent(); ok {
				if !t.admitAndSend(urgent) {
					return false
				}
				continue
			}
			seen := t.congestion.Generation()
			if t.congestion.CanSend(pkt.Size) {
				break
			}
			t.congestion.WaitForUpdate(seen)
		}
	}

	epoch := pkt.Epoch
	es := t.epochs[epoch]

	es.mu.Lock()
	pn := es.nextPN
	es.nextPN++
	es.mu.Unlock()

	b, err := pkt.Encode(pn)
	if err != nil {
		t.logger.Error("packet encode failed", "epoch", epoch, "packet_number", pn, "error", err)
		return false
	}

	sendTime := t.clock.Now()
	if err := t.sink.Send(b, t.peer); err != nil {
		t.logger.Error("datagram send failed, terminating sender loop", "epoch", epoch, "error", err)
		return false
	}

	record := ackhandler.Record{
		ID:           protocol.PacketId{Epoch: epoch, Number: pn},
		SendTime:     sendTime,
		Size:         pkt.Size,
		AckEliciting: pkt.AckEliciting,
		InFlight:     pkt.InFlight,
		LargestAcked: pkt.LargestAcked,
		Packet:       pkt,
	}

	es.mu.Lock()
	es.history.Insert(&record)
	es.mu.Unlock()

	t.congestion.RegisterInFlight(congestion.Packet{
		SendTime: sendTime,
		Size:     pkt.Size,
		InFlight: pkt.InFlight,
	})
	t.lossDetection.OnPacketSent(record)

	t.statsMu.Lock()
	t.stats[epoch].PacketsSent++
	t.stats[epoch].BytesSent += pkt.Size
	t.stats[epoch].NextPacketNum = pn + 1
	t.statsMu.Unlock()

	if t.metrics != nil {
		t.metrics.PacketSent(epoch.String())
		t.metrics.SetCongestionWindow(int64(t.congestion.CongestionWindow()))
		t.metrics.SetBytesInFlight(int64(t.congestion.BytesInFlight()))
	}
	t.logger.Debug("packet sent", "epoch", epoch, "packet_number", pn, "size", pkt.Size, "in_flight", pkt.InFlight)
	return true
}

// ProcessAck runs §4.5's ack-processing steps: it locates the in-flight
// record for the frame's largest acked number to feed the RttEstimator,
// then retires every acked number present in that epoch's in-flight
// log, firing settlement callbacks and batching congestion accounting.
func (t *Transmitter) ProcessAck(epoch protocol.Epoch, frame *wire.AckFrame, receiveTime time.Time) {
	es := t.epochs[epoch]

	var retired []*ackhandler.Record
	es.mu.Lock()
	if r := es.history.Get(frame.LargestAcked()); r != nil && r.AckEliciting {
		t.rtt.AddSample(receiveTime, r.SendTime, frame.AckDelay)
	}
	for _, rng := range frame.Ranges {
		for pn := rng.Smallest; pn <= rng.Largest; pn++ {
			if r := es.history.Remove(pn); r != nil {
				retired = append(retired, r)
			}
		}
	}
	es.mu.Unlock()

	if len(retired) == 0 {
		return
	}

	packets := make([]congestion.Packet, 0, len(retired))
	for _, r := range retired {
		packets = append(packets, congestion.Packet{SendTime: r.SendTime, Size: r.Size, InFlight: r.InFlight})
		if r.Packet != nil && r.Packet.OnSettled != nil {
			r.Packet.OnSettled(ackhandler.OutcomeAcked)
		}
		if r.LargestAcked != protocol.InvalidPacketNumber {
			es.acks.OnPeerAckOfOurPacket(r.ID.Number)
		}
		if t.metrics != nil {
			t.metrics.PacketAcked(epoch.String())
		}
		t.statsMu.Lock()
		t.stats[epoch].PacketsAcked++
		t.statsMu.Unlock()
	}
	t.congestion.RegisterAcked(packets)
	t.lossDetection.OnAckReceived(epoch, frame.LargestAcked(), receiveTime)

	if t.metrics != nil {
		t.metrics.SetCongestionWindow(int64(t.congestion.CongestionWindow()))
		t.metrics.SetBytesInFlight(int64(t.congestion.BytesInFlight()))
		t.metrics.ObserveRTT(t.rtt.SmoothedRTT())
	}
	t.logger.Debug("ack processed", "epoch", epoch, "largest_acked", frame.LargestAcked(), "retired", len(retired))
}

// PacketReceived records that pn arrived under epoch, for the
// AckTracker to schedule a return ack.
func (t *Transmitter) PacketReceived(epoch protocol.Epoch, pn protocol.PacketNumber, ackEliciting bool, receiveTime time.Time) {
	t.epochs[epoch].acks.OnPacketReceived(pn, ackEliciting, receiveTime)
}

// PacketProcessed is the §4.5 packet-processed hook: once the receive
// path finishes with an incoming packet, it invites the AckTracker to
// schedule a return ack. If one is owed, a non-in-flight ack-only
// packet is synthesized and pushed onto the urgent lane, interrupting
// any in-progress wait-for-update so the ack isn't delayed by
// congestion backpressure (§4.5, scenario S4).
//
// GenerateAck itself is deferred into the synthesized packet's Encode
// closure: the ack frame's own AckTracker bookkeeping needs to know
// which packet number will carry it, and that number is only assigned
// once the sender loop actually admits this packet — not at enqueue
// time.
func (t *Transmitter) PacketProcessed(epoch protocol.Epoch, encodeAck func(pn protocol.PacketNumber, frame *wire.AckFrame) ([]byte, error)) {
	es := t.epochs[epoch]
	acks := es.acks
	if !acks.HasNewAck() {
		return
	}

	pkt := &ackhandler.OutgoingPacket{
		Epoch:        epoch,
		AckEliciting: false,
		InFlight:     false,
	}
	pkt.Encode = func(pn protocol.PacketNumber) ([]byte, error) {
		frame := acks.GenerateAck(pn, t.clock.Now())
		pkt.LargestAcked = frame.LargestAcked()
		return encodeAck(pn, frame)
	}

	if !t.queue.pushUrgent(pkt) {
		return
	}
	t.congestion.Broadcast()
}

// OnLost is the callback external loss-detection invokes once it
// declares packets lost: it retires them from the epoch's in-flight
// log, fires their settlement callback with OutcomeLost, and feeds the
// batch to the congestion controller's cutback logic.
func (t *Transmitter) OnLost(epoch protocol.Epoch, pns []protocol.PacketNumber) {
	es := t.epochs[epoch]

	var retired []*ackhandler.Record
	es.mu.Lock()
	for _, pn := range pns {
		if r := es.history.Remove(pn); r != nil {
			retired = append(retired, r)
		}
	}
	es.mu.Unlock()

	if len(retired) == 0 {
		return
	}

	packets := make([]congestion.Packet, 0, len(retired))
	for _, r := range retired {
		packets = append(packets, congestion.Packet{SendTime: r.SendTime, Size: r.Size, InFlight: r.InFlight})
		if r.Packet != nil && r.Packet.OnSettled != nil {
			r.Packet.OnSettled(ackhandler.OutcomeLost)
		}
		if t.metrics != nil {
			t.metrics.PacketLost(epoch.String())
		}
		t.statsMu.Lock()
		t.stats[epoch].PacketsLost++
		t.statsMu.Unlock()
	}
	t.congestion.OnLost(packets)

	if t.metrics != nil {
		t.metrics.SetCongestionWindow(int64(t.congestion.CongestionWindow()))
		t.metrics.SetBytesInFlight(int64(t.congestion.BytesInFlight()))
	}
	t.logger.Debug("packets declared lost", "epoch", epoch, "count", len(retired))
}

// Stats returns a point-in-time snapshot of the Transmitter's
// counters and current congestion/RTT state.
func (t *Transmitter) Stats() Stats {
	t.statsMu.Lock()
	epochs := t.stats
	t.statsMu.Unlock()

	return Stats{
		CongestionWindow: t.congestion.CongestionWindow(),
		BytesInFlight:    t.congestion.BytesInFlight(),
		SmoothedRTT:      t.rtt.SmoothedRTT(),
		Epochs:           epochs,
	}
}
