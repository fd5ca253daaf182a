// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package arq

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/pion/arq/cc"
	"github.com/pion/logging"
	"github.com/pion/transport/v3"
	"github.com/pion/transport/v3/stdnet"
)

const (
	// ackWaitDeadline bounds how long one loop iteration may block waiting
	// for acknowledgments before attending to retransmission timers.
	ackWaitDeadline = 100 * time.Millisecond

	// drainDeadline is used for follow-up reads once the first
	// acknowledgment of an iteration has arrived, so already queued
	// datagrams are consumed without stalling the loop.
	drainDeadline = time.Millisecond

	// maxSegments is the size of the 16-bit sequence space.
	maxSegments = 1 << 16
)

// ErrStreamTooLong is returned when the input stream needs more segments
// than the sequence space can number.
var ErrStreamTooLong = errors.New("stream exceeds 16-bit sequence space")

// SenderOption is a functional option for a Sender.
type SenderOption func(*Sender) error

// SenderWithLoggerFactory configures a custom logger factory for a Sender.
func SenderWithLoggerFactory(lf logging.LoggerFactory) SenderOption {
	return func(s *Sender) error {
		s.logFactory = lf

		return nil
	}
}

// SenderWithNet configures the network backend for a Sender. It defaults to
// the standard library network.
func SenderWithNet(nw transport.Net) SenderOption {
	return func(s *Sender) error {
		s.net = nw

		return nil
	}
}

// Sender reads a byte stream once, segments it, and delivers the segments
// exactly once and in order to a Receiver. It keeps a window of in-flight
// segments, retransmits on timeout, and adapts both the retransmission
// threshold and the window from observed round trips.
type Sender struct {
	logFactory logging.LoggerFactory
	log        logging.LeveledLogger
	net        transport.Net

	packets  []*Packet
	acked    *seqSet
	inFlight map[uint16]time.Time

	rtt    *cc.RTTEstimator
	window *cc.Window

	conn  net.PacketConn
	raddr net.Addr
}

// NewSender creates a Sender with the given options.
func NewSender(opts ...SenderOption) (*Sender, error) {
	sender := &Sender{
		logFactory: logging.NewDefaultLoggerFactory(),
		inFlight:   make(map[uint16]time.Time),
		rtt:        cc.NewRTTEstimator(),
		window:     cc.NewWindow(),
	}
	for _, opt := range opts {
		if err := opt(sender); err != nil {
			return nil, err
		}
	}
	if sender.net == nil {
		nw, err := stdnet.NewNet()
		if err != nil {
			return nil, err
		}
		sender.net = nw
	}
	sender.log = sender.logFactory.NewLogger("arq_sender")

	return sender, nil
}

// Send transports everything read from r to the receiver at raddr
// (host:port). It returns once every segment has been acknowledged, or with
// the first fatal I/O error.
func (s *Sender) Send(r io.Reader, raddr string) error {
	if err := s.segment(r); err != nil {
		return err
	}
	if len(s.packets) == 0 {
		s.log.Debug("empty input stream, nothing to send")

		return nil
	}
	s.acked = newSeqSet(len(s.packets))

	addr, err := s.net.ResolveUDPAddr("udp4", raddr)
	if err != nil {
		return err
	}
	conn, err := s.net.ListenPacket("udp4", "0.0.0.0:0")
	if err != nil {
		return err
	}
	defer conn.Close() //nolint:errcheck
	s.conn = conn
	s.raddr = addr
	s.log.Infof("sending %d segments to %v", len(s.packets), addr)

	return s.loop()
}

// segment consumes all of r in MaxPayloadSize chunks, numbering them from
// zero. The final segment may be shorter; a stream whose length is an exact
// multiple of the segment size produces no trailing empty segment.
func (s *Sender) segment(r io.Reader) error {
	buf := make([]byte, MaxPayloadSize)
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			if len(s.packets) == maxSegments {
				return ErrStreamTooLong
			}
			s.packets = append(s.packets, &Packet{
				Kind:    KindData,
				Seq:     uint16(len(s.packets)), //nolint:gosec
				Payload: append([]byte(nil), buf[:n]...),
			})
		}
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return nil
		case err != nil:
			return err
		}
	}
}

func (s *Sender) loop() error {
	buf := make([]byte, maxPacketSize)
	for s.acked.len() < len(s.packets) {
		s.sweepTimeouts(time.Now())
		if err := s.drainAcks(buf); err != nil {
			return err
		}
		if err := s.sendNext(); err != nil {
			return err
		}
	}
	s.log.Infof("all %d segments acknowledged", len(s.packets))

	return nil
}

// sweepTimeouts retires in-flight segments whose acknowledgment is overdue,
// making them eligible for retransmission.
func (s *Sender) sweepTimeouts(now time.Time) {
	threshold := s.rtt.RetransmitThreshold()
	for seq, sent := range s.inFlight {
		if now.Sub(sent) > threshold {
			delete(s.inFlight, seq)
			s.window.Update(len(s.inFlight))
			s.log.Debugf("seq=%d timed out after %v, window=%d", seq, threshold, s.window.Size())
		}
	}
}

// drainAcks waits up to ackWaitDeadline for the first datagram, then keeps
// reading until the socket runs dry. Deadline expiry is not an error;
// anything else is fatal.
func (s *Sender) drainAcks(buf []byte) error {
	deadline := ackWaitDeadline
	for {
		if err := s.conn.SetReadDeadline(time.Now().Add(deadline)); err != nil {
			return err
		}
		n, _, err := s.conn.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
				return nil
			}

			return err
		}
		s.handleAck(buf[:n], time.Now())
		deadline = drainDeadline
	}
}

// handleAck processes one incoming datagram. Corrupt, truncated, non-ACK,
// and late or duplicate acknowledgments are dropped without touching the
// round-trip estimate.
func (s *Sender) handleAck(buf []byte, now time.Time) {
	var pkt Packet
	if err := pkt.Unmarshal(buf); err != nil {
		s.log.Tracef("dropping datagram: %v", err)

		return
	}
	if pkt.Kind != KindAck {
		s.log.Tracef("dropping unexpected packet: %v", pkt)

		return
	}
	sent, ok := s.inFlight[pkt.Seq]
	if !ok {
		s.log.Tracef("ignoring late or duplicate ack for seq=%d", pkt.Seq)

		return
	}
	delete(s.inFlight, pkt.Seq)
	s.acked.add(pkt.Seq)
	s.rtt.AddSample(now.Sub(sent))
	s.window.Update(len(s.inFlight))
	s.log.Tracef("acked seq=%d rtt=%v window=%d", pkt.Seq, s.rtt.Estimate(), s.window.Size())
}

// sendNext transmits the lowest segment that is neither acknowledged nor in
// flight, if window capacity allows. At most one segment goes out per call
// so that acknowledgment arrival keeps clocking the loop.
func (s *Sender) sendNext() error {
	if len(s.inFlight) >= s.window.Size() {
		return nil
	}
	seq, ok := s.nextEligible()
	if !ok {
		return nil
	}
	raw, err := s.packets[seq].Marshal()
	if err != nil {
		return err
	}
	if _, err := s.conn.WriteTo(raw, s.raddr); err != nil {
		return fmt.Errorf("send seq=%d: %w", seq, err)
	}
	s.inFlight[uint16(seq)] = time.Now() //nolint:gosec
	s.log.Tracef("sent seq=%d inflight=%d window=%d", seq, len(s.inFlight), s.window.Size())

	return nil
}

func (s *Sender) nextEligible() (int, bool) {
	for seq := 0; seq < len(s.packets); seq++ {
		if s.acked.contains(uint16(seq)) { //nolint:gosec
			continue
		}
		if _, ok := s.inFlight[uint16(seq)]; ok { //nolint:gosec
			continue
		}

		return seq, true
	}

	return 0, false
}
