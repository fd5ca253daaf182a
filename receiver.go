// SPDX-FileCopyrightText: 2026 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package arq

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"

	"github.com/pion/logging"
	"github.com/pion/transport/v3"
	"github.com/pion/transport/v3/stdnet"
)

// maxDatagramSize is the read buffer size for incoming datagrams.
const maxDatagramSize = 65535

// ReceiverOption is a functional option for a Receiver.
type ReceiverOption func(*Receiver) error

// ReceiverWithLoggerFactory configures a custom logger factory for a
// Receiver.
func ReceiverWithLoggerFactory(lf logging.LoggerFactory) ReceiverOption {
	return func(r *Receiver) error {
		r.logFactory = lf

		return nil
	}
}

// ReceiverWithNet configures the network backend for a Receiver. It defaults
// to the standard library network.
func ReceiverWithNet(nw transport.Net) ReceiverOption {
	return func(r *Receiver) error {
		r.net = nw

		return nil
	}
}

// Receiver reassembles the stream sent by a Sender. It locks onto the first
// peer it hears from, buffers out-of-order segments, writes contiguous
// payloads to its output in sequence order, and acknowledges every
// non-corrupt DATA datagram, duplicates included.
type Receiver struct {
	logFactory logging.LoggerFactory
	log        logging.LeveledLogger
	net        transport.Net

	conn   net.PacketConn
	peer   net.Addr
	closed atomic.Bool

	buffer map[uint16][]byte
	next   int

	out io.Writer
}

// NewReceiver creates a Receiver bound to an ephemeral UDP port on all
// interfaces.
func NewReceiver(opts ...ReceiverOption) (*Receiver, error) {
	receiver := &Receiver{
		logFactory: logging.NewDefaultLoggerFactory(),
		buffer:     make(map[uint16][]byte),
	}
	for _, opt := range opts {
		if err := opt(receiver); err != nil {
			return nil, err
		}
	}
	if receiver.net == nil {
		nw, err := stdnet.NewNet()
		if err != nil {
			return nil, err
		}
		receiver.net = nw
	}
	receiver.log = receiver.logFactory.NewLogger("arq_receiver")

	conn, err := receiver.net.ListenPacket("udp4", "0.0.0.0:0")
	if err != nil {
		return nil, err
	}
	receiver.conn = conn

	return receiver, nil
}

// LocalAddr returns the bound address, including the ephemeral port a
// supervising process hands to the sender.
func (r *Receiver) LocalAddr() net.Addr {
	return r.conn.LocalAddr()
}

// Close releases the socket and unblocks Run.
func (r *Receiver) Close() error {
	r.closed.Store(true)

	return r.conn.Close()
}

// Run delivers the reassembled stream to w. It blocks until Close is called,
// in which case it returns nil, or until a fatal I/O error occurs.
func (r *Receiver) Run(w io.Writer) error {
	r.out = w
	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := r.conn.ReadFrom(buf)
		if err != nil {
			if r.closed.Load() || errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
				return nil
			}

			return err
		}
		ack, err := r.handleDatagram(from, buf[:n])
		if err != nil {
			return err
		}
		if ack == nil {
			continue
		}
		raw, err := ack.Marshal()
		if err != nil {
			return err
		}
		if _, err := r.conn.WriteTo(raw, r.peer); err != nil {
			if r.closed.Load() {
				return nil
			}

			return fmt.Errorf("ack seq=%d: %w", ack.Seq, err)
		}
	}
}

// handleDatagram runs one datagram through decode, reassembly, and delivery.
// It returns the acknowledgment to transmit, or nil when the datagram is
// dropped.
func (r *Receiver) handleDatagram(from net.Addr, buf []byte) (*Packet, error) {
	if r.peer == nil {
		r.peer = from
		r.log.Infof("locked to peer %v", from)
	} else if from.String() != r.peer.String() {
		r.log.Warnf("dropping datagram from unknown peer %v", from)

		return nil, nil
	}

	var pkt Packet
	if err := pkt.Unmarshal(buf); err != nil {
		r.log.Tracef("dropping datagram: %v", err)

		return nil, nil
	}
	if pkt.Kind != KindData {
		r.log.Tracef("dropping unexpected packet: %v", pkt)

		return nil, nil
	}

	if int(pkt.Seq) >= r.next {
		if _, ok := r.buffer[pkt.Seq]; !ok {
			r.buffer[pkt.Seq] = pkt.Payload
		}
	}
	if err := r.deliver(); err != nil {
		return nil, err
	}

	// Every non-corrupt DATA datagram is acknowledged with its own sequence
	// number, duplicates of already delivered segments included, so a lost
	// acknowledgment never stalls the sender.
	return &Packet{Kind: KindAck, Seq: pkt.Seq}, nil
}

// deliver flushes the contiguous run starting at the cursor to the output.
func (r *Receiver) deliver() error {
	for {
		payload, ok := r.buffer[uint16(r.next)] //nolint:gosec
		if !ok {
			return nil
		}
		if _, err := r.out.Write(payload); err != nil {
			return fmt.Errorf("deliver seq=%d: %w", r.next, err)
		}
		delete(r.buffer, uint16(r.next)) //nolint:gosec
		r.log.Tracef("delivered seq=%d", r.next)
		r.next++
	}
}
