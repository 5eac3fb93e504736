// SPDX-License-Identifier: MIT
package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"net"
	"sync"
	"time"

	applog "ampmeter/internal/log"
)

/*
UDP packet layout (BigEndian), one level frame per datagram:

	|<-- 4 Bytes -->|<---- 8 Bytes ---->|<-- 4 Bytes -->|<-- 4 Bytes -->|
	+---------------+-------------------+---------------+---------------+
	|   Sequence    |     Timestamp     |     Level     |   Smoothing   |
	|   (uint32)    |  (int64, unix ns) |   (float32)   |   (float32)   |
	+---------------+-------------------+---------------+---------------+
*/

// PacketSize is the length of an encoded level frame.
const PacketSize = 4 + 8 + 4 + 4

var (
	ErrClosed      = errors.New("transport closed")
	ErrShortPacket = errors.New("packet too short")
)

// EncodeFrame appends the binary form of f to buf.
func EncodeFrame(buf *bytes.Buffer, f LevelFrame) {
	var b [PacketSize]byte
	binary.BigEndian.PutUint32(b[0:], f.Seq)
	binary.BigEndian.PutUint64(b[4:], uint64(f.Timestamp.UnixNano()))
	binary.BigEndian.PutUint32(b[12:], math.Float32bits(float32(f.Level)))
	binary.BigEndian.PutUint32(b[16:], math.Float32bits(float32(f.Smoothing)))
	buf.Write(b[:])
}

// DecodeFrame parses a packet produced by EncodeFrame.
func DecodeFrame(p []byte) (LevelFrame, error) {
	if len(p) < PacketSize {
		return LevelFrame{}, fmt.Errorf("%w: %d bytes", ErrShortPacket, len(p))
	}
	return LevelFrame{
		Seq:       binary.BigEndian.Uint32(p[0:]),
		Timestamp: time.Unix(0, int64(binary.BigEndian.Uint64(p[4:]))),
		Level:     float64(math.Float32frombits(binary.BigEndian.Uint32(p[12:]))),
		Smoothing: float64(math.Float32frombits(binary.BigEndian.Uint32(p[16:]))),
	}, nil
}

// UDPTransport sends each LevelFrame as one datagram.
type UDPTransport struct {
	mu     sync.Mutex // Protects conn and buf.
	conn   *net.UDPConn
	buf    bytes.Buffer
	closed bool
	log    *applog.Logger
}

// NewUDPTransport dials targetAddress ("host:port").
func NewUDPTransport(targetAddress string) (*UDPTransport, error) {
	addr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP target address '%s': %w", targetAddress, err)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP for target '%s': %w", targetAddress, err)
	}

	t := &UDPTransport{conn: conn, log: applog.New("udp")}
	t.log.Infof("sending to %s", conn.RemoteAddr())
	return t, nil
}

// Send transmits a LevelFrame. Other payloads are rejected.
func (t *UDPTransport) Send(data any) error {
	f, ok := data.(LevelFrame)
	if !ok {
		return fmt.Errorf("udp transport cannot send %T", data)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}

	t.buf.Reset()
	EncodeFrame(&t.buf, f)
	if _, err := t.conn.Write(t.buf.Bytes()); err != nil {
		return fmt.Errorf("failed to send UDP packet: %w", err)
	}
	return nil
}

func (t *UDPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.conn.Close(); err != nil {
		return fmt.Errorf("failed to close UDP connection: %w", err)
	}
	return nil
}

var _ Transport = (*UDPTransport)(nil)
