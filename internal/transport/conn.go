package transport

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// DefaultMaxFrameSize bounds a single frame on every transport
const DefaultMaxFrameSize = 64 * 1024

// ErrFrameTooLarge is returned when a peer announces a frame above the limit
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// Conn carries whole frames over one connection.
// WriteFrame is only ever called from a single goroutine.
type Conn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(frame []byte) error
	SetReadDeadline(t time.Time) error
	RemoteAddr() string
	Close() error
}

// StreamConn frames a byte stream with a 4-byte big-endian length prefix
type StreamConn struct {
	conn     net.Conn
	r        *bufio.Reader
	maxFrame int
}

// NewStreamConn wraps a stream connection such as TCP
func NewStreamConn(conn net.Conn, maxFrame int) *StreamConn {
	if maxFrame <= 0 {
		maxFrame = DefaultMaxFrameSize
	}
	return &StreamConn{
		conn:     conn,
		r:        bufio.NewReader(conn),
		maxFrame: maxFrame,
	}
}

var _ Conn = (*StreamConn)(nil)

func (c *StreamConn) ReadFrame() ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(c.r, header[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > uint32(c.maxFrame) {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	frame := make([]byte, size)
	if _, err := io.ReadFull(c.r, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

func (c *StreamConn) WriteFrame(frame []byte) error {
	if len(frame) > c.maxFrame {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(frame))
	}
	buf := make([]byte, 4+len(frame))
	binary.BigEndian.PutUint32(buf, uint32(len(frame)))
	copy(buf[4:], frame)
	_, err := c.conn.Write(buf)
	return err
}

func (c *StreamConn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *StreamConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func (c *StreamConn) Close() error {
	return c.conn.Close()
}
