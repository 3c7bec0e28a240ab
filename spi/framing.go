package spi

import (
	"errors"
	"log/slog"
)

var (
	// ErrBufferTooSmall is returned for a destination without room for the
	// trailing NUL.
	ErrBufferTooSmall = errors.New("spi: destination buffer is empty")
	// ErrOverrun is returned when the destination fills up before the
	// terminator arrives.
	ErrOverrun = errors.New("spi: frame exceeds destination buffer")
)

// SendString sends data up to, not including, its first NUL byte, or all of
// it if there is none. It returns the number of bytes sent.
func (d *Driver[R]) SendString(data []byte) int {
	n := 0
	for ; n < len(data) && data[n] != 0; n++ {
		d.SendByte(data[n])
	}
	slog.Debug("spi string sent", "bytes", n)
	return n
}

// ReceiveString receives bytes into dst until the terminator arrives, then
// overwrites the terminator with NUL. It returns the payload length, so
// dst[:n] is the received string and dst[n] is 0.
//
// The capacity of dst is not checked against the incoming frame: a frame
// longer than len(dst)-1 bytes panics with an index out of range. Use
// ReceiveStringBounded when the remote side is not trusted.
func (d *Driver[R]) ReceiveString(dst []byte) int {
	n := 0
	dst[n] = d.ReceiveByte()
	for dst[n] != d.terminator {
		n++
		dst[n] = d.ReceiveByte()
	}
	dst[n] = 0
	slog.Debug("spi string received", "bytes", n)
	return n
}

// ReceiveStringBounded works like ReceiveString but never writes past dst.
// If dst fills up before the terminator, it returns len(dst) and ErrOverrun;
// the rest of the frame stays on the bus.
func (d *Driver[R]) ReceiveStringBounded(dst []byte) (int, error) {
	if len(dst) == 0 {
		return 0, ErrBufferTooSmall
	}
	for n := range dst {
		b := d.ReceiveByte()
		if b == d.terminator {
			dst[n] = 0
			slog.Debug("spi string received", "bytes", n)
			return n, nil
		}
		dst[n] = b
	}
	slog.Warn("spi frame overran destination", "size", len(dst))
	return len(dst), ErrOverrun
}
