// Package spi implements a minimal polled driver for a synchronous serial
// peripheral: blocking byte transfers and a terminator based string framing
// on top of them.
//
// The driver holds no locks. It must be used from a single goroutine, and a
// stalled remote side blocks the caller forever.
package spi

import (
	"log/slog"

	"lautenbacher.net/gospi/hardware"
)

const (
	// DefaultTerminator ends a string frame on the wire.
	DefaultTerminator byte = ';'
	// DefaultDummy is shifted out when receiving.
	DefaultDummy byte = 0xFF
)

type options struct {
	terminator byte
	dummy      byte
	bus        hardware.BusPins
}

// Option customises a Driver.
type Option func(*options)

// WithTerminator sets the byte that ends an inbound string frame. Both ends
// of the link must agree on it.
func WithTerminator(b byte) Option {
	return func(o *options) { o.terminator = b }
}

// WithDummy sets the filler byte written by ReceiveByte.
func WithDummy(b byte) Option {
	return func(o *options) { o.dummy = b }
}

// WithBusPins sets the pins configured by Init.
func WithBusPins(p hardware.BusPins) Option {
	return func(o *options) { o.bus = p }
}

// Driver talks to the peripheral in role R.
type Driver[R Role] struct {
	regs       hardware.Registers
	pins       hardware.PinConfigurator
	bus        hardware.BusPins
	terminator byte
	dummy      byte
	role       R
}

// New returns a driver using regs and pins. Init must be called before any
// transfer.
func New[R Role](regs hardware.Registers, pins hardware.PinConfigurator, opts ...Option) *Driver[R] {
	o := options{
		terminator: DefaultTerminator,
		dummy:      DefaultDummy,
		bus:        hardware.DefaultBusPins,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Driver[R]{
		regs:       regs,
		pins:       pins,
		bus:        o.bus,
		terminator: o.terminator,
		dummy:      o.dummy,
	}
}

// Role returns the role the driver was built for.
func (d *Driver[R]) Role() R {
	return d.role
}

// Terminator returns the inbound frame terminator.
func (d *Driver[R]) Terminator() byte {
	return d.terminator
}

// Init configures the bus lines for the role and enables the peripheral.
func (d *Driver[R]) Init() {
	dirs := d.role.directions()
	lines := [4]hardware.Pin{d.bus.Select, d.bus.DataOut, d.bus.DataIn, d.bus.Clock}
	for i, pin := range lines {
		d.pins.SetupPinDirection(d.bus.Port, pin, dirs[i])
	}
	d.regs.SetControl(d.regs.Control() | d.role.controlBits())
	slog.Debug("spi enabled", "role", d.role.String(), "port", d.bus.Port.String())
}

// SendByte shifts v out and spins until the transfer is complete. The byte
// shifted in at the same time is discarded.
func (d *Driver[R]) SendByte(v byte) {
	d.regs.SetData(v)
	d.wait()
}

// ReceiveByte shifts the dummy byte out to clock one transfer and returns the
// byte the remote side presented.
func (d *Driver[R]) ReceiveByte() byte {
	d.regs.SetData(d.dummy)
	d.wait()
	return d.regs.Data()
}

// wait spins on the completion flag. There is no timeout.
func (d *Driver[R]) wait() {
	for d.regs.Status()&hardware.StatusComplete == 0 {
	}
}
