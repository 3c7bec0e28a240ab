package hardware

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// BackendClockHz is the fixed bus clock used by the Linux backends.
const BackendClockHz = 1_000_000

// Rpio drives the SPI0 block of a Raspberry Pi through /dev/mem. Pin numbers
// are BCM numbers; the port is ignored. Only the controller role exists on
// this hardware.
type Rpio struct {
	mu       sync.Mutex
	control  byte
	status   byte
	data     byte
	begun    bool
	observer Observer
}

// OpenRpio maps the GPIO and SPI registers.
func OpenRpio() (*Rpio, error) {
	slog.Info("Initialise GPIO via go-rpio...")
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("failed to open rpio: %w", err)
	}
	return &Rpio{}, nil
}

// Close ends SPI and unmaps the registers.
func (r *Rpio) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.begun {
		rpio.SpiEnd(rpio.Spi0)
		r.begun = false
	}
	if err := rpio.Close(); err != nil {
		return fmt.Errorf("failed to close rpio: %w", err)
	}
	return nil
}

// SetupPinDirection switches the line to plain GPIO. This only works because
// Init enables the peripheral after configuring the pins: SetControl calls
// SpiBegin, which muxes the SPI0 lines back to their SPI function.
func (r *Rpio) SetupPinDirection(_ Port, pin Pin, dir Direction) {
	p := rpio.Pin(pin)
	if dir == Output {
		p.Output()
	} else {
		p.Input()
	}
}

func (r *Rpio) OnTransaction(o Observer) {
	r.mu.Lock()
	r.observer = o
	r.mu.Unlock()
}

func (r *Rpio) Control() byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.control
}

// SetControl starts SPI0 once enable and controller are both set. SpiBegin
// switches the bus pins to their SPI function.
func (r *Rpio) SetControl(v byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.control = v
	if r.begun || v&ControlEnable == 0 {
		return
	}
	if v&ControlController == 0 {
		slog.Error("rpio backend cannot act as bus peripheral")
		return
	}
	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		slog.Error("failed to begin spi", "error", err)
		return
	}
	rpio.SpiSpeed(BackendClockHz)
	rpio.SpiChipSelect(0)
	r.begun = true
}

func (r *Rpio) Status() byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Rpio) Data() byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status &^= StatusComplete
	return r.data
}

// SetData runs a one byte exchange. SpiExchange is synchronous, so the
// completion flag is already set when SetData returns.
func (r *Rpio) SetData(v byte) {
	r.mu.Lock()
	r.status &^= StatusComplete
	if !r.begun {
		r.mu.Unlock()
		return
	}
	buf := []byte{v}
	rpio.SpiExchange(buf)
	r.data = buf[0]
	r.status |= StatusComplete
	obs := r.observer
	r.mu.Unlock()
	if obs != nil {
		obs(Transaction{Out: v, In: buf[0]})
	}
}
