package hardware

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/pin"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Periph drives a Linux spidev port through periph.io. Pins are looked up as
// "GPIO<n>"; the port is ignored. spidev only knows the controller role.
//
// The kernel owns the pinmux of the bus lines, so SetupPinDirection only
// checks that a line is muxed to SPI and never drives it.
//
// A failed Conn.Tx leaves StatusComplete clear: the register model has no
// error flag, so the driver keeps spinning and the failure shows up only in
// the log.
type Periph struct {
	mu       sync.Mutex
	port     spi.PortCloser
	conn     spi.Conn
	control  byte
	status   byte
	data     byte
	observer Observer
}

// OpenPeriph initialises the periph host drivers and opens the spidev port,
// e.g. "/dev/spidev0.0". An empty name opens the first port found.
func OpenPeriph(device string) (*Periph, error) {
	slog.Info("Initialise GPIO and Spi via periph.io...", "device", device)
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to init periph: %w", err)
	}
	port, err := spireg.Open(device)
	if err != nil {
		return nil, fmt.Errorf("failed to open spi: %w", err)
	}
	return &Periph{port: port}, nil
}

func (p *Periph) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	p.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close spi port: %w", err)
	}
	return nil
}

// SetupPinDirection verifies the line's current function. Calling In or Out
// would switch a bcm283x pin to plain GPIO and cut it off the SPI block.
func (p *Periph) SetupPinDirection(_ Port, num Pin, dir Direction) {
	name := fmt.Sprintf("GPIO%d", num)
	gp := gpioreg.ByName(name)
	if gp == nil {
		slog.Error("failed to find pin", "pin", name)
		return
	}
	pf, ok := gp.(pin.PinFunc)
	if !ok {
		slog.Debug("pin function unknown, leaving pinmux to the kernel", "pin", name, "direction", dir)
		return
	}
	f := pf.Func()
	if !isSPIFunc(f) {
		slog.Warn("pin is not muxed to SPI", "pin", name, "function", string(f), "direction", dir)
		return
	}
	slog.Debug("pin muxed to SPI", "pin", name, "function", string(f), "direction", dir)
}

func isSPIFunc(f pin.Func) bool {
	return strings.HasPrefix(strings.ToUpper(string(f)), "SPI")
}

func (p *Periph) OnTransaction(o Observer) {
	p.mu.Lock()
	p.observer = o
	p.mu.Unlock()
}

func (p *Periph) Control() byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.control
}

// SetControl connects the port on the first enable with the controller bit.
func (p *Periph) SetControl(v byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.control = v
	if p.conn != nil || p.port == nil || v&ControlEnable == 0 {
		return
	}
	if v&ControlController == 0 {
		slog.Error("spidev cannot act as bus peripheral")
		return
	}
	conn, err := p.port.Connect(physic.Frequency(BackendClockHz)*physic.Hertz, spi.Mode0, 8)
	if err != nil {
		slog.Error("failed to connect to spi device", "error", err)
		return
	}
	p.conn = conn
}

func (p *Periph) Status() byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Periph) Data() byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status &^= StatusComplete
	return p.data
}

func (p *Periph) SetData(v byte) {
	p.mu.Lock()
	p.status &^= StatusComplete
	if p.conn == nil {
		p.mu.Unlock()
		return
	}
	read := make([]byte, 1)
	if err := p.conn.Tx([]byte{v}, read); err != nil {
		// the hardware has no error flag; a failed exchange never completes
		slog.Error("spi transaction failed", "error", err)
		p.mu.Unlock()
		return
	}
	p.data = read[0]
	p.status |= StatusComplete
	obs := p.observer
	p.mu.Unlock()
	if obs != nil {
		obs(Transaction{Out: v, In: read[0]})
	}
}
