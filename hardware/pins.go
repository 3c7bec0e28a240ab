package hardware

import (
	"fmt"
	"strings"
)

// Direction of a bus line.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Port identifies a GPIO bank. Backends with a single bank ignore it.
type Port int

const (
	PortA Port = iota
	PortB
	PortC
	PortD
)

func (p Port) String() string {
	return fmt.Sprintf("PORT%c", 'A'+rune(p))
}

// ParsePort converts a port letter ("B" or "PORTB") into a Port.
func ParsePort(s string) (Port, error) {
	s = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "PORT")
	if len(s) != 1 || s[0] < 'A' || s[0] > 'D' {
		return 0, fmt.Errorf("unknown port %q", s)
	}
	return Port(s[0] - 'A'), nil
}

// Pin is a pin number within a port.
type Pin int

// PinConfigurator sets the direction of single pins.
type PinConfigurator interface {
	SetupPinDirection(port Port, pin Pin, dir Direction)
}

// BusPins names the four lines of the bus.
type BusPins struct {
	Port    Port
	Select  Pin
	DataOut Pin
	DataIn  Pin
	Clock   Pin
}

// DefaultBusPins is the classic AVR wiring: SS, MOSI, MISO and SCK on PB4..PB7.
var DefaultBusPins = BusPins{
	Port:    PortB,
	Select:  4,
	DataOut: 5,
	DataIn:  6,
	Clock:   7,
}

// SPI0BusPins are the BCM numbers of the Raspberry Pi SPI0 lines: CE0, MOSI,
// MISO and SCLK. The Linux backends only work on these.
var SPI0BusPins = BusPins{
	Select:  8,
	DataOut: 10,
	DataIn:  9,
	Clock:   11,
}

// SamePins reports whether b and o use the same pin numbers, ignoring the
// port.
func (b BusPins) SamePins(o BusPins) bool {
	return b.Select == o.Select && b.DataOut == o.DataOut && b.DataIn == o.DataIn && b.Clock == o.Clock
}

// PinID is a fully qualified pin.
type PinID struct {
	Port Port
	Pin  Pin
}

func (id PinID) String() string {
	return fmt.Sprintf("%s%d", id.Port, id.Pin)
}
