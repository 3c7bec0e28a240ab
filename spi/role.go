package spi

import "lautenbacher.net/gospi/hardware"

// Role is the side of the bus the driver runs on. It is a constraint only:
// Controller and Peripheral are the only types satisfying it, and the role is
// fixed when the driver type is instantiated.
type Role interface {
	Controller | Peripheral
	// directions returns the direction of select, data-out, data-in and
	// clock, in that order.
	directions() [4]hardware.Direction
	// controlBits returns the bits set in the control register on Init.
	controlBits() byte
	String() string
}

// Controller initiates every transfer and drives the clock.
type Controller struct{}

func (Controller) directions() [4]hardware.Direction {
	return [4]hardware.Direction{hardware.Output, hardware.Output, hardware.Input, hardware.Output}
}

func (Controller) controlBits() byte {
	return hardware.ControlEnable | hardware.ControlController
}

func (Controller) String() string { return "controller" }

// Peripheral answers transfers clocked by the controller.
type Peripheral struct{}

func (Peripheral) directions() [4]hardware.Direction {
	return [4]hardware.Direction{hardware.Input, hardware.Input, hardware.Output, hardware.Input}
}

func (Peripheral) controlBits() byte {
	return hardware.ControlEnable
}

func (Peripheral) String() string { return "peripheral" }
