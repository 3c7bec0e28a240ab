//go:build peripheral

package main

import "lautenbacher.net/gospi/spi"

// buildRole is the bus role compiled into this binary.
type buildRole = spi.Peripheral
