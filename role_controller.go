//go:build !peripheral

package main

import "lautenbacher.net/gospi/spi"

// buildRole is the bus role compiled into this binary. Build with
// -tags peripheral for the peripheral role.
type buildRole = spi.Controller
