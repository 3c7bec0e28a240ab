package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	"lautenbacher.net/gospi/hardware"
)

const CONFILE = "config.yml"

const (
	RoleController = "controller"
	RolePeripheral = "peripheral"
)

const (
	BackendSimulation = "simulation"
	BackendRpio       = "rpio"
	BackendPeriph     = "periph.io"
)

type Config struct {
	Role       string           `yaml:"Role"`
	Terminator string           `yaml:"Terminator"`
	DummyByte  int              `yaml:"DummyByte"`
	Hardware   HardwareConfig   `yaml:"Hardware"`
	Simulation SimulationConfig `yaml:"Simulation"`
	Logging    LoggingConfig    `yaml:"Logging"`
}

type HardwareConfig struct {
	Backend string     `yaml:"Backend"`
	Device  string     `yaml:"Device"`
	Pins    PinsConfig `yaml:"Pins"`
}

// PinsConfig names the four bus lines. Pin numbers are port bit numbers on
// a microcontroller and BCM numbers on a Raspberry Pi.
type PinsConfig struct {
	Port    string `yaml:"Port"`
	Select  int    `yaml:"Select"`
	DataOut int    `yaml:"DataOut"`
	DataIn  int    `yaml:"DataIn"`
	Clock   int    `yaml:"Clock"`
}

type SimulationConfig struct {
	// Inbound is presented by the simulated remote side, one byte per
	// transaction.
	Inbound string `yaml:"Inbound"`
	// Reply is queued each time the simulated remote side receives the
	// terminator.
	Reply string `yaml:"Reply"`
}

type LoggingConfig struct {
	Level  string `yaml:"Level"`
	Format string `yaml:"Format"`
	File   string `yaml:"File"`
}

// ReadConfig reads and validates the YAML configuration in cfile.
func ReadConfig(cfile string) (*Config, error) {
	f, err := os.Open(cfile)
	if err != nil {
		return nil, fmt.Errorf("can't open config file %s: %w", cfile, err)
	}
	defer f.Close()

	conf := defaultConfig()
	if err := yaml.NewDecoder(f).Decode(conf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("can't decode config file %s: %w", cfile, err)
	}
	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", cfile, err)
	}
	return conf, nil
}

func defaultConfig() *Config {
	return &Config{
		Role:       RoleController,
		Terminator: ";",
		DummyByte:  0xFF,
		Hardware: HardwareConfig{
			Backend: BackendSimulation,
			Pins: PinsConfig{
				Port:    "B",
				Select:  int(hardware.DefaultBusPins.Select),
				DataOut: int(hardware.DefaultBusPins.DataOut),
				DataIn:  int(hardware.DefaultBusPins.DataIn),
				Clock:   int(hardware.DefaultBusPins.Clock),
			},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

func (c *Config) validate() error {
	var errs []error

	c.Role = strings.ToLower(strings.TrimSpace(c.Role))
	if c.Role != RoleController && c.Role != RolePeripheral {
		errs = append(errs, fmt.Errorf("role must be %q or %q, got %q", RoleController, RolePeripheral, c.Role))
	}

	if len(c.Terminator) != 1 {
		errs = append(errs, fmt.Errorf("terminator must be exactly one byte, got %q", c.Terminator))
	}

	if c.DummyByte < 0 || c.DummyByte > 255 {
		errs = append(errs, fmt.Errorf("dummy byte must be between 0 and 255, got %d", c.DummyByte))
	}

	c.Hardware.Backend = strings.ToLower(strings.TrimSpace(c.Hardware.Backend))
	switch c.Hardware.Backend {
	case BackendSimulation:
	case BackendRpio, BackendPeriph:
		if c.Role != RoleController {
			errs = append(errs, fmt.Errorf("backend %s supports only the %s role", c.Hardware.Backend, RoleController))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown hardware backend: %s", c.Hardware.Backend))
	}

	if err := c.Hardware.Pins.validate(); err != nil {
		errs = append(errs, err)
	} else if c.Hardware.Backend == BackendRpio || c.Hardware.Backend == BackendPeriph {
		if !c.BusPins().SamePins(hardware.SPI0BusPins) {
			sp := hardware.SPI0BusPins
			errs = append(errs, fmt.Errorf("backend %s needs the SPI0 pins Select %d, DataOut %d, DataIn %d, Clock %d",
				c.Hardware.Backend, sp.Select, sp.DataOut, sp.DataIn, sp.Clock))
		}
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging format must be text or json, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

func (p PinsConfig) validate() error {
	if _, err := hardware.ParsePort(p.Port); err != nil {
		return fmt.Errorf("bus pins: %w", err)
	}
	seen := make(map[int]string, 4)
	for _, pin := range []struct {
		name string
		num  int
	}{{"Select", p.Select}, {"DataOut", p.DataOut}, {"DataIn", p.DataIn}, {"Clock", p.Clock}} {
		if pin.num < 0 || pin.num > 31 {
			return fmt.Errorf("pin %s must be between 0 and 31, got %d", pin.name, pin.num)
		}
		if other, dup := seen[pin.num]; dup {
			return fmt.Errorf("pins %s and %s share pin %d", other, pin.name, pin.num)
		}
		seen[pin.num] = pin.name
	}
	return nil
}

// TerminatorByte returns the configured frame terminator.
func (c *Config) TerminatorByte() byte {
	return c.Terminator[0]
}

// Dummy returns the filler byte for receive transfers.
func (c *Config) Dummy() byte {
	return byte(c.DummyByte)
}

// BusPins converts the pin configuration. The config must have been
// validated.
func (c *Config) BusPins() hardware.BusPins {
	port, _ := hardware.ParsePort(c.Hardware.Pins.Port)
	return hardware.BusPins{
		Port:    port,
		Select:  hardware.Pin(c.Hardware.Pins.Select),
		DataOut: hardware.Pin(c.Hardware.Pins.DataOut),
		DataIn:  hardware.Pin(c.Hardware.Pins.DataIn),
		Clock:   hardware.Pin(c.Hardware.Pins.Clock),
	}
}

// Local Variables:
// compile-command: "cd .. && go build"
// End:
