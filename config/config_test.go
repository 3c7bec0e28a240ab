package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lautenbacher.net/gospi/hardware"
)

const baseConfig = `
Role: controller
Terminator: ";"
DummyByte: 255
Hardware:
  Backend: simulation
  Device: /dev/spidev0.0
  Pins:
    Port: B
    Select: 4
    DataOut: 5
    DataIn: 6
    Clock: 7
Simulation:
  Inbound: "hello;"
  Reply: "ok;"
Logging:
  Level: "DEBUG"
  Format: "json"
  File: "/tmp/gospi.log"
`

func createConfigFile(t *testing.T, configData string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(configFile, []byte(configData), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return configFile
}

func TestReadConfig(t *testing.T) {
	conf, err := ReadConfig(createConfigFile(t, baseConfig))
	require.NoError(t, err, "ReadConfig should not return an error")

	assert.Equal(t, RoleController, conf.Role)
	assert.Equal(t, byte(';'), conf.TerminatorByte())
	assert.Equal(t, byte(0xFF), conf.Dummy())
	assert.Equal(t, BackendSimulation, conf.Hardware.Backend)
	assert.Equal(t, "/dev/spidev0.0", conf.Hardware.Device)
	assert.Equal(t, hardware.DefaultBusPins, conf.BusPins())
	assert.Equal(t, "hello;", conf.Simulation.Inbound)
	assert.Equal(t, "ok;", conf.Simulation.Reply)
	assert.Equal(t, "DEBUG", conf.Logging.Level)
	assert.Equal(t, "json", conf.Logging.Format)
	assert.Equal(t, "/tmp/gospi.log", conf.Logging.File)
}

func TestReadConfig_Defaults(t *testing.T) {
	conf, err := ReadConfig(createConfigFile(t, "Role: Peripheral\n"))
	require.NoError(t, err)

	assert.Equal(t, RolePeripheral, conf.Role, "role should be normalised")
	assert.Equal(t, byte(';'), conf.TerminatorByte())
	assert.Equal(t, byte(0xFF), conf.Dummy())
	assert.Equal(t, BackendSimulation, conf.Hardware.Backend)
	assert.Equal(t, hardware.DefaultBusPins, conf.BusPins())
	assert.Equal(t, "text", conf.Logging.Format)
}

func TestReadConfig_Empty(t *testing.T) {
	conf, err := ReadConfig(createConfigFile(t, ""))
	require.NoError(t, err, "an empty file means all defaults")
	assert.Equal(t, RoleController, conf.Role)
}

func TestReadConfig_ZeroDummy(t *testing.T) {
	conf, err := ReadConfig(createConfigFile(t, "DummyByte: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, byte(0), conf.Dummy())
}

func TestReadConfig_CustomPins(t *testing.T) {
	configData := strings.Replace(baseConfig, "Port: B", "Port: PORTD", 1)
	configData = strings.Replace(configData, "Select: 4", "Select: 2", 1)
	conf, err := ReadConfig(createConfigFile(t, configData))
	require.NoError(t, err)

	pins := conf.BusPins()
	assert.Equal(t, hardware.PortD, pins.Port)
	assert.Equal(t, hardware.Pin(2), pins.Select)
}

func TestReadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		old     string
		new     string
		message string
	}{
		{"role", "Role: controller", "Role: both", "role must be"},
		{"terminator", `Terminator: ";"`, `Terminator: ";;"`, "terminator must be exactly one byte"},
		{"dummy", "DummyByte: 255", "DummyByte: 256", "must be between 0 and 255"},
		{"backend", "Backend: simulation", "Backend: usb", "unknown hardware backend"},
		{"peripheral on spidev", "Backend: simulation\n", "Backend: periph.io\n", ""},
		{"port", "Port: B", "Port: X", "unknown port"},
		{"pin range", "Clock: 7", "Clock: 32", "pin Clock must be between 0 and 31"},
		{"pin clash", "Clock: 7", "Clock: 4", "share pin 4"},
		{"format", `Format: "json"`, `Format: "xml"`, "logging format must be text or json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configData := strings.Replace(baseConfig, tt.old, tt.new, 1)
			if tt.message == "" {
				configData = strings.Replace(configData, "Role: controller", "Role: peripheral", 1)
				tt.message = "supports only the controller role"
			}
			_, err := ReadConfig(createConfigFile(t, configData))
			require.Error(t, err, "ReadConfig should return an error")
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestReadConfig_LinuxBackendNeedsSPI0Pins(t *testing.T) {
	for _, backend := range []string{BackendPeriph, BackendRpio} {
		t.Run(backend, func(t *testing.T) {
			configData := strings.Replace(baseConfig, "Backend: simulation", "Backend: "+backend, 1)
			_, err := ReadConfig(createConfigFile(t, configData))
			require.Error(t, err, "pins 4..7 must be rejected for %s", backend)
			assert.Contains(t, err.Error(), "needs the SPI0 pins")
		})
	}
}

func TestReadConfig_LinuxBackendSPI0Pins(t *testing.T) {
	configData := strings.Replace(baseConfig, "Backend: simulation", "Backend: periph.io", 1)
	configData = strings.Replace(configData, "Select: 4", "Select: 8", 1)
	configData = strings.Replace(configData, "DataOut: 5", "DataOut: 10", 1)
	configData = strings.Replace(configData, "DataIn: 6", "DataIn: 9", 1)
	configData = strings.Replace(configData, "Clock: 7", "Clock: 11", 1)

	conf, err := ReadConfig(createConfigFile(t, configData))
	require.NoError(t, err)
	assert.True(t, conf.BusPins().SamePins(hardware.SPI0BusPins))
}

func TestReadConfig_MissingFile(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadConfig_BadYAML(t *testing.T) {
	_, err := ReadConfig(createConfigFile(t, "Role: [controller\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't decode config file")
}
