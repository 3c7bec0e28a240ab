package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"lautenbacher.net/gospi/config"
	"lautenbacher.net/gospi/hardware"
	"lautenbacher.net/gospi/logging"
	"lautenbacher.net/gospi/spi"
	"lautenbacher.net/gospi/tui"
)

var (
	configFile = flag.String("config", config.CONFILE, "Path to the YAML configuration file")
	sendText   = flag.String("send", "", "String to send")
	terminate  = flag.Bool("terminate", false, "Append the frame terminator to the sent string")
	receive    = flag.Bool("receive", false, "Receive one terminated string after sending")
	bufSize    = flag.Int("size", 64, "Receive buffer size in bytes, including the trailing NUL")
	showTUI    = flag.Bool("tui", false, "Show the bus monitor")
)

// backend is a register file together with its pins.
type backend interface {
	hardware.Registers
	hardware.PinConfigurator
}

// job is what the command line asks the driver to do.
type job struct {
	send      string
	terminate bool
	receive   bool
	size      int
}

func main() {
	flag.Parse()
	os.Exit(realMain())
}

func realMain() int {
	conf, err := config.ReadConfig(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := checkRole(conf); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if *bufSize < 1 {
		fmt.Fprintln(os.Stderr, "-size must be at least 1")
		return 2
	}
	if err := logging.Init(conf.Logging, *showTUI); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	defer logging.Close()

	b, closer, err := openBackend(conf)
	if err != nil {
		slog.Error("Failed to open hardware backend", "backend", conf.Hardware.Backend, "error", err)
		return 1
	}
	if closer != nil {
		defer func() {
			if err := closer.Close(); err != nil {
				slog.Error("Error closing hardware backend", "error", err)
			}
		}()
	}

	var out io.Writer = os.Stdout
	var monitor *tui.Monitor
	var monitorErr <-chan error
	if *showTUI {
		monitor = tui.NewMonitor(fmt.Sprintf("role [blue]%s[-]  backend [blue]%s[-]", conf.Role, conf.Hardware.Backend))
		if o, ok := b.(hardware.Observable); ok {
			o.OnTransaction(monitor.Observe)
		}
		monitorErr = monitor.Start()
		if err := logging.Attach(monitor.LogWriter()); err != nil {
			slog.Error("Failed to attach log pane", "error", err)
		}
		defer logging.Detach()
		out = io.Discard
	}

	j := job{
		send:      *sendText,
		terminate: *terminate,
		receive:   *receive,
		size:      *bufSize,
	}
	runErr := run(conf, b, j, out)
	if runErr != nil {
		slog.Error("Transfer failed", "error", runErr)
	}

	if monitor != nil {
		select {
		case <-monitor.Quit():
		case err := <-monitorErr:
			if err != nil {
				slog.Error("Error running TUI", "error", err)
			}
		}
		monitor.Stop()
	}

	if runErr != nil {
		return 1
	}
	return 0
}

// checkRole rejects a configuration written for the other role.
func checkRole(conf *config.Config) error {
	var compiled buildRole
	if conf.Role != compiled.String() {
		return fmt.Errorf("binary is built for the %s role but %s asks for %s", compiled, *configFile, conf.Role)
	}
	return nil
}

func openBackend(conf *config.Config) (backend, io.Closer, error) {
	switch conf.Hardware.Backend {
	case config.BackendSimulation:
		sim := hardware.NewSimulated()
		sim.Feed([]byte(conf.Simulation.Inbound)...)
		if conf.Simulation.Reply != "" {
			sim.SetReply(conf.TerminatorByte(), []byte(conf.Simulation.Reply))
		}
		return sim, nil, nil
	case config.BackendRpio:
		r, err := hardware.OpenRpio()
		if err != nil {
			return nil, nil, err
		}
		return r, r, nil
	case config.BackendPeriph:
		p, err := hardware.OpenPeriph(conf.Hardware.Device)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	default:
		return nil, nil, fmt.Errorf("unknown hardware backend: %s", conf.Hardware.Backend)
	}
}

// run initialises the driver and performs the job. The received string is
// written to out on its own line.
func run(conf *config.Config, b backend, j job, out io.Writer) error {
	drv := spi.New[buildRole](b, b,
		spi.WithTerminator(conf.TerminatorByte()),
		spi.WithDummy(conf.Dummy()),
		spi.WithBusPins(conf.BusPins()),
	)
	drv.Init()
	slog.Info("SPI initialised", "role", drv.Role().String(), "backend", conf.Hardware.Backend)

	if j.send != "" || j.terminate {
		data := []byte(j.send)
		n := drv.SendString(data)
		if n < len(data) {
			slog.Warn("String truncated at NUL byte", "sent", n, "length", len(data))
		}
		if j.terminate {
			drv.SendByte(drv.Terminator())
		}
		slog.Info("String sent", "bytes", n, "terminated", j.terminate)
	}

	if j.receive {
		buf := make([]byte, j.size)
		n, err := drv.ReceiveStringBounded(buf)
		if err != nil {
			return fmt.Errorf("receive failed after %d bytes: %w", n, err)
		}
		slog.Info("String received", "bytes", n, "text", string(buf[:n]))
		fmt.Fprintln(out, string(buf[:n]))
	}
	return nil
}
