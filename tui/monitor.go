package tui

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"lautenbacher.net/gospi/hardware"
)

// Monitor is a terminal view of the bus: every transaction with its
// outbound and inbound byte, and the log output below it.
type Monitor struct {
	app        *tview.Application
	transcript *tview.TextView
	logs       *tview.TextView
	mu         sync.Mutex
	count      int
	running    atomic.Bool
	quit       chan struct{}
	quitOnce   sync.Once
}

// NewMonitor builds the layout. info is shown in the header.
func NewMonitor(info string) *Monitor {
	m := &Monitor{
		app:  tview.NewApplication(),
		quit: make(chan struct{}),
	}

	intro := tview.NewTextView()
	intro.SetBorder(true).SetTitle(" GOSPI Bus Monitor ").SetTitleColor(tcell.ColorLightBlue)
	intro.SetText(info + "\nHit [#ff0000]q[-] to exit")
	intro.SetTextAlign(tview.AlignCenter)
	intro.SetDynamicColors(true)
	intro.SetBackgroundColor(tcell.ColorDarkSlateGray)

	m.transcript = tview.NewTextView()
	m.transcript.SetBorder(true).SetTitle(" Transactions ")
	m.transcript.SetDynamicColors(true)
	m.transcript.SetScrollable(true)
	m.transcript.SetChangedFunc(func() {
		m.transcript.ScrollToEnd()
		m.draw()
	})

	m.logs = tview.NewTextView()
	m.logs.SetBorder(true).SetTitle(" Log ")
	m.logs.SetDynamicColors(false)
	m.logs.SetChangedFunc(func() {
		m.logs.ScrollToEnd()
		m.draw()
	})

	layout := tview.NewFlex()
	layout.SetDirection(tview.FlexRow)
	layout.AddItem(intro, 4, 1, false)
	layout.AddItem(m.transcript, 0, 3, false)
	layout.AddItem(m.logs, 0, 1, false)

	m.app.SetRoot(layout, true)
	m.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if key := event.Rune(); key == 'q' || key == 'Q' {
			m.Stop()
			return nil
		}
		return event
	})
	return m
}

// Start runs the terminal application in the background. Run errors are
// sent on the returned channel, which is closed when the application ends.
func (m *Monitor) Start() <-chan error {
	errc := make(chan error, 1)
	m.running.Store(true)
	go func() {
		defer close(errc)
		if err := m.app.Run(); err != nil {
			errc <- err
		}
		m.running.Store(false)
		m.quitOnce.Do(func() { close(m.quit) })
	}()
	return errc
}

// Stop ends the application.
func (m *Monitor) Stop() {
	m.running.Store(false)
	m.quitOnce.Do(func() { close(m.quit) })
	m.app.Stop()
}

// draw queues a redraw. Draw blocks once the update queue is full, so it is
// skipped while the application is not running.
func (m *Monitor) draw() {
	if m.running.Load() {
		m.app.Draw()
	}
}

// Quit is closed once the user leaves the monitor.
func (m *Monitor) Quit() <-chan struct{} {
	return m.quit
}

// LogWriter returns the writer feeding the log pane.
func (m *Monitor) LogWriter() io.Writer {
	return m.logs
}

// Observe appends a transaction to the transcript. It matches
// hardware.Observer.
func (m *Monitor) Observe(t hardware.Transaction) {
	m.mu.Lock()
	m.count++
	line := formatTransaction(m.count, t)
	m.mu.Unlock()
	fmt.Fprintln(m.transcript, line)
}

// Transcript returns the transcript text without color tags.
func (m *Monitor) Transcript() string {
	return m.transcript.GetText(true)
}

func formatTransaction(n int, t hardware.Transaction) string {
	return fmt.Sprintf("%05d  [green]out[-] 0x%02X %s  [blue]in[-] 0x%02X %s",
		n, t.Out, printable(t.Out), t.In, printable(t.In))
}

// printable renders b as a quoted character or a dot.
func printable(b byte) string {
	if b < 0x20 || b > 0x7E {
		return " . "
	}
	return tview.Escape(fmt.Sprintf("'%c'", b))
}
