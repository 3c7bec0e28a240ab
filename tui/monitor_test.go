package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"lautenbacher.net/gospi/hardware"
)

func TestFormatTransaction(t *testing.T) {
	line := formatTransaction(3, hardware.Transaction{Out: 'A', In: 0xFF})
	assert.Equal(t, "00003  [green]out[-] 0x41 'A'  [blue]in[-] 0xFF  . ", line)
}

func TestPrintable(t *testing.T) {
	assert.Equal(t, "';'", printable(';'))
	assert.Equal(t, " . ", printable(0x00))
	assert.Equal(t, " . ", printable(0x7F))
}

func TestMonitor_Observe(t *testing.T) {
	m := NewMonitor("role controller")
	m.Observe(hardware.Transaction{Out: 'h', In: 0xFF})
	m.Observe(hardware.Transaction{Out: 0xFF, In: ';'})

	lines := strings.Split(strings.TrimSpace(m.Transcript()), "\n")
	if assert.Len(t, lines, 2) {
		assert.Contains(t, lines[0], "00001  out 0x68 'h'  in 0xFF")
		assert.Contains(t, lines[1], "00002  out 0xFF  .   in 0x3B ';'")
		assert.NotContains(t, lines[0], "[green]", "tags should be stripped")
	}
}

func TestMonitor_LogWriter(t *testing.T) {
	m := NewMonitor("")
	_, err := m.LogWriter().Write([]byte("level=INFO msg=\"[x] hello\"\n"))
	assert.NoError(t, err)
	assert.Contains(t, m.logs.GetText(false), "[x] hello", "log pane must not interpret tags")
}

func TestMonitor_ObserveAfterStop(t *testing.T) {
	m := NewMonitor("")
	m.running.Store(true)
	m.Stop()
	assert.False(t, m.running.Load(), "Stop must end redraws")

	// more lines than tview's update queue holds; none may block
	for i := 0; i < 500; i++ {
		m.Observe(hardware.Transaction{Out: byte(i), In: 0xFF})
	}
	assert.Contains(t, m.Transcript(), "00500")
}

func TestMonitor_StopClosesQuit(t *testing.T) {
	m := NewMonitor("")
	m.Stop()
	m.Stop()
	select {
	case <-m.Quit():
	default:
		t.Fatal("Quit should be closed after Stop")
	}
}
