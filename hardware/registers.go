package hardware

// Registers is the register file of the serial peripheral. The driver only
// ever talks to the hardware through this handle, so a simulated peripheral
// can stand in for the real one.
type Registers interface {
	// Control returns the control register.
	Control() byte
	// SetControl writes the control register.
	SetControl(v byte)
	// Status returns the status register.
	Status() byte
	// Data returns the inbound byte latched by the last transaction.
	Data() byte
	// SetData writes the outbound byte and starts a bus transaction.
	SetData(v byte)
}

// Control register bits.
const (
	ControlEnable     byte = 1 << 6
	ControlController byte = 1 << 4
)

// StatusComplete is set in the status register once a byte has been
// shifted out and the inbound byte is latched in the data register.
const StatusComplete byte = 1 << 7

// Transaction is one physical exchange on the bus: the byte shifted out and
// the byte shifted in at the same time.
type Transaction struct {
	Out byte
	In  byte
}

// Observer receives every completed transaction of a backend.
type Observer func(Transaction)

// Observable is implemented by backends that report their transactions.
type Observable interface {
	OnTransaction(o Observer)
}
