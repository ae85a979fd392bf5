// Package serialmux abstracts the serial port the radar is attached to, so the
// driver can run against go.bug.st/serial, a scripted test port or a simulator.
package serialmux

import "io"

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// SerialPortMode defines serial port configuration parameters.
type SerialPortMode struct {
	BaudRate int
	DataBits int
	Parity   Parity
	StopBits StopBits
}

// Parity defines serial port parity options.
type Parity int

const (
	NoParity Parity = iota
	OddParity
	EvenParity
)

// StopBits defines serial port stop bit options.
type StopBits int

const (
	OneStopBit StopBits = iota
	TwoStopBits
)

const (
	// InitialBaudRate is the rate the K-LD7 listens on after power-up.
	InitialBaudRate = 115200
	// HighBaudRate is the rate selected by the INIT handshake payload.
	HighBaudRate = 2000000
)

// DefaultSerialPortMode returns the power-up mode of the radar: 115200 8E1.
func DefaultSerialPortMode() *SerialPortMode {
	return &SerialPortMode{
		BaudRate: InitialBaudRate,
		DataBits: 8,
		Parity:   EvenParity,
		StopBits: OneStopBit,
	}
}

// HighSpeedSerialPortMode returns the mode used once the handshake has
// raised the sensor to 2 Mbaud. Framing is unchanged.
func HighSpeedSerialPortMode() *SerialPortMode {
	m := DefaultSerialPortMode()
	m.BaudRate = HighBaudRate
	return m
}

// SerialPortFactory defines an interface for creating serial ports.
// This abstraction enables dependency injection of serial port creation.
type SerialPortFactory interface {
	// Open opens a serial port at the specified path with the given mode.
	Open(path string, mode *SerialPortMode) (SerialPorter, error)
}

// SerialPortOpener is a function type for opening serial ports.
// It satisfies SerialPortFactory so a plain function can be injected.
type SerialPortOpener func(path string, mode *SerialPortMode) (SerialPorter, error)

// Open calls f.
func (f SerialPortOpener) Open(path string, mode *SerialPortMode) (SerialPorter, error) {
	return f(path, mode)
}

// ModeSetter is implemented by ports whose line settings can be changed
// while open. The baud rate switch after INIT depends on it.
type ModeSetter interface {
	SetMode(mode *SerialPortMode) error
}
