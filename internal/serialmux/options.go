package serialmux

import (
	"fmt"

	"go.bug.st/serial"
)

// SerialMode converts a SerialPortMode into the serial.Mode structure required
// by go.bug.st/serial when opening or reconfiguring a port.
func SerialMode(m *SerialPortMode) (*serial.Mode, error) {
	if m == nil {
		return nil, fmt.Errorf("nil serial port mode")
	}

	mode := &serial.Mode{
		BaudRate: m.BaudRate,
		DataBits: m.DataBits,
	}

	switch m.StopBits {
	case OneStopBit:
		mode.StopBits = serial.OneStopBit
	case TwoStopBits:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("unsupported stop bits %d", m.StopBits)
	}

	switch m.Parity {
	case NoParity:
		mode.Parity = serial.NoParity
	case EvenParity:
		mode.Parity = serial.EvenParity
	case OddParity:
		mode.Parity = serial.OddParity
	default:
		return nil, fmt.Errorf("unsupported parity %d", m.Parity)
	}

	return mode, nil
}
