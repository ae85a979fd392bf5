package serialmux

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// RealPortFactory opens hardware serial ports with go.bug.st/serial.
type RealPortFactory struct {
	// ReadTimeout bounds each Read call. Zero blocks until data arrives.
	ReadTimeout time.Duration
}

// Open opens the port at path with the given mode and applies the read timeout.
func (f RealPortFactory) Open(path string, mode *SerialPortMode) (SerialPorter, error) {
	if mode == nil {
		mode = DefaultSerialPortMode()
	}
	m, err := SerialMode(mode)
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, m)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}

	if f.ReadTimeout > 0 {
		if err := port.SetReadTimeout(f.ReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("failed to set read timeout on %s: %w", path, err)
		}
	}

	return &realPort{Port: port}, nil
}

// realPort adapts serial.Port to SerialPorter and ModeSetter.
type realPort struct {
	serial.Port
}

func (p *realPort) SetMode(mode *SerialPortMode) error {
	m, err := SerialMode(mode)
	if err != nil {
		return err
	}
	return p.Port.SetMode(m)
}
