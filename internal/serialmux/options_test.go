package serialmux

import (
	"testing"

	"go.bug.st/serial"
)

func TestDefaultSerialPortMode(t *testing.T) {
	mode := DefaultSerialPortMode()
	want := SerialPortMode{BaudRate: 115200, DataBits: 8, Parity: EvenParity, StopBits: OneStopBit}
	if *mode != want {
		t.Errorf("DefaultSerialPortMode() = %+v, want %+v", *mode, want)
	}
}

func TestHighSpeedSerialPortMode(t *testing.T) {
	mode := HighSpeedSerialPortMode()
	want := SerialPortMode{BaudRate: 2000000, DataBits: 8, Parity: EvenParity, StopBits: OneStopBit}
	if *mode != want {
		t.Errorf("HighSpeedSerialPortMode() = %+v, want %+v", *mode, want)
	}
}

func TestSerialMode(t *testing.T) {
	tests := []struct {
		name string
		in   SerialPortMode
		want serial.Mode
	}{
		{
			name: "power-up",
			in:   *DefaultSerialPortMode(),
			want: serial.Mode{BaudRate: 115200, DataBits: 8, Parity: serial.EvenParity, StopBits: serial.OneStopBit},
		},
		{
			name: "high speed",
			in:   *HighSpeedSerialPortMode(),
			want: serial.Mode{BaudRate: 2000000, DataBits: 8, Parity: serial.EvenParity, StopBits: serial.OneStopBit},
		},
		{
			name: "odd parity two stop bits",
			in:   SerialPortMode{BaudRate: 9600, DataBits: 7, Parity: OddParity, StopBits: TwoStopBits},
			want: serial.Mode{BaudRate: 9600, DataBits: 7, Parity: serial.OddParity, StopBits: serial.TwoStopBits},
		},
		{
			name: "no parity",
			in:   SerialPortMode{BaudRate: 19200, DataBits: 8, Parity: NoParity, StopBits: OneStopBit},
			want: serial.Mode{BaudRate: 19200, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SerialMode(&tc.in)
			if err != nil {
				t.Fatalf("SerialMode() error = %v", err)
			}
			if got.BaudRate != tc.want.BaudRate || got.DataBits != tc.want.DataBits ||
				got.Parity != tc.want.Parity || got.StopBits != tc.want.StopBits {
				t.Errorf("SerialMode() = %+v, want %+v", *got, tc.want)
			}
		})
	}
}

func TestSerialMode_Invalid(t *testing.T) {
	if _, err := SerialMode(nil); err == nil {
		t.Error("expected error for nil mode")
	}
	if _, err := SerialMode(&SerialPortMode{BaudRate: 9600, DataBits: 8, StopBits: StopBits(5)}); err == nil {
		t.Error("expected error for unsupported stop bits")
	}
	if _, err := SerialMode(&SerialPortMode{BaudRate: 9600, DataBits: 8, Parity: Parity(7)}); err == nil {
		t.Error("expected error for unsupported parity")
	}
}
