// Package kld7 implements the RFbeam K-LD7 serial protocol: command framing,
// the INIT baud-rate handshake, the GRPS parameter structure and the polled
// TDAT detection decoder.
//
// Every command is a frame of a 4 byte ASCII header, a little-endian uint32
// payload length and the payload. The sensor answers every command with a
// 9 byte status response before any command specific data.
package kld7

import (
	"encoding/binary"
	"fmt"
)

const (
	headerLen   = 4
	frameLen    = 8 // header + uint32 payload length
	statusLen   = frameLen + 1
	probeLen    = 8
	readingLen  = 8
	presenceIdx = 4
)

// Wire command codes that are not tied to a parameter.
const (
	CmdInit       = "INIT"
	CmdParameters = "GRPS"
	CmdNextFrame  = "GNFD"
	CmdGoodbye    = "GBYE"
	CmdFactory    = "RFSE"
)

const (
	// baudSelect2M is the INIT payload selecting 2 Mbaud.
	baudSelect2M = 3
	// frameSelectTDAT is the GNFD payload requesting tracked target data.
	frameSelectTDAT = 8
)

// Status is the one byte result code that ends every status response.
type Status uint8

const (
	StatusOK Status = iota
	StatusUnknownCommand
	StatusInvalidParameterValue
	StatusInvalidRPSTVersion
	StatusUARTError
	StatusSensorBusy
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusUnknownCommand:
		return "unknown command"
	case StatusInvalidParameterValue:
		return "invalid parameter value"
	case StatusInvalidRPSTVersion:
		return "invalid RPST version"
	case StatusUARTError:
		return "UART error"
	case StatusSensorBusy:
		return "sensor busy"
	case StatusTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// EncodeCommand builds a frame for code carrying payload.
func EncodeCommand(code string, payload []byte) ([]byte, error) {
	if len(code) != headerLen {
		return nil, &FramingError{Op: "encode", Msg: fmt.Sprintf("command code %q is not 4 bytes", code)}
	}
	buf := make([]byte, frameLen+len(payload))
	copy(buf, code)
	binary.LittleEndian.PutUint32(buf[headerLen:], uint32(len(payload)))
	copy(buf[frameLen:], payload)
	return buf, nil
}

// EncodeValueCommand builds a frame for code carrying a 4 byte little-endian
// integer. Negative values need signed set and are sent as two's complement.
func EncodeValueCommand(code string, value int32, signed bool) ([]byte, error) {
	if value < 0 && !signed {
		return nil, &FramingError{Op: "encode", Msg: fmt.Sprintf("negative value %d for unsigned command %s", value, code)}
	}
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, uint32(value))
	return EncodeCommand(code, payload)
}

// DecodeStatus returns the status code of a 9 byte status response.
func DecodeStatus(b []byte) (Status, error) {
	if len(b) != statusLen {
		return 0, &FramingError{Op: "decode status", Want: statusLen, Got: len(b)}
	}
	return Status(b[frameLen]), nil
}

// DecodeHeaderLength splits an 8 byte frame prefix into its header and
// payload length.
func DecodeHeaderLength(b []byte) (string, uint32, error) {
	if len(b) != frameLen {
		return "", 0, &FramingError{Op: "decode header", Want: frameLen, Got: len(b)}
	}
	return string(b[:headerLen]), binary.LittleEndian.Uint32(b[headerLen:frameLen]), nil
}
