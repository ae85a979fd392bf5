package testutil

import (
	"encoding/binary"
	"math"
)

// K-LD7 status codes as they appear on the wire.
const (
	StatusOK                    byte = 0
	StatusUnknownCommand        byte = 1
	StatusInvalidParameterValue byte = 2
	StatusSensorBusy            byte = 5
)

// Frame builds header || uint32 LE length || payload.
func Frame(header string, payload []byte) []byte {
	buf := make([]byte, 8+len(payload))
	copy(buf, header)
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(payload)))
	copy(buf[8:], payload)
	return buf
}

// ValueFrame builds a command frame carrying a 4 byte little-endian value.
func ValueFrame(header string, value int32) []byte {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, uint32(value))
	return Frame(header, payload)
}

// StatusResponse builds the 9 byte RESP frame the sensor sends after every command.
func StatusResponse(code byte) []byte {
	return append(Frame("RESP", nil)[:4], 1, 0, 0, 0, code)
}

// ParameterDump builds a full GRPS reply: OK status, RPST header and payload.
func ParameterDump(payload []byte) []byte {
	out := StatusResponse(StatusOK)
	return append(out, Frame("RPST", payload)...)
}

// NoTarget builds a GNFD reply with the presence flag clear.
func NoTarget() []byte {
	return append(StatusResponse(StatusOK), Frame("TDAT", nil)...)
}

// Target builds a GNFD reply carrying one detection. speedKPH and angleDeg
// are scaled by 100 as the sensor does.
func Target(distanceCM uint16, speedKPH, angleDeg float64, magnitude uint16) []byte {
	out := StatusResponse(StatusOK)
	return append(out, Frame("TDAT", TargetPayload(distanceCM, speedKPH, angleDeg, magnitude))...)
}

// TargetPayload builds the 8 byte TDAT payload.
func TargetPayload(distanceCM uint16, speedKPH, angleDeg float64, magnitude uint16) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint16(buf[0:], distanceCM)
	binary.LittleEndian.PutUint16(buf[2:], uint16(int16(math.Round(speedKPH*100))))
	binary.LittleEndian.PutUint16(buf[4:], uint16(int16(math.Round(angleDeg*100))))
	binary.LittleEndian.PutUint16(buf[6:], magnitude)
	return buf
}

// Concat joins byte scripts.
func Concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
