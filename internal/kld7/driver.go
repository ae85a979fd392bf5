package kld7

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/banshee-data/speed.report/internal/monitoring"
	"github.com/banshee-data/speed.report/internal/serialmux"
	"github.com/banshee-data/speed.report/internal/timeutil"
)

// maxPayloadLen bounds the length field of a GRPS reply before allocating.
const maxPayloadLen = 1024

// State is the driver's connection state.
type State int

const (
	StateUninitialized State = iota
	StateHandshaking
	StateReady
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Detection is one decoded TDAT target.
type Detection struct {
	Time       time.Time `json:"time"`
	DistanceCM uint16    `json:"distance_cm"`
	// Speed is signed km/h; negative values are receding targets.
	Speed float64 `json:"speed_kph"`
	// Angle is in radians.
	Angle     float64 `json:"angle_rad"`
	Magnitude uint16  `json:"magnitude"`
}

// Millis returns the detection time in Unix milliseconds.
func (d Detection) Millis() int64 { return d.Time.UnixMilli() }

// DecodeDetection decodes an 8 byte TDAT payload: distance (uint16 cm),
// speed (int16, km/h x100), angle (int16, degrees x100) and magnitude (uint16).
func DecodeDetection(b []byte, at time.Time) (Detection, error) {
	if len(b) != readingLen {
		return Detection{}, &FramingError{Op: "decode detection", Want: readingLen, Got: len(b)}
	}
	speed := int16(binary.LittleEndian.Uint16(b[2:4]))
	angle := int16(binary.LittleEndian.Uint16(b[4:6]))
	return Detection{
		Time:       at,
		DistanceCM: binary.LittleEndian.Uint16(b[0:2]),
		Speed:      float64(speed) / 100,
		Angle:      float64(angle) / 100 * math.Pi / 180,
		Magnitude:  binary.LittleEndian.Uint16(b[6:8]),
	}, nil
}

// Driver owns the serial connection to one K-LD7 and its cached parameter
// table. All methods are safe for concurrent use; each logical transaction
// holds the driver's mutex from its first write to its last read.
type Driver struct {
	mu      sync.Mutex
	factory serialmux.SerialPortFactory
	clock   timeutil.Clock

	port   serialmux.SerialPorter
	state  State
	device string
	params *parameterTable

	initTime      time.Time
	lastDetection time.Time
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithClock sets the clock used to stamp detections.
func WithClock(c timeutil.Clock) DriverOption {
	return func(d *Driver) { d.clock = c }
}

// NewDriver returns an uninitialised driver that opens ports through factory.
func NewDriver(factory serialmux.SerialPortFactory, opts ...DriverOption) *Driver {
	d := &Driver{
		factory: factory,
		clock:   timeutil.RealClock{},
		params:  newParameterTable(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Connect opens device at 115200 8E1, performs the INIT handshake, raises
// the local port to 2 Mbaud and reads the parameter table. Calling Connect on
// a ready driver is a no-op.
//
// A non-OK INIT status is returned with a nil error and leaves the driver
// uninitialised. A non-OK status from the initial parameter dump is returned
// as well, but the driver is ready.
func (d *Driver) Connect(device string) (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case StateReady:
		monitoring.Logf("kld7 is already initialised on %s", d.device)
		return StatusOK, nil
	case StateDisconnected:
		return 0, ErrDisconnected
	}

	monitoring.Logf("kld7 is initialising on %s", device)
	d.state = StateHandshaking

	port, err := d.factory.Open(device, serialmux.DefaultSerialPortMode())
	if err != nil {
		d.state = StateUninitialized
		return 0, &TransportError{Op: "open", Err: err}
	}
	d.port = port
	d.device = device

	frame, err := EncodeValueCommand(CmdInit, baudSelect2M, false)
	if err != nil {
		d.abortHandshake()
		return 0, err
	}
	status, err := d.exchange(CmdInit, frame)
	if err != nil {
		d.abortHandshake()
		return 0, err
	}
	if status != StatusOK {
		monitoring.Logf("kld7 INIT failed on %s: %v", device, status)
		d.abortHandshake()
		return status, nil
	}

	// The sensor switches rate as soon as it has acknowledged INIT.
	if ms, ok := d.port.(serialmux.ModeSetter); ok {
		if err := ms.SetMode(serialmux.HighSpeedSerialPortMode()); err != nil {
			d.abortHandshake()
			return 0, &TransportError{Op: "set baud rate", Err: err}
		}
	} else {
		monitoring.Logf("kld7 port %s cannot change mode; staying at %d baud", device, serialmux.InitialBaudRate)
	}

	status, err = d.readParameters()
	if err != nil {
		d.abortHandshake()
		return 0, err
	}
	if status != StatusOK {
		monitoring.Logf("kld7 initial parameter read failed: %v", status)
	}

	d.state = StateReady
	d.initTime = d.clock.Now()
	monitoring.Logf("kld7 ready on %s", device)
	return status, nil
}

func (d *Driver) abortHandshake() {
	if d.port != nil {
		if err := d.port.Close(); err != nil {
			monitoring.Logf("kld7 failed to close %s: %v", d.device, err)
		}
	}
	d.port = nil
	d.state = StateUninitialized
}

// GetParameters re-reads the full parameter table from the sensor.
func (d *Driver) GetParameters() (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateReady {
		return 0, ErrNotInitialized
	}
	return d.readParameters()
}

// readParameters runs the GRPS transaction. d.mu must be held.
func (d *Driver) readParameters() (Status, error) {
	frame, err := EncodeCommand(CmdParameters, nil)
	if err != nil {
		return 0, err
	}
	status, err := d.exchange(CmdParameters, frame)
	if err != nil {
		return 0, err
	}
	if status != StatusOK {
		monitoring.Logf("kld7 [%s] error: %v", CmdParameters, status)
		return status, nil
	}

	hdr, err := d.readExact("read parameter header", frameLen)
	if err != nil {
		return 0, err
	}
	_, n, err := DecodeHeaderLength(hdr)
	if err != nil {
		return 0, err
	}
	if n > maxPayloadLen {
		return 0, &FramingError{Op: "decode parameters", Msg: fmt.Sprintf("payload length %d exceeds %d", n, maxPayloadLen)}
	}
	buf, err := d.readExact("read parameters", int(n))
	if err != nil {
		return 0, err
	}
	if err := d.params.decode(buf); err != nil {
		return 0, err
	}
	return StatusOK, nil
}

// GetDetection polls the sensor for the current tracked target. ok is false
// when the sensor reports no target or answers with a non-OK status.
func (d *Driver) GetDetection() (det Detection, ok bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateReady {
		return Detection{}, false, ErrNotInitialized
	}

	frame, err := EncodeValueCommand(CmdNextFrame, frameSelectTDAT, false)
	if err != nil {
		return Detection{}, false, err
	}
	status, err := d.exchange(CmdNextFrame, frame)
	if err != nil {
		return Detection{}, false, err
	}
	if status != StatusOK {
		monitoring.Logf("kld7 [%s] failed: %v", CmdNextFrame, status)
		return Detection{}, false, nil
	}

	probe, err := d.readExact("read TDAT header", probeLen)
	if err != nil {
		return Detection{}, false, err
	}
	if probe[presenceIdx] == 0 {
		return Detection{}, false, nil
	}

	payload, err := d.readExact("read TDAT", readingLen)
	if err != nil {
		return Detection{}, false, err
	}
	det, err = DecodeDetection(payload, d.clock.Now())
	if err != nil {
		return Detection{}, false, err
	}
	d.lastDetection = det.Time
	return det, true, nil
}

// SetParameter writes value to the named parameter. Names outside the table
// are rejected before any I/O. On an OK status the whole table is re-read so
// the cache reflects any clamping done by the sensor.
func (d *Driver) SetParameter(name string, value int) (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.params.lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrParameterNotFound, name)
	}
	if !p.Settable() {
		return 0, fmt.Errorf("%w: %q", ErrReadOnlyParameter, name)
	}
	if d.state != StateReady {
		return 0, ErrNotInitialized
	}
	if value < math.MinInt32 || value > math.MaxInt32 {
		return 0, &FramingError{Op: "encode", Msg: fmt.Sprintf("value %d for %s does not fit in 32 bits", value, name)}
	}

	frame, err := EncodeValueCommand(p.Code, int32(value), value < 0)
	if err != nil {
		return 0, err
	}
	monitoring.Logf("kld7 set %s (%s) = %d", name, p.Code, value)
	return d.commandAndResync(p.Code, frame)
}

// SetParameterLabel writes the wire value mapped to label.
func (d *Driver) SetParameterLabel(name, label string) (Status, error) {
	p, ok := d.Parameter(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrParameterNotFound, name)
	}
	v, ok := p.Lookup(label)
	if !ok {
		return 0, fmt.Errorf("%w: %q for %s", ErrUnknownLabel, label, name)
	}
	return d.SetParameter(name, v)
}

// RestoreFactorySettings sends RFSE, the only value-less settable command.
func (d *Driver) RestoreFactorySettings() (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateReady {
		return 0, ErrNotInitialized
	}
	frame, err := EncodeCommand(CmdFactory, nil)
	if err != nil {
		return 0, err
	}
	monitoring.Logf("kld7 restoring factory settings")
	return d.commandAndResync(CmdFactory, frame)
}

// commandAndResync sends frame and re-reads the table on OK. d.mu must be held.
func (d *Driver) commandAndResync(code string, frame []byte) (Status, error) {
	status, err := d.exchange(code, frame)
	if err != nil {
		return 0, err
	}
	if status != StatusOK {
		monitoring.Logf("kld7 [%s] error: %v", code, status)
		return status, nil
	}
	if _, err := d.readParameters(); err != nil {
		return status, fmt.Errorf("resync after %s: %w", code, err)
	}
	return status, nil
}

// Disconnect sends GBYE and closes the port, whatever the sensor answers.
// It is a no-op unless the driver is ready.
func (d *Driver) Disconnect() (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateReady {
		return StatusOK, nil
	}

	monitoring.Logf("kld7 shutting down, sending BYE")
	var status Status
	frame, err := EncodeCommand(CmdGoodbye, nil)
	if err == nil {
		status, err = d.exchange(CmdGoodbye, frame)
	}
	if err == nil {
		if status == StatusOK {
			monitoring.Logf("kld7 acknowledged BYE")
		} else {
			monitoring.Logf("kld7 error during disconnect: %v", status)
		}
	}

	monitoring.Logf("kld7 closing %s", d.device)
	if cerr := d.port.Close(); cerr != nil && err == nil {
		err = &TransportError{Op: "close", Err: cerr}
	}
	d.port = nil
	d.state = StateDisconnected
	return status, err
}

// exchange writes frame and reads the status response. d.mu must be held.
func (d *Driver) exchange(code string, frame []byte) (Status, error) {
	n, err := d.port.Write(frame)
	if err != nil {
		return 0, &TransportError{Op: "write " + code, Err: err}
	}
	if n != len(frame) {
		return 0, &TransportError{Op: "write " + code, Err: io.ErrShortWrite}
	}
	resp, err := d.readExact("read "+code+" status", statusLen)
	if err != nil {
		return 0, err
	}
	return DecodeStatus(resp)
}

// readExact reads exactly n bytes. A zero length read without an error is the
// serial library's read timeout and is reported as ErrReadTimeout.
func (d *Driver) readExact(op string, n int) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	for got < n {
		m, err := d.port.Read(buf[got:])
		got += m
		if got == n {
			break
		}
		if err != nil {
			return nil, &TransportError{Op: op, Err: err}
		}
		if m == 0 {
			return nil, &TransportError{Op: op, Err: ErrReadTimeout}
		}
	}
	return buf, nil
}

// State returns the current connection state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Device returns the path passed to the last Connect.
func (d *Driver) Device() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.device
}

// Parameters returns a copy of the cached table in wire order.
func (d *Driver) Parameters() []Parameter {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.params.snapshot()
}

// Parameter returns a copy of one cached parameter.
func (d *Driver) Parameter(name string) (Parameter, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.params.lookup(name)
	if ok {
		p.Options = append([]Option(nil), p.Options...)
	}
	return p, ok
}

// InitTime returns when the handshake completed, or the zero time.
func (d *Driver) InitTime() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initTime
}

// LastDetectionTime returns when the last target was decoded.
func (d *Driver) LastDetectionTime() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastDetection
}
