package kld7

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/banshee-data/speed.report/internal/serialmux"
)

// SimulatorVersion is the software version string reported by Simulator.
const SimulatorVersion = "K-LD7-SIM 1.0"

// TargetFunc produces the target for one GNFD poll.
type TargetFunc func() (distanceCM uint16, speedKPH float64, angleDeg float64, magnitude uint16, ok bool)

// Simulator is an in-process K-LD7. It implements serialmux.SerialPorter and
// answers each complete command frame written to it, so the real driver can
// run in development mode and in tests without hardware.
type Simulator struct {
	mu      sync.Mutex
	pending []byte
	out     bytes.Buffer
	values  map[string]int
	mode    serialmux.SerialPortMode
	closed  bool

	// Targets is consulted on every GNFD. Nil reports no target.
	Targets TargetFunc
	// Override forces the status returned for a command code.
	Override map[string]Status
	// Commands records every command code received.
	Commands []string
}

// NewSimulator returns a simulator with the sensor's factory defaults.
func NewSimulator() *Simulator {
	return &Simulator{
		values:   FactoryDefaults(),
		mode:     *serialmux.DefaultSerialPortMode(),
		Override: map[string]Status{},
	}
}

// FactoryDefaults returns the parameter values restored by RFSE.
func FactoryDefaults() map[string]int {
	return map[string]int{
		ParamBaseFrequency:             0,
		ParamMaximumSpeed:              1,
		ParamMaximumRange:              1,
		ParamThresholdOffset:           30,
		ParamTrackingFilterType:        0,
		ParamVibrationSuppression:      2,
		ParamMinimumDetectionDistance:  0,
		ParamMaximumDetectionDistance:  50,
		ParamMinimumDetectionAngle:     -90,
		ParamMaximumDetectionAngle:     90,
		ParamMinimumDetectionSpeed:     0,
		ParamMaximumDetectionSpeed:     100,
		ParamDetectionDirection:        2,
		ParamRangeThreshold:            10,
		ParamAngleThreshold:            0,
		ParamSpeedThreshold:            50,
		ParamDigitalOutput1:            0,
		ParamDigitalOutput2:            1,
		ParamDigitalOutput3:            4,
		ParamHoldTime:                  1,
		ParamMicroDetectionRetrigger:   0,
		ParamMicroDetectionSensitivity: 4,
	}
}

// Value returns the simulated sensor's current value for name.
func (s *Simulator) Value(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[name]
}

// Mode returns the line settings last applied to the simulated port.
func (s *Simulator) Mode() serialmux.SerialPortMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Write consumes command frames and queues the sensor's responses.
func (s *Simulator) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, serialmux.ErrPortClosed
	}
	s.pending = append(s.pending, p...)
	for len(s.pending) >= frameLen {
		code, n, err := DecodeHeaderLength(s.pending[:frameLen])
		if err != nil {
			return 0, err
		}
		if len(s.pending) < frameLen+int(n) {
			break
		}
		payload := s.pending[frameLen : frameLen+int(n)]
		s.handle(code, payload)
		s.pending = s.pending[frameLen+int(n):]
	}
	return len(p), nil
}

// Read drains queued responses. An empty queue reads zero bytes, which the
// driver treats as a read timeout.
func (s *Simulator) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, serialmux.ErrPortClosed
	}
	if s.out.Len() == 0 {
		return 0, nil
	}
	return s.out.Read(p)
}

// Close closes the simulated port.
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// SetMode records the requested line settings.
func (s *Simulator) SetMode(mode *serialmux.SerialPortMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = *mode
	return nil
}

// Open lets a Simulator stand in for a port factory.
func (s *Simulator) Open(_ string, mode *serialmux.SerialPortMode) (serialmux.SerialPorter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = false
	s.pending = nil
	s.out.Reset()
	if mode != nil {
		s.mode = *mode
	}
	return s, nil
}

func (s *Simulator) handle(code string, payload []byte) {
	s.Commands = append(s.Commands, code)
	if st, ok := s.Override[code]; ok && st != StatusOK {
		s.writeStatus(st)
		return
	}

	switch code {
	case CmdInit:
		s.writeStatus(StatusOK)
	case CmdParameters:
		s.writeStatus(StatusOK)
		s.writeFrame("RPST", EncodeParameters(SimulatorVersion, s.values))
	case CmdNextFrame:
		s.writeStatus(StatusOK)
		s.writeTarget()
	case CmdGoodbye:
		s.writeStatus(StatusOK)
	case CmdFactory:
		s.values = FactoryDefaults()
		s.writeStatus(StatusOK)
	default:
		s.writeStatus(s.set(code, payload))
	}
}

func (s *Simulator) set(code string, payload []byte) Status {
	if len(payload) != 4 {
		return StatusInvalidParameterValue
	}
	raw := int32(binary.LittleEndian.Uint32(payload))
	for _, p := range defaultParameters() {
		if p.Code != code {
			continue
		}
		v := int(raw)
		if p.Kind == Enumerated {
			known := false
			for _, o := range p.Options {
				if o.Value == v {
					known = true
					break
				}
			}
			if !known {
				return StatusInvalidParameterValue
			}
		}
		s.values[p.Name] = v
		return StatusOK
	}
	return StatusUnknownCommand
}

func (s *Simulator) writeStatus(st Status) {
	s.out.WriteString("RESP")
	_ = binary.Write(&s.out, binary.LittleEndian, uint32(1))
	s.out.WriteByte(byte(st))
}

func (s *Simulator) writeFrame(code string, payload []byte) {
	frame, _ := EncodeCommand(code, payload)
	s.out.Write(frame)
}

func (s *Simulator) writeTarget() {
	if s.Targets == nil {
		s.writeFrame("TDAT", nil)
		return
	}
	dist, speed, angle, mag, ok := s.Targets()
	if !ok {
		s.writeFrame("TDAT", nil)
		return
	}
	buf := make([]byte, readingLen)
	binary.LittleEndian.PutUint16(buf[0:], dist)
	binary.LittleEndian.PutUint16(buf[2:], uint16(int16(math.Round(speed*100))))
	binary.LittleEndian.PutUint16(buf[4:], uint16(int16(math.Round(angle*100))))
	binary.LittleEndian.PutUint16(buf[6:], mag)
	s.writeFrame("TDAT", buf)
}

// TrafficTargets returns a TargetFunc that emits a passing vehicle every few
// seconds, each tracked for about a second at a random speed.
func TrafficTargets(seed int64) TargetFunc {
	rng := rand.New(rand.NewSource(seed))
	var (
		remaining int
		speed     float64
		dist      float64
	)
	return func() (uint16, float64, float64, uint16, bool) {
		if remaining == 0 {
			if rng.Intn(100) != 0 {
				return 0, 0, 0, 0, false
			}
			remaining = 20 + rng.Intn(20)
			speed = 15 + rng.Float64()*45
			if rng.Intn(4) == 0 {
				speed = -speed
			}
			dist = 3000
		}
		remaining--
		dist -= math.Abs(speed) / 3.6 * 100 * (33 * time.Millisecond).Seconds()
		if dist < 100 {
			dist = 100
		}
		angle := (rng.Float64() - 0.5) * 30
		return uint16(dist), speed, angle, uint16(2000 + rng.Intn(3000)), true
	}
}
