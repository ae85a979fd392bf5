package kld7

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
)

// Kind tells how a parameter may be written.
type Kind int

const (
	// ReadOnly parameters have no wire command.
	ReadOnly Kind = iota
	// RawOnly parameters accept any integer; there is no label mapping.
	RawOnly
	// Enumerated parameters carry a label to wire value mapping.
	Enumerated
)

func (k Kind) String() string {
	switch k {
	case ReadOnly:
		return "read_only"
	case RawOnly:
		return "raw"
	case Enumerated:
		return "enumerated"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// MarshalText renders the kind in JSON.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	for _, c := range []Kind{ReadOnly, RawOnly, Enumerated} {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("kld7: unknown parameter kind %q", b)
}

// Option is one label of an enumerated parameter.
type Option struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

type fieldType int

const (
	fieldString fieldType = iota
	fieldUint8
	fieldInt8
	fieldUint16
)

const versionLen = 19

func (f fieldType) size() int {
	switch f {
	case fieldString:
		return versionLen
	case fieldUint16:
		return 2
	default:
		return 1
	}
}

// Parameter is one entry of the sensor's GRPS structure together with the
// last value read from the sensor.
type Parameter struct {
	Name    string   `json:"name"`
	Code    string   `json:"code,omitempty"`
	Kind    Kind     `json:"kind"`
	Options []Option `json:"options,omitempty"`

	// Read is false until the first successful parameter dump.
	Read  bool   `json:"read"`
	Value int    `json:"value"`
	Text  string `json:"text,omitempty"`

	field fieldType
}

// Settable reports whether the parameter has a wire command.
func (p Parameter) Settable() bool { return p.Kind != ReadOnly }

// Signed reports whether the wire field is signed.
func (p Parameter) Signed() bool { return p.field == fieldInt8 }

// Lookup returns the wire value for label.
func (p Parameter) Lookup(label string) (int, bool) {
	for _, o := range p.Options {
		if o.Label == label {
			return o.Value, true
		}
	}
	return 0, false
}

// Label returns the label matching the cached value, if any.
func (p Parameter) Label() (string, bool) {
	if !p.Read {
		return "", false
	}
	for _, o := range p.Options {
		if o.Value == p.Value {
			return o.Label, true
		}
	}
	return "", false
}

func options(pairs ...any) []Option {
	out := make([]Option, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Option{Label: pairs[i].(string), Value: pairs[i+1].(int)})
	}
	return out
}

func stepOptions(from, to, step int, suffix string) []Option {
	var out []Option
	for v := from; v <= to; v += step {
		out = append(out, Option{Label: strconv.Itoa(v) + suffix, Value: v})
	}
	return out
}

func angleOptions() []Option {
	var out []Option
	for _, v := range []int{-90, -60, -45, -30, -15, 0, 15, 30, 45, 60, 90} {
		out = append(out, Option{Label: strconv.Itoa(v), Value: v})
	}
	return out
}

// Parameter names in GRPS wire order.
const (
	ParamSoftwareVersion           = "software_version"
	ParamBaseFrequency             = "base_frequency"
	ParamMaximumSpeed              = "maximum_speed"
	ParamMaximumRange              = "maximum_range"
	ParamThresholdOffset           = "threshold_offset"
	ParamTrackingFilterType        = "tracking_filter_type"
	ParamVibrationSuppression      = "vibration_suppression"
	ParamMinimumDetectionDistance  = "minimum_detection_distance"
	ParamMaximumDetectionDistance  = "maximum_detection_distance"
	ParamMinimumDetectionAngle     = "minimum_detection_angle"
	ParamMaximumDetectionAngle     = "maximum_detection_angle"
	ParamMinimumDetectionSpeed     = "minimum_detection_speed"
	ParamMaximumDetectionSpeed     = "maximum_detection_speed"
	ParamDetectionDirection        = "detection_direction"
	ParamRangeThreshold            = "range_threshold"
	ParamAngleThreshold            = "angle_threshold"
	ParamSpeedThreshold            = "speed_threshold"
	ParamDigitalOutput1            = "digital_output_1"
	ParamDigitalOutput2            = "digital_output_2"
	ParamDigitalOutput3            = "digital_output_3"
	ParamHoldTime                  = "hold_time"
	ParamMicroDetectionRetrigger   = "micro_detection_retrigger"
	ParamMicroDetectionSensitivity = "micro_detection_sensitivity"
)

func defaultParameters() []Parameter {
	percent := stepOptions(0, 100, 10, "")
	return []Parameter{
		{Name: ParamSoftwareVersion, Kind: ReadOnly, field: fieldString},
		{Name: ParamBaseFrequency, Code: "RBFR", Kind: Enumerated, field: fieldUint8,
			Options: options("Low", 0, "Middle", 1, "High", 2)},
		{Name: ParamMaximumSpeed, Code: "RSPI", Kind: Enumerated, field: fieldUint8,
			Options: options("12.5km/h", 0, "25km/h", 1, "50km/h", 2, "100km/h", 3)},
		{Name: ParamMaximumRange, Code: "RRAI", Kind: Enumerated, field: fieldUint8,
			Options: options("5m", 0, "10m", 1, "30m", 2, "100m", 3)},
		{Name: ParamThresholdOffset, Code: "THOF", Kind: Enumerated, field: fieldUint8,
			Options: stepOptions(10, 60, 10, "dB")},
		{Name: ParamTrackingFilterType, Code: "TRFT", Kind: Enumerated, field: fieldUint8,
			Options: options("Standard", 0, "Fast", 1, "Long", 2)},
		{Name: ParamVibrationSuppression, Code: "VISU", Kind: Enumerated, field: fieldUint8,
			Options: options("None", 0, "Low", 2, "Low-Med", 4, "Medium", 8, "Medium-High", 10, "High", 12, "Max", 16)},
		{Name: ParamMinimumDetectionDistance, Code: "MIRA", Kind: Enumerated, field: fieldUint8, Options: percent},
		{Name: ParamMaximumDetectionDistance, Code: "MARA", Kind: Enumerated, field: fieldUint8, Options: percent},
		{Name: ParamMinimumDetectionAngle, Code: "MIAN", Kind: Enumerated, field: fieldInt8, Options: angleOptions()},
		{Name: ParamMaximumDetectionAngle, Code: "MAAN", Kind: Enumerated, field: fieldInt8, Options: angleOptions()},
		{Name: ParamMinimumDetectionSpeed, Code: "MISP", Kind: Enumerated, field: fieldUint8, Options: percent},
		{Name: ParamMaximumDetectionSpeed, Code: "MASP", Kind: Enumerated, field: fieldUint8, Options: percent},
		{Name: ParamDetectionDirection, Code: "DEDI", Kind: Enumerated, field: fieldUint8,
			Options: options("Approaching", 0, "Receding", 1, "Both", 2)},
		{Name: ParamRangeThreshold, Code: "RATH", Kind: Enumerated, field: fieldUint8, Options: percent},
		{Name: ParamAngleThreshold, Code: "ANTH", Kind: Enumerated, field: fieldInt8, Options: angleOptions()},
		{Name: ParamSpeedThreshold, Code: "SPTH", Kind: Enumerated, field: fieldUint8, Options: percent},
		{Name: ParamDigitalOutput1, Code: "DIG1", Kind: Enumerated, field: fieldUint8,
			Options: options("Direction", 0, "Angle", 1, "Range", 2, "Speed", 3, "Micro detection", 4, "Not Valid", 5)},
		{Name: ParamDigitalOutput2, Code: "DIG2", Kind: RawOnly, field: fieldUint8},
		{Name: ParamDigitalOutput3, Code: "DIG3", Kind: RawOnly, field: fieldUint8},
		{Name: ParamHoldTime, Code: "HOLD", Kind: RawOnly, field: fieldUint16},
		{Name: ParamMicroDetectionRetrigger, Code: "MIDE", Kind: RawOnly, field: fieldUint8},
		{Name: ParamMicroDetectionSensitivity, Code: "MIDS", Kind: RawOnly, field: fieldUint8},
	}
}

// ParameterPayloadLen is the size of the GRPS payload.
var ParameterPayloadLen = func() int {
	n := 0
	for _, p := range defaultParameters() {
		n += p.field.size()
	}
	return n
}()

// parameterTable caches the sensor's parameter values. It is not safe for
// concurrent use; the driver's mutex guards it.
type parameterTable struct {
	params []Parameter
	index  map[string]int
}

func newParameterTable() *parameterTable {
	params := defaultParameters()
	index := make(map[string]int, len(params))
	for i, p := range params {
		index[p.Name] = i
	}
	return &parameterTable{params: params, index: index}
}

func (t *parameterTable) lookup(name string) (Parameter, bool) {
	i, ok := t.index[name]
	if !ok {
		return Parameter{}, false
	}
	return t.params[i], true
}

// decode fills every cached value from a GRPS payload. The table is left
// untouched when the payload has the wrong size.
func (t *parameterTable) decode(buf []byte) error {
	if len(buf) != ParameterPayloadLen {
		return &FramingError{Op: "decode parameters", Want: ParameterPayloadLen, Got: len(buf)}
	}
	off := 0
	for i := range t.params {
		p := &t.params[i]
		switch p.field {
		case fieldString:
			raw := buf[off : off+versionLen]
			if n := bytes.IndexByte(raw, 0); n >= 0 {
				raw = raw[:n]
			}
			p.Text = string(raw)
		case fieldUint8:
			p.Value = int(buf[off])
		case fieldInt8:
			p.Value = int(int8(buf[off]))
		case fieldUint16:
			p.Value = int(binary.LittleEndian.Uint16(buf[off:]))
		default:
			return fmt.Errorf("kld7: parameter %s has unknown field type %d", p.Name, p.field)
		}
		p.Read = true
		off += p.field.size()
	}
	return nil
}

func (t *parameterTable) snapshot() []Parameter {
	out := make([]Parameter, len(t.params))
	for i, p := range t.params {
		p.Options = append([]Option(nil), p.Options...)
		out[i] = p
	}
	return out
}

// EncodeParameters builds a GRPS payload from name to value pairs. Missing
// names encode as zero. It is the inverse of the driver's decoder and is used
// by the simulator and tests.
func EncodeParameters(version string, values map[string]int) []byte {
	buf := make([]byte, ParameterPayloadLen)
	off := 0
	for _, p := range defaultParameters() {
		v := values[p.Name]
		switch p.field {
		case fieldString:
			copy(buf[off:off+versionLen-1], version)
		case fieldUint8:
			buf[off] = uint8(v)
		case fieldInt8:
			buf[off] = uint8(int8(v))
		case fieldUint16:
			binary.LittleEndian.PutUint16(buf[off:], uint16(v))
		}
		off += p.field.size()
	}
	return buf
}

// ParameterNames returns the table's names in wire order.
func ParameterNames() []string {
	params := defaultParameters()
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return names
}
