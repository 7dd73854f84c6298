package gos2pcore

import (
	"encoding/json"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type FrequencyUnit int

const (
	GHz FrequencyUnit = iota
	MHz
	KHz
	Hz
)

// Scale returns the factor that converts a value in u to Hz.
func (u FrequencyUnit) Scale() float64 {
	switch u {
	case MHz:
		return 1e6
	case KHz:
		return 1e3
	case Hz:
		return 1
	default:
		return 1e9
	}
}

func (u FrequencyUnit) String() string {
	switch u {
	case MHz:
		return "MHz"
	case KHz:
		return "KHz"
	case Hz:
		return "Hz"
	default:
		return "GHz"
	}
}

func (u FrequencyUnit) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

type ParameterType int

const (
	S ParameterType = iota
	Y
	Z
	H
	G
)

func (p ParameterType) String() string {
	switch p {
	case Y:
		return "Y"
	case Z:
		return "Z"
	case H:
		return "H"
	case G:
		return "G"
	default:
		return "S"
	}
}

func (p ParameterType) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

type DataFormat int

const (
	MagnitudeAngle DataFormat = iota
	RealImaginary
	DecibelAngle
)

func (f DataFormat) String() string {
	switch f {
	case RealImaginary:
		return "RI"
	case DecibelAngle:
		return "DB"
	default:
		return "MA"
	}
}

func (f DataFormat) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// Position indexes the four parameter slots in file column order.
type Position int

const (
	P11 Position = iota
	P21
	P12
	P22
)

// Positions lists all slots in column order.
var Positions = [4]Position{P11, P21, P12, P22}

func (p Position) String() string {
	switch p {
	case P21:
		return "p21"
	case P12:
		return "p12"
	case P22:
		return "p22"
	default:
		return "p11"
	}
}

// Warnings counts anomalies absorbed during a decode.
type Warnings struct {
	RecoveredTokens  int `json:"recovered_tokens"`
	SkippedRows      int `json:"skipped_rows"`
	PaddedRows       int `json:"padded_rows"`
	ExtraOptionLines int `json:"extra_option_lines"`
}

// Any reports whether any anomaly was recorded.
func (w Warnings) Any() bool {
	return w.RecoveredTokens+w.SkippedRows+w.PaddedRows+w.ExtraOptionLines > 0
}

// Data is a decoded two-port Touchstone file. It is immutable once returned
// by a Decode function; accessors hand out copies.
type Data struct {
	unit          FrequencyUnit
	parameterType ParameterType
	format        DataFormat
	impedance     int
	hasImpedance  bool

	frequency []float64
	params    [4][]complex128
	warnings  Warnings
}

func (d *Data) FrequencyUnit() FrequencyUnit { return d.unit }
func (d *Data) ParameterType() ParameterType { return d.parameterType }
func (d *Data) DataFormat() DataFormat       { return d.format }
func (d *Data) Warnings() Warnings           { return d.warnings }

// ReferenceImpedance returns the R value of the option line and whether one
// was present.
func (d *Data) ReferenceImpedance() (int, bool) {
	return d.impedance, d.hasImpedance
}

// PointCount is the number of decoded data rows.
func (d *Data) PointCount() int { return len(d.frequency) }

// Frequency returns the point frequencies in Hz, in file order.
func (d *Data) Frequency() []float64 {
	out := make([]float64, len(d.frequency))
	copy(out, d.frequency)
	return out
}

// Parameter returns the complex values of one slot, in file order.
func (d *Data) Parameter(p Position) []complex128 {
	if p < P11 || p > P22 {
		return nil
	}
	out := make([]complex128, len(d.params[p]))
	copy(out, d.params[p])
	return out
}

func (d *Data) S11() []complex128 { return d.Parameter(P11) }
func (d *Data) S21() []complex128 { return d.Parameter(P21) }
func (d *Data) S12() []complex128 { return d.Parameter(P12) }
func (d *Data) S22() []complex128 { return d.Parameter(P22) }

// At returns the frequency and the four slot values of point i.
func (d *Data) At(i int) (float64, [4]complex128) {
	var v [4]complex128
	for _, p := range Positions {
		v[p] = d.params[p][i]
	}
	return d.frequency[i], v
}

// Matrix returns point i as a 2x2 network matrix [[p11 p12] [p21 p22]].
func (d *Data) Matrix(i int) *mat.CDense {
	return mat.NewCDense(2, 2, []complex128{
		d.params[P11][i], d.params[P12][i],
		d.params[P21][i], d.params[P22][i],
	})
}

// FrequencySpan returns the lowest and highest frequency in Hz. ok is false
// for a file without data rows.
func (d *Data) FrequencySpan() (lo, hi float64, ok bool) {
	if len(d.frequency) == 0 {
		return 0, 0, false
	}
	return floats.Min(d.frequency), floats.Max(d.frequency), true
}
