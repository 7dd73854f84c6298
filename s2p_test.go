package gos2pcore

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptionLine(t *testing.T) {
	tests := []struct {
		line   string
		unit   FrequencyUnit
		param  ParameterType
		format DataFormat
	}{
		{"# GHZ S MA R 50", GHz, S, MagnitudeAngle},
		{"# MHz Y RI", MHz, Y, RealImaginary},
		{"#   khz   z   db", KHz, Z, DecibelAngle},
		{"# Hz H RI R 50", Hz, H, RealImaginary},
		{"# GHZ G MA", GHz, G, MagnitudeAngle},
		{"# XHZ Q ZZ", GHz, S, MagnitudeAngle},
		{"#", GHz, S, MagnitudeAngle},
		{"# MHZ", MHz, S, MagnitudeAngle},
		{"#\tMHZ\tS\tDB", MHz, S, DecibelAngle},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := parseOptionLine(tt.line)
			assert.Equal(t, tt.unit, got.unit)
			assert.Equal(t, tt.param, got.parameterType)
			assert.Equal(t, tt.format, got.format)
		})
	}
}

func TestToComplex_MatchesFormulas(t *testing.T) {
	a, b := 0.7, 33.0
	rad := b * math.Pi / 180

	ma := toComplex(MagnitudeAngle, a, b)
	assert.Equal(t, a*math.Cos(rad), real(ma))
	assert.Equal(t, a*math.Sin(rad), imag(ma))

	db := toComplex(DecibelAngle, -3, b)
	lin := math.Pow(10, -3.0/20)
	assert.Equal(t, lin*math.Cos(rad), real(db))
	assert.Equal(t, lin*math.Sin(rad), imag(db))

	assert.Equal(t, complex(a, b), toComplex(RealImaginary, a, b))
}

func TestFrequencyUnit_Scale(t *testing.T) {
	assert.Equal(t, 1.0, Hz.Scale())
	assert.Equal(t, 1e3, KHz.Scale())
	assert.Equal(t, 1e6, MHz.Scale())
	assert.Equal(t, 1e9, GHz.Scale())
}

func TestData_AccessorsReturnCopies(t *testing.T) {
	d, err := DecodeString("# HZ S RI\n1 1 0 0 0 0 0 0 0\n")
	require.NoError(t, err)

	f := d.Frequency()
	f[0] = 42
	s := d.S11()
	s[0] = 42

	assert.Equal(t, 1.0, d.Frequency()[0])
	assert.Equal(t, complex(1, 0), d.S11()[0])
	assert.Nil(t, d.Parameter(Position(7)))
}

func TestData_MatrixAndAt(t *testing.T) {
	d, err := DecodeString("# HZ S RI\n5 1 1 2 2 3 3 4 4\n")
	require.NoError(t, err)

	m := d.Matrix(0)
	r, c := m.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, complex(1, 1), m.At(0, 0)) // p11
	assert.Equal(t, complex(3, 3), m.At(0, 1)) // p12
	assert.Equal(t, complex(2, 2), m.At(1, 0)) // p21
	assert.Equal(t, complex(4, 4), m.At(1, 1)) // p22

	freq, v := d.At(0)
	assert.Equal(t, 5.0, freq)
	assert.Equal(t, [4]complex128{complex(1, 1), complex(2, 2), complex(3, 3), complex(4, 4)}, v)
}

func TestData_FrequencySpan(t *testing.T) {
	d, err := DecodeString("# MHZ S RI\n3 0 0 0 0 0 0 0 0\n1 0 0 0 0 0 0 0 0\n2 0 0 0 0 0 0 0 0\n")
	require.NoError(t, err)

	lo, hi, ok := d.FrequencySpan()
	require.True(t, ok)
	assert.Equal(t, 1e6, lo)
	assert.Equal(t, 3e6, hi)
}

func TestEnums_JSON(t *testing.T) {
	out, err := json.Marshal(struct {
		U FrequencyUnit
		P ParameterType
		F DataFormat
	}{KHz, H, DecibelAngle})
	require.NoError(t, err)
	assert.JSONEq(t, `{"U":"KHz","P":"H","F":"DB"}`, string(out))
}

func TestDecodeFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.s2p")
	require.NoError(t, os.WriteFile(good, []byte("# HZ S RI\n1 0 0 0 0 0 0 0 0\n"), 0o644))

	paths := []string{
		filepath.Join("testdata", "amplifier_ri.s2p"),
		filepath.Join(dir, "missing.s2p"),
		good,
		filepath.Join("testdata", "filter_db.s2p"),
	}

	results := DecodeFiles(paths, 3)
	require.Len(t, results, len(paths))

	for i, r := range results {
		assert.Equal(t, paths[i], r.Path)
	}
	require.NoError(t, results[0].Err)
	assert.Equal(t, 3, results[0].Data.PointCount())
	assert.ErrorIs(t, results[1].Err, ErrInputUnavailable)
	assert.Nil(t, results[1].Data)
	assert.Equal(t, 1, results[2].Data.PointCount())
	assert.Equal(t, 2, results[3].Data.PointCount())
}

func TestDecodeFiles_Empty(t *testing.T) {
	assert.Empty(t, DecodeFiles(nil, 4))
}
