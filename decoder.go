package gos2pcore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// dataColumns is the token count of a two-port data row: frequency followed
// by four value pairs.
const dataColumns = 9

// maxLineBytes caps a single line; longer lines fail the decode.
const maxLineBytes = 1024 * 1024

const utf8BOM = "\ufeff"

// RowPolicy decides what happens to a data row whose token count is not 9.
type RowPolicy int

const (
	RowPolicyFail RowPolicy = iota
	RowPolicySkip
	RowPolicyPad
)

func (p RowPolicy) String() string {
	switch p {
	case RowPolicySkip:
		return "skip"
	case RowPolicyPad:
		return "pad"
	default:
		return "fail"
	}
}

// ParseRowPolicy accepts "fail", "skip" or "pad" (case-insensitive). An
// empty string selects RowPolicyFail.
func ParseRowPolicy(s string) (RowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail":
		return RowPolicyFail, nil
	case "skip":
		return RowPolicySkip, nil
	case "pad":
		return RowPolicyPad, nil
	}
	return RowPolicyFail, fmt.Errorf("unknown row policy %q", s)
}

type decodeOptions struct {
	rowPolicy RowPolicy
	logger    zerolog.Logger
}

// Option configures a decode.
type Option func(*decodeOptions)

func WithRowPolicy(p RowPolicy) Option {
	return func(o *decodeOptions) { o.rowPolicy = p }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *decodeOptions) { o.logger = l }
}

func newDecodeOptions(opts []Option) decodeOptions {
	o := decodeOptions{rowPolicy: RowPolicyFail, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DecodeFile opens path and decodes it. The file is closed on every return.
func DecodeFile(path string, opts ...Option) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, inputError(path, "open failed", err)
	}
	defer f.Close()

	d, err := Decode(f, opts...)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.Path = path
		}
		return nil, err
	}
	return d, nil
}

// DecodeString decodes the full text of a Touchstone file.
func DecodeString(s string, opts ...Option) (*Data, error) {
	return Decode(strings.NewReader(s), opts...)
}

// Decode reads r to the end and decodes it. A read error fails the decode
// with KindInputUnavailable, a line over maxLineBytes with
// KindMalformedContent; nothing partial is returned.
func Decode(r io.Reader, opts ...Option) (*Data, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, &DecodeError{
				Kind:    KindMalformedContent,
				Line:    len(lines) + 1,
				Message: fmt.Sprintf("line longer than %d bytes", maxLineBytes),
				Err:     err,
			}
		}
		return nil, inputError("", "read failed", err)
	}
	return DecodeLines(lines, opts...)
}

// DecodeLines decodes an already split file. A UTF-8 byte order mark at the
// start of the first line is dropped.
func DecodeLines(lines []string, opts ...Option) (*Data, error) {
	if len(lines) > 0 && strings.HasPrefix(lines[0], utf8BOM) {
		lines = append([]string{strings.TrimPrefix(lines[0], utf8BOM)}, lines[1:]...)
	}
	o := newDecodeOptions(opts)
	dec := &decoder{opts: o, log: o.logger}
	return dec.run(lines)
}

type decoder struct {
	opts     decodeOptions
	log      zerolog.Logger
	header   optionLine
	warnings Warnings
}

func (dec *decoder) run(lines []string) (*Data, error) {
	dec.header = defaultOptions()
	headerLine := 0
	for i, line := range lines {
		if leading(line) == '#' {
			dec.header = parseOptionLine(line)
			headerLine = i + 1
			break
		}
	}

	scale := dec.header.unit.Scale()
	var (
		freq   []float64
		params [4][]complex128
	)

	for i, line := range lines {
		lineNum := i + 1
		switch leading(line) {
		case '!':
			continue
		case '#':
			if lineNum != headerLine {
				dec.warnings.ExtraOptionLines++
				dec.log.Debug().Int("line", lineNum).Msg("ignoring additional option line")
			}
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		tokens, ok, err := dec.rowTokens(lineNum, strings.Fields(line))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		var values [dataColumns]float64
		for col, tok := range tokens {
			values[col] = dec.number(lineNum, col, tok)
		}

		freq = append(freq, values[0]*scale)
		for _, p := range Positions {
			a, b := values[1+2*int(p)], values[2+2*int(p)]
			params[p] = append(params[p], toComplex(dec.header.format, a, b))
		}
	}

	dec.log.Debug().
		Int("points", len(freq)).
		Str("unit", dec.header.unit.String()).
		Str("parameter", dec.header.parameterType.String()).
		Str("format", dec.header.format.String()).
		Int("recovered_tokens", dec.warnings.RecoveredTokens).
		Msg("touchstone decode complete")

	return &Data{
		unit:          dec.header.unit,
		parameterType: dec.header.parameterType,
		format:        dec.header.format,
		impedance:     dec.header.impedance,
		hasImpedance:  dec.header.hasImpedance,
		frequency:     freq,
		params:        params,
		warnings:      dec.warnings,
	}, nil
}

// rowTokens applies the row policy to a tokenized data line. ok is false
// when the row is skipped.
func (dec *decoder) rowTokens(lineNum int, tokens []string) ([]string, bool, error) {
	if len(tokens) == dataColumns {
		return tokens, true, nil
	}

	switch dec.opts.rowPolicy {
	case RowPolicySkip:
		dec.warnings.SkippedRows++
		dec.log.Debug().Int("line", lineNum).Int("tokens", len(tokens)).Msg("skipping data row")
		return nil, false, nil
	case RowPolicyPad:
		dec.warnings.PaddedRows++
		dec.log.Debug().Int("line", lineNum).Int("tokens", len(tokens)).Msg("padding data row")
		padded := make([]string, dataColumns)
		copy(padded, tokens)
		for i := len(tokens); i < dataColumns; i++ {
			padded[i] = "0"
		}
		return padded, true, nil
	default:
		return nil, false, rowError(lineNum, fmt.Sprintf("expected %d values, got %d", dataColumns, len(tokens)))
	}
}

// number parses one token, recovering to zero on failure.
func (dec *decoder) number(lineNum, col int, tok string) float64 {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		dec.warnings.RecoveredTokens++
		dec.log.Debug().
			Int("line", lineNum).
			Int("column", col+1).
			Str("token", tok).
			Msg("malformed number decoded as zero")
		return 0
	}
	return v
}

func leading(line string) byte {
	if line == "" {
		return 0
	}
	return line[0]
}
