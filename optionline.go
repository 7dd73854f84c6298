package gos2pcore

import (
	"strconv"
	"strings"
)

// optionLine holds the settings declared by the "#" header.
type optionLine struct {
	unit          FrequencyUnit
	parameterType ParameterType
	format        DataFormat
	impedance     int
	hasImpedance  bool
}

var (
	unitTokens = map[string]FrequencyUnit{
		"GHZ": GHz,
		"MHZ": MHz,
		"KHZ": KHz,
		"HZ":  Hz,
	}
	parameterTokens = map[string]ParameterType{
		"S": S,
		"Y": Y,
		"Z": Z,
		"H": H,
		"G": G,
	}
	formatTokens = map[string]DataFormat{
		"RI": RealImaginary,
		"MA": MagnitudeAngle,
		"DB": DecibelAngle,
	}
)

// defaultOptions is what a file without an option line decodes with.
func defaultOptions() optionLine {
	return optionLine{unit: GHz, parameterType: S, format: MagnitudeAngle}
}

// parseOptionLine reads the positional tokens of a "#" line. Missing or
// unrecognized tokens keep their defaults.
func parseOptionLine(line string) optionLine {
	opts := defaultOptions()
	tokens := strings.Fields(line)

	if len(tokens) > 1 {
		if u, ok := unitTokens[strings.ToUpper(tokens[1])]; ok {
			opts.unit = u
		}
	}
	if len(tokens) > 2 {
		if p, ok := parameterTokens[strings.ToUpper(tokens[2])]; ok {
			opts.parameterType = p
		}
	}
	if len(tokens) > 3 {
		if f, ok := formatTokens[strings.ToUpper(tokens[3])]; ok {
			opts.format = f
		}
	}
	if len(tokens) > 5 && strings.EqualFold(tokens[4], "R") {
		if r, err := strconv.Atoi(tokens[5]); err == nil {
			opts.impedance = r
			opts.hasImpedance = true
		}
	}
	return opts
}
