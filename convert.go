package gos2pcore

import "math"

// toComplex turns one (a, b) column pair into a real/imaginary value
// according to the file's data format.
func toComplex(format DataFormat, a, b float64) complex128 {
	switch format {
	case RealImaginary:
		return complex(a, b)
	case DecibelAngle:
		return polar(math.Pow(10, a/20), b)
	default:
		return polar(a, b)
	}
}

// polar converts a linear magnitude and an angle in degrees.
func polar(magnitude, degrees float64) complex128 {
	rad := degrees * math.Pi / 180
	return complex(magnitude*math.Cos(rad), magnitude*math.Sin(rad))
}
