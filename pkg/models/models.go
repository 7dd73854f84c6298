package models

import (
	"math"
	"time"

	"github.com/kacperjurak/gos2pcore"
)

// ComplexValue is the JSON form of a complex network parameter
type ComplexValue struct {
	Re float64 `json:"re"`
	Im float64 `json:"im"`
}

// Point is one frequency row of a decoded file
type Point struct {
	Frequency float64      `json:"frequency" doc:"Frequency in Hz"`
	P11       ComplexValue `json:"p11"`
	P21       ComplexValue `json:"p21"`
	P12       ComplexValue `json:"p12"`
	P22       ComplexValue `json:"p22"`
}

// DecodedFile is the JSON view of a decoded .s2p file
type DecodedFile struct {
	Name               string             `json:"name,omitempty" doc:"Source file name or object key"`
	FrequencyUnit      string             `json:"frequency_unit" enum:"Hz,KHz,MHz,GHz" doc:"Unit declared by the option line"`
	ParameterType      string             `json:"parameter_type" enum:"S,Y,Z,H,G"`
	DataFormat         string             `json:"data_format" enum:"MA,RI,DB"`
	ReferenceImpedance *int               `json:"reference_impedance,omitempty" doc:"Reference impedance in ohms, when declared"`
	PointCount         int                `json:"point_count"`
	FrequencyMin       float64            `json:"frequency_min"`
	FrequencyMax       float64            `json:"frequency_max"`
	Warnings           gos2pcore.Warnings `json:"warnings"`
	Points             []Point            `json:"points"`
}

// NewDecodedFile builds the JSON view of d. Non-finite numbers are written
// as zero since JSON cannot carry them.
func NewDecodedFile(name string, d *gos2pcore.Data) *DecodedFile {
	out := &DecodedFile{
		Name:          name,
		FrequencyUnit: d.FrequencyUnit().String(),
		ParameterType: d.ParameterType().String(),
		DataFormat:    d.DataFormat().String(),
		PointCount:    d.PointCount(),
		Warnings:      d.Warnings(),
		Points:        make([]Point, 0, d.PointCount()),
	}
	if z, ok := d.ReferenceImpedance(); ok {
		out.ReferenceImpedance = &z
	}
	if lo, hi, ok := d.FrequencySpan(); ok {
		out.FrequencyMin = sanitizeFloat(lo)
		out.FrequencyMax = sanitizeFloat(hi)
	}

	for i := 0; i < d.PointCount(); i++ {
		freq, v := d.At(i)
		out.Points = append(out.Points, Point{
			Frequency: sanitizeFloat(freq),
			P11:       toValue(v[gos2pcore.P11]),
			P21:       toValue(v[gos2pcore.P21]),
			P12:       toValue(v[gos2pcore.P12]),
			P22:       toValue(v[gos2pcore.P22]),
		})
	}
	return out
}

func toValue(c complex128) ComplexValue {
	return ComplexValue{Re: sanitizeFloat(real(c)), Im: sanitizeFloat(imag(c))}
}

func sanitizeFloat(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Body struct {
		Status  string    `json:"status" example:"healthy" doc:"Service health status"`
		Version string    `json:"version" example:"1.0.0" doc:"API version"`
		Time    time.Time `json:"time" doc:"Current server time"`
	}
}

// DecodeRequestBody carries one file's text
type DecodeRequestBody struct {
	Name    string `json:"name,omitempty" maxLength:"255" doc:"File name used in errors"`
	Content string `json:"content" required:"true" doc:"Raw .s2p file text"`
}

// DecodeRequest represents a request to decode one file
type DecodeRequest struct {
	Body DecodeRequestBody
}

// DecodeResponse returns the decoded file
type DecodeResponse struct {
	Body *DecodedFile
}

// BatchRequestBody lists the files of a batch
type BatchRequestBody struct {
	BatchID string              `json:"batch_id,omitempty" doc:"Client batch identifier, generated when empty"`
	Files   []DecodeRequestBody `json:"files" minItems:"1" maxItems:"500" required:"true"`
}

// BatchRequest represents a request to decode several files
type BatchRequest struct {
	Body BatchRequestBody
}

// BatchFileResult is the outcome for one file in a batch
type BatchFileResult struct {
	Index int          `json:"index"`
	Name  string       `json:"name,omitempty"`
	File  *DecodedFile `json:"file,omitempty"`
	Error string       `json:"error,omitempty"`
}

// BatchResponseBody is the body of the batch response
type BatchResponseBody struct {
	BatchID   string            `json:"batch_id"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Results   []BatchFileResult `json:"results" doc:"One entry per input file, in input order"`
}

// BatchResponse returns the batch results
type BatchResponse struct {
	Body BatchResponseBody
}

// ObjectDecodeRequest decodes a stored object by key
type ObjectDecodeRequest struct {
	Key string `query:"key" required:"true" minLength:"1" doc:"Object key in the configured bucket"`
}

// WorkItem represents a single decode task
type WorkItem struct {
	ID        int
	RequestID string
	BatchID   string
	Name      string
	Content   []byte
	StartTime time.Time
}

// WorkResult contains the result of a decode task
type WorkResult struct {
	ID             int
	RequestID      string
	BatchID        string
	Name           string
	File           *DecodedFile
	Err            error
	ProcessingTime time.Duration
	Success        bool // set only when File is non-nil and Err is nil
}

// FileTiming tracks one file of a batch for the webhook summary
type FileTiming struct {
	Name           string        `json:"name,omitempty"`
	Success        bool          `json:"success"`
	PointCount     int           `json:"point_count"`
	ProcessingTime time.Duration `json:"processing_time_ns"`
	Error          string        `json:"error,omitempty"`
}

// WebhookItem represents a webhook task
type WebhookItem struct {
	BatchID   string
	TotalTime time.Duration
	Files     []FileTiming
}

// WebhookResponse represents the webhook payload structure
type WebhookResponse struct {
	BatchID     string       `json:"batch_id"`
	Time        string       `json:"time"`
	TotalFiles  int          `json:"total_files"`
	Succeeded   int          `json:"succeeded"`
	Failed      int          `json:"failed"`
	TotalTimeMS float64      `json:"total_time_ms"`
	Files       []FileTiming `json:"files"`
}
