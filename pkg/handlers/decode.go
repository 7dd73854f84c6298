package handlers

import (
	"context"
	"errors"
	"io"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/kacperjurak/gos2pcore"
	"github.com/kacperjurak/gos2pcore/pkg/models"
	"github.com/kacperjurak/gos2pcore/pkg/storage"
)

// DecodeService decodes .s2p content into its JSON view
type DecodeService interface {
	Process(ctx context.Context, name string, content []byte) (*models.DecodedFile, error)
	ProcessReader(ctx context.Context, name string, r io.Reader) (*models.DecodedFile, error)
}

// DecodeHandler handles single-file decode requests
type DecodeHandler struct {
	svc     DecodeService
	objects storage.ObjectSource
}

// NewDecodeHandler creates a new decode handler. objects may be nil when no
// bucket is configured.
func NewDecodeHandler(svc DecodeService, objects storage.ObjectSource) *DecodeHandler {
	return &DecodeHandler{svc: svc, objects: objects}
}

// Decode decodes the file text carried in the request body
func (h *DecodeHandler) Decode(ctx context.Context, req *models.DecodeRequest) (*models.DecodeResponse, error) {
	log.Info().Str("name", req.Body.Name).Int("bytes", len(req.Body.Content)).Msg("decode request received")

	file, err := h.svc.Process(ctx, req.Body.Name, []byte(req.Body.Content))
	if err != nil {
		return nil, httpError(err)
	}
	return &models.DecodeResponse{Body: file}, nil
}

// DecodeObject decodes a stored object. The object body is closed before
// returning.
func (h *DecodeHandler) DecodeObject(ctx context.Context, req *models.ObjectDecodeRequest) (*models.DecodeResponse, error) {
	if h.objects == nil {
		return nil, huma.Error503ServiceUnavailable("Object storage is not configured")
	}
	log.Info().Str("key", req.Key).Msg("object decode request received")

	body, err := h.objects.Open(ctx, req.Key)
	if err != nil {
		return nil, httpError(err)
	}
	defer body.Close()

	file, err := h.svc.ProcessReader(ctx, req.Key, body)
	if err != nil {
		return nil, httpError(err)
	}
	return &models.DecodeResponse{Body: file}, nil
}

// httpError maps decode and storage failures to API errors
func httpError(err error) error {
	switch {
	case errors.Is(err, gos2pcore.ErrMalformedContent):
		return huma.Error400BadRequest(err.Error(), err)
	case errors.Is(err, storage.ErrObjectNotFound):
		return huma.Error404NotFound("Object not found", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return huma.Error503ServiceUnavailable("Request cancelled", err)
	default:
		log.Error().Err(err).Msg("decode failed")
		return huma.Error500InternalServerError("Failed to decode file", err)
	}
}
