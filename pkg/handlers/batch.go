package handlers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kacperjurak/gos2pcore/internal/utils"
	"github.com/kacperjurak/gos2pcore/pkg/models"
)

// BatchRunner runs decode items concurrently
type BatchRunner interface {
	Process(ctx context.Context, items []models.WorkItem) []models.WorkResult
	QueueWebhook(item models.WebhookItem) bool
}

// BatchHandler handles batch decode requests
type BatchHandler struct {
	runner BatchRunner
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(runner BatchRunner) *BatchHandler {
	return &BatchHandler{runner: runner}
}

// DecodeBatch decodes every file of the batch on the worker pool. A failing
// file does not fail the batch; its error is reported in its result.
func (h *BatchHandler) DecodeBatch(ctx context.Context, req *models.BatchRequest) (*models.BatchResponse, error) {
	batchID := req.Body.BatchID
	if batchID == "" {
		batchID = utils.GenerateID()
	}

	items := make([]models.WorkItem, len(req.Body.Files))
	for i, f := range req.Body.Files {
		items[i] = models.WorkItem{
			RequestID: utils.GenerateID(),
			BatchID:   batchID,
			Name:      f.Name,
			Content:   []byte(f.Content),
		}
	}

	log.Info().Str("batch_id", batchID).Int("files", len(items)).Msg("batch decode started")
	start := time.Now()
	results := h.runner.Process(ctx, items)
	elapsed := time.Since(start)

	body := models.BatchResponseBody{
		BatchID: batchID,
		Results: make([]models.BatchFileResult, len(results)),
	}
	timings := make([]models.FileTiming, len(results))

	for i, r := range results {
		out := models.BatchFileResult{Index: i, Name: r.Name}
		timing := models.FileTiming{Name: r.Name, ProcessingTime: r.ProcessingTime}
		if !r.Success {
			out.Error = "no result"
			if r.Err != nil {
				out.Error = r.Err.Error()
			}
			timing.Error = out.Error
			body.Failed++
		} else {
			out.File = r.File
			timing.Success = true
			timing.PointCount = r.File.PointCount
			body.Succeeded++
		}
		body.Results[i] = out
		timings[i] = timing
	}

	h.runner.QueueWebhook(models.WebhookItem{
		BatchID:   batchID,
		TotalTime: elapsed,
		Files:     timings,
	})

	log.Info().
		Str("batch_id", batchID).
		Int("succeeded", body.Succeeded).
		Int("failed", body.Failed).
		Dur("duration", elapsed).
		Msg("batch decode completed")

	return &models.BatchResponse{Body: body}, nil
}
