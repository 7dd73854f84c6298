package processing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kacperjurak/gos2pcore"
	"github.com/kacperjurak/gos2pcore/internal/utils"
	"github.com/kacperjurak/gos2pcore/pkg/cache"
	"github.com/kacperjurak/gos2pcore/pkg/config"
	"github.com/kacperjurak/gos2pcore/pkg/models"
)

// DecodeProcessor decodes uploaded .s2p content into its JSON view
type DecodeProcessor struct {
	cfg   *config.Config
	cache cache.Cache
}

// NewDecodeProcessor creates a processor. c may be nil to disable caching.
func NewDecodeProcessor(cfg *config.Config, c cache.Cache) *DecodeProcessor {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &DecodeProcessor{cfg: cfg, cache: c}
}

// Process decodes content. Failures are *gos2pcore.DecodeError values with
// Path set to name.
func (p *DecodeProcessor) Process(ctx context.Context, name string, content []byte) (*models.DecodedFile, error) {
	logger := log.With().Str("file", name).Logger()

	key := utils.ContentKey(p.cfg.RowPolicy.String(), content)
	if cached, ok := p.lookup(ctx, key, logger); ok {
		cached.Name = name
		logRecoveries(logger, cached.Warnings)
		return cached, nil
	}

	start := time.Now()
	data, err := gos2pcore.Decode(bytes.NewReader(content),
		gos2pcore.WithRowPolicy(p.cfg.RowPolicy),
		gos2pcore.WithLogger(logger),
	)
	if err != nil {
		var de *gos2pcore.DecodeError
		if errors.As(err, &de) && de.Path == "" {
			de.Path = name
		}
		logger.Warn().Err(err).Msg("decode failed")
		return nil, err
	}

	logRecoveries(logger, data.Warnings())

	file := models.NewDecodedFile(name, data)
	if !p.cfg.Quiet {
		logger.Info().
			Int("points", file.PointCount).
			Str("format", file.DataFormat).
			Dur("duration", time.Since(start)).
			Msg("decoded")
	}

	p.store(ctx, key, file, logger)
	return file, nil
}

// ProcessReader reads r to the end and decodes it.
func (p *DecodeProcessor) ProcessReader(ctx context.Context, name string, r io.Reader) (*models.DecodedFile, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, &gos2pcore.DecodeError{
			Kind:    gos2pcore.KindInputUnavailable,
			Path:    name,
			Message: "read failed",
			Err:     err,
		}
	}
	return p.Process(ctx, name, content)
}

func logRecoveries(logger zerolog.Logger, w gos2pcore.Warnings) {
	if !w.Any() {
		return
	}
	logger.Warn().
		Int("recovered_tokens", w.RecoveredTokens).
		Int("skipped_rows", w.SkippedRows).
		Int("padded_rows", w.PaddedRows).
		Int("extra_option_lines", w.ExtraOptionLines).
		Msg("decoded with recoveries")
}

func (p *DecodeProcessor) lookup(ctx context.Context, key string, logger zerolog.Logger) (*models.DecodedFile, bool) {
	if p.cache == nil {
		return nil, false
	}
	raw, err := p.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			logger.Warn().Err(err).Msg("cache lookup failed")
		}
		return nil, false
	}

	var file models.DecodedFile
	if err := json.Unmarshal(raw, &file); err != nil {
		logger.Warn().Err(err).Msg("discarding unreadable cache entry")
		_ = p.cache.Delete(ctx, key)
		return nil, false
	}
	logger.Debug().Msg("cache hit")
	return &file, true
}

func (p *DecodeProcessor) store(ctx context.Context, key string, file *models.DecodedFile, logger zerolog.Logger) {
	if p.cache == nil {
		return
	}
	raw, err := json.Marshal(file)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to encode cache entry")
		return
	}
	if err := p.cache.Set(ctx, key, raw, p.cfg.CacheTTL); err != nil {
		logger.Warn().Err(err).Msg("cache store failed")
	}
}

// ProcessorFunc creates a function compatible with the worker pool
func (p *DecodeProcessor) ProcessorFunc() func(ctx context.Context, item models.WorkItem) (*models.DecodedFile, error) {
	return func(ctx context.Context, item models.WorkItem) (*models.DecodedFile, error) {
		return p.Process(ctx, item.Name, item.Content)
	}
}
