package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kacperjurak/gos2pcore/pkg/models"
)

// Client posts batch decode summaries with a pooled HTTP transport
type Client struct {
	url        string
	httpClient *http.Client
	quiet      bool
	bufferPool sync.Pool
}

// NewClient creates a new webhook client
func NewClient(url string, quiet bool) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		// Summaries are small.
		DisableCompression: true,
	}

	return &Client{
		url:   url,
		quiet: quiet,
		httpClient: &http.Client{
			Timeout:   45 * time.Second,
			Transport: transport,
		},
		bufferPool: sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 1024))
			},
		},
	}
}

// Send posts the summary of one batch
func (c *Client) Send(ctx context.Context, item models.WebhookItem) error {
	payload := models.WebhookResponse{
		BatchID:     item.BatchID,
		Time:        time.Now().Format(time.RFC3339Nano),
		TotalFiles:  len(item.Files),
		TotalTimeMS: float64(item.TotalTime.Nanoseconds()) / 1e6,
		Files:       item.Files,
	}
	for _, f := range item.Files {
		if f.Success {
			payload.Succeeded++
		} else {
			payload.Failed++
		}
	}

	buf := c.bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer c.bufferPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return fmt.Errorf("failed to marshal webhook data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if !c.quiet {
		log.Info().
			Str("batch_id", item.BatchID).
			Int("files", payload.TotalFiles).
			Int("failed", payload.Failed).
			Int("status", resp.StatusCode).
			Msg("webhook sent")
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	}
	return nil
}
