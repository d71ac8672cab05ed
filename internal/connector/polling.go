package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medassist/telemetry-gateway/internal/models"
)

// openPolling starts the polling driver: one immediate fetch, then one per
// interval for the lifetime of the stream. A failed fetch emits an error
// but never closes the stream; only Close stops the loop.
func (c *Connector) openPolling(ctx context.Context, dev *models.Device) (Stream, error) {
	if dev.Connection.Endpoint == "" {
		return nil, fmt.Errorf("polling transport requires an endpoint")
	}

	// The loop's lifetime is bound to Close, not to the caller's context:
	// the open call returns immediately and the stream lives on.
	pollCtx, cancel := context.WithCancel(context.Background())

	s := newStream()
	s.setCloser(cancel)

	client := &http.Client{Timeout: c.cfg.OpenTimeout}

	go func() {
		defer s.markDone()

		ticker := time.NewTicker(c.cfg.PollInterval)
		defer ticker.Stop()

		c.pollOnce(pollCtx, client, dev, s)
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				c.pollOnce(pollCtx, client, dev, s)
			}
		}
	}()

	log.Debug().
		Str("device_id", dev.ID.String()).
		Str("endpoint", dev.Connection.Endpoint).
		Dur("interval", c.cfg.PollInterval).
		Msg("Polling stream opened")

	return s, nil
}

// pollOnce performs a single fetch and emits either a frame or an error.
func (c *Connector) pollOnce(ctx context.Context, client *http.Client, dev *models.Device, s *stream) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dev.Connection.Endpoint, nil)
	if err != nil {
		s.emitError(fmt.Errorf("polling request: %w", err))
		return
	}
	req.Header.Set("Accept", "application/json")
	if dev.Connection.Token != "" {
		req.Header.Set("Authorization", "Bearer "+dev.Connection.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.emitError(fmt.Errorf("polling fetch: %w", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		s.emitError(fmt.Errorf("polling fetch: unexpected status %d", resp.StatusCode))
		return
	}

	var frame models.RawFrame
	if err := json.NewDecoder(resp.Body).Decode(&frame); err != nil {
		s.emitError(fmt.Errorf("polling response: %w", err))
		return
	}
	if frame != nil {
		s.emitFrame(frame)
	}
}
