package connector

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/medassist/telemetry-gateway/internal/models"
)

// openWebSocket connects the persistent-push driver. Frames arrive as JSON
// objects, one per websocket message.
func (c *Connector) openWebSocket(ctx context.Context, dev *models.Device) (Stream, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.OpenTimeout}

	header := http.Header{}
	if dev.Connection.Token != "" {
		header.Set("Authorization", "Bearer "+dev.Connection.Token)
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.OpenTimeout)
	defer cancel()

	conn, _, err := dialer.DialContext(dialCtx, dev.Connection.Endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", dev.Connection.Endpoint, err)
	}

	s := newStream()
	s.setCloser(func() { conn.Close() })

	go func() {
		defer s.markDone()
		for {
			var frame models.RawFrame
			if err := conn.ReadJSON(&frame); err != nil {
				if s.closed() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return
				}
				s.emitError(fmt.Errorf("websocket read: %w", err))
				return
			}
			if frame == nil {
				continue
			}
			s.emitFrame(frame)
		}
	}()

	log.Debug().
		Str("device_id", dev.ID.String()).
		Str("endpoint", dev.Connection.Endpoint).
		Msg("Websocket stream opened")

	return s, nil
}
