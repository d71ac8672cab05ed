package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/medassist/telemetry-gateway/internal/models"
)

// openMQTT connects the publish-subscribe driver and subscribes to the
// device's topic. A subscribe failure is surfaced on the stream's error
// channel, not as a failed open; connection failure within the open
// timeout is a failed open.
func (c *Connector) openMQTT(ctx context.Context, dev *models.Device) (Stream, error) {
	s := newStream()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(dev.Connection.Endpoint)
	opts.SetClientID(fmt.Sprintf("telemetry-gateway-%s", dev.ID))
	opts.SetConnectTimeout(c.cfg.OpenTimeout)
	// Reconnection is owned by the gateway's retry loop, not the client.
	opts.SetAutoReconnect(false)

	if dev.Connection.Username != "" {
		opts.SetUsername(dev.Connection.Username)
		opts.SetPassword(dev.Connection.Password)
	}

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		if !s.closed() {
			s.emitError(fmt.Errorf("mqtt connection lost: %w", err))
		}
		s.markDone()
	})

	client := mqtt.NewClient(opts)

	token := client.Connect()
	select {
	case <-ctx.Done():
		client.Disconnect(0)
		return nil, ctx.Err()
	case <-time.After(c.cfg.OpenTimeout):
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connect %s: timeout after %s", dev.Connection.Endpoint, c.cfg.OpenTimeout)
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connect %s: %w", dev.Connection.Endpoint, err)
	}

	s.setCloser(func() { client.Disconnect(250) })

	topic := dev.Connection.Topic
	if topic == "" {
		topic = fmt.Sprintf("devices/%s/telemetry", dev.ID)
	}

	sub := client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		var frame models.RawFrame
		if err := json.Unmarshal(msg.Payload(), &frame); err != nil {
			s.emitError(fmt.Errorf("mqtt payload on %s: %w", msg.Topic(), err))
			return
		}
		s.emitFrame(frame)
	})

	go func() {
		if !sub.WaitTimeout(c.cfg.OpenTimeout) || sub.Error() != nil {
			err := sub.Error()
			if err == nil {
				err = fmt.Errorf("timeout")
			}
			s.emitError(fmt.Errorf("mqtt subscribe %s: %w", topic, err))
		}
	}()

	log.Debug().
		Str("device_id", dev.ID.String()).
		Str("broker", dev.Connection.Endpoint).
		Str("topic", topic).
		Msg("MQTT stream opened")

	return s, nil
}
