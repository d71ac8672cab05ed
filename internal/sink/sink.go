// Package sink publishes ingestion output to downstream consumers. The
// gateway treats delivery as fire-and-forget: a publish failure is logged
// and never blocks or fails frame handling.
package sink

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/medassist/telemetry-gateway/internal/models"
)

// Sink is the boundary to the excluded notification/workflow system plus
// the reading event feed consumed by downstream scoring and dashboards.
type Sink interface {
	// DispatchAlert delivers one (deviceID, patientID, Alert) tuple, one
	// call per generated alert.
	DispatchAlert(deviceID, patientID string, alert models.Alert)
	// PublishReading announces a newly ingested envelope.
	PublishReading(env models.ReadingEnvelope)
}

// NATSSink publishes alerts and readings on per-patient, per-device
// subjects.
type NATSSink struct {
	nc *nats.Conn
}

// NewNATSSink creates a sink over an established NATS connection.
func NewNATSSink(nc *nats.Conn) *NATSSink {
	return &NATSSink{nc: nc}
}

// DispatchAlert publishes one alert tuple.
func (s *NATSSink) DispatchAlert(deviceID, patientID string, alert models.Alert) {
	payload, err := json.Marshal(map[string]interface{}{
		"deviceId":  deviceID,
		"patientId": patientID,
		"alert":     alert,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal alert")
		return
	}

	subject := fmt.Sprintf("telemetry.patient.%s.device.%s.alert",
		subjectToken(patientID), subjectToken(deviceID))
	if err := s.nc.Publish(subject, payload); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("Failed to publish alert")
	}
}

// PublishReading publishes one reading envelope.
func (s *NATSSink) PublishReading(env models.ReadingEnvelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal reading envelope")
		return
	}

	subject := fmt.Sprintf("telemetry.patient.%s.device.%s.reading",
		subjectToken(env.PatientID), subjectToken(env.DeviceID))
	if err := s.nc.Publish(subject, payload); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("Failed to publish reading")
	}
}

// subjectToken makes an identifier safe to embed in a NATS subject.
func subjectToken(id string) string {
	if id == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ' ', '*', '>':
			return '-'
		}
		return r
	}, id)
}

// Noop discards everything; used when no NATS URL is configured.
type Noop struct{}

func (Noop) DispatchAlert(string, string, models.Alert) {}
func (Noop) PublishReading(models.ReadingEnvelope)      {}
