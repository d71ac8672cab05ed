package models

import (
	"time"

	"github.com/google/uuid"
)

// DeviceKind identifies the class of monitoring hardware a device belongs
// to. The kind decides which vital fields are expected in its frames.
type DeviceKind string

const (
	DeviceKindVitalSignsMonitor  DeviceKind = "vital_signs_monitor"
	DeviceKindHeartRateMonitor   DeviceKind = "heart_rate_monitor"
	DeviceKindBloodPressureCuff  DeviceKind = "blood_pressure_cuff"
	DeviceKindPulseOximeter      DeviceKind = "pulse_oximeter"
	DeviceKindThermometer        DeviceKind = "thermometer"
	DeviceKindRespiratoryMonitor DeviceKind = "respiratory_monitor"
	DeviceKindGeneric            DeviceKind = "generic"
)

// Valid reports whether the kind is one of the known device kinds.
func (k DeviceKind) Valid() bool {
	switch k {
	case DeviceKindVitalSignsMonitor, DeviceKindHeartRateMonitor,
		DeviceKindBloodPressureCuff, DeviceKindPulseOximeter,
		DeviceKindThermometer, DeviceKindRespiratoryMonitor,
		DeviceKindGeneric:
		return true
	}
	return false
}

// Transport selects the protocol driver used to stream from a device.
type Transport string

const (
	// TransportWebSocket is a persistent push connection.
	TransportWebSocket Transport = "websocket"
	// TransportMQTT is a broker topic subscription.
	TransportMQTT Transport = "mqtt"
	// TransportPolling fetches over HTTP on a fixed interval.
	TransportPolling Transport = "polling"
)

// Valid reports whether the transport is one of the three known kinds.
func (t Transport) Valid() bool {
	switch t {
	case TransportWebSocket, TransportMQTT, TransportPolling:
		return true
	}
	return false
}

// ConnectionParams holds protocol-specific connection parameters. All
// fields are opaque to the gateway and interpreted only by the matching
// protocol driver.
type ConnectionParams struct {
	Endpoint string `json:"endpoint"`
	Topic    string `json:"topic,omitempty"`
	Token    string `json:"token,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"-"`
}

// Device describes a registered monitoring device. Immutable after
// registration except for the status fields owned by the gateway.
type Device struct {
	ID           uuid.UUID        `json:"id"`
	Kind         DeviceKind       `json:"kind"`
	Manufacturer string           `json:"manufacturer,omitempty"`
	Model        string           `json:"model,omitempty"`
	SerialNumber string           `json:"serialNumber,omitempty"`
	PatientID    string           `json:"patientId"`
	Transport    Transport        `json:"transport"`
	Connection   ConnectionParams `json:"connection"`
	Capabilities []VitalType      `json:"capabilities,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// DeviceState is the lifecycle state of a registered device. Removal is
// not a state: a removed device is simply absent from the registry.
type DeviceState string

const (
	DeviceStateRegistered DeviceState = "registered"
	DeviceStateStreaming  DeviceState = "streaming"
	DeviceStateInactive   DeviceState = "inactive"
	DeviceStateError      DeviceState = "error"
)

// Valid reports whether the state is a known lifecycle state.
func (s DeviceState) Valid() bool {
	switch s {
	case DeviceStateRegistered, DeviceStateStreaming,
		DeviceStateInactive, DeviceStateError:
		return true
	}
	return false
}

// ErrorRecord is one timestamped transport or ingestion error kept on a
// device's status.
type ErrorRecord struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// DeviceStatus is the mutable per-device state owned exclusively by the
// gateway. It is never persisted and is lost on process restart.
type DeviceStatus struct {
	State             DeviceState   `json:"state"`
	LastDataReceived  *time.Time    `json:"lastDataReceived,omitempty"`
	ConnectionQuality float64       `json:"connectionQuality"`
	BatteryLevel      float64       `json:"batteryLevel"`
	RecentErrors      []ErrorRecord `json:"recentErrors,omitempty"`
}

// DeviceSummary is a descriptor merged with its current status, as
// returned by the gateway query operations.
type DeviceSummary struct {
	Device
	Status DeviceStatus `json:"status"`
}
