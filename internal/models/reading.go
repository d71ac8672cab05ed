package models

import (
	"time"
)

// RawFrame is one unparsed telemetry record as received from a protocol
// driver: a field-name/value map whose keys vary by manufacturer.
type RawFrame map[string]interface{}

// VitalType names one canonical vital sign.
type VitalType string

const (
	VitalHeartRate        VitalType = "heart_rate"
	VitalBloodPressure    VitalType = "blood_pressure"
	VitalOxygenSaturation VitalType = "oxygen_saturation"
	VitalTemperature      VitalType = "temperature"
	VitalRespiratoryRate  VitalType = "respiratory_rate"
)

// BloodPressure is a systolic/diastolic pair in mmHg.
type BloodPressure struct {
	Systolic  float64 `json:"systolic"`
	Diastolic float64 `json:"diastolic"`
}

// VitalSigns is the normalized-readings map of one envelope. Each field is
// present only if it could be extracted from the raw frame.
type VitalSigns struct {
	HeartRate        *float64       `json:"heartRate,omitempty"`
	BloodPressure    *BloodPressure `json:"bloodPressure,omitempty"`
	OxygenSaturation *float64       `json:"oxygenSaturation,omitempty"`
	Temperature      *float64       `json:"temperature,omitempty"`
	RespiratoryRate  *float64       `json:"respiratoryRate,omitempty"`
}

// IsEmpty reports whether no vital could be extracted at all.
func (v VitalSigns) IsEmpty() bool {
	return v.HeartRate == nil && v.BloodPressure == nil &&
		v.OxygenSaturation == nil && v.Temperature == nil &&
		v.RespiratoryRate == nil
}

// Quality describes how trustworthy one envelope's readings are. Signal
// quality is a 0-100 gauge, confidence is in [0,1]; both are independent
// of clinical severity.
type Quality struct {
	SignalQuality float64  `json:"signalQuality"`
	Confidence    float64  `json:"confidence"`
	Issues        []string `json:"issues,omitempty"`
}

// Severity is the clinical alert severity, a four-level total order with
// CRITICAL > HIGH > MEDIUM > LOW.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank returns the position of the severity in the total order; higher
// means more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// Band names the threshold band a value crossed to raise an alert.
type Band string

const (
	BandLow          Band = "low"
	BandHigh         Band = "high"
	BandCriticalLow  Band = "critical_low"
	BandCriticalHigh Band = "critical_high"
)

// Alert is a soft clinical flag raised for a value inside a plausible but
// concerning band. Alerts exist only attached to the envelope that
// produced them.
type Alert struct {
	Vital     VitalType `json:"vital"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Value     float64   `json:"value"`
	Band      Band      `json:"band"`
	Threshold float64   `json:"threshold"`
}

// SourceManual tags envelopes ingested through the manual reading
// endpoint, outside any registered device stream.
const SourceManual = "manual"

// ReadingEnvelope is one normalized, timestamped unit of ingested
// telemetry plus its quality record and alerts. Immutable once created.
type ReadingEnvelope struct {
	DeviceID  string     `json:"deviceId,omitempty"`
	PatientID string     `json:"patientId"`
	Source    string     `json:"source"`
	Timestamp time.Time  `json:"timestamp"`
	Vitals    VitalSigns `json:"vitals"`
	Quality   Quality    `json:"quality"`
	Alerts    []Alert    `json:"alerts,omitempty"`
}
