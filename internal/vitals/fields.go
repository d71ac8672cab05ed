package vitals

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/medassist/telemetry-gateway/internal/models"
)

// Field identifies one semantic field of a raw frame. Devices report the
// same field under several synonymous names; resolution tries a fixed
// priority order of known aliases and the first match wins.
type Field string

const (
	FieldHeartRate        Field = "heart_rate"
	FieldSystolic         Field = "systolic"
	FieldDiastolic        Field = "diastolic"
	FieldBloodPressure    Field = "blood_pressure"
	FieldOxygenSaturation Field = "oxygen_saturation"
	FieldTemperature      Field = "temperature"
	FieldRespiratoryRate  Field = "respiratory_rate"
	FieldSignalQuality    Field = "signal_quality"
	FieldBattery          Field = "battery"
	FieldTimestamp        Field = "timestamp"
)

// fieldAliases is the alias priority table. Order matters: the first
// present alias is the one used.
var fieldAliases = map[Field][]string{
	FieldHeartRate:        {"heartRate", "heart_rate", "hr", "pulse", "pulseRate", "pulse_rate", "bpm"},
	FieldSystolic:         {"systolic", "sys", "sbp", "systolicBP", "systolic_bp"},
	FieldDiastolic:        {"diastolic", "dia", "dbp", "diastolicBP", "diastolic_bp"},
	FieldBloodPressure:    {"bloodPressure", "blood_pressure", "bp"},
	FieldOxygenSaturation: {"spo2", "SpO2", "oxygenSaturation", "oxygen_saturation", "oxygenLevel", "oxygen_level", "o2sat"},
	FieldTemperature:      {"temperature", "temp", "bodyTemperature", "body_temperature"},
	FieldRespiratoryRate:  {"respiratoryRate", "respiratory_rate", "rr", "respRate", "resp_rate", "breathingRate"},
	FieldSignalQuality:    {"signalQuality", "signal_quality", "signalStrength", "signal_strength"},
	FieldBattery:          {"battery", "batteryLevel", "battery_level"},
	FieldTimestamp:        {"timestamp", "time", "recordedAt", "recorded_at", "measuredAt", "measured_at"},
}

// toFloat coerces the value shapes seen on the wire into a float64.
func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

// ResolveNumber resolves a numeric field by alias priority. It returns the
// value, the alias that matched, and whether anything matched.
func ResolveNumber(frame models.RawFrame, field Field) (float64, string, bool) {
	for _, alias := range fieldAliases[field] {
		raw, ok := frame[alias]
		if !ok || raw == nil {
			continue
		}
		if f, ok := toFloat(raw); ok {
			return f, alias, true
		}
	}
	return 0, "", false
}

// HasField reports whether any alias of the field is present in the frame,
// regardless of whether its value parses.
func HasField(frame models.RawFrame, field Field) bool {
	for _, alias := range fieldAliases[field] {
		if v, ok := frame[alias]; ok && v != nil {
			return true
		}
	}
	return false
}

// Conflicts returns alias pairs of the same field that are simultaneously
// present with different values. There is no reconciliation rule; callers
// log these and extraction keeps the first match.
func Conflicts(frame models.RawFrame, field Field) []string {
	var (
		firstAlias string
		firstVal   float64
		found      bool
		warnings   []string
	)
	for _, alias := range fieldAliases[field] {
		raw, ok := frame[alias]
		if !ok || raw == nil {
			continue
		}
		f, ok := toFloat(raw)
		if !ok {
			continue
		}
		if !found {
			firstAlias, firstVal, found = alias, f, true
			continue
		}
		if f != firstVal {
			warnings = append(warnings, fmt.Sprintf(
				"conflicting %s aliases: %s=%v vs %s=%v, keeping %s",
				field, firstAlias, firstVal, alias, f, firstAlias))
		}
	}
	return warnings
}

// ResolveBloodPressure resolves a systolic/diastolic pair. Combined
// representations ("120/80" strings and {systolic,diastolic} objects) take
// priority over separate systolic and diastolic fields.
func ResolveBloodPressure(frame models.RawFrame) (*models.BloodPressure, bool) {
	for _, alias := range fieldAliases[FieldBloodPressure] {
		raw, ok := frame[alias]
		if !ok || raw == nil {
			continue
		}
		if bp, ok := parseBloodPressure(raw); ok {
			return bp, true
		}
	}

	sys, _, okSys := ResolveNumber(frame, FieldSystolic)
	dia, _, okDia := ResolveNumber(frame, FieldDiastolic)
	if okSys && okDia {
		return &models.BloodPressure{Systolic: sys, Diastolic: dia}, true
	}
	return nil, false
}

func parseBloodPressure(raw interface{}) (*models.BloodPressure, bool) {
	switch t := raw.(type) {
	case string:
		parts := strings.SplitN(strings.TrimSpace(t), "/", 2)
		if len(parts) != 2 {
			return nil, false
		}
		sys, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		dia, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err1 != nil || err2 != nil {
			return nil, false
		}
		return &models.BloodPressure{Systolic: sys, Diastolic: dia}, true
	case map[string]interface{}:
		sys, okSys := toFloat(t["systolic"])
		dia, okDia := toFloat(t["diastolic"])
		if !okSys || !okDia {
			return nil, false
		}
		return &models.BloodPressure{Systolic: sys, Diastolic: dia}, true
	}
	return nil, false
}

// ResolveTimestamp resolves and parses the frame's own timestamp. The
// second return is false when no timestamp alias is present at all; a
// present but unparseable timestamp returns an error.
func ResolveTimestamp(frame models.RawFrame) (time.Time, bool, error) {
	for _, alias := range fieldAliases[FieldTimestamp] {
		raw, ok := frame[alias]
		if !ok || raw == nil {
			continue
		}
		ts, err := parseTimestamp(raw)
		return ts, true, err
	}
	return time.Time{}, false, nil
}

func parseTimestamp(raw interface{}) (time.Time, error) {
	switch t := raw.(type) {
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", t)
	default:
		f, ok := toFloat(raw)
		if !ok {
			return time.Time{}, fmt.Errorf("unparseable timestamp %v", raw)
		}
		// Millisecond epochs are common on embedded firmwares.
		if f > 1e12 {
			return time.UnixMilli(int64(f)), nil
		}
		return time.Unix(int64(f), 0), nil
	}
}

// NormalizeTemperature converts Fahrenheit readings to Celsius. Anything
// above 50 cannot be a survivable body temperature in Celsius, so it is
// treated as Fahrenheit.
func NormalizeTemperature(t float64) float64 {
	if t > 50 {
		return (t - 32) * 5 / 9
	}
	return t
}
