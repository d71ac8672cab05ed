package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medassist/telemetry-gateway/internal/models"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestValidateCleanFrame(t *testing.T) {
	v := NewValidator()
	frame := models.RawFrame{
		"heartRate":       72.0,
		"bloodPressure":   "120/80",
		"spo2":            98.0,
		"temperature":     36.8,
		"respiratoryRate": 16.0,
	}

	res := v.Validate(frame, models.DeviceKindVitalSignsMonitor)
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestValidateRangeBounds(t *testing.T) {
	tests := []struct {
		name  string
		frame models.RawFrame
		valid bool
	}{
		{"heart rate too high", models.RawFrame{"heartRate": 300.0}, false},
		{"heart rate too low", models.RawFrame{"heartRate": 20.0}, false},
		{"heart rate at minimum", models.RawFrame{"heartRate": 30.0}, true},
		{"heart rate at maximum", models.RawFrame{"heartRate": 250.0}, true},
		{"systolic too high", models.RawFrame{"bp": "260/100"}, false},
		{"diastolic too low", models.RawFrame{"bp": "120/30"}, false},
		{"spo2 too low", models.RawFrame{"spo2": 65.0}, false},
		{"spo2 over 100", models.RawFrame{"spo2": 101.0}, false},
		{"temperature too low", models.RawFrame{"temperature": 30.0}, false},
		{"respiratory rate too high", models.RawFrame{"respiratoryRate": 70.0}, false},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(tt.frame, models.DeviceKindGeneric)
			assert.Equal(t, tt.valid, res.Valid, "errors: %v", res.Errors)
		})
	}
}

func TestValidateInconsistentBloodPressurePair(t *testing.T) {
	v := NewValidator()

	// Both values individually in range, but the pair is impossible.
	res := v.Validate(models.RawFrame{"bp": "80/90"}, models.DeviceKindGeneric)
	require.False(t, res.Valid)
	assert.Contains(t, res.Errors[0], "not greater than diastolic")
}

func TestValidateFahrenheitBeforeRangeCheck(t *testing.T) {
	v := NewValidator()

	// 101°F is 38.3°C, in range.
	res := v.Validate(models.RawFrame{"temp": 101.0}, models.DeviceKindGeneric)
	assert.True(t, res.Valid, "errors: %v", res.Errors)

	// 120°F is 48.9°C, out of range.
	res = v.Validate(models.RawFrame{"temp": 120.0}, models.DeviceKindGeneric)
	assert.False(t, res.Valid)
}

func TestValidateSignalQualityWarnings(t *testing.T) {
	v := NewValidator()

	res := v.Validate(models.RawFrame{"heartRate": 72.0, "signalQuality": 30.0}, models.DeviceKindGeneric)
	assert.True(t, res.Valid)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "low signal quality", res.Warnings[0])

	res = v.Validate(models.RawFrame{"heartRate": 72.0, "signalQuality": 140.0}, models.DeviceKindGeneric)
	assert.True(t, res.Valid)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "outside gauge range")
}

func TestValidateTimestamp(t *testing.T) {
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	v := NewValidatorAt(fixedClock(now))

	tests := []struct {
		name  string
		value interface{}
		valid bool
	}{
		{"current", now.Format(time.RFC3339), true},
		{"slightly future", now.Add(30 * time.Second).Format(time.RFC3339), true},
		{"too far future", now.Add(5 * time.Minute).Format(time.RFC3339), false},
		{"recent past", now.Add(-23 * time.Hour).Format(time.RFC3339), true},
		{"too old", now.Add(-25 * time.Hour).Format(time.RFC3339), false},
		{"unparseable", "yesterday", false},
		{"unix seconds", float64(now.Unix()), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := models.RawFrame{"heartRate": 72.0, "timestamp": tt.value}
			res := v.Validate(frame, models.DeviceKindGeneric)
			assert.Equal(t, tt.valid, res.Valid, "errors: %v", res.Errors)
		})
	}

	// A frame without its own timestamp is fine.
	res := v.Validate(models.RawFrame{"heartRate": 72.0}, models.DeviceKindGeneric)
	assert.True(t, res.Valid)
}

func TestValidateRequiredFieldPerKind(t *testing.T) {
	v := NewValidator()

	res := v.Validate(models.RawFrame{"heartRate": 72.0}, models.DeviceKindPulseOximeter)
	require.False(t, res.Valid)
	assert.Contains(t, res.Errors[0], "missing required field oxygen_saturation")

	res = v.Validate(models.RawFrame{"spo2": 97.0}, models.DeviceKindPulseOximeter)
	assert.True(t, res.Valid)

	// The combined pair representation satisfies the cuff requirement.
	res = v.Validate(models.RawFrame{"bp": "120/80"}, models.DeviceKindBloodPressureCuff)
	assert.True(t, res.Valid)

	// Generic devices have no required field.
	res = v.Validate(models.RawFrame{"spo2": 97.0}, models.DeviceKindGeneric)
	assert.True(t, res.Valid)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	v := NewValidator()
	frame := models.RawFrame{
		"heartRate": 300.0,
		"spo2":      65.0,
	}

	res := v.Validate(frame, models.DeviceKindGeneric)
	require.False(t, res.Valid)
	assert.Len(t, res.Errors, 2)
}
