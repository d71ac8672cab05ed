package vitals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medassist/telemetry-gateway/internal/models"
)

func TestExtractNarrowsByDeviceKind(t *testing.T) {
	// The frame carries a heart rate, but a thermometer only reports
	// temperature.
	frame := models.RawFrame{"temperature": 37.0, "heartRate": 72.0}

	signs, warnings := Extract(frame, models.DeviceKindThermometer)
	assert.Empty(t, warnings)
	require.NotNil(t, signs.Temperature)
	assert.Equal(t, 37.0, *signs.Temperature)
	assert.Nil(t, signs.HeartRate)
}

func TestExtractOximeterIncludesPulse(t *testing.T) {
	frame := models.RawFrame{"spo2": 97.0, "pulse": 68.0}

	signs, _ := Extract(frame, models.DeviceKindPulseOximeter)
	require.NotNil(t, signs.OxygenSaturation)
	assert.Equal(t, 97.0, *signs.OxygenSaturation)
	require.NotNil(t, signs.HeartRate)
	assert.Equal(t, 68.0, *signs.HeartRate)
}

func TestExtractConvertsFahrenheit(t *testing.T) {
	frame := models.RawFrame{"temp": 98.6}

	signs, _ := Extract(frame, models.DeviceKindThermometer)
	require.NotNil(t, signs.Temperature)
	assert.InDelta(t, 37.0, *signs.Temperature, 0.01)
}

func TestExtractReportsAliasConflicts(t *testing.T) {
	frame := models.RawFrame{"heartRate": 70.0, "hr": 90.0}

	signs, warnings := Extract(frame, models.DeviceKindHeartRateMonitor)
	require.NotNil(t, signs.HeartRate)
	assert.Equal(t, 70.0, *signs.HeartRate)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "keeping heartRate")
}

func TestExtractEmptyFrame(t *testing.T) {
	signs, warnings := Extract(models.RawFrame{}, models.DeviceKindVitalSignsMonitor)
	assert.True(t, signs.IsEmpty())
	assert.Empty(t, warnings)
}

func TestProcessTachycardiaScenario(t *testing.T) {
	frame := models.RawFrame{
		"heartRate":     160.0,
		"spo2":          97.0,
		"bloodPressure": "120/80",
		"temperature":   37.0,
	}

	signs, quality, alerts, warnings := Process(frame, models.DeviceKindVitalSignsMonitor)
	assert.Empty(t, warnings)

	require.NotNil(t, signs.HeartRate)
	assert.Equal(t, 160.0, *signs.HeartRate)
	require.NotNil(t, signs.BloodPressure)
	assert.Equal(t, 120.0, signs.BloodPressure.Systolic)

	// All four expected core vitals present, nothing suspicious.
	assert.InDelta(t, 1.0, quality.Confidence, 0.001)
	assert.InDelta(t, 100.0, quality.SignalQuality, 0.001)

	require.Len(t, alerts, 1)
	assert.Equal(t, models.VitalHeartRate, alerts[0].Vital)
	assert.Equal(t, models.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, models.BandCriticalHigh, alerts[0].Band)
}
