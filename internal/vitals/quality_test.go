package vitals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medassist/telemetry-gateway/internal/models"
)

func ptr(v float64) *float64 { return &v }

func TestScoreCleanReading(t *testing.T) {
	signs := models.VitalSigns{
		HeartRate:        ptr(72),
		BloodPressure:    &models.BloodPressure{Systolic: 120, Diastolic: 80},
		OxygenSaturation: ptr(98),
		Temperature:      ptr(36.8),
	}

	q := Score(signs, models.DeviceKindVitalSignsMonitor)
	assert.InDelta(t, 1.0, q.Confidence, 0.001)
	assert.InDelta(t, 100.0, q.SignalQuality, 0.001)
	assert.Empty(t, q.Issues)
}

func TestScoreMissingExpectedVital(t *testing.T) {
	// A thermometer that reported nothing usable.
	q := Score(models.VitalSigns{}, models.DeviceKindThermometer)
	assert.InDelta(t, 0.9, q.Confidence, 0.001)
	assert.InDelta(t, 100.0, q.SignalQuality, 0.001)
	require.Len(t, q.Issues, 1)
	assert.Contains(t, q.Issues[0], "temperature")
}

func TestScoreSuspiciousValue(t *testing.T) {
	// 210 bpm passed the hard bounds but sits outside the suspicion band.
	signs := models.VitalSigns{HeartRate: ptr(210)}

	q := Score(signs, models.DeviceKindHeartRateMonitor)
	assert.InDelta(t, 0.85, q.Confidence, 0.001)
	assert.InDelta(t, 80.0, q.SignalQuality, 0.001)
	require.Len(t, q.Issues, 1)
	assert.Contains(t, q.Issues[0], "implausible")
}

func TestScoreClampsToBounds(t *testing.T) {
	// Every vital suspicious at once: six penalties would drive both
	// gauges negative without clamping.
	signs := models.VitalSigns{
		HeartRate:        ptr(210),
		BloodPressure:    &models.BloodPressure{Systolic: 230, Diastolic: 140},
		OxygenSaturation: ptr(75),
		Temperature:      ptr(33),
		RespiratoryRate:  ptr(55),
	}

	q := Score(signs, models.DeviceKindVitalSignsMonitor)
	assert.GreaterOrEqual(t, q.Confidence, 0.0)
	assert.InDelta(t, 0.1, q.Confidence, 0.001)
	assert.Equal(t, 0.0, q.SignalQuality)
}

func TestScoreGenericKindExpectsNothing(t *testing.T) {
	q := Score(models.VitalSigns{}, models.DeviceKindGeneric)
	assert.InDelta(t, 1.0, q.Confidence, 0.001)
	assert.Empty(t, q.Issues)
}
