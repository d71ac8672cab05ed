package vitals

import (
	"fmt"

	"github.com/medassist/telemetry-gateway/internal/models"
)

// Penalties applied while scoring a normalized reading.
const (
	missingVitalPenalty  = 0.10
	suspectVitalPenalty  = 0.15
	suspectSignalPenalty = 20.0
	initialSignalQuality = 100.0
	initialConfidence    = 1.0
)

// expectedCoreVitals lists which of the four core vitals (heart rate,
// blood pressure, SpO2, temperature) a device kind is expected to report.
// Missing expected vitals reduce confidence.
var expectedCoreVitals = map[models.DeviceKind][]models.VitalType{
	models.DeviceKindVitalSignsMonitor: {
		models.VitalHeartRate, models.VitalBloodPressure,
		models.VitalOxygenSaturation, models.VitalTemperature,
	},
	models.DeviceKindHeartRateMonitor:  {models.VitalHeartRate},
	models.DeviceKindBloodPressureCuff: {models.VitalBloodPressure},
	models.DeviceKindPulseOximeter:     {models.VitalOxygenSaturation},
	models.DeviceKindThermometer:       {models.VitalTemperature},
}

// Suspicion bands. These sit inside the validator's hard bounds: a value
// out here already passed plausibility but is odd enough to doubt the
// sensor rather than the patient.
type suspicionBand struct{ low, high float64 }

var suspicionBands = map[models.VitalType]suspicionBand{
	models.VitalHeartRate:        {35, 200},
	models.VitalOxygenSaturation: {80, 100},
	models.VitalTemperature:      {34, 41.5},
	models.VitalRespiratoryRate:  {6, 50},
}

var (
	systolicSuspicion  = suspicionBand{70, 220}
	diastolicSuspicion = suspicionBand{45, 130}
)

// Score computes the quality record for a normalized reading. Confidence
// is clamped to [0,1] and signal quality to [0,100] after all adjustments.
func Score(signs models.VitalSigns, kind models.DeviceKind) models.Quality {
	q := models.Quality{
		SignalQuality: initialSignalQuality,
		Confidence:    initialConfidence,
	}

	for _, vital := range expectedCoreVitals[kind] {
		if vitalPresent(signs, vital) {
			continue
		}
		q.Confidence -= missingVitalPenalty
		q.Issues = append(q.Issues, fmt.Sprintf("expected vital %s missing for device kind %s", vital, kind))
	}

	check := func(vital models.VitalType, value float64, band suspicionBand) {
		if value >= band.low && value <= band.high {
			return
		}
		q.Confidence -= suspectVitalPenalty
		q.SignalQuality -= suspectSignalPenalty
		q.Issues = append(q.Issues, fmt.Sprintf("%s value %.1f is implausible for a stable sensor", vital, value))
	}

	if signs.HeartRate != nil {
		check(models.VitalHeartRate, *signs.HeartRate, suspicionBands[models.VitalHeartRate])
	}
	if signs.BloodPressure != nil {
		check(models.VitalBloodPressure, signs.BloodPressure.Systolic, systolicSuspicion)
		check(models.VitalBloodPressure, signs.BloodPressure.Diastolic, diastolicSuspicion)
	}
	if signs.OxygenSaturation != nil {
		check(models.VitalOxygenSaturation, *signs.OxygenSaturation, suspicionBands[models.VitalOxygenSaturation])
	}
	if signs.Temperature != nil {
		check(models.VitalTemperature, *signs.Temperature, suspicionBands[models.VitalTemperature])
	}
	if signs.RespiratoryRate != nil {
		check(models.VitalRespiratoryRate, *signs.RespiratoryRate, suspicionBands[models.VitalRespiratoryRate])
	}

	q.Confidence = clamp(q.Confidence, 0, 1)
	q.SignalQuality = clamp(q.SignalQuality, 0, 100)
	return q
}

func vitalPresent(signs models.VitalSigns, vital models.VitalType) bool {
	switch vital {
	case models.VitalHeartRate:
		return signs.HeartRate != nil
	case models.VitalBloodPressure:
		return signs.BloodPressure != nil
	case models.VitalOxygenSaturation:
		return signs.OxygenSaturation != nil
	case models.VitalTemperature:
		return signs.Temperature != nil
	case models.VitalRespiratoryRate:
		return signs.RespiratoryRate != nil
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
