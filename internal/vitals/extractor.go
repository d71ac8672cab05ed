package vitals

import (
	"github.com/medassist/telemetry-gateway/internal/models"
)

// attemptedVitals narrows which canonical fields extraction tries for each
// device kind. Cuffs and oximeters also report a pulse, so heart rate is
// attempted for them.
var attemptedVitals = map[models.DeviceKind][]models.VitalType{
	models.DeviceKindVitalSignsMonitor: {
		models.VitalHeartRate, models.VitalBloodPressure,
		models.VitalOxygenSaturation, models.VitalTemperature,
		models.VitalRespiratoryRate,
	},
	models.DeviceKindHeartRateMonitor:   {models.VitalHeartRate},
	models.DeviceKindBloodPressureCuff:  {models.VitalBloodPressure, models.VitalHeartRate},
	models.DeviceKindPulseOximeter:      {models.VitalOxygenSaturation, models.VitalHeartRate},
	models.DeviceKindThermometer:        {models.VitalTemperature},
	models.DeviceKindRespiratoryMonitor: {models.VitalRespiratoryRate},
	models.DeviceKindGeneric: {
		models.VitalHeartRate, models.VitalBloodPressure,
		models.VitalOxygenSaturation, models.VitalTemperature,
		models.VitalRespiratoryRate,
	},
}

// Extract resolves the canonical vital fields from a raw frame that has
// already passed validation. Fields that resolve to nothing are simply
// absent from the result. The returned warnings report conflicting aliases
// that were present with different values; extraction keeps the first
// match by priority.
func Extract(frame models.RawFrame, kind models.DeviceKind) (models.VitalSigns, []string) {
	var (
		out      models.VitalSigns
		warnings []string
	)

	for _, vital := range attemptedVitals[kind] {
		switch vital {
		case models.VitalHeartRate:
			if hr, _, ok := ResolveNumber(frame, FieldHeartRate); ok {
				out.HeartRate = &hr
			}
			warnings = append(warnings, Conflicts(frame, FieldHeartRate)...)

		case models.VitalBloodPressure:
			if bp, ok := ResolveBloodPressure(frame); ok {
				out.BloodPressure = bp
			}
			warnings = append(warnings, Conflicts(frame, FieldSystolic)...)
			warnings = append(warnings, Conflicts(frame, FieldDiastolic)...)

		case models.VitalOxygenSaturation:
			if spo2, _, ok := ResolveNumber(frame, FieldOxygenSaturation); ok {
				out.OxygenSaturation = &spo2
			}
			warnings = append(warnings, Conflicts(frame, FieldOxygenSaturation)...)

		case models.VitalTemperature:
			if temp, _, ok := ResolveNumber(frame, FieldTemperature); ok {
				c := NormalizeTemperature(temp)
				out.Temperature = &c
			}
			warnings = append(warnings, Conflicts(frame, FieldTemperature)...)

		case models.VitalRespiratoryRate:
			if rr, _, ok := ResolveNumber(frame, FieldRespiratoryRate); ok {
				out.RespiratoryRate = &rr
			}
			warnings = append(warnings, Conflicts(frame, FieldRespiratoryRate)...)
		}
	}

	return out, warnings
}

// Process runs extraction, quality scoring and alert generation for one
// validated frame. It is the single entry point the gateway uses.
func Process(frame models.RawFrame, kind models.DeviceKind) (models.VitalSigns, models.Quality, []models.Alert, []string) {
	signs, warnings := Extract(frame, kind)
	quality := Score(signs, kind)
	alerts := Alerts(signs)
	return signs, quality, alerts, warnings
}
