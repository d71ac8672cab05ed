package validation

import (
	"fmt"
	"time"

	"github.com/medassist/telemetry-gateway/internal/models"
	"github.com/medassist/telemetry-gateway/internal/vitals"
)

// Hard plausibility bounds. Values outside these cannot be a live human
// reading and are rejected before extraction.
const (
	HeartRateMin = 30
	HeartRateMax = 250

	SystolicMin  = 60
	SystolicMax  = 250
	DiastolicMin = 40
	DiastolicMax = 150

	OxygenSaturationMin = 70
	OxygenSaturationMax = 100

	TemperatureMin = 32
	TemperatureMax = 43

	RespiratoryRateMin = 5
	RespiratoryRateMax = 60

	// MaxFutureSkew and MaxAge bound the frame's own timestamp.
	MaxFutureSkew = 60 * time.Second
	MaxAge        = 24 * time.Hour
)

// requiredField maps device kinds to the field a frame from that kind must
// carry. Kinds absent from the map have no required field.
var requiredField = map[models.DeviceKind]vitals.Field{
	models.DeviceKindHeartRateMonitor:   vitals.FieldHeartRate,
	models.DeviceKindBloodPressureCuff:  vitals.FieldBloodPressure,
	models.DeviceKindPulseOximeter:      vitals.FieldOxygenSaturation,
	models.DeviceKindThermometer:        vitals.FieldTemperature,
	models.DeviceKindRespiratoryMonitor: vitals.FieldRespiratoryRate,
}

// Result is the outcome of validating one raw frame. The frame is valid
// iff Errors is empty; Warnings never block ingestion.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Validator applies the hard plausibility rules to raw frames. It holds no
// state beyond an injectable clock: identical input yields identical
// output.
type Validator struct {
	now func() time.Time
}

// NewValidator creates a validator using the wall clock.
func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// NewValidatorAt creates a validator with a fixed clock, for tests.
func NewValidatorAt(now func() time.Time) *Validator {
	return &Validator{now: now}
}

// Validate checks every recognized field of the frame against its
// plausible physiological range, independently per field.
func (v *Validator) Validate(frame models.RawFrame, kind models.DeviceKind) Result {
	var res Result

	if hr, _, ok := vitals.ResolveNumber(frame, vitals.FieldHeartRate); ok {
		if hr < HeartRateMin || hr > HeartRateMax {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"heart rate %.0f bpm outside plausible range [%d, %d]", hr, HeartRateMin, HeartRateMax))
		}
	}

	if bp, ok := vitals.ResolveBloodPressure(frame); ok {
		if bp.Systolic < SystolicMin || bp.Systolic > SystolicMax {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"systolic pressure %.0f mmHg outside plausible range [%d, %d]", bp.Systolic, SystolicMin, SystolicMax))
		}
		if bp.Diastolic < DiastolicMin || bp.Diastolic > DiastolicMax {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"diastolic pressure %.0f mmHg outside plausible range [%d, %d]", bp.Diastolic, DiastolicMin, DiastolicMax))
		}
		// Inconsistent pairs are rejected even when both values are
		// individually in range.
		if bp.Systolic <= bp.Diastolic {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"systolic pressure %.0f not greater than diastolic %.0f", bp.Systolic, bp.Diastolic))
		}
	}

	if spo2, _, ok := vitals.ResolveNumber(frame, vitals.FieldOxygenSaturation); ok {
		if spo2 < OxygenSaturationMin || spo2 > OxygenSaturationMax {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"oxygen saturation %.0f%% outside plausible range [%d, %d]", spo2, OxygenSaturationMin, OxygenSaturationMax))
		}
	}

	if temp, _, ok := vitals.ResolveNumber(frame, vitals.FieldTemperature); ok {
		c := vitals.NormalizeTemperature(temp)
		if c < TemperatureMin || c > TemperatureMax {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"temperature %.1f°C outside plausible range [%d, %d]", c, TemperatureMin, TemperatureMax))
		}
	}

	if rr, _, ok := vitals.ResolveNumber(frame, vitals.FieldRespiratoryRate); ok {
		if rr < RespiratoryRateMin || rr > RespiratoryRateMax {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"respiratory rate %.0f breaths/min outside plausible range [%d, %d]", rr, RespiratoryRateMin, RespiratoryRateMax))
		}
	}

	if sq, _, ok := vitals.ResolveNumber(frame, vitals.FieldSignalQuality); ok {
		if sq < 0 || sq > 100 {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"signal quality %.0f outside gauge range [0, 100]", sq))
		} else if sq < 50 {
			res.Warnings = append(res.Warnings, "low signal quality")
		}
	}

	if ts, present, err := vitals.ResolveTimestamp(frame); present {
		switch {
		case err != nil:
			res.Errors = append(res.Errors, err.Error())
		case ts.After(v.now().Add(MaxFutureSkew)):
			res.Errors = append(res.Errors, fmt.Sprintf(
				"timestamp %s is more than 60 seconds in the future", ts.Format(time.RFC3339)))
		case ts.Before(v.now().Add(-MaxAge)):
			res.Errors = append(res.Errors, fmt.Sprintf(
				"timestamp %s is more than 24 hours in the past", ts.Format(time.RFC3339)))
		}
	}

	if field, ok := requiredField[kind]; ok && !hasSemanticField(frame, field) {
		res.Errors = append(res.Errors, fmt.Sprintf(
			"missing required field %s for device kind %s", field, kind))
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// hasSemanticField checks presence of a semantic field, treating the blood
// pressure pair as present when either representation resolves.
func hasSemanticField(frame models.RawFrame, field vitals.Field) bool {
	if field == vitals.FieldBloodPressure {
		_, ok := vitals.ResolveBloodPressure(frame)
		return ok
	}
	return vitals.HasField(frame, field)
}
