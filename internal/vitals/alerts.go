package vitals

import (
	"github.com/medassist/telemetry-gateway/internal/models"
)

// Clinical alert thresholds. Each vital uses a four-edge band: values in
// the critical edges always raise CRITICAL, values between normal and
// critical raise the abnormal severity, values inside the normal band
// raise nothing.
const (
	hrNormalLow, hrNormalHigh     = 60.0, 100.0
	hrCriticalLow, hrCriticalHigh = 40.0, 150.0

	sysNormalLow, sysNormalHigh     = 90.0, 140.0
	sysCriticalLow, sysCriticalHigh = 70.0, 180.0
	diaNormalLow, diaNormalHigh     = 60.0, 90.0

	spo2NormalLow   = 95.0
	spo2CriticalLow = 90.0

	tempNormalLow, tempNormalHigh     = 36.1, 37.2
	tempCriticalLow, tempCriticalHigh = 35.0, 39.0

	rrNormalLow, rrNormalHigh     = 12.0, 20.0
	rrCriticalLow, rrCriticalHigh = 8.0, 30.0
)

// Alerts evaluates every present vital against its threshold bands. Each
// breached vital yields exactly one alert; a value inside its normal band
// yields none.
func Alerts(signs models.VitalSigns) []models.Alert {
	var alerts []models.Alert

	if signs.HeartRate != nil {
		if a := heartRateAlert(*signs.HeartRate); a != nil {
			alerts = append(alerts, *a)
		}
	}
	if signs.BloodPressure != nil {
		if a := bloodPressureAlert(*signs.BloodPressure); a != nil {
			alerts = append(alerts, *a)
		}
	}
	if signs.OxygenSaturation != nil {
		if a := oxygenAlert(*signs.OxygenSaturation); a != nil {
			alerts = append(alerts, *a)
		}
	}
	if signs.Temperature != nil {
		if a := temperatureAlert(*signs.Temperature); a != nil {
			alerts = append(alerts, *a)
		}
	}
	if signs.RespiratoryRate != nil {
		if a := respiratoryAlert(*signs.RespiratoryRate); a != nil {
			alerts = append(alerts, *a)
		}
	}

	return alerts
}

func heartRateAlert(hr float64) *models.Alert {
	switch {
	case hr < hrCriticalLow:
		return alert(models.VitalHeartRate, models.SeverityCritical, models.BandCriticalLow, hr, hrCriticalLow,
			"Severe bradycardia - Immediate medical evaluation required")
	case hr > hrCriticalHigh:
		return alert(models.VitalHeartRate, models.SeverityCritical, models.BandCriticalHigh, hr, hrCriticalHigh,
			"Severe tachycardia - Immediate medical evaluation required")
	case hr < hrNormalLow:
		return alert(models.VitalHeartRate, models.SeverityMedium, models.BandLow, hr, hrNormalLow,
			"Bradycardia - Assess patient status")
	case hr > hrNormalHigh:
		return alert(models.VitalHeartRate, models.SeverityMedium, models.BandHigh, hr, hrNormalHigh,
			"Tachycardia - Evaluate for underlying cause")
	}
	return nil
}

// bloodPressureAlert treats the pair as one vital. The critical edges are
// systolic-driven; the plain abnormal tiers consider both values, with the
// high side ranked HIGH and the low side MEDIUM.
func bloodPressureAlert(bp models.BloodPressure) *models.Alert {
	switch {
	case bp.Systolic > sysCriticalHigh:
		return alert(models.VitalBloodPressure, models.SeverityCritical, models.BandCriticalHigh, bp.Systolic, sysCriticalHigh,
			"Hypertensive crisis - Immediate physician review required")
	case bp.Systolic < sysCriticalLow:
		return alert(models.VitalBloodPressure, models.SeverityCritical, models.BandCriticalLow, bp.Systolic, sysCriticalLow,
			"Severe hypotension - Immediate intervention required")
	case bp.Systolic > sysNormalHigh:
		return alert(models.VitalBloodPressure, models.SeverityHigh, models.BandHigh, bp.Systolic, sysNormalHigh,
			"Hypertension detected - Monitor closely")
	case bp.Diastolic > diaNormalHigh:
		return alert(models.VitalBloodPressure, models.SeverityHigh, models.BandHigh, bp.Diastolic, diaNormalHigh,
			"Hypertension detected - Monitor closely")
	case bp.Systolic < sysNormalLow:
		return alert(models.VitalBloodPressure, models.SeverityMedium, models.BandLow, bp.Systolic, sysNormalLow,
			"Hypotension detected - Monitor closely")
	case bp.Diastolic < diaNormalLow:
		return alert(models.VitalBloodPressure, models.SeverityMedium, models.BandLow, bp.Diastolic, diaNormalLow,
			"Hypotension detected - Monitor closely")
	}
	return nil
}

func oxygenAlert(spo2 float64) *models.Alert {
	switch {
	case spo2 < spo2CriticalLow:
		return alert(models.VitalOxygenSaturation, models.SeverityCritical, models.BandCriticalLow, spo2, spo2CriticalLow,
			"Severe hypoxemia - Immediate intervention required")
	case spo2 < spo2NormalLow:
		return alert(models.VitalOxygenSaturation, models.SeverityHigh, models.BandLow, spo2, spo2NormalLow,
			"Hypoxemia - Supplemental oxygen may be needed")
	}
	return nil
}

func temperatureAlert(temp float64) *models.Alert {
	switch {
	case temp < tempCriticalLow:
		return alert(models.VitalTemperature, models.SeverityCritical, models.BandCriticalLow, temp, tempCriticalLow,
			"Severe hypothermia - Immediate medical evaluation required")
	case temp > tempCriticalHigh:
		return alert(models.VitalTemperature, models.SeverityCritical, models.BandCriticalHigh, temp, tempCriticalHigh,
			"High fever - Immediate medical evaluation required")
	case temp < tempNormalLow:
		return alert(models.VitalTemperature, models.SeverityMedium, models.BandLow, temp, tempNormalLow,
			"Hypothermia - Assess patient condition")
	case temp > tempNormalHigh:
		return alert(models.VitalTemperature, models.SeverityHigh, models.BandHigh, temp, tempNormalHigh,
			"Fever detected - Evaluate for infection")
	}
	return nil
}

func respiratoryAlert(rr float64) *models.Alert {
	switch {
	case rr < rrCriticalLow:
		return alert(models.VitalRespiratoryRate, models.SeverityCritical, models.BandCriticalLow, rr, rrCriticalLow,
			"Severe bradypnea - Immediate medical evaluation required")
	case rr > rrCriticalHigh:
		return alert(models.VitalRespiratoryRate, models.SeverityCritical, models.BandCriticalHigh, rr, rrCriticalHigh,
			"Severe tachypnea - Immediate medical evaluation required")
	case rr < rrNormalLow:
		return alert(models.VitalRespiratoryRate, models.SeverityMedium, models.BandLow, rr, rrNormalLow,
			"Bradypnea - Monitor respiratory status")
	case rr > rrNormalHigh:
		return alert(models.VitalRespiratoryRate, models.SeverityMedium, models.BandHigh, rr, rrNormalHigh,
			"Tachypnea - Monitor respiratory status")
	}
	return nil
}

func alert(vital models.VitalType, sev models.Severity, band models.Band, value, threshold float64, msg string) *models.Alert {
	return &models.Alert{
		Vital:     vital,
		Severity:  sev,
		Message:   msg,
		Value:     value,
		Band:      band,
		Threshold: threshold,
	}
}
