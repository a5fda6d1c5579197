package triage

import "fmt"

// Sensor keys in the vocabulary the decision service accepts.
const (
	SensorBloodGlucose     = "blood_glucose"
	SensorBloodPressure    = "blood_pressure"
	SensorGCS              = "gcs"
	SensorHeartRate        = "heart_rate"
	SensorOxygenSaturation = "oxygen_saturation"
	SensorPainScale        = "pain_scale"
	SensorRespiratoryRate  = "respiratory_rate"
	SensorTemperature      = "temperature"

	// UI-only constituents of blood_pressure. Never sent to the server.
	SensorBPSystolic  = "bp_systolic"
	SensorBPDiastolic = "bp_diastolic"

	// Server-side alias for gcs, used only for label lookup.
	sensorGCSAlias = "gcs_scale"
)

// SensorInfo describes one vital sign for display purposes.
type SensorInfo struct {
	Key       string
	Label     string
	FullLabel string
	Hint      string
	Composite bool
	Min       int
	Max       int
}

// sensorCatalog keeps the panel ordering of the reference client.
var sensorCatalog = []SensorInfo{
	{Key: SensorBloodGlucose, Label: "Glicemia", FullLabel: "Níveis de Glicose no Sangue", Hint: "mg/dL"},
	{Key: SensorBloodPressure, Label: "PA", FullLabel: "Pressão Arterial", Hint: "mmHg", Composite: true},
	{Key: SensorGCS, Label: "Glasgow", FullLabel: "Nível de Consciência Glasgow", Hint: "3-15", Min: 3, Max: 15},
	{Key: SensorHeartRate, Label: "FC", FullLabel: "Frequência Cardíaca", Hint: "bpm"},
	{Key: SensorOxygenSaturation, Label: "SpO2", FullLabel: "Saturação de Oxigênio", Hint: "%"},
	{Key: SensorPainScale, Label: "Dor", FullLabel: "Escala subjetiva de dor", Hint: "0-10", Min: 0, Max: 10},
	{Key: SensorRespiratoryRate, Label: "FR", FullLabel: "Frequência Respiratória", Hint: "irpm"},
	{Key: SensorTemperature, Label: "Temp", FullLabel: "Temperatura Corporal", Hint: "°C"},
}

// Sensors returns the display catalog in panel order.
func Sensors() []SensorInfo {
	out := make([]SensorInfo, len(sensorCatalog))
	copy(out, sensorCatalog)
	return out
}

// SensorLabel translates a sensor key into its full display label. The
// gcs_scale alias maps to gcs for lookup only; unknown keys pass through.
func SensorLabel(key string) string {
	lookup := key
	if lookup == sensorGCSAlias {
		lookup = SensorGCS
	}
	for _, info := range sensorCatalog {
		if info.Key == lookup {
			if info.FullLabel != "" {
				return info.FullLabel
			}
			return info.Label
		}
	}
	return key
}

// VitalSigns buffers raw sensor input and the missing-sensor set reported by
// the server. It is owned by the orchestrator and not safe for concurrent
// use on its own.
type VitalSigns struct {
	values  map[string]string
	missing []string
}

// NewVitalSigns returns an empty buffer.
func NewVitalSigns() *VitalSigns {
	return &VitalSigns{values: make(map[string]string)}
}

// Set records a raw reading. An empty value removes the key.
func (v *VitalSigns) Set(key, value string) {
	if value == "" {
		delete(v.values, key)
		return
	}
	v.values[key] = value
}

// Get returns the raw value for a key, if present.
func (v *VitalSigns) Get(key string) string {
	return v.values[key]
}

// Values returns a copy of the raw buffer, including transient keys.
func (v *VitalSigns) Values() map[string]string {
	out := make(map[string]string, len(v.values))
	for k, val := range v.values {
		out[k] = val
	}
	return out
}

// Payload returns what goes on the wire: the raw readings with the
// blood-pressure composite rule applied. Systolic and diastolic merge into
// blood_pressure "<sys>/<dia>" only when both are present; a lone half is
// dropped and neither constituent key is ever transmitted.
func (v *VitalSigns) Payload() map[string]string {
	out := make(map[string]string, len(v.values))
	for k, val := range v.values {
		if k == SensorBPSystolic || k == SensorBPDiastolic {
			continue
		}
		out[k] = val
	}
	sys, dia := v.values[SensorBPSystolic], v.values[SensorBPDiastolic]
	if sys != "" && dia != "" {
		out[SensorBloodPressure] = fmt.Sprintf("%s/%s", sys, dia)
	}
	return out
}

// IncompleteBloodPressure reports whether exactly one half of the pair is
// set, meaning the reading will be silently dropped from the payload.
func (v *VitalSigns) IncompleteBloodPressure() bool {
	sys, dia := v.values[SensorBPSystolic], v.values[SensorBPDiastolic]
	return (sys == "") != (dia == "")
}

// SetMissing replaces the missing-sensor set with the server-reported keys.
func (v *VitalSigns) SetMissing(keys []string) {
	v.missing = append([]string(nil), keys...)
}

// ClearMissing empties the missing-sensor set.
func (v *VitalSigns) ClearMissing() {
	v.missing = nil
}

// Missing returns a copy of the missing-sensor set.
func (v *VitalSigns) Missing() []string {
	return append([]string(nil), v.missing...)
}

// IsMissing reports whether the key (or its alias) is in the missing set.
func (v *VitalSigns) IsMissing(key string) bool {
	for _, m := range v.missing {
		if m == key {
			return true
		}
		if m == sensorGCSAlias && key == SensorGCS {
			return true
		}
	}
	return false
}

// Reset clears all readings and the missing set.
func (v *VitalSigns) Reset() {
	v.values = make(map[string]string)
	v.missing = nil
}
