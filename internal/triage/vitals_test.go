package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPayloadBloodPressureMerge(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]string
		want map[string]string
	}{
		{
			name: "both halves merge",
			set:  map[string]string{SensorBPSystolic: "120", SensorBPDiastolic: "80"},
			want: map[string]string{SensorBloodPressure: "120/80"},
		},
		{
			name: "lone systolic dropped",
			set:  map[string]string{SensorBPSystolic: "120"},
			want: map[string]string{},
		},
		{
			name: "lone diastolic dropped",
			set:  map[string]string{SensorBPDiastolic: "80"},
			want: map[string]string{},
		},
		{
			name: "other readings pass through",
			set: map[string]string{
				SensorHeartRate:   "88",
				SensorBPSystolic:  "130",
				SensorBPDiastolic: "85",
				SensorTemperature: "37.2",
			},
			want: map[string]string{
				SensorHeartRate:     "88",
				SensorTemperature:   "37.2",
				SensorBloodPressure: "130/85",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVitalSigns()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			assert.Equal(t, tt.want, v.Payload())
		})
	}
}

func TestPayloadNeverContainsConstituents(t *testing.T) {
	v := NewVitalSigns()
	v.Set(SensorBPSystolic, "120")
	v.Set(SensorBPDiastolic, "80")

	payload := v.Payload()
	_, hasSys := payload[SensorBPSystolic]
	_, hasDia := payload[SensorBPDiastolic]
	assert.False(t, hasSys)
	assert.False(t, hasDia)

	// The buffer still retains both halves for editing.
	assert.Equal(t, "120", v.Get(SensorBPSystolic))
	assert.Equal(t, "80", v.Get(SensorBPDiastolic))
}

func TestIncompleteBloodPressure(t *testing.T) {
	v := NewVitalSigns()
	assert.False(t, v.IncompleteBloodPressure())

	v.Set(SensorBPSystolic, "120")
	assert.True(t, v.IncompleteBloodPressure())

	v.Set(SensorBPDiastolic, "80")
	assert.False(t, v.IncompleteBloodPressure())

	v.Set(SensorBPSystolic, "")
	assert.True(t, v.IncompleteBloodPressure())
}

func TestSetEmptyRemovesKey(t *testing.T) {
	v := NewVitalSigns()
	v.Set(SensorHeartRate, "88")
	v.Set(SensorHeartRate, "")
	assert.Empty(t, v.Values())
}

func TestSensorLabel(t *testing.T) {
	assert.Equal(t, "Frequência Cardíaca", SensorLabel(SensorHeartRate))
	assert.Equal(t, "Saturação de Oxigênio", SensorLabel(SensorOxygenSaturation))
	// Server-side alias resolves to the Glasgow label.
	assert.Equal(t, "Nível de Consciência Glasgow", SensorLabel("gcs_scale"))
	// Unknown keys pass through untranslated.
	assert.Equal(t, "capnography", SensorLabel("capnography"))
}

func TestMissingSet(t *testing.T) {
	v := NewVitalSigns()
	v.SetMissing([]string{SensorHeartRate, "gcs_scale"})

	assert.True(t, v.IsMissing(SensorHeartRate))
	assert.True(t, v.IsMissing("gcs_scale"))
	// The alias marks the local gcs key as missing too.
	assert.True(t, v.IsMissing(SensorGCS))
	assert.False(t, v.IsMissing(SensorTemperature))

	v.ClearMissing()
	assert.Empty(t, v.Missing())

	v.SetMissing([]string{SensorPainScale})
	v.Reset()
	assert.Empty(t, v.Missing())
	assert.Empty(t, v.Values())
}
