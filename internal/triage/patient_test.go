package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatientInfoValidate(t *testing.T) {
	tests := []struct {
		name    string
		info    PatientInfo
		wantErr string
	}{
		{"valid male", PatientInfo{Name: "João", Age: "45", Sex: "M"}, ""},
		{"valid female", PatientInfo{Name: "Ana", Age: "30", Sex: "F"}, ""},
		{"missing name", PatientInfo{Name: "  ", Age: "30", Sex: "F"}, "nome é obrigatório"},
		{"missing age", PatientInfo{Name: "Ana", Age: "", Sex: "F"}, "idade é obrigatória"},
		{"non-numeric age", PatientInfo{Name: "Ana", Age: "trinta", Sex: "F"}, "idade deve ser numérica"},
		{"invalid sex", PatientInfo{Name: "Ana", Age: "30", Sex: "x"}, "sexo deve ser M ou F"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.info.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestPatientInfoContextLine(t *testing.T) {
	m := PatientInfo{Name: "João", Age: "45", Sex: "M"}
	assert.Equal(t, "PACIENTE: João, IDADE: 45, SEXO: Masculino.", m.ContextLine())

	f := PatientInfo{Name: "Ana", Age: "30", Sex: "F"}
	assert.Equal(t, "PACIENTE: Ana, IDADE: 30, SEXO: Feminino.", f.ContextLine())
}
