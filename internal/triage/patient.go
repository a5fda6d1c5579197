package triage

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// PatientInfo identifies the patient under triage. Immutable for the
// duration of a session once submitted.
type PatientInfo struct {
	Name string
	Age  string
	Sex  string // "M" or "F"
}

// Validate checks the intake form rules: all fields required, age numeric.
func (p PatientInfo) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("nome é obrigatório")
	}
	if strings.TrimSpace(p.Age) == "" {
		return errors.New("idade é obrigatória")
	}
	if _, err := strconv.Atoi(strings.TrimSpace(p.Age)); err != nil {
		return errors.New("idade deve ser numérica")
	}
	if p.Sex != "M" && p.Sex != "F" {
		return errors.New("sexo deve ser M ou F")
	}
	return nil
}

// ContextLine renders the patient summary mirrored to the remote transcript
// before the interview begins.
func (p PatientInfo) ContextLine() string {
	sex := "Masculino"
	if p.Sex == "F" {
		sex = "Feminino"
	}
	return fmt.Sprintf("PACIENTE: %s, IDADE: %s, SEXO: %s.", p.Name, p.Age, sex)
}
