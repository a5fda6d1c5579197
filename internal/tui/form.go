package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/clinicore/triage-intake/internal/triage"
)

// patient form field indices
const (
	fieldName = iota
	fieldAge
	fieldSex
	fieldCount
)

type patientForm struct {
	nameInput textinput.Model
	ageInput  textinput.Model
	sex       string // "M" or "F"
	focus     int
	errText   string
}

func newPatientForm() patientForm {
	ni := textinput.New()
	ni.Placeholder = "Nome do paciente"
	ni.CharLimit = 120
	ni.Focus()

	ai := textinput.New()
	ai.Placeholder = "Idade"
	ai.CharLimit = 3

	return patientForm{
		nameInput: ni,
		ageInput:  ai,
		sex:       "M",
		focus:     fieldName,
	}
}

func (f *patientForm) info() triage.PatientInfo {
	return triage.PatientInfo{
		Name: strings.TrimSpace(f.nameInput.Value()),
		Age:  strings.TrimSpace(f.ageInput.Value()),
		Sex:  f.sex,
	}
}

func (f *patientForm) next() {
	f.focus = (f.focus + 1) % fieldCount
	f.syncFocus()
}

func (f *patientForm) prev() {
	f.focus = (f.focus + fieldCount - 1) % fieldCount
	f.syncFocus()
}

func (f *patientForm) syncFocus() {
	f.nameInput.Blur()
	f.ageInput.Blur()
	switch f.focus {
	case fieldName:
		f.nameInput.Focus()
	case fieldAge:
		f.ageInput.Focus()
	}
}

func (f *patientForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch f.focus {
	case fieldName:
		f.nameInput, cmd = f.nameInput.Update(msg)
	case fieldAge:
		f.ageInput, cmd = f.ageInput.Update(msg)
	case fieldSex:
		if key, ok := msg.(tea.KeyMsg); ok {
			switch key.String() {
			case "left", "right", " ":
				if f.sex == "M" {
					f.sex = "F"
				} else {
					f.sex = "M"
				}
			case "m", "M":
				f.sex = "M"
			case "f", "F":
				f.sex = "F"
			}
		}
	}
	return cmd
}

func (f *patientForm) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Identificação do Paciente"))
	b.WriteString("\n\n")

	b.WriteString(fieldLabel("Nome", f.focus == fieldName))
	b.WriteString(f.nameInput.View())
	b.WriteString("\n")
	b.WriteString(fieldLabel("Idade", f.focus == fieldAge))
	b.WriteString(f.ageInput.View())
	b.WriteString("\n")
	b.WriteString(fieldLabel("Sexo", f.focus == fieldSex))
	if f.sex == "M" {
		b.WriteString("[Masculino] Feminino")
	} else {
		b.WriteString("Masculino [Feminino]")
	}
	b.WriteString("\n\n")
	if f.errText != "" {
		b.WriteString(errorStyle.Render(f.errText))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("tab: próximo campo · enter: iniciar triagem · ctrl+c: sair"))
	return b.String()
}

func fieldLabel(label string, focused bool) string {
	marker := "  "
	if focused {
		marker = "> "
	}
	return marker + label + ": "
}
