package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/clinicore/triage-intake/internal/triage"
)

type vitalField struct {
	key   string
	label string
	hint  string
	input textinput.Model
}

type vitalsPanel struct {
	fields []vitalField
	focus  int
}

func newVitalsPanel() vitalsPanel {
	var fields []vitalField
	add := func(key, label, hint string) {
		in := textinput.New()
		in.Placeholder = "-"
		in.CharLimit = 8
		fields = append(fields, vitalField{key: key, label: label, hint: hint, input: in})
	}

	for _, info := range triage.Sensors() {
		if info.Composite {
			add(triage.SensorBPSystolic, info.Label+" SIS", info.Hint)
			add(triage.SensorBPDiastolic, info.Label+" DIA", info.Hint)
			continue
		}
		add(info.Key, info.Label, info.Hint)
	}

	p := vitalsPanel{fields: fields}
	p.syncFocus()
	return p
}

func (p *vitalsPanel) syncFocus() {
	for i := range p.fields {
		if i == p.focus {
			p.fields[i].input.Focus()
		} else {
			p.fields[i].input.Blur()
		}
	}
}

func (p *vitalsPanel) next() {
	p.focus = (p.focus + 1) % len(p.fields)
	p.syncFocus()
}

func (p *vitalsPanel) prev() {
	p.focus = (p.focus + len(p.fields) - 1) % len(p.fields)
	p.syncFocus()
}

func (p *vitalsPanel) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	p.fields[p.focus].input, cmd = p.fields[p.focus].input.Update(msg)
	return cmd
}

// apply copies the panel values into the orchestrator's buffer.
func (p *vitalsPanel) apply(orch *triage.Orchestrator) {
	for _, f := range p.fields {
		orch.SetVital(f.key, strings.TrimSpace(f.input.Value()))
	}
}

// fillNormals loads textbook-normal values into every field.
func (p *vitalsPanel) fillNormals() {
	normals := map[string]string{
		triage.SensorBloodGlucose:     "100",
		triage.SensorBPSystolic:       "120",
		triage.SensorBPDiastolic:      "80",
		triage.SensorGCS:              "15",
		triage.SensorHeartRate:        "80",
		triage.SensorOxygenSaturation: "98",
		triage.SensorPainScale:        "0",
		triage.SensorRespiratoryRate:  "15",
		triage.SensorTemperature:      "37",
	}
	for i := range p.fields {
		if v, ok := normals[p.fields[i].key]; ok {
			p.fields[i].input.SetValue(v)
		}
	}
}

func (p *vitalsPanel) reset() {
	for i := range p.fields {
		p.fields[i].input.SetValue("")
	}
	p.focus = 0
	p.syncFocus()
}

func (p *vitalsPanel) view(orch *triage.Orchestrator) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Sinais Vitais"))
	b.WriteString("\n")
	for i, f := range p.fields {
		marker := "  "
		if i == p.focus {
			marker = "> "
		}
		label := f.label
		if orch.MissingSensors() != nil && isMissingField(orch, f.key) {
			label = missingStyle.Render(label)
		}
		b.WriteString(marker + label + " (" + f.hint + "): " + f.input.View() + "\n")
	}
	b.WriteString(dimStyle.Render("↑/↓: campo · ctrl+f: valores normais · ctrl+d: enviar sinais vitais"))
	return b.String()
}

func isMissingField(orch *triage.Orchestrator, key string) bool {
	lookup := key
	if key == triage.SensorBPSystolic || key == triage.SensorBPDiastolic {
		lookup = triage.SensorBloodPressure
	}
	for _, m := range orch.MissingSensors() {
		if m == lookup {
			return true
		}
		if m == "gcs_scale" && lookup == triage.SensorGCS {
			return true
		}
	}
	return false
}
