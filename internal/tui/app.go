// Package tui is the interactive terminal front-end for the intake
// orchestrator. Layout is intentionally spartan; all interview logic lives
// in internal/triage.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/clinicore/triage-intake/internal/transcribe"
	"github.com/clinicore/triage-intake/internal/triage"
)

type mode int

const (
	modeIntake mode = iota
	modeChat
	modeVitals
	modeProtocols
	modeResult
)

const opTimeout = 60 * time.Second

// Model is the bubbletea model wrapping one orchestrator.
type Model struct {
	orch *triage.Orchestrator
	feed *transcribe.Feed

	mode   mode
	form   patientForm
	vitals vitalsPanel
	input  textinput.Model

	protoCursor int
	width       int
	height      int
	pending     bool
	recording   bool
	textBefore  string
	status      string
	quitting    bool
}

type patientDoneMsg struct{ err error }
type opDoneMsg struct{ err error }
type catalogMsg struct{ err error }
type feedMsg transcribe.Update
type feedStartedMsg struct{ err error }

// NewModel creates the TUI model. feed may be nil when no transcription
// gateway is configured; the mic toggle is then disabled.
func NewModel(orch *triage.Orchestrator, feed *transcribe.Feed) Model {
	in := textinput.New()
	in.Placeholder = "Digite a queixa do paciente..."
	in.CharLimit = 500

	return Model{
		orch:   orch,
		feed:   feed,
		mode:   modeIntake,
		form:   newPatientForm(),
		vitals: newVitalsPanel(),
		input:  in,
		width:  100,
		height: 30,
	}
}

func (m Model) Init() tea.Cmd {
	return m.loadCatalog
}

func (m Model) loadCatalog() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return catalogMsg{err: m.orch.LoadCatalog(ctx)}
}

func (m Model) submitPatient(info triage.PatientInfo) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return patientDoneMsg{err: m.orch.SubmitPatientInfo(ctx, info)}
	}
}

func (m Model) sendMessage(text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return opDoneMsg{err: m.orch.SendMessage(ctx, text)}
	}
}

func (m Model) confirmProtocol(c triage.Candidate) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return opDoneMsg{err: m.orch.ConfirmProtocol(ctx, c)}
	}
}

func (m Model) submitVitals() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return opDoneMsg{err: m.orch.SubmitVitals(ctx)}
	}
}

func (m Model) startFeed() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return feedStartedMsg{err: m.feed.Start(ctx)}
	}
}

func (m Model) listenFeed() tea.Cmd {
	ch := m.feed.Updates()
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return feedMsg(u)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case catalogMsg:
		if msg.err != nil {
			m.status = "Falha ao carregar o catálogo de protocolos."
		}
		return m, nil

	case patientDoneMsg:
		m.pending = false
		if msg.err != nil {
			m.form.errText = "Erro ao iniciar sessão. Tente novamente."
			return m, nil
		}
		m.form.errText = ""
		m.mode = modeChat
		m.input.Focus()
		return m, nil

	case opDoneMsg:
		m.pending = false
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		return m.syncMode(), nil

	case feedStartedMsg:
		if msg.err != nil {
			m.recording = false
			m.status = "Não foi possível iniciar a gravação."
			return m, nil
		}
		return m, m.listenFeed()

	case feedMsg:
		parts := make([]string, 0, 3)
		for _, p := range []string{m.textBefore, msg.Final, msg.Partial} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		m.input.SetValue(strings.Join(parts, " "))
		m.input.CursorEnd()
		return m, m.listenFeed()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// syncMode derives the visible screen from the orchestrator state.
func (m Model) syncMode() Model {
	switch m.orch.State() {
	case triage.StateComplete:
		m.mode = modeResult
	case triage.StateCollectingVitals:
		if m.mode != modeVitals {
			m.mode = modeVitals
			m.input.Blur()
			m.vitals.syncFocus()
		}
	default:
		if m.mode != modeChat && m.mode != modeProtocols {
			m.mode = modeChat
			m.input.Focus()
		}
	}
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.mode {
	case modeIntake:
		return m.handleIntakeKey(msg)
	case modeChat:
		return m.handleChatKey(msg)
	case modeVitals:
		return m.handleVitalsKey(msg)
	case modeProtocols:
		return m.handleProtocolsKey(msg)
	case modeResult:
		return m.handleResultKey(msg)
	}
	return m, nil
}

func (m Model) handleIntakeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		m.form.next()
		return m, nil
	case "shift+tab", "up":
		m.form.prev()
		return m, nil
	case "enter":
		if m.form.focus < fieldSex {
			m.form.next()
			return m, nil
		}
		info := m.form.info()
		if err := info.Validate(); err != nil {
			m.form.errText = err.Error()
			return m, nil
		}
		m.pending = true
		return m, m.submitPatient(info)
	}
	return m, m.form.update(msg)
}

func (m Model) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" || m.pending {
			return m, nil
		}
		return m.dispatchMessage(text)
	case "ctrl+y":
		return m.dispatchMessage("Sim")
	case "ctrl+n":
		return m.dispatchMessage("Não")
	case "ctrl+a":
		if c := m.orch.PendingProtocol(); c != nil && !m.pending {
			m.pending = true
			m.status = ""
			return m, m.confirmProtocol(*c)
		}
		return m, nil
	case "ctrl+p":
		if len(m.orch.Catalog()) > 0 {
			m.mode = modeProtocols
			m.protoCursor = 0
			m.input.Blur()
		}
		return m, nil
	case "ctrl+v":
		m.mode = modeVitals
		m.input.Blur()
		m.vitals.syncFocus()
		return m, nil
	case "ctrl+r":
		return m.toggleRecording()
	case "ctrl+g":
		m.orch.Restart()
		m.vitals.reset()
		m.input.SetValue("")
		m.status = ""
		return m.syncMode(), nil
	case "ctrl+x":
		return m.newInterview()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) dispatchMessage(text string) (tea.Model, tea.Cmd) {
	if m.pending {
		return m, nil
	}
	if m.recording {
		m.feed.Stop()
		m.recording = false
	}
	if m.feed != nil {
		m.feed.Reset()
	}
	m.textBefore = ""
	m.input.SetValue("")
	m.pending = true
	m.status = ""
	return m, m.sendMessage(text)
}

func (m Model) toggleRecording() (tea.Model, tea.Cmd) {
	if m.feed == nil {
		m.status = "Gravação indisponível: gateway de transcrição não configurado."
		return m, nil
	}
	if m.recording {
		m.feed.Stop()
		m.recording = false
		return m, nil
	}
	m.textBefore = m.input.Value()
	m.recording = true
	return m, m.startFeed()
}

func (m Model) handleVitalsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+v":
		m.mode = modeChat
		m.input.Focus()
		return m, nil
	case "down", "tab":
		m.vitals.next()
		return m, nil
	case "up", "shift+tab":
		m.vitals.prev()
		return m, nil
	case "ctrl+f":
		m.vitals.fillNormals()
		return m, nil
	case "ctrl+d", "enter":
		if m.pending {
			return m, nil
		}
		m.vitals.apply(m.orch)
		m.pending = true
		m.status = ""
		return m, m.submitVitals()
	}
	return m, m.vitals.update(msg)
}

func (m Model) handleProtocolsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	catalog := m.orch.Catalog()
	switch msg.String() {
	case "esc":
		m.mode = modeChat
		m.input.Focus()
		return m, nil
	case "down", "j":
		if m.protoCursor < len(catalog)-1 {
			m.protoCursor++
		}
		return m, nil
	case "up", "k":
		if m.protoCursor > 0 {
			m.protoCursor--
		}
		return m, nil
	case "enter":
		if m.pending || len(catalog) == 0 {
			return m, nil
		}
		c := triage.CandidateFromCatalog(catalog[m.protoCursor])
		m.mode = modeChat
		m.input.Focus()
		m.pending = true
		return m, m.confirmProtocol(c)
	}
	return m, nil
}

func (m Model) handleResultKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+x", "n":
		return m.newInterview()
	case "ctrl+g", "r":
		m.orch.Restart()
		m.vitals.reset()
		m.input.SetValue("")
		m.mode = modeChat
		m.input.Focus()
		return m, nil
	case "q", "esc":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) newInterview() (tea.Model, tea.Cmd) {
	m.orch.NewInterview()
	m.vitals.reset()
	m.input.SetValue("")
	m.form = newPatientForm()
	m.status = ""
	m.mode = modeIntake
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	switch m.mode {
	case modeIntake:
		return m.form.view()
	case modeResult:
		return m.resultView()
	case modeProtocols:
		return m.protocolsView()
	case modeVitals:
		return m.chatView() + "\n\n" + m.vitals.view(m.orch)
	default:
		return m.chatView()
	}
}

func (m Model) header() string {
	patient := "Paciente"
	if p := m.orch.Patient(); p != nil {
		patient = fmt.Sprintf("%s (%s anos, %s)", p.Name, p.Age, p.Sex)
	}
	protocol := "Aguardando..."
	if c := m.orch.ConfirmedProtocol(); c != nil {
		protocol = c.Text
	}
	parts := []string{patient, "Protocolo: " + protocol}
	if m.recording {
		parts = append(parts, recordingStyle.Render("● REC"))
	}
	if m.pending || m.orch.Busy() {
		parts = append(parts, dimStyle.Render("processando..."))
	}
	return headerStyle.Render(strings.Join(parts, "  ·  "))
}

func (m Model) chatView() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")

	entries := m.orch.Entries()
	limit := m.height - 10
	if limit < 5 {
		limit = 5
	}
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	for _, e := range entries {
		switch {
		case e.Kind == triage.KindProtocolConfirmation:
			b.WriteString(confirmStyle.Render(e.Text))
			b.WriteString("\n")
			b.WriteString(dimStyle.Render("  ctrl+a: aceitar · ctrl+p: escolher outro protocolo"))
		case e.Role == triage.RoleUser:
			b.WriteString(userMsgStyle.Render("Você: ") + e.Text)
		default:
			b.WriteString(systemMsgStyle.Render("Sistema: " + e.Text))
		}
		b.WriteString("\n")
	}

	if node := m.orch.CurrentNode(); node != nil && node.YesNo && len(m.orch.MissingSensors()) == 0 {
		b.WriteString(dimStyle.Render("resposta rápida: ctrl+y Sim · ctrl+n Não"))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(errorStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(statusBarStyle.Render("enter: enviar · ctrl+r: gravar · ctrl+v: sinais vitais · ctrl+g: reiniciar · ctrl+x: nova triagem · ctrl+c: sair"))
	return b.String()
}

func (m Model) protocolsView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Mudar Protocolo"))
	b.WriteString("\n\n")
	for i, name := range m.orch.Catalog() {
		c := triage.CandidateFromCatalog(name)
		marker := "  "
		if i == m.protoCursor {
			marker = "> "
		}
		b.WriteString(marker + c.Text + "\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("enter: confirmar · esc: voltar"))
	return b.String()
}

func (m Model) resultView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Triagem Completa"))
	b.WriteString("\n\n")
	if p := m.orch.Patient(); p != nil {
		b.WriteString(fmt.Sprintf("Paciente: %s (%s anos)\n\n", p.Name, p.Age))
	}
	if outcome := m.orch.Outcome(); outcome != nil {
		b.WriteString(priorityStyle(outcome.Priority).Render(strings.ToUpper(outcome.Text)))
		b.WriteString("\n\n")
	}
	if report := m.orch.Report(); report != nil {
		b.WriteString("Início: " + report.Stats.StartTime + "\n")
		b.WriteString("Fim: " + report.Stats.EndTime + "\n")
		b.WriteString(fmt.Sprintf("Duração: %dm %ds\n\n", report.Stats.DurationSeconds/60, report.Stats.DurationSeconds%60))
		b.WriteString("Raciocínio Clínico (IA):\n")
		reasoning := report.Reasoning
		if reasoning == "" {
			reasoning = "Raciocínio não disponível."
		}
		b.WriteString(reasoning + "\n")
	}
	b.WriteString("\n")
	b.WriteString(statusBarStyle.Render("n: nova triagem · r: reiniciar · q: sair"))
	return b.String()
}
