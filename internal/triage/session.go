// Package triage implements the client-resident session orchestrator: the
// state machine that decides, after every server or user event, what to ask
// next, when to auto-advance, how to merge vital-sign input, and how to keep
// the interview transcript ordered.
package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/triage-intake/internal/decision"
	"github.com/clinicore/triage-intake/internal/observability/metrics"
	"github.com/clinicore/triage-intake/pkg/logging"
)

// State is the orchestrator's derived interview phase.
type State string

const (
	StateIntake           State = "intake"
	StateDiscovering      State = "discovering"
	StateConfirming       State = "confirming"
	StateInterviewing     State = "interviewing"
	StateCollectingVitals State = "collecting_vitals"
	StateComplete         State = "complete"
)

// Sentinel errors for user-initiated operations.
var (
	ErrBusy         = errors.New("triage: a submission is already in flight")
	ErrNoPatient    = errors.New("triage: patient info not submitted")
	ErrHasPatient   = errors.New("triage: patient info already submitted")
	ErrEmptyMessage = errors.New("triage: message is empty")
	ErrNoProtocol   = errors.New("triage: no protocol confirmed")
	ErrComplete     = errors.New("triage: interview already complete")
	ErrSessionReset = errors.New("triage: session was reset while the request was in flight")
)

// Interview chrome shown to the operator.
const (
	bannerStart   = "Sistema de Triagem Iniciado. Descreva a queixa principal do paciente."
	bannerRestart = "Sistema de Triagem Reiniciado. Descreva a queixa principal."

	msgNoProtocol     = "Não foi possível identificar o protocolo. Por favor, dê mais detalhes."
	msgInsufficient   = "Informação insuficiente. Por favor, detalhe."
	msgGenericFailure = "Ocorreu um erro ao processar sua mensagem. Tente novamente."
	msgAutoLoop       = "Erro: o serviço de decisão não convergiu. Reinicie a triagem ou tente novamente."
)

// DecisionService is the remote collaborator driving the interview.
// *decision.Client satisfies it.
type DecisionService interface {
	ProtocolNames(ctx context.Context) ([]string, error)
	Suggest(ctx context.Context, req decision.SuggestRequest) (*decision.SuggestResponse, error)
	Traverse(ctx context.Context, req decision.TraverseRequest) (*decision.TraverseResponse, error)
}

// Orchestrator owns one interview session: its token, transcript, protocol
// identity, vital-sign buffer, current decision-tree node and terminal
// outcome. State-mutating operations never run concurrently; the busy flag
// gates user submissions while async responses are in flight.
type Orchestrator struct {
	service      DecisionService
	mirrorClient TranscriptMirror
	mirror       *MirrorQueue
	logger       *logging.Logger
	metrics      *metrics.TriageMetrics

	maxAutoHops     int
	mirrorQueueSize int

	mu         sync.Mutex
	sessionID  string
	patient    *PatientInfo
	transcript *Transcript
	protocols  *Selector
	vitals     *VitalSigns
	node       *decision.Node
	outcome    *decision.Node
	report     *decision.Report
	busy       bool
}

// Option customizes the orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMetrics attaches prometheus metrics. Nil is allowed.
func WithMetrics(m *metrics.TriageMetrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithMaxAutoHops caps automatic traversal continuations per user action.
func WithMaxAutoHops(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxAutoHops = n
		}
	}
}

// WithMirrorQueueSize sets the best-effort mirror queue buffer.
func WithMirrorQueueSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.mirrorQueueSize = n
		}
	}
}

// New creates an orchestrator talking to the given decision service and
// mirroring utterances through mirror on a best-effort queue.
func New(service DecisionService, mirror TranscriptMirror, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		service:         service,
		mirrorClient:    mirror,
		logger:          logging.Default(),
		maxAutoHops:     25,
		mirrorQueueSize: 64,
		transcript:      NewTranscript(bannerStart),
		protocols:       NewSelector(),
		vitals:          NewVitalSigns(),
		sessionID:       newSessionID(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.mirror = NewMirrorQueue(mirror, o.mirrorQueueSize, o.logger, o.metrics)
	o.metrics.ObserveSessionStarted()
	return o
}

// Close stops the mirror worker after draining queued writes.
func (o *Orchestrator) Close() {
	o.mirror.Close()
}

// newSessionID returns an opaque, time-ordered unique token. Regenerated on
// every restart so server-side history does not interleave unrelated runs.
func newSessionID() string {
	return fmt.Sprintf("session-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// LoadCatalog fetches the switchable protocol catalog.
func (o *Orchestrator) LoadCatalog(ctx context.Context) error {
	names, err := o.service.ProtocolNames(ctx)
	if err != nil {
		return fmt.Errorf("triage: fetch protocol catalog: %w", err)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.protocols.SetCatalog(names)
	return nil
}

// SubmitPatientInfo validates and registers the patient, mirroring the
// initial context line synchronously. The Intake -> Discovering transition
// only happens if the mirror write succeeds; otherwise the caller should
// tell the operator to retry.
func (o *Orchestrator) SubmitPatientInfo(ctx context.Context, info PatientInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	if o.patient != nil {
		o.mu.Unlock()
		return ErrHasPatient
	}
	if o.busy {
		o.mu.Unlock()
		return ErrBusy
	}
	o.busy = true
	sessionID := o.sessionID
	o.mu.Unlock()

	err := o.mirrorClient.MirrorTranscription(ctx, sessionID, "CONTEXTO INICIAL: "+info.ContextLine())

	o.mu.Lock()
	defer o.mu.Unlock()
	// Stale check first: after a reset this response belongs to the old
	// session and must not touch the new session's busy flag.
	if sessionID != o.sessionID {
		return ErrSessionReset
	}
	o.busy = false
	if err != nil {
		return fmt.Errorf("triage: register patient context: %w", err)
	}
	o.patient = &info
	return nil
}

// SendMessage handles a free-text or quick-reply utterance. The text is
// appended to the transcript, mirrored best-effort, and routed to protocol
// suggestion or tree traversal depending on whether a protocol is confirmed.
func (o *Orchestrator) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	o.mu.Lock()
	if o.patient == nil {
		o.mu.Unlock()
		return ErrNoPatient
	}
	if o.outcome != nil {
		o.mu.Unlock()
		return ErrComplete
	}
	if o.busy {
		o.mu.Unlock()
		return ErrBusy
	}
	o.busy = true
	o.transcript.Append(RoleUser, text)
	sessionID := o.sessionID
	confirmed := o.protocols.Confirmed()
	// Pin the node id now: async updates may land between here and the
	// request, and the call must not pick up a node it was not issued for.
	nodeID := ""
	if o.node != nil {
		nodeID = o.node.ID
	}
	o.mu.Unlock()

	o.mirror.Enqueue(sessionID, text)

	if confirmed == nil {
		o.runSuggestion(ctx, sessionID, nodeID)
		return nil
	}
	o.runTraversal(ctx, sessionID, traverseCall{
		protocol:  confirmed.BareID(),
		nodeID:    nodeID,
		userInput: text,
	})
	return nil
}

// ConfirmProtocol accepts the suggested candidate or an operator override
// from the catalog. The remote tree is forced to restart at its root for the
// new protocol: the traversal goes out with no node id. Previously entered
// vital signs are kept and resent.
func (o *Orchestrator) ConfirmProtocol(ctx context.Context, c Candidate) error {
	o.mu.Lock()
	if o.patient == nil {
		o.mu.Unlock()
		return ErrNoPatient
	}
	if o.outcome != nil {
		o.mu.Unlock()
		return ErrComplete
	}
	if o.busy {
		o.mu.Unlock()
		return ErrBusy
	}
	o.busy = true
	o.protocols.Confirm(c)
	o.transcript.Append(RoleSystem, "Protocolo Confirmado: "+c.Text)
	sessionID := o.sessionID
	o.mu.Unlock()

	o.runTraversal(ctx, sessionID, traverseCall{protocol: c.BareID()})
	return nil
}

// SubmitVitals sends the current buffer, possibly partial, from the current
// node. The missing-sensor set is cleared optimistically; the server
// repopulates it if readings are still absent.
func (o *Orchestrator) SubmitVitals(ctx context.Context) error {
	o.mu.Lock()
	if o.patient == nil {
		o.mu.Unlock()
		return ErrNoPatient
	}
	if o.outcome != nil {
		o.mu.Unlock()
		return ErrComplete
	}
	if o.busy {
		o.mu.Unlock()
		return ErrBusy
	}
	confirmed := o.protocols.Confirmed()
	if confirmed == nil {
		o.mu.Unlock()
		return ErrNoProtocol
	}
	o.busy = true
	o.vitals.ClearMissing()
	sessionID := o.sessionID
	nodeID := ""
	if o.node != nil {
		nodeID = o.node.ID
	}
	o.mu.Unlock()

	o.runTraversal(ctx, sessionID, traverseCall{
		protocol: confirmed.BareID(),
		nodeID:   nodeID,
	})
	return nil
}

// Restart clears the interview but keeps the patient: new transcript banner,
// no protocol, no node, no outcome, empty vitals, fresh session token. Any
// in-flight response for the old token is discarded when it lands.
func (o *Orchestrator) Restart() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.restartLocked(bannerRestart)
}

// NewInterview additionally clears the patient, returning to intake.
func (o *Orchestrator) NewInterview() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.patient = nil
	o.restartLocked(bannerStart)
}

func (o *Orchestrator) restartLocked(banner string) {
	o.transcript.Reset(banner)
	o.protocols.Reset()
	o.vitals.Reset()
	o.node = nil
	o.outcome = nil
	o.report = nil
	o.busy = false
	o.sessionID = newSessionID()
	o.metrics.ObserveSessionStarted()
}

// --- suggestion handling ---

func (o *Orchestrator) runSuggestion(ctx context.Context, sessionID, nodeID string) {
	resp, err := o.service.Suggest(ctx, decision.SuggestRequest{
		SessionID: sessionID,
		NodeID:    nodeID,
	})

	o.mu.Lock()
	defer o.mu.Unlock()
	if sessionID != o.sessionID {
		o.logger.Info("discarding stale suggestion response", "session_id", sessionID)
		return
	}
	o.busy = false

	if err != nil {
		o.logger.Warn("protocol suggestion failed", "session_id", sessionID, "error", err)
		o.metrics.ObserveSuggestion("error")
		o.transcript.Append(RoleSystem, msgGenericFailure)
		return
	}

	if resp.Reply == nil {
		o.metrics.ObserveSuggestion("no_reply")
		o.transcript.Append(RoleSystem, msgInsufficient)
		return
	}

	switch {
	case resp.Reply.Protocol != nil:
		candidate := CandidateFromProtocol(*resp.Reply.Protocol)
		o.protocols.SetPending(candidate)
		o.metrics.ObserveSuggestion("protocol")
		o.transcript.AppendConfirmation("Sugestão de Protocolo: "+candidate.Text, candidate)
	case resp.Reply.Type == decision.NodeTypeQuestion:
		o.node = &decision.Node{ID: resp.Reply.NodeID, Type: decision.NodeTypeQuestion}
		o.metrics.ObserveSuggestion("question")
		o.transcript.Append(RoleSystem, resp.Reply.Text)
		o.mirror.Enqueue(sessionID, "Sistema: "+resp.Reply.Text)
	default:
		o.metrics.ObserveSuggestion("unresolved")
		o.transcript.Append(RoleSystem, msgNoProtocol)
	}
}

// --- traversal handling ---

type traverseCall struct {
	protocol  string
	nodeID    string
	userInput string
}

// runTraversal issues the traversal and follows next_node responses in an
// explicit loop, so a runaway server becomes a reported error instead of
// unbounded recursion. The busy flag stays set across automatic hops.
func (o *Orchestrator) runTraversal(ctx context.Context, sessionID string, call traverseCall) {
	protocol := call.protocol
	nodeID := call.nodeID
	userInput := call.userInput

	for hop := 0; ; hop++ {
		if hop > o.maxAutoHops {
			o.mu.Lock()
			if sessionID == o.sessionID {
				o.busy = false
				o.logger.Error("auto-continuation exceeded hop cap", "session_id", sessionID, "cap", o.maxAutoHops)
				o.transcript.Append(RoleSystem, msgAutoLoop)
			}
			o.mu.Unlock()
			o.metrics.ObserveAutoHops(hop - 1)
			return
		}

		o.mu.Lock()
		if sessionID != o.sessionID {
			// Reset since the last hop: stop before issuing a request
			// that would pair the old token with the new session's vitals.
			o.mu.Unlock()
			o.logger.Info("abandoning stale traversal loop", "session_id", sessionID)
			return
		}
		sensors := o.vitals.Payload()
		o.mu.Unlock()

		resp, err := o.service.Traverse(ctx, decision.TraverseRequest{
			Protocol:  protocol,
			NodeID:    nodeID,
			SessionID: sessionID,
			UserInput: userInput,
			Sensors:   sensors,
		})

		o.mu.Lock()
		if sessionID != o.sessionID {
			o.mu.Unlock()
			o.logger.Info("discarding stale traversal response", "session_id", sessionID)
			return
		}

		if err != nil {
			o.busy = false
			o.logger.Warn("traversal failed", "session_id", sessionID, "error", err)
			o.metrics.ObserveTraversal("transport_error")
			o.transcript.Append(RoleSystem, msgGenericFailure)
			o.mu.Unlock()
			return
		}
		o.metrics.ObserveTraversal(string(resp.Status))

		switch resp.Status {
		case decision.StatusComplete:
			if resp.Result == nil {
				o.failUnrecognizedLocked(sessionID)
				o.mu.Unlock()
				return
			}
			o.finishLocked(resp.Result, resp.Report)
			o.mu.Unlock()
			o.metrics.ObserveAutoHops(hop)
			return

		case decision.StatusNextNode:
			next := resp.NextNode
			if next == nil {
				o.failUnrecognizedLocked(sessionID)
				o.mu.Unlock()
				return
			}
			o.node = next
			if next.Type == decision.NodeTypeAssignment {
				// Terminal node delivered as next_node: same handling
				// as complete, and no further traversal.
				o.finishLocked(next, resp.Report)
				o.mu.Unlock()
				o.metrics.ObserveAutoHops(hop)
				return
			}
			// Auto-continue from the node id just received, with no
			// user input, without waiting for the operator.
			nodeID = next.ID
			userInput = ""
			o.mu.Unlock()
			continue

		case decision.StatusAskUser:
			if resp.Node == nil {
				o.failUnrecognizedLocked(sessionID)
				o.mu.Unlock()
				return
			}
			o.node = resp.Node
			text := resp.Node.DisplayText()
			o.busy = false
			o.transcript.Append(RoleSystem, text)
			o.mirror.Enqueue(sessionID, "Sistema: "+text)
			o.mu.Unlock()
			o.metrics.ObserveAutoHops(hop)
			return

		case decision.StatusMissingSensors:
			labels := make([]string, 0, len(resp.MissingSensors))
			for _, key := range resp.MissingSensors {
				labels = append(labels, SensorLabel(key))
			}
			o.transcript.Append(RoleSystem, fmt.Sprintf(
				"Preciso dos seguintes sinais vitais para continuar: %s. Por favor, preencha o painel de sinais vitais.",
				strings.Join(labels, ", "),
			))
			o.vitals.SetMissing(resp.MissingSensors)
			if resp.Node != nil {
				o.node = resp.Node
			}
			o.busy = false
			o.mu.Unlock()
			o.metrics.ObserveAutoHops(hop)
			return

		case decision.StatusError:
			o.busy = false
			o.transcript.Append(RoleSystem, "Erro: "+resp.Error)
			o.mu.Unlock()
			return

		default:
			o.failUnrecognizedLocked(sessionID)
			o.mu.Unlock()
			return
		}
	}
}

// finishLocked records the terminal outcome. Once set, no further traversal
// is issued automatically; only an explicit reset resumes.
func (o *Orchestrator) finishLocked(node *decision.Node, report *decision.Report) {
	o.node = node
	o.outcome = node
	if report != nil {
		o.report = report
	}
	o.busy = false
	o.transcript.Append(RoleSystem, fmt.Sprintf("Triagem Completa! Prioridade: %s (%s)", node.Text, node.Priority))
}

func (o *Orchestrator) failUnrecognizedLocked(sessionID string) {
	o.busy = false
	o.logger.Warn("unrecognized traversal response shape", "session_id", sessionID)
	o.transcript.Append(RoleSystem, msgGenericFailure)
}

// --- read accessors ---

// State derives the interview phase from the owned fields.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case o.patient == nil:
		return StateIntake
	case o.outcome != nil:
		return StateComplete
	case len(o.vitals.Missing()) > 0:
		return StateCollectingVitals
	case o.protocols.Pending() != nil:
		return StateConfirming
	case o.protocols.Confirmed() != nil:
		return StateInterviewing
	default:
		return StateDiscovering
	}
}

// SessionID returns the active session token.
func (o *Orchestrator) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID
}

// Patient returns the submitted patient info, if any.
func (o *Orchestrator) Patient() *PatientInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.patient == nil {
		return nil
	}
	p := *o.patient
	return &p
}

// Entries returns the transcript in creation order.
func (o *Orchestrator) Entries() []Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.transcript.Entries()
}

// CurrentNode returns a copy of the decision-tree cursor, if any.
func (o *Orchestrator) CurrentNode() *decision.Node {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.node == nil {
		return nil
	}
	n := *o.node
	return &n
}

// Outcome returns the terminal assignment node once the interview is over.
func (o *Orchestrator) Outcome() *decision.Node {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcome == nil {
		return nil
	}
	n := *o.outcome
	return &n
}

// Report returns the clinical report attached to the outcome, if any.
func (o *Orchestrator) Report() *decision.Report {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.report == nil {
		return nil
	}
	r := *o.report
	return &r
}

// Busy reports whether a user-initiated submission is still in flight.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy
}

// Catalog returns the switchable protocol names.
func (o *Orchestrator) Catalog() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.protocols.Catalog()
}

// PendingProtocol returns the suggestion awaiting confirmation, if any.
func (o *Orchestrator) PendingProtocol() *Candidate {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.protocols.Pending()
}

// ConfirmedProtocol returns the confirmed protocol, if any.
func (o *Orchestrator) ConfirmedProtocol() *Candidate {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.protocols.Confirmed()
}

// SetVital records one raw sensor reading in the buffer.
func (o *Orchestrator) SetVital(key, value string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.vitals.Set(key, value)
}

// VitalValues returns a copy of the raw buffer, including transient keys.
func (o *Orchestrator) VitalValues() map[string]string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.vitals.Values()
}

// MissingSensors returns the server-reported missing sensor keys.
func (o *Orchestrator) MissingSensors() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.vitals.Missing()
}
