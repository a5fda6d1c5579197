package sim

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/triage-intake/internal/decision"
	"github.com/clinicore/triage-intake/internal/triage"
)

func newSimClient(t *testing.T) *decision.Client {
	t.Helper()
	srv := httptest.NewServer(NewServer(nil).Router())
	t.Cleanup(srv.Close)
	return decision.NewClient(srv.URL)
}

func TestProtocolNames(t *testing.T) {
	c := newSimClient(t)
	names, err := c.ProtocolNames(context.Background())
	require.NoError(t, err)
	assert.Contains(t, names, "protocol_chest_pain")
	assert.Contains(t, names, "protocol_stroke")
}

func TestSuggestFromTranscript(t *testing.T) {
	c := newSimClient(t)
	ctx := context.Background()

	// Context lines alone do not count as usable utterances.
	require.NoError(t, c.MirrorTranscription(ctx, "s1", "CONTEXTO INICIAL: PACIENTE: Ana, IDADE: 30, SEXO: Feminino."))
	resp, err := c.Suggest(ctx, decision.SuggestRequest{SessionID: "s1"})
	require.NoError(t, err)
	assert.Nil(t, resp.Reply)

	// A chest-pain keyword resolves the protocol.
	require.NoError(t, c.MirrorTranscription(ctx, "s1", "sinto dor no peito"))
	resp, err = c.Suggest(ctx, decision.SuggestRequest{SessionID: "s1"})
	require.NoError(t, err)
	require.NotNil(t, resp.Reply)
	require.NotNil(t, resp.Reply.Protocol)
	assert.Equal(t, "protocol_chest_pain", resp.Reply.Protocol.ID)
}

func TestSuggestClarifiesOnceThenGivesUp(t *testing.T) {
	c := newSimClient(t)
	ctx := context.Background()
	require.NoError(t, c.MirrorTranscription(ctx, "s2", "estou mal"))

	resp, err := c.Suggest(ctx, decision.SuggestRequest{SessionID: "s2"})
	require.NoError(t, err)
	require.NotNil(t, resp.Reply)
	assert.Nil(t, resp.Reply.Protocol)
	assert.Equal(t, "question", resp.Reply.Type)
	assert.Equal(t, "clarify_1", resp.Reply.NodeID)

	resp, err = c.Suggest(ctx, decision.SuggestRequest{SessionID: "s2", NodeID: "clarify_1"})
	require.NoError(t, err)
	require.NotNil(t, resp.Reply)
	assert.Nil(t, resp.Reply.Protocol)
	assert.Empty(t, resp.Reply.Type)
}

func TestTraverseRootAsksFirstQuestion(t *testing.T) {
	c := newSimClient(t)
	resp, err := c.Traverse(context.Background(), decision.TraverseRequest{
		Protocol:  "chest_pain",
		SessionID: "s3",
	})
	require.NoError(t, err)
	assert.Equal(t, decision.StatusAskUser, resp.Status)
	require.NotNil(t, resp.Node)
	assert.True(t, resp.Node.YesNo)
	assert.Equal(t, "O paciente apresenta falta de ar?", resp.Node.Question)
}

func TestTraverseMissingProtocolIsError(t *testing.T) {
	c := newSimClient(t)
	resp, err := c.Traverse(context.Background(), decision.TraverseRequest{SessionID: "s4"})
	require.NoError(t, err)
	assert.Equal(t, decision.StatusError, resp.Status)
	assert.NotEmpty(t, resp.Error)
}

func TestTraverseReportsMissingSensorsWithAlias(t *testing.T) {
	c := newSimClient(t)
	resp, err := c.Traverse(context.Background(), decision.TraverseRequest{
		Protocol:  "chest_pain",
		NodeID:    "q_breathless",
		SessionID: "s5",
		UserInput: "Sim",
		Sensors:   map[string]string{"heart_rate": "88"},
	})
	require.NoError(t, err)
	assert.Equal(t, decision.StatusMissingSensors, resp.Status)
	assert.Equal(t, []string{"oxygen_saturation", "gcs_scale"}, resp.MissingSensors)
	require.NotNil(t, resp.Node)
	assert.Equal(t, "vitals_gate", resp.Node.ID)
}

// TestFullInterview drives the orchestrator against the simulator end to
// end: intake, protocol confirmation, yes/no answer, the missing-sensor
// round-trip and the silent auto-continuation into the final assignment.
func TestFullInterview(t *testing.T) {
	srv := httptest.NewServer(NewServer(nil).Router())
	defer srv.Close()

	client := decision.NewClient(srv.URL)
	o := triage.New(client, client)
	defer o.Close()
	ctx := context.Background()

	require.NoError(t, o.LoadCatalog(ctx))
	assert.Contains(t, o.Catalog(), "protocol_chest_pain")

	require.NoError(t, o.SubmitPatientInfo(ctx, triage.PatientInfo{Name: "Ana", Age: "30", Sex: "F"}))
	require.Equal(t, triage.StateDiscovering, o.State())

	require.NoError(t, o.ConfirmProtocol(ctx, triage.Candidate{ID: "protocol_chest_pain", Text: "Dor no Peito"}))
	require.Equal(t, triage.StateInterviewing, o.State())
	node := o.CurrentNode()
	require.NotNil(t, node)
	assert.Equal(t, "q_breathless", node.ID)

	// Answering the yes/no question trips the vitals gate.
	require.NoError(t, o.SendMessage(ctx, "Sim"))
	require.Equal(t, triage.StateCollectingVitals, o.State())
	assert.Equal(t, []string{"heart_rate", "oxygen_saturation", "gcs_scale"}, o.MissingSensors())

	o.SetVital(triage.SensorHeartRate, "88")
	o.SetVital(triage.SensorOxygenSaturation, "97")
	o.SetVital(triage.SensorGCS, "15")
	require.NoError(t, o.SubmitVitals(ctx))

	// The branch node auto-continues into the assignment without another
	// user action.
	require.Equal(t, triage.StateComplete, o.State())
	outcome := o.Outcome()
	require.NotNil(t, outcome)
	assert.Equal(t, "orange", outcome.Priority)
	assert.Equal(t, "Laranja", outcome.Text)
	report := o.Report()
	require.NotNil(t, report)
	assert.NotEmpty(t, report.Reasoning)
}
