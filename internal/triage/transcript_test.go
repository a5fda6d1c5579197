package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptAppendOrder(t *testing.T) {
	tr := NewTranscript("bem-vindo")
	tr.Append(RoleUser, "dor de cabeça")
	tr.Append(RoleSystem, "há quanto tempo?")

	entries := tr.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, RoleSystem, entries[0].Role)
	assert.Equal(t, "bem-vindo", entries[0].Text)
	assert.Equal(t, RoleUser, entries[1].Role)
	assert.Equal(t, RoleSystem, entries[2].Role)
	assert.Equal(t, 3, tr.Len())
}

func TestTranscriptConfirmationEntry(t *testing.T) {
	tr := NewTranscript("oi")
	tr.AppendConfirmation("Sugestão de Protocolo: Dor no Peito", Candidate{ID: "protocol_chest_pain", Text: "Dor no Peito"})

	entries := tr.Entries()
	last := entries[len(entries)-1]
	assert.Equal(t, KindProtocolConfirmation, last.Kind)
	require.NotNil(t, last.Candidate)
	assert.Equal(t, "protocol_chest_pain", last.Candidate.ID)
	assert.False(t, last.At.IsZero())
}

func TestTranscriptReset(t *testing.T) {
	tr := NewTranscript("primeiro")
	tr.Append(RoleUser, "algo")
	tr.Reset("segundo")

	entries := tr.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "segundo", entries[0].Text)
}

func TestTranscriptEntriesIsCopy(t *testing.T) {
	tr := NewTranscript("oi")
	entries := tr.Entries()
	entries[0].Text = "mutado"
	assert.Equal(t, "oi", tr.Entries()[0].Text)
}
