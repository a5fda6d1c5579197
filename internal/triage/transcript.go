package triage

import "time"

// Role identifies who produced a transcript entry.
type Role string

const (
	RoleUser   Role = "user"
	RoleSystem Role = "system"
)

// EntryKind tags special entries the UI renders differently.
type EntryKind string

const (
	KindPlain                EntryKind = "plain"
	KindProtocolConfirmation EntryKind = "protocol_confirmation"
)

// Entry is one exchange in the interview. Entries are append-only and never
// mutated; only a session reset replaces the log.
type Entry struct {
	Role      Role
	Text      string
	Kind      EntryKind
	Candidate *Candidate
	At        time.Time
}

// Transcript is the ordered, append-only exchange log. Owned by the
// orchestrator; not safe for concurrent use on its own.
type Transcript struct {
	entries []Entry
}

// NewTranscript returns a transcript seeded with the system banner.
func NewTranscript(banner string) *Transcript {
	t := &Transcript{}
	t.Append(RoleSystem, banner)
	return t
}

// Append adds a plain entry.
func (t *Transcript) Append(role Role, text string) {
	t.entries = append(t.entries, Entry{
		Role: role,
		Text: text,
		Kind: KindPlain,
		At:   time.Now(),
	})
}

// AppendConfirmation adds a protocol-confirmation entry carrying the
// suggested candidate so the UI can offer accept/override actions.
func (t *Transcript) AppendConfirmation(text string, c Candidate) {
	t.entries = append(t.entries, Entry{
		Role:      RoleSystem,
		Text:      text,
		Kind:      KindProtocolConfirmation,
		Candidate: &c,
		At:        time.Now(),
	})
}

// Entries returns a copy of the log in creation order.
func (t *Transcript) Entries() []Entry {
	return append([]Entry(nil), t.entries...)
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	return len(t.entries)
}

// Reset replaces the log with a single system banner.
func (t *Transcript) Reset(banner string) {
	t.entries = nil
	t.Append(RoleSystem, banner)
}
