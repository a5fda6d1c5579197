package triage

import (
	"sort"
	"strings"

	"github.com/clinicore/triage-intake/internal/decision"
)

const protocolPrefix = "protocol_"

// Candidate is one selectable protocol with its display label.
type Candidate struct {
	ID   string
	Text string
}

// BareID strips the namespace prefix; this is the name the traversal
// endpoint expects in decision_tree_protocol.
func (c Candidate) BareID() string {
	return strings.TrimPrefix(c.ID, protocolPrefix)
}

// CandidateFromProtocol converts a server-suggested protocol.
func CandidateFromProtocol(p decision.Protocol) Candidate {
	return Candidate{ID: p.ID, Text: p.Text}
}

// CandidateFromCatalog synthesizes a candidate from a raw catalog name,
// which may or may not carry the namespace prefix.
func CandidateFromCatalog(name string) Candidate {
	id := name
	if !strings.HasPrefix(id, protocolPrefix) {
		id = protocolPrefix + name
	}
	bare := strings.TrimPrefix(id, protocolPrefix)
	return Candidate{
		ID:   id,
		Text: strings.ReplaceAll(bare, "_", " "),
	}
}

// Selector owns the pending/confirmed protocol identity and the switchable
// catalog. At most one protocol is confirmed at a time; confirming clears
// any pending suggestion.
type Selector struct {
	catalog   []string
	pending   *Candidate
	confirmed *Candidate
}

// NewSelector returns an empty selector.
func NewSelector() *Selector {
	return &Selector{}
}

// SetCatalog stores the switchable protocol names, de-duplicated and sorted.
func (s *Selector) SetCatalog(names []string) {
	seen := make(map[string]struct{}, len(names))
	unique := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}
	sort.Strings(unique)
	s.catalog = unique
}

// Catalog returns a copy of the catalog names.
func (s *Selector) Catalog() []string {
	return append([]string(nil), s.catalog...)
}

// SetPending records a suggestion awaiting user confirmation.
func (s *Selector) SetPending(c Candidate) {
	s.pending = &c
}

// Pending returns the suggestion awaiting confirmation, if any.
func (s *Selector) Pending() *Candidate {
	if s.pending == nil {
		return nil
	}
	c := *s.pending
	return &c
}

// Confirm sets the confirmed protocol and clears any pending suggestion.
func (s *Selector) Confirm(c Candidate) {
	s.confirmed = &c
	s.pending = nil
}

// Confirmed returns the confirmed protocol, if any.
func (s *Selector) Confirmed() *Candidate {
	if s.confirmed == nil {
		return nil
	}
	c := *s.confirmed
	return &c
}

// Reset clears pending and confirmed state but keeps the catalog, which is
// session-independent.
func (s *Selector) Reset() {
	s.pending = nil
	s.confirmed = nil
}
