package decision

import "encoding/json"

// Node types reported by the decision service.
const (
	NodeTypeQuestion   = "question"
	NodeTypeAssignment = "assignment"
)

// Node is one step in a protocol's decision tree. It is opaque to the client
// except for the fields the orchestrator branches on.
type Node struct {
	ID       string `json:"id"`
	Type     string `json:"type,omitempty"`
	YesNo    bool   `json:"yesNo,omitempty"`
	Text     string `json:"text,omitempty"`
	Question string `json:"question,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// DisplayText returns what should be shown to the operator, preferring the
// question phrasing over the generic node text.
func (n *Node) DisplayText() string {
	if n.Question != "" {
		return n.Question
	}
	return n.Text
}

// Protocol identifies one clinical triage pathway as the service names it.
type Protocol struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// SuggestRequest asks the service which protocol fits the session so far.
// NodeID carries the node last used for suggestion so prior Q&A is context.
type SuggestRequest struct {
	SessionID string `json:"session_id"`
	NodeID    string `json:"node_id,omitempty"`
}

// SuggestReply is the inner reply of a suggestion response. Exactly one of
// Protocol or a question-typed node payload is expected; neither means the
// service needs more detail.
type SuggestReply struct {
	Protocol *Protocol `json:"protocol,omitempty"`
	Type     string    `json:"type,omitempty"`
	NodeID   string    `json:"node_id,omitempty"`
	Text     string    `json:"text,omitempty"`
}

// SuggestResponse wraps the optional reply. A missing reply is the service's
// "insufficient information" case and is distinct from an empty reply.
type SuggestResponse struct {
	Reply *SuggestReply `json:"reply,omitempty"`
}

// TraverseRequest is one evaluation step through a protocol's tree. Sensors
// are flattened into the JSON payload at the top level.
type TraverseRequest struct {
	Protocol  string
	NodeID    string
	SessionID string
	UserInput string
	Sensors   map[string]string
}

// TraverseStatus discriminates the traversal response union.
type TraverseStatus string

const (
	StatusComplete       TraverseStatus = "complete"
	StatusNextNode       TraverseStatus = "next_node"
	StatusAskUser        TraverseStatus = "ask_user"
	StatusMissingSensors TraverseStatus = "missing_sensors"
	StatusError          TraverseStatus = "error"
	// StatusUnrecognized covers any shape the client does not understand,
	// so new server statuses degrade to a visible failure instead of a no-op.
	StatusUnrecognized TraverseStatus = "unrecognized"
)

// ReportStats carries session timing from the final report.
type ReportStats struct {
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Report is the clinical reasoning attached to a terminal traversal.
type Report struct {
	Reasoning string      `json:"reasoning"`
	Stats     ReportStats `json:"stats"`
}

// TraverseResponse is the tagged union over traversal outcomes.
type TraverseResponse struct {
	Status         TraverseStatus
	Result         *Node
	NextNode       *Node
	Node           *Node
	Report         *Report
	MissingSensors []string
	Error          string
}

// UnmarshalJSON normalizes the loosely-discriminated wire shape: a payload
// with an error field but no known status becomes StatusError, anything else
// unknown becomes StatusUnrecognized.
func (r *TraverseResponse) UnmarshalJSON(data []byte) error {
	var w struct {
		Status         string   `json:"status"`
		Result         *Node    `json:"result"`
		NextNode       *Node    `json:"next_node"`
		Node           *Node    `json:"node"`
		Report         *Report  `json:"report"`
		MissingSensors []string `json:"missing_sensors"`
		Error          string   `json:"error"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	r.Result = w.Result
	r.NextNode = w.NextNode
	r.Node = w.Node
	r.Report = w.Report
	r.MissingSensors = w.MissingSensors
	r.Error = w.Error

	switch TraverseStatus(w.Status) {
	case StatusComplete, StatusNextNode, StatusAskUser, StatusMissingSensors:
		r.Status = TraverseStatus(w.Status)
	default:
		if w.Error != "" {
			r.Status = StatusError
		} else {
			r.Status = StatusUnrecognized
		}
	}
	return nil
}
