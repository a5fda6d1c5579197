// Package sim is a scripted, in-memory decision service used for local
// development and end-to-end exercises of the intake client. It implements
// the same four endpoints as the real service with a tiny chest-pain tree.
package sim

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/clinicore/triage-intake/pkg/logging"
)

// Node ids used by the scripted tree.
const (
	nodeBreathless = "q_breathless"
	nodeVitalsGate = "vitals_gate"
	nodeAutoRisk   = "auto_risk"
	nodeAssign     = "assign_orange"
)

var catalog = []string{
	"protocol_abdominal_pain",
	"protocol_chest_pain",
	"protocol_stroke",
	"protocol_trauma",
}

type session struct {
	transcript   []string
	suggestCalls int
	startedAt    time.Time
}

// Server holds per-session scripted state.
type Server struct {
	logger *logging.Logger

	mu       sync.Mutex
	sessions map[string]*session

	upgrader websocket.Upgrader
}

// NewServer creates a simulator.
func NewServer(logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	return &Server{
		logger:   logger,
		sessions: make(map[string]*session),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

// Router returns the chi router serving the simulator endpoints.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	r.Get("/protocol_names", s.handleProtocolNames)
	r.Post("/transcription", s.handleTranscription)
	r.Post("/protocol-suggest", s.handleSuggest)
	r.Post("/protocol-traverse", s.handleTraverse)
	r.Get("/transcribe-feed", s.handleTranscribeFeed)
	return r
}

func (s *Server) session(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{startedAt: time.Now().UTC()}
		s.sessions[id] = sess
	}
	return sess
}

func (s *Server) handleProtocolNames(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{"protocols": catalog})
}

func (s *Server) handleTranscription(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID     string `json:"session_id"`
		Transcription string `json:"transcription"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	sess := s.session(req.SessionID)
	s.mu.Lock()
	sess.transcript = append(sess.transcript, req.Transcription)
	s.mu.Unlock()
	s.logger.Debug("transcription stored", "session_id", req.SessionID)
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		NodeID    string `json:"node_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	sess := s.session(req.SessionID)

	s.mu.Lock()
	sess.suggestCalls++
	calls := sess.suggestCalls
	utterances := userUtterances(sess.transcript)
	s.mu.Unlock()

	if len(utterances) == 0 {
		// Nothing usable yet: distinct "insufficient information" shape.
		writeJSON(w, map[string]any{})
		return
	}

	joined := strings.ToLower(strings.Join(utterances, " "))
	switch {
	case strings.Contains(joined, "peito") || strings.Contains(joined, "coração"):
		writeJSON(w, map[string]any{"reply": map[string]any{
			"protocol": map[string]string{"id": "protocol_chest_pain", "text": "Dor no Peito"},
		}})
	case strings.Contains(joined, "cabeça") || strings.Contains(joined, "fala enrolada"):
		writeJSON(w, map[string]any{"reply": map[string]any{
			"protocol": map[string]string{"id": "protocol_stroke", "text": "AVC"},
		}})
	case calls == 1:
		writeJSON(w, map[string]any{"reply": map[string]any{
			"type":    "question",
			"node_id": "clarify_1",
			"text":    "Pode descrever melhor onde é a dor e quando começou?",
		}})
	default:
		writeJSON(w, map[string]any{"reply": map[string]any{}})
	}
}

func (s *Server) handleTraverse(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	sessionID, _ := req["session_id"].(string)
	if sessionID == "" {
		http.Error(w, "session_id required", http.StatusBadRequest)
		return
	}
	protocol, _ := req["decision_tree_protocol"].(string)
	if protocol == "" {
		writeJSON(w, map[string]any{"error": "decision_tree_protocol é obrigatório"})
		return
	}
	sess := s.session(sessionID)
	nodeID, _ := req["node_id"].(string)

	switch nodeID {
	case "":
		// Protocol root: first real question for the operator.
		writeJSON(w, map[string]any{
			"status": "ask_user",
			"node": map[string]any{
				"id":       nodeBreathless,
				"type":     "question",
				"yesNo":    true,
				"question": "O paciente apresenta falta de ar?",
			},
		})
	case nodeBreathless:
		missing := missingSensors(req)
		if len(missing) > 0 {
			writeJSON(w, map[string]any{
				"status":          "missing_sensors",
				"missing_sensors": missing,
				"node":            map[string]any{"id": nodeVitalsGate},
			})
			return
		}
		writeJSON(w, nextNode(map[string]any{"id": nodeAutoRisk, "type": "branch"}))
	case nodeVitalsGate:
		missing := missingSensors(req)
		if len(missing) > 0 {
			writeJSON(w, map[string]any{
				"status":          "missing_sensors",
				"missing_sensors": missing,
				"node":            map[string]any{"id": nodeVitalsGate},
			})
			return
		}
		// Sensors satisfied: silent branch the client must follow on its own.
		writeJSON(w, nextNode(map[string]any{"id": nodeAutoRisk, "type": "branch"}))
	case nodeAutoRisk:
		now := time.Now().UTC()
		writeJSON(w, map[string]any{
			"status": "next_node",
			"next_node": map[string]any{
				"id":       nodeAssign,
				"type":     "assignment",
				"text":     "Laranja",
				"priority": "orange",
			},
			"report": map[string]any{
				"reasoning": "Dor torácica com sinais vitais dentro de limites aceitáveis; classificação muito urgente por protocolo.",
				"stats": map[string]any{
					"start_time":       sess.startedAt.Format(time.RFC3339),
					"end_time":         now.Format(time.RFC3339),
					"duration_seconds": int(now.Sub(sess.startedAt).Seconds()),
				},
			},
		})
	default:
		writeJSON(w, map[string]any{"error": "nó desconhecido: " + nodeID})
	}
}

// handleTranscribeFeed streams a canned utterance as partials then a final,
// so the recording flow can be exercised without a microphone.
func (s *Server) handleTranscribeFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	phrase := "paciente com dor no peito há duas horas"
	words := strings.Fields(phrase)
	for i := range words {
		evt := map[string]any{"text": strings.Join(words[:i+1], " "), "partial": true}
		if err := conn.WriteJSON(evt); err != nil {
			return
		}
		time.Sleep(150 * time.Millisecond)
	}
	_ = conn.WriteJSON(map[string]any{"text": phrase, "partial": false})

	// Hold the connection until the client hangs up.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func nextNode(node map[string]any) map[string]any {
	return map[string]any{"status": "next_node", "next_node": node}
}

// missingSensors lists what the gate still needs, reporting the gcs alias
// the way the real service does.
func missingSensors(req map[string]any) []string {
	var missing []string
	if !hasField(req, "heart_rate") {
		missing = append(missing, "heart_rate")
	}
	if !hasField(req, "oxygen_saturation") {
		missing = append(missing, "oxygen_saturation")
	}
	if !hasField(req, "gcs") {
		missing = append(missing, "gcs_scale")
	}
	return missing
}

func hasField(req map[string]any, key string) bool {
	v, ok := req[key]
	if !ok {
		return false
	}
	s, isString := v.(string)
	return !isString || s != ""
}

func userUtterances(lines []string) []string {
	var out []string
	for _, line := range lines {
		if strings.HasPrefix(line, "CONTEXTO INICIAL:") || strings.HasPrefix(line, "Sistema:") {
			continue
		}
		out = append(out, line)
	}
	return out
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
