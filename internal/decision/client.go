// Package decision provides the HTTP client for the remote decision service.
package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clinicore/triage-intake/pkg/logging"
)

// TokenProvider supplies the bearer credential attached to every request.
// The client does not manage credentials itself.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider returning a fixed credential. An empty
// token sends no Authorization header.
type StaticToken string

// Token implements TokenProvider.
func (s StaticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

// Client is an HTTP client for the decision service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenProvider
	logger     *logging.Logger
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTokenProvider sets the bearer credential source.
func WithTokenProvider(tp TokenProvider) ClientOption {
	return func(c *Client) {
		c.tokens = tp
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a decision service client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokens: StaticToken(""),
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MirrorTranscription appends one line to the remote transcript for the
// session. Callers decide whether the write is blocking or best-effort.
func (c *Client) MirrorTranscription(ctx context.Context, sessionID, text string) error {
	payload := map[string]string{
		"session_id":    sessionID,
		"transcription": text,
	}
	resp, err := c.post(ctx, "/transcription", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("decision: transcription mirror returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// ProtocolNames fetches the switchable protocol catalog. The service has
// returned both an object and a bare list historically, so both decode.
func (c *Client) ProtocolNames(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/protocol_names", nil)
	if err != nil {
		return nil, fmt.Errorf("decision: create catalog request: %w", err)
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("decision: catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("decision: catalog returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decision: read catalog response: %w", err)
	}

	var wrapped struct {
		Protocols []string `json:"protocols"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Protocols != nil {
		return wrapped.Protocols, nil
	}

	var bare []string
	if err := json.Unmarshal(body, &bare); err != nil {
		return nil, fmt.Errorf("decision: decode catalog response: %w", err)
	}
	return bare, nil
}

// Suggest asks the service to resolve a protocol from the session so far.
func (c *Client) Suggest(ctx context.Context, req SuggestRequest) (*SuggestResponse, error) {
	resp, err := c.post(ctx, "/protocol-suggest", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("decision: suggest returned status %d: %s", resp.StatusCode, string(body))
	}

	var out SuggestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decision: decode suggest response: %w", err)
	}
	return &out, nil
}

// Traverse advances one step through the protocol tree. Sensor readings are
// flattened into the payload next to the named fields.
func (c *Client) Traverse(ctx context.Context, req TraverseRequest) (*TraverseResponse, error) {
	payload := map[string]any{
		"session_id": req.SessionID,
	}
	if req.Protocol != "" {
		payload["decision_tree_protocol"] = req.Protocol
	}
	if req.NodeID != "" {
		payload["node_id"] = req.NodeID
	}
	if req.UserInput != "" {
		payload["user_input"] = req.UserInput
	}
	for key, value := range req.Sensors {
		payload[key] = value
	}

	c.logger.Debug("traverse request",
		"session_id", req.SessionID,
		"protocol", req.Protocol,
		"node_id", req.NodeID,
		"sensors", len(req.Sensors),
	)

	resp, err := c.post(ctx, "/protocol-traverse", payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("decision: traverse returned status %d: %s", resp.StatusCode, string(body))
	}

	var out TraverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decision: decode traverse response: %w", err)
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("decision: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decision: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("decision: request failed: %w", err)
	}
	return resp, nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("decision: fetch credential: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}
