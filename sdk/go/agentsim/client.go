package agentsim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client. It is intentionally short to avoid hanging network calls.
const DefaultHTTPTimeout = 15 * time.Second

// Client wraps the HTTP interactions with the AgentCoin simulator REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// AgentState mirrors the state payload returned by the agent endpoints.
type AgentState struct {
	Status        string `json:"status"`
	Goal          string `json:"goal"`
	LastAction    string `json:"last_action,omitempty"`
	LastReasoning string `json:"last_reasoning,omitempty"`
}

// Transaction is a single ledger entry.
type Transaction struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Quality     string    `json:"quality"`
}

// Wallet is the ledger snapshot exposed by the wallet endpoint.
type Wallet struct {
	Balance      float64       `json:"balance"`
	Debt         float64       `json:"debt"`
	Transactions []Transaction `json:"transactions"`
}

// Asset is an owned inventory item.
type Asset struct {
	ID      string `json:"id"`
	AssetID string `json:"asset_id"`
	Name    string `json:"name"`
}

// Service describes a purchasable catalog entry.
type Service struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Cost            float64 `json:"cost"`
	RequiresAssetID string  `json:"requires_asset_id,omitempty"`
}

// LogEntry is one line of the agent activity log.
type LogEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
}

// APIError represents server side validation or internal errors.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("agentsim api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the simulator API. When httpClient is
// nil, a default client with a sensible timeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// StartAgent begins the decision loop and returns the resulting state.
func (c *Client) StartAgent(ctx context.Context) (AgentState, error) {
	var state AgentState
	if err := c.post(ctx, "/api/v1/agent/start", nil, &state); err != nil {
		return AgentState{}, err
	}
	return state, nil
}

// StopAgent halts the decision loop and returns the resulting state.
func (c *Client) StopAgent(ctx context.Context) (AgentState, error) {
	var state AgentState
	if err := c.post(ctx, "/api/v1/agent/stop", nil, &state); err != nil {
		return AgentState{}, err
	}
	return state, nil
}

// SetGoal replaces the agent goal. The server rejects the call while the
// agent is running.
func (c *Client) SetGoal(ctx context.Context, goal string) (AgentState, error) {
	payload := struct {
		Goal string `json:"goal"`
	}{Goal: goal}
	var state AgentState
	if err := c.post(ctx, "/api/v1/agent/goal", payload, &state); err != nil {
		return AgentState{}, err
	}
	return state, nil
}

// State fetches the current agent state.
func (c *Client) State(ctx context.Context) (AgentState, error) {
	var state AgentState
	if err := c.get(ctx, "/api/v1/agent/state", &state); err != nil {
		return AgentState{}, err
	}
	return state, nil
}

// Wallet fetches the ledger snapshot.
func (c *Client) Wallet(ctx context.Context) (Wallet, error) {
	var wallet Wallet
	if err := c.get(ctx, "/api/v1/wallet", &wallet); err != nil {
		return Wallet{}, err
	}
	return wallet, nil
}

// ExportTransactions downloads the transaction history as CSV bytes.
func (c *Client) ExportTransactions(ctx context.Context) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/wallet/export", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, readAPIError(resp)
	}
	return io.ReadAll(resp.Body)
}

// Inventory lists the agent's assets.
func (c *Client) Inventory(ctx context.Context) ([]Asset, error) {
	var assets []Asset
	if err := c.get(ctx, "/api/v1/inventory", &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// Services lists the purchasable service catalog.
func (c *Client) Services(ctx context.Context) ([]Service, error) {
	var services []Service
	if err := c.get(ctx, "/api/v1/services", &services); err != nil {
		return nil, err
	}
	return services, nil
}

// ActivityLog returns the full agent activity log.
func (c *Client) ActivityLog(ctx context.Context) ([]LogEntry, error) {
	var entries []LogEntry
	if err := c.get(ctx, "/api/v1/log", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return readAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// readAPIError turns a non-2xx response into an APIError. The server reports
// failures as plain text bodies.
func readAPIError(resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read error response: %w", err)
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    string(bytes.TrimSpace(data)),
	}
}
