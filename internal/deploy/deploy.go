// Package deploy implements C8: the function deployment orchestrator,
// speaking JSON-RPC 1.0 to an external deployer service. This is a thin
// RPC client (deploy/status/delete/generate_name) rather than embedding
// the deployment logic itself.
package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/iosl-sustainability/carbon-scheduler/internal/retryutil"
)

// Status mirrors the deployer's function lifecycle states, following
// function_deployer.py's get_status mapping of GCP Cloud Functions states.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusDeploying Status = "DEPLOYING"
	StatusDeleting  Status = "DELETING"
	StatusFailed    Status = "FAILED"
	StatusNotFound  Status = "NOT_FOUND"
	StatusUnknown   Status = "UNKNOWN"
)

// DeployRequest is the payload for the "deploy" RPC method.
type DeployRequest struct {
	FunctionName  string   `json:"function_name"`
	Code          string   `json:"code"`
	Region        string   `json:"region"`
	Runtime       string   `json:"runtime"`
	MemoryMB      int64    `json:"memory_mb"`
	CPU           float64  `json:"cpu"`
	TimeoutSeconds int     `json:"timeout_seconds"`
	EntryPoint    string   `json:"entry_point"`
	Requirements  []string `json:"requirements"`
	CodeHash      string   `json:"code_hash"`
}

// DeployResponse is the deployer's "deploy" result.
type DeployResponse struct {
	FunctionURL string `json:"function_url"`
	CodeHash    string `json:"code_hash"`
}

// StatusResponse is the deployer's "status" result.
type StatusResponse struct {
	State Status `json:"state"`
}

// Client is a JSON-RPC 1.0 client for the external deployer, built
// directly on net/http + encoding/json rather than a dedicated
// JSON-RPC framework (see DESIGN.md).
type Client struct {
	HTTP     *http.Client
	Endpoint string
}

func NewClient(endpoint string) *Client {
	return &Client{HTTP: &http.Client{Timeout: 30 * time.Second}, Endpoint: endpoint}
}

type rpcRequest struct {
	Method string      `json:"method"`
	Params interface{} `json:"params"`
	ID     int         `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	ID     int             `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return fmt.Sprintf("deploy: rpc error %d: %s", e.Code, e.Message) }

func (c *Client) call(ctx context.Context, method string, params interface{}, result interface{}) error {
	return retryutil.Do(ctx, retryutil.Default, func(ctx context.Context) error {
		body, err := json.Marshal(rpcRequest{Method: method, Params: params, ID: 1})
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return rpcTransportError{err: err, temporary: true}
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return rpcTransportError{err: fmt.Errorf("deploy: %s: server error %d", method, resp.StatusCode), temporary: true}
		}
		var envelope rpcResponse
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return rpcTransportError{err: fmt.Errorf("deploy: %s: decode: %w", method, err), temporary: false}
		}
		if envelope.Error != nil {
			return rpcTransportError{err: envelope.Error, temporary: false}
		}
		if result != nil {
			return json.Unmarshal(envelope.Result, result)
		}
		return nil
	})
}

// Deploy sends a deploy request and returns the deployed function's URL
// and content hash.
func (c *Client) Deploy(ctx context.Context, req DeployRequest) (DeployResponse, error) {
	var resp DeployResponse
	err := c.call(ctx, "deploy", req, &resp)
	return resp, err
}

// GetStatus queries the deployer for a function's current lifecycle state.
func (c *Client) GetStatus(ctx context.Context, functionName, region string) (Status, error) {
	var resp StatusResponse
	err := c.call(ctx, "status", map[string]string{"function_name": functionName, "region": region}, &resp)
	if err != nil {
		return StatusUnknown, err
	}
	return resp.State, nil
}

// Delete removes a deployed function; deleting an already-absent function
// is idempotent, matching function_deployer.py's delete behavior.
func (c *Client) Delete(ctx context.Context, functionName, region string) error {
	return c.call(ctx, "delete", map[string]string{"function_name": functionName, "region": region}, nil)
}

// GenerateName asks the deployer for a fresh, collision-free function name.
func (c *Client) GenerateName(ctx context.Context) (string, error) {
	var resp struct {
		Name string `json:"name"`
	}
	err := c.call(ctx, "generate_name", nil, &resp)
	return resp.Name, err
}

type rpcTransportError struct {
	err       error
	temporary bool
}

func (e rpcTransportError) Error() string   { return e.err.Error() }
func (e rpcTransportError) Unwrap() error   { return e.err }
func (e rpcTransportError) Temporary() bool { return e.temporary }
