package compute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/framecast/render-gateway/internal/config"
)

// Machine is one compute instance as reported by the machines API.
type Machine struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	State     string `json:"state"`
	PrivateIP string `json:"private_ip"`
}

// MachineConfig is the declared shape of a worker instance. Autostop and the
// idle timeout are platform properties: the gateway declares them at launch
// and never tracks dormant/active state itself.
type MachineConfig struct {
	Image    string          `json:"image"`
	Services []ServiceConfig `json:"services"`
}

type ServiceConfig struct {
	Protocol        string `json:"protocol"`
	InternalPort    int    `json:"internal_port"`
	Autostart       bool   `json:"autostart"`
	Autostop        bool   `json:"autostop"`
	AutostopTimeout int    `json:"autostop_timeout,omitempty"` // seconds
}

// LaunchRequest creates a named machine.
type LaunchRequest struct {
	Name   string        `json:"name"`
	Config MachineConfig `json:"config"`
}

// MachinesClient talks to the machines API that owns worker lifecycles.
type MachinesClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	appName    string
}

// NewMachinesClient creates a machines API client.
func NewMachinesClient(cfg *config.ComputeConfig) *MachinesClient {
	return &MachinesClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: cfg.APIBase,
		token:   cfg.APIToken,
		appName: cfg.AppName,
	}
}

// List returns all machines of the worker app.
func (c *MachinesClient) List(ctx context.Context) ([]Machine, error) {
	endpoint := fmt.Sprintf("/v1/apps/%s/machines", c.appName)
	var machines []Machine
	if err := c.get(ctx, endpoint, &machines); err != nil {
		return nil, err
	}
	return machines, nil
}

// Launch creates a named machine and returns it.
func (c *MachinesClient) Launch(ctx context.Context, req *LaunchRequest) (*Machine, error) {
	endpoint := fmt.Sprintf("/v1/apps/%s/machines", c.appName)
	var machine Machine
	if err := c.post(ctx, endpoint, req, &machine); err != nil {
		return nil, err
	}
	return &machine, nil
}

func (c *MachinesClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, result)
}

func (c *MachinesClient) post(ctx context.Context, endpoint string, payload, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, result)
}

func (c *MachinesClient) do(req *http.Request, result interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("machines API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("machines API returned %d: %s", resp.StatusCode, string(detail))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode machines API response: %w", err)
		}
	}

	return nil
}
