package compute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/framecast/render-gateway/internal/config"
	"github.com/framecast/render-gateway/internal/model"
)

// Handle is a resolved reference to a named worker instance.
type Handle struct {
	Name    string
	BaseURL string
}

// Launcher resolves a logical worker name to a reachable instance, creating
// it when it does not exist yet. Waking a stopped instance is the platform's
// job and is implicit in the first connection; callers only observe latency.
type Launcher interface {
	Ensure(ctx context.Context, name string) (*Handle, error)
}

// StaticLauncher points at a fixed worker URL. Used in local development and
// tests, where no machines API manages the worker.
type StaticLauncher struct {
	URL string
}

func (l *StaticLauncher) Ensure(ctx context.Context, name string) (*Handle, error) {
	return &Handle{Name: name, BaseURL: l.URL}, nil
}

// MachinesLauncher gets-or-creates the named machine through the machines API.
type MachinesLauncher struct {
	api *MachinesClient
	cfg *config.ComputeConfig
}

func NewMachinesLauncher(api *MachinesClient, cfg *config.ComputeConfig) *MachinesLauncher {
	return &MachinesLauncher{api: api, cfg: cfg}
}

func (l *MachinesLauncher) Ensure(ctx context.Context, name string) (*Handle, error) {
	machines, err := l.api.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}

	for _, m := range machines {
		if m.Name == name {
			return l.handleFor(&m), nil
		}
	}

	machine, err := l.api.Launch(ctx, &LaunchRequest{
		Name: name,
		Config: MachineConfig{
			Image: l.cfg.Image,
			Services: []ServiceConfig{
				{
					Protocol:        "tcp",
					InternalPort:    l.cfg.WorkerPort,
					Autostart:       true,
					Autostop:        true,
					AutostopTimeout: l.cfg.QuiescenceSec,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch machine %q: %w", name, err)
	}

	return l.handleFor(machine), nil
}

func (l *MachinesLauncher) handleFor(m *Machine) *Handle {
	return &Handle{
		Name:    m.Name,
		BaseURL: fmt.Sprintf("http://%s:%d", m.PrivateIP, l.cfg.WorkerPort),
	}
}

// Manager routes render jobs to the singleton named worker instance. The
// name-to-handle map is read-mostly and safe for concurrent lookups;
// concurrent requests for the same name share one instance.
type Manager struct {
	launcher Launcher
	name     string
	client   *http.Client

	mu      sync.RWMutex
	handles map[string]*Handle
}

// NewManager creates a lifecycle manager for one logical worker name. budget
// bounds a single forward end to end, including reading the response body.
func NewManager(launcher Launcher, name string, budget time.Duration) *Manager {
	return &Manager{
		launcher: launcher,
		name:     name,
		client: &http.Client{
			Timeout: budget,
		},
		handles: make(map[string]*Handle),
	}
}

// Forward sends the job to the worker and returns the raw HTTP response with
// its body still open; the caller owns closing it. Exactly one attempt is
// made: render jobs carry real compute cost and are not safe to replay
// silently, so retry policy stays with the caller.
func (m *Manager) Forward(ctx context.Context, job *model.RenderJob) (*http.Response, error) {
	handle, err := m.handle(ctx)
	if err != nil {
		return nil, fmt.Errorf("no instance for worker %q: %w", m.name, err)
	}

	body, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, handle.BaseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Correlation-Id", job.CorrelationID)

	resp, err := m.client.Do(req)
	if err != nil {
		// The handle may be stale (instance destroyed). Drop it so the next
		// request re-resolves; this request is not retried.
		m.invalidate(handle.Name)
		return nil, fmt.Errorf("worker %q did not answer: %w", m.name, err)
	}

	return resp, nil
}

func (m *Manager) handle(ctx context.Context) (*Handle, error) {
	m.mu.RLock()
	h, ok := m.handles[m.name]
	m.mu.RUnlock()
	if ok {
		return h, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.handles[m.name]; ok {
		return h, nil
	}

	h, err := m.launcher.Ensure(ctx, m.name)
	if err != nil {
		return nil, err
	}
	m.handles[m.name] = h
	return h, nil
}

func (m *Manager) invalidate(name string) {
	m.mu.Lock()
	delete(m.handles, name)
	m.mu.Unlock()
}
