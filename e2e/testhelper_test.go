package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/framecast/render-gateway/internal/client"
	"github.com/framecast/render-gateway/internal/compute"
	"github.com/framecast/render-gateway/internal/config"
	"github.com/framecast/render-gateway/internal/handler"
	"github.com/framecast/render-gateway/internal/middleware"
	"github.com/framecast/render-gateway/internal/service"
)

const (
	testBucket     = "render-artifacts"
	testPublicBase = "https://media.example.com"
)

type gatewayOptions struct {
	workerURL  string
	storage    client.StorageClient
	storageCfg config.StorageConfig
	authSecret string
}

// setupGateway builds a Fiber app wired like main.go, pointed at a test
// worker double instead of a real machine.
func setupGateway(t *testing.T, opts gatewayOptions) *fiber.App {
	t.Helper()

	validate := validator.New()

	manager := compute.NewManager(&compute.StaticLauncher{URL: opts.workerURL}, "renderer", 10*time.Second)
	renderService := service.NewRenderService(manager, opts.storage, testBucket, testPublicBase)
	renderHandler := handler.NewRenderHandler(renderService, validate, &opts.storageCfg)

	authMiddleware := middleware.NewAuthMiddleware(opts.authSecret)
	rateLimiter := middleware.NewRateLimiter(nil) // no redis in tests: limiter passes through

	app := fiber.New()

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service":   "render-gateway",
			"timestamp": time.Now().Unix(),
		})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"storage":  opts.storage != nil,
				"machines": false,
				"auth":     opts.authSecret != "",
			},
		})
	})
	app.Post("/render",
		authMiddleware.Authenticate(),
		rateLimiter.RenderLimit(10000),
		renderHandler.Render,
	)

	return app
}

// configStorage returns a storage config with delegable credentials.
func configStorage() config.StorageConfig {
	return config.StorageConfig{
		Endpoint:        "https://storage.example.com",
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
		BucketName:      testBucket,
		PublicBaseURL:   testPublicBase,
	}
}

// uploadRecord captures one storage write made by the gateway.
type uploadRecord struct {
	Key         string
	ContentType string
	Size        int64
}

// memoryStorage is a StorageClient double. It drains the stream like a real
// backend would, so truncation errors surface the same way.
type memoryStorage struct {
	mu      sync.Mutex
	uploads []uploadRecord
	err     error
}

func (s *memoryStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	n, err := io.Copy(io.Discard, body)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.uploads = append(s.uploads, uploadRecord{Key: key, ContentType: contentType, Size: n})
	s.mu.Unlock()
	return n, nil
}

func (s *memoryStorage) records() []uploadRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uploadRecord, len(s.uploads))
	copy(out, s.uploads)
	return out
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
