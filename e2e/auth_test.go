package e2e

import (
	"net/http"
	"testing"
	"time"

	"github.com/framecast/render-gateway/internal/auth"
)

const testAuthSecret = "test-secret-for-e2e"

func TestRender_AuthRequiredWhenSecretSet(t *testing.T) {
	worker := manifestWorker(t, `{"key":"abc.mp4","size":2048}`)
	app := setupGateway(t, gatewayOptions{workerURL: worker.URL, authSecret: testAuthSecret})

	resp, err := doRequest(app, http.MethodPost, "/render", `{"compositionId":"HelloWorld"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusUnauthorized)

	token, err := auth.GenerateToken("test-caller", testAuthSecret, time.Hour)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	resp, err = doRequest(app, http.MethodPost, "/render", `{"compositionId":"HelloWorld"}`, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
}

func TestRender_OpenWhenNoSecret(t *testing.T) {
	worker := manifestWorker(t, `{"key":"abc.mp4","size":2048}`)
	app := setupGateway(t, gatewayOptions{workerURL: worker.URL})

	resp, err := doRequest(app, http.MethodPost, "/render", `{"compositionId":"HelloWorld"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
}

func TestRender_RejectsBadToken(t *testing.T) {
	worker := manifestWorker(t, `{"key":"abc.mp4","size":2048}`)
	app := setupGateway(t, gatewayOptions{workerURL: worker.URL, authSecret: testAuthSecret})

	resp, err := doRequest(app, http.MethodPost, "/render", `{"compositionId":"HelloWorld"}`, map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusUnauthorized)
}
