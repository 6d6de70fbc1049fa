//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

func TestRemoteAPI_MainEndpoints(t *testing.T) {
	baseURL := strings.TrimRight(os.Getenv("E2E_BASE_URL"), "/")
	if baseURL == "" {
		t.Skip("E2E_BASE_URL is required for remote e2e")
	}
	client := &http.Client{Timeout: 20 * time.Second}

	t.Run("health", func(t *testing.T) {
		status, body := doJSON(t, client, http.MethodGet, baseURL+"/status", nil)
		if status != http.StatusOK {
			t.Fatalf("status=%d body=%s", status, string(body))
		}
		var out map[string]string
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatalf("unmarshal health: %v", err)
		}
		if out["status"] != "ok" {
			t.Fatalf("health body=%v", out)
		}
	})

	t.Run("notify requires battle id", func(t *testing.T) {
		status, body := doJSON(t, client, http.MethodPost, baseURL+"/notify", map[string]any{"type": "battle_start"})
		if status != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d body=%s", status, string(body))
		}
	})

	t.Run("unknown game is 404", func(t *testing.T) {
		status, body := doJSON(t, client, http.MethodGet, baseURL+"/api/games/e2e-no-such-game", nil)
		if status != http.StatusNotFound {
			t.Fatalf("expected 404, got %d body=%s", status, string(body))
		}
	})

	t.Run("bad turn number is 400", func(t *testing.T) {
		status, body := doJSON(t, client, http.MethodGet, baseURL+"/api/games/e2e-no-such-game/turns/nope", nil)
		if status != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d body=%s", status, string(body))
		}
	})

	t.Run("ops kpi", func(t *testing.T) {
		status, body := doJSON(t, client, http.MethodGet, baseURL+"/ops/kpi", nil)
		if status != http.StatusOK {
			t.Fatalf("kpi status=%d body=%s", status, string(body))
		}
		var kpi map[string]any
		if err := json.Unmarshal(body, &kpi); err != nil {
			t.Fatalf("unmarshal kpi: %v body=%s", err, string(body))
		}
		if _, ok := kpi["battles_total"]; !ok {
			t.Fatalf("kpi missing battles_total: %v", kpi)
		}
	})
}

func doJSON(t *testing.T, client *http.Client, method, url string, payload any) (int, []byte) {
	t.Helper()
	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		reqBody = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, body
}
