package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/richinex/seoscout/report"
	"github.com/richinex/seoscout/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*httptest.Server, storage.RunStore) {
	t.Helper()
	a, store := newTestAnalyzer(t, echoFetcher{failFor: map[string]bool{"down.example": true}})
	srv := httptest.NewServer(NewServer(a, store).Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func postAnalyze(t *testing.T, srv *httptest.Server, body string) (*http.Response, AnalyzeResponse) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/analyze", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded struct {
		RunID  string        `json:"runId"`
		Report report.Report `json:"report"`
	}
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, AnalyzeResponse{RunID: decoded.RunID, Report: decoded.Report}
}

func TestServerHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestServerAnalyzeCompleted(t *testing.T) {
	srv, store := newTestServer(t)

	resp, body := postAnalyze(t, srv, `{"target":"bakery.example","query":"bread"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	rep := body.Report.(report.Report)
	if rep.Status != report.StatusCompleted || rep.Target != "bakery.example" {
		t.Errorf("unexpected report: %+v", rep)
	}
	if _, err := store.Get(context.Background(), body.RunID); err != nil {
		t.Errorf("run %q not recorded: %v", body.RunID, err)
	}
}

func TestServerAnalyzePartial(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := postAnalyze(t, srv, `{"target":"down.example"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	rep := body.Report.(report.Report)
	if rep.Status != report.StatusPartial || rep.FailedStage == "" {
		t.Errorf("expected partial report, got %+v", rep)
	}
}

func TestServerAnalyzeRejectsMissingTarget(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := postAnalyze(t, srv, `{"query":"bread"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestServerRuns(t *testing.T) {
	srv, _ := newTestServer(t)
	_, first := postAnalyze(t, srv, `{"target":"a.example"}`)
	postAnalyze(t, srv, `{"target":"b.example"}`)

	resp, err := http.Get(srv.URL + "/api/runs?limit=1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var list struct {
		Runs []storage.Run `json:"runs"`
	}
	json.NewDecoder(resp.Body).Decode(&list)
	resp.Body.Close()
	if len(list.Runs) != 1 {
		t.Errorf("expected one run, got %d", len(list.Runs))
	}
	if len(list.Runs) == 1 && list.Runs[0].Context != nil {
		t.Error("run list should omit context payloads")
	}

	resp, err = http.Get(srv.URL + "/api/runs/" + first.RunID)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var run storage.Run
	json.NewDecoder(resp.Body).Decode(&run)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || run.Target != "a.example" || len(run.Report) == 0 {
		t.Errorf("unexpected run response %d: %+v", resp.StatusCode, run)
	}
}

func TestServerRunErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		path string
		want int
	}{
		{"/api/runs/missing", http.StatusNotFound},
		{"/api/runs?limit=abc", http.StatusBadRequest},
		{"/api/runs?limit=-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp, err := http.Get(srv.URL + tt.path)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.path, tt.want, resp.StatusCode)
		}
	}
}
