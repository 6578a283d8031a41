package fhir

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const testHookInstance = "d1577c69-dfbe-44ad-bd63-8c2c87e28ccc"

// newTestCDSHooksHandler registers a risk service returning one card and a
// second service whose handler fails.
func newTestCDSHooksHandler() *CDSHooksHandler {
	h := NewCDSHooksHandler(zerolog.Nop())

	h.RegisterService(CDSService{
		Hook:        "patient-view",
		Title:       "Cardiovascular risk",
		Description: "Shows 10-year ASCVD risk when a patient chart is opened",
		ID:          "ascvd-risk",
		Prefetch: map[string]string{
			"patient": "Patient/{{context.patientId}}",
		},
	}, func(ctx context.Context, req CDSHookRequest) (*CDSHookResponse, error) {
		return &CDSHookResponse{
			Cards: []CDSCard{{
				Summary:   "10-year ASCVD risk: 5.4%",
				Indicator: "info",
				Source:    CDSSource{Label: "ACC/AHA Pooled Cohort Equations"},
			}},
		}, nil
	})

	h.RegisterService(CDSService{
		Hook:        "patient-view",
		Description: "Always fails",
		ID:          "broken",
	}, func(ctx context.Context, req CDSHookRequest) (*CDSHookResponse, error) {
		return nil, errors.New("prefetch decode failed")
	})

	return h
}

func serve(h *CDSHooksHandler, method, path, body string) *httptest.ResponseRecorder {
	e := echo.New()
	h.RegisterRoutes(e)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeOutcome(t *testing.T, rec *httptest.ResponseRecorder) OperationOutcome {
	t.Helper()
	var outcome OperationOutcome
	if err := json.Unmarshal(rec.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("failed to unmarshal OperationOutcome: %v", err)
	}
	if outcome.ResourceType != "OperationOutcome" {
		t.Errorf("expected resourceType OperationOutcome, got %s", outcome.ResourceType)
	}
	if len(outcome.Issue) == 0 {
		t.Fatal("expected at least one issue")
	}
	return outcome
}

func TestCDSHooks_Discovery(t *testing.T) {
	rec := serve(newTestCDSHooksHandler(), http.MethodGet, "/cds-services", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result struct {
		Services []CDSService `json:"services"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(result.Services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(result.Services))
	}
	if result.Services[0].ID != "ascvd-risk" || result.Services[1].ID != "broken" {
		t.Errorf("expected registration order, got %q, %q", result.Services[0].ID, result.Services[1].ID)
	}
	if result.Services[0].Prefetch["patient"] != "Patient/{{context.patientId}}" {
		t.Errorf("expected prefetch template, got %v", result.Services[0].Prefetch)
	}
}

func TestCDSHooks_Discovery_Empty(t *testing.T) {
	rec := serve(NewCDSHooksHandler(zerolog.Nop()), http.MethodGet, "/cds-services", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"services":[]`) {
		t.Errorf("expected empty services array, got %s", rec.Body.String())
	}
}

func TestCDSHooks_RegisterService_ReplaceKeepsOrder(t *testing.T) {
	h := newTestCDSHooksHandler()
	h.RegisterService(CDSService{Hook: "patient-view", ID: "ascvd-risk", Description: "v2"},
		func(ctx context.Context, req CDSHookRequest) (*CDSHookResponse, error) { return nil, nil })

	rec := serve(h, http.MethodGet, "/cds-services", "")
	var result struct {
		Services []CDSService `json:"services"`
	}
	json.Unmarshal(rec.Body.Bytes(), &result)
	if len(result.Services) != 2 || result.Services[0].Description != "v2" {
		t.Errorf("expected replaced service first, got %+v", result.Services)
	}
}

func TestCDSHooks_HandleHook_Success(t *testing.T) {
	payload := `{
		"hook": "patient-view",
		"hookInstance": "` + testHookInstance + `",
		"context": {"patientId": "patient-123"},
		"prefetch": {}
	}`
	rec := serve(newTestCDSHooksHandler(), http.MethodPost, "/cds-services/ascvd-risk", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp CDSHookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(resp.Cards) != 1 {
		t.Fatalf("expected 1 card, got %d", len(resp.Cards))
	}
	if resp.Cards[0].Source.Label != "ACC/AHA Pooled Cohort Equations" {
		t.Errorf("unexpected source label %q", resp.Cards[0].Source.Label)
	}
}

func TestCDSHooks_HandleHook_PassesRawPrefetch(t *testing.T) {
	h := NewCDSHooksHandler(zerolog.Nop())
	var got CDSHookRequest
	h.RegisterService(CDSService{Hook: "patient-view", ID: "echo"},
		func(ctx context.Context, req CDSHookRequest) (*CDSHookResponse, error) {
			got = req
			return nil, nil
		})

	payload := `{
		"hook": "patient-view",
		"hookInstance": "` + testHookInstance + `",
		"context": {"patientId": "p1", "userId": "Practitioner/1"},
		"prefetch": {"patient": {"resourceType": "Patient", "id": "p1"}}
	}`
	rec := serve(h, http.MethodPost, "/cds-services/echo", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.ContextString("patientId") != "p1" {
		t.Errorf("expected patientId p1, got %q", got.ContextString("patientId"))
	}
	if got.ContextString("missing") != "" {
		t.Error("expected empty string for missing context key")
	}
	if !bytes.Contains(got.Prefetch["patient"], []byte(`"id": "p1"`)) && !bytes.Contains(got.Prefetch["patient"], []byte(`"id":"p1"`)) {
		t.Errorf("expected raw patient prefetch, got %s", got.Prefetch["patient"])
	}
	// nil response is normalised to an empty card list
	if !strings.Contains(rec.Body.String(), `"cards":[]`) {
		t.Errorf("expected empty cards array, got %s", rec.Body.String())
	}
}

func TestCDSHooks_HandleHook_HandlerError(t *testing.T) {
	payload := `{"hook": "patient-view", "hookInstance": "` + testHookInstance + `", "context": {}}`
	rec := serve(newTestCDSHooksHandler(), http.MethodPost, "/cds-services/broken", payload)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", rec.Code, rec.Body.String())
	}
	if outcome := decodeOutcome(t, rec); outcome.Issue[0].Code != "exception" {
		t.Errorf("expected issue code 'exception', got %q", outcome.Issue[0].Code)
	}
}

func TestCDSHooks_HandleHook_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		payload string
		want    int
		code    string
	}{
		{
			name:    "unknown service",
			path:    "/cds-services/nonexistent",
			payload: `{"hook": "patient-view", "hookInstance": "` + testHookInstance + `", "context": {}}`,
			want:    http.StatusNotFound,
			code:    "not-found",
		},
		{
			name:    "invalid json",
			path:    "/cds-services/ascvd-risk",
			payload: `{invalid json`,
			want:    http.StatusBadRequest,
			code:    "processing",
		},
		{
			name:    "hook mismatch",
			path:    "/cds-services/ascvd-risk",
			payload: `{"hook": "order-select", "hookInstance": "` + testHookInstance + `", "context": {}}`,
			want:    http.StatusBadRequest,
			code:    "processing",
		},
		{
			name:    "missing hookInstance",
			path:    "/cds-services/ascvd-risk",
			payload: `{"hook": "patient-view", "context": {"patientId": "patient-123"}}`,
			want:    http.StatusBadRequest,
			code:    "processing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestCDSHooksHandler(), http.MethodPost, tt.path, tt.payload)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if outcome := decodeOutcome(t, rec); outcome.Issue[0].Code != tt.code {
				t.Errorf("expected issue code %q, got %q", tt.code, outcome.Issue[0].Code)
			}
		})
	}
}

func TestCDSHooks_Feedback_Success(t *testing.T) {
	h := newTestCDSHooksHandler()

	feedbackCalled := false
	h.RegisterFeedbackHandler("ascvd-risk", func(ctx context.Context, serviceID string, fb CDSFeedbackRequest) error {
		feedbackCalled = true
		if serviceID != "ascvd-risk" {
			t.Errorf("expected serviceID 'ascvd-risk', got %q", serviceID)
		}
		if fb.Card != "card-uuid-1" || fb.Outcome != "accepted" {
			t.Errorf("unexpected feedback %+v", fb)
		}
		return nil
	})

	payload := `{"card": "card-uuid-1", "outcome": "accepted", "outcomeTimestamp": "2024-01-15T10:30:00Z"}`
	rec := serve(h, http.MethodPost, "/cds-services/ascvd-risk/feedback", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !feedbackCalled {
		t.Error("expected feedback handler to be called")
	}
}

func TestCDSHooks_Feedback_HandlerError(t *testing.T) {
	h := newTestCDSHooksHandler()
	h.RegisterFeedbackHandler("ascvd-risk", func(ctx context.Context, serviceID string, fb CDSFeedbackRequest) error {
		return errors.New("store unavailable")
	})

	rec := serve(h, http.MethodPost, "/cds-services/ascvd-risk/feedback", `{"card": "c", "outcome": "accepted"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCDSHooks_Feedback_NotFound(t *testing.T) {
	rec := serve(newTestCDSHooksHandler(), http.MethodPost, "/cds-services/nonexistent/feedback", `{"card": "c", "outcome": "accepted"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
	decodeOutcome(t, rec)
}

func TestCDSHooks_Feedback_NoHandlerLogs(t *testing.T) {
	var buf bytes.Buffer
	h := NewCDSHooksHandler(zerolog.New(&buf))
	h.RegisterService(CDSService{Hook: "patient-view", ID: "ascvd-risk"},
		func(ctx context.Context, req CDSHookRequest) (*CDSHookResponse, error) { return nil, nil })

	rec := serve(h, http.MethodPost, "/cds-services/ascvd-risk/feedback", `{"card": "card-uuid-1", "outcome": "overridden"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 (no-op), got %d: %s", rec.Code, rec.Body.String())
	}
	logged := buf.String()
	if !strings.Contains(logged, `"outcome":"overridden"`) || !strings.Contains(logged, `"component":"cds-hooks"`) {
		t.Errorf("expected feedback to be logged, got %s", logged)
	}
}
