package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reelsmith/internal/capability"
	convctx "reelsmith/internal/context"
	"reelsmith/internal/intent"
	"reelsmith/internal/llm"
	"reelsmith/internal/orchestrator"
	"reelsmith/internal/pricing"
	"reelsmith/internal/resilience"
	"reelsmith/internal/session"
	"reelsmith/internal/styles"
)

type cannedClient struct{}

func (cannedClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if strings.Contains(req.System, "extract creative-media production intent") {
		return &llm.Response{Text: `{
		  "purpose": {"value": "unknown", "confidence": 0.0},
		  "platform": {"value": "unknown", "confidence": 0.0},
		  "style": {"value": "unknown", "confidence": 0.0},
		  "mediaType": {"value": "unknown", "confidence": 0.0},
		  "budgetSensitivity": {"value": "unknown", "confidence": 0.0},
		  "hasScript": false,
		  "hasVisuals": false
		}`}, nil
	}
	return &llm.Response{Text: "What would you like to create?"}, nil
}

func newTestServer(t *testing.T) (*Server, session.Store) {
	t.Helper()
	exec := resilience.NewExecutor(resilience.RetryConfig{
		MaxRetries: 1,
		BaseDelay:  time.Millisecond,
		Base:       2,
		MaxDelay:   time.Millisecond,
	}, resilience.NewBreakerRegistry(resilience.DefaultBreakerConfig()))

	classifier := orchestrator.NewKeywordClassifier()
	store := session.NewMemoryStore(classifier.IsAffirmative)
	tracker := convctx.NewTracker(convctx.DefaultTrackerConfig())
	usage := convctx.NewRegistry()
	client := cannedClient{}

	orch := orchestrator.New(orchestrator.Deps{
		Store:      store,
		Client:     client,
		Executor:   exec,
		Extractor:  intent.NewExtractor(client, exec),
		Selector:   capability.NewSelector(),
		Estimator:  pricing.NewEstimator(nil),
		Styles:     styles.NewClient("http://127.0.0.1:1", time.Second, exec),
		Tracker:    tracker,
		Compressor: convctx.NewCompressor(client, exec, tracker, convctx.DefaultCompressorConfig()),
		Usage:      usage,
		Classifier: classifier,
	})
	return New(orch, store, usage), store
}

func postChat(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChatEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	handler := s.Router()

	rec := postChat(t, handler, `{"userId": "u1", "message": "I want to make something"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp orchestrator.TurnResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.SessionID == "" || resp.Reply == "" {
		t.Errorf("response = %+v", resp)
	}
	if resp.Phase != session.PhaseDiscovery {
		t.Errorf("phase = %s", resp.Phase)
	}
}

func TestChatValidation(t *testing.T) {
	s, _ := newTestServer(t)
	handler := s.Router()

	cases := []string{
		`not json`,
		`{"userId": "u1"}`,
		`{"message": "hi"}`,
	}
	for _, body := range cases {
		if rec := postChat(t, handler, body); rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestSessionEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	handler := s.Router()

	rec := postChat(t, handler, `{"userId": "u1", "message": "hello"}`)
	var turn orchestrator.TurnResponse
	json.Unmarshal(rec.Body.Bytes(), &turn)

	// Summary.
	req := httptest.NewRequest(http.MethodGet, "/sessions/"+turn.SessionID+"/", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get session: %d", rec.Code)
	}
	var summary sessionSummary
	json.Unmarshal(rec.Body.Bytes(), &summary)
	if summary.MessageCount != 2 {
		t.Errorf("message count = %d, want user turn + reply", summary.MessageCount)
	}

	// History.
	req = httptest.NewRequest(http.MethodGet, "/sessions/"+turn.SessionID+"/history", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: %d", rec.Code)
	}

	// Usage snapshot recorded by the turn.
	req = httptest.NewRequest(http.MethodGet, "/sessions/"+turn.SessionID+"/usage", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("usage: %d", rec.Code)
	}

	// Abandon.
	req = httptest.NewRequest(http.MethodPost, "/sessions/"+turn.SessionID+"/abandon", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("abandon: %d", rec.Code)
	}
}

func TestSessionNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	handler := s.Router()

	for _, path := range []string{"/sessions/nope/", "/sessions/nope/history"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, rec.Code)
		}
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health: %d", rec.Code)
	}
}
