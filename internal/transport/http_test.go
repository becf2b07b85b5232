package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BillStark001/meetscript/internal/auth"
	"github.com/BillStark001/meetscript/internal/engine"
	"github.com/BillStark001/meetscript/internal/engine/mock"
	"github.com/BillStark001/meetscript/internal/events"
	"github.com/BillStark001/meetscript/internal/meeting"
	"github.com/BillStark001/meetscript/internal/models"
	"github.com/BillStark001/meetscript/internal/storage"
)

func testStack(t *testing.T) (*API, *auth.Authenticator, *meeting.Scheduler, *storage.MemoryStore) {
	t.Helper()
	authenticator := auth.New("test-secret", time.Minute)
	store := storage.NewMemoryStore()
	scheduler := meeting.NewScheduler(
		meeting.SchedulerConfig{
			SampleRate:        16000,
			MaxGapMillis:      2000,
			MaxSpanMillis:     20000,
			QueueCapacity:     64,
			CompleteGapMillis: 1000,
			MaxSegmentMillis:  10000,
			SilenceThreshold:  4,
			PassPause:         5 * time.Millisecond,
			CyclePause:        5 * time.Millisecond,
			TargetLanguages:   []string{"en"},
			BroadcastQueue:    64,
		},
		store,
		events.New(&events.Config{Enabled: false}),
		func(ctx context.Context) (engine.Recognizer, error) {
			return mock.NewRecognizer("en-US"), nil
		},
		mock.NewTranslator(),
	)
	t.Cleanup(scheduler.Shutdown)
	api := NewAPI(authenticator, scheduler, store, NewWSHandler(authenticator, scheduler))
	return api, authenticator, scheduler, store
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	parsed := map[string]json.RawMessage{}
	_ = json.Unmarshal(rr.Body.Bytes(), &parsed)
	return rr, parsed
}

func codeOf(t *testing.T, parsed map[string]json.RawMessage) int {
	t.Helper()
	var code int
	if raw, ok := parsed["code"]; ok {
		if err := json.Unmarshal(raw, &code); err != nil {
			t.Fatalf("decode code: %v", err)
		}
	}
	return code
}

func TestAPI_AuthRejections(t *testing.T) {
	api, authenticator, _, _ := testStack(t)
	router := api.Router()

	rr, parsed := doJSON(t, router, http.MethodPost, "/api/meet/init", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("no token: expected 401, got %d", rr.Code)
	}
	if got := codeOf(t, parsed); got != 50 {
		t.Errorf("no token: expected code 50, got %d", got)
	}

	consume, err := authenticator.Issue("alice@example.com", auth.ScopeConsume)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	rr, parsed = doJSON(t, router, http.MethodPost, "/api/meet/init", consume, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("wrong scope: expected 401, got %d", rr.Code)
	}
	if got := codeOf(t, parsed); got != 51 {
		t.Errorf("wrong scope: expected code 51, got %d", got)
	}
}

func TestAPI_SessionLifecycle(t *testing.T) {
	api, authenticator, _, _ := testStack(t)
	router := api.Router()
	token, err := authenticator.Issue("alice@example.com", auth.ScopeControl)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	rr, parsed := doJSON(t, router, http.MethodPost, "/api/meet/close", token, nil)
	if rr.Code != http.StatusBadRequest || codeOf(t, parsed) != 61 {
		t.Errorf("close while idle: expected 400/61, got %d/%d", rr.Code, codeOf(t, parsed))
	}

	rr, parsed = doJSON(t, router, http.MethodPost, "/api/meet/init", token,
		map[string]string{"session": "roomA", "name": "daily"})
	if rr.Code != http.StatusOK || codeOf(t, parsed) != 0 {
		t.Fatalf("init: expected 200/0, got %d/%d body=%s", rr.Code, codeOf(t, parsed), rr.Body.String())
	}
	var session string
	_ = json.Unmarshal(parsed["session"], &session)
	if session != "roomA" {
		t.Errorf("expected session roomA, got %s", session)
	}

	rr, parsed = doJSON(t, router, http.MethodPost, "/api/meet/init", token, nil)
	if rr.Code != http.StatusBadRequest || codeOf(t, parsed) != 60 {
		t.Errorf("double init: expected 400/60, got %d/%d", rr.Code, codeOf(t, parsed))
	}

	rr, parsed = doJSON(t, router, http.MethodPost, "/api/meet/close", token, nil)
	if rr.Code != http.StatusOK || codeOf(t, parsed) != 0 {
		t.Errorf("close: expected 200/0, got %d/%d", rr.Code, codeOf(t, parsed))
	}
}

func TestAPI_WSRequestIssuesScopedTokens(t *testing.T) {
	api, authenticator, _, _ := testStack(t)
	router := api.Router()
	token, err := authenticator.Issue("alice@example.com", auth.ScopeControl)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	tests := []struct {
		path string
		want auth.Scope
	}{
		{"/api/meet/ws_request?provider=true", auth.ScopeProvide},
		{"/api/meet/ws_request", auth.ScopeConsume},
	}
	for _, tt := range tests {
		rr, parsed := doJSON(t, router, http.MethodGet, tt.path, token, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tt.path, rr.Code)
		}
		var issued string
		_ = json.Unmarshal(parsed["accessToken"], &issued)
		claims, err := authenticator.Verify(issued, tt.want)
		if err != nil {
			t.Errorf("%s: issued token failed verification for %s: %v", tt.path, tt.want, err)
			continue
		}
		if claims.Subject != "alice@example.com" {
			t.Errorf("%s: expected subject preserved, got %s", tt.path, claims.Subject)
		}
	}
}

func TestAPI_Records(t *testing.T) {
	api, authenticator, _, store := testStack(t)
	router := api.Router()
	token, err := authenticator.Issue("alice@example.com", auth.ScopeControl)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	ctx := context.Background()
	for _, rec := range []models.MeetingRecord{
		{Session: "roomA", Timestamp: 1000, Lang: "en-US", Text: "one"},
		{Session: "roomA", Timestamp: 2000, Lang: "ja-JP", Text: "二"},
		{Session: "roomA", Timestamp: 3000, Lang: "en-US", Text: "three"},
	} {
		if err := store.AddRecord(ctx, rec); err != nil {
			t.Fatalf("seed record failed: %v", err)
		}
	}

	rr, parsed := doJSON(t, router, http.MethodGet, "/api/meet/records", token, nil)
	if rr.Code != http.StatusBadRequest || codeOf(t, parsed) != 61 {
		t.Errorf("no session: expected 400/61, got %d/%d", rr.Code, codeOf(t, parsed))
	}

	rr, parsed = doJSON(t, router, http.MethodGet,
		"/api/meet/records?session=roomA&start=1000&end=2500&lang=en", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("records: expected 200, got %d", rr.Code)
	}
	var records []recordResponseItem
	if err := json.Unmarshal(parsed["records"], &records); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 filtered record, got %d", len(records))
	}
	if records[0].Timestamp != 1000 || records[0].Text != "one" {
		t.Errorf("unexpected record %+v", records[0])
	}
}
