package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ioezgamer/studio/internal/store"
)

func newTestServer(t *testing.T, fs *fakeStore) *HTTPServer {
	t.Helper()
	return NewHTTPServer(newTestService(t, fs), "*", nil)
}

func doJSON(t *testing.T, server *HTTPServer, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Buffer
	if body == "" {
		reader = &bytes.Buffer{}
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	var payload map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
			t.Fatalf("parse response: %v body=%s", err, rr.Body.String())
		}
	}
	return rr, payload
}

const printerJSON = `{"equipment":"Printer","assetNumber":"A-001","user":"Jane","technician":"Bob","date":"2024-01-10","status":"Completed","tasks":[{"description":"Cleaned rollers"}]}`

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, newFakeStore())
	rr, payload := doJSON(t, server, http.MethodGet, "/api/health", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if payload["ok"] != true || payload["success"] != true {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID header")
	}
}

func TestReadyEndpointDatabaseDown(t *testing.T) {
	fs := newFakeStore()
	fs.pingFn = func(context.Context) error { return errors.New("connection refused") }
	server := newTestServer(t, fs)

	rr, payload := doJSON(t, server, http.MethodGet, "/api/ready", "", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	if payload["status"] != "not_ready" || payload["success"] != false {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestEditorCreatesRecordOverHTTP(t *testing.T) {
	fs := newFakeStore()
	fs.addUser("usr_e", "editor")
	server := newTestServer(t, fs)

	rr, payload := doJSON(t, server, http.MethodPost, "/api/records", tokenFor(t, "usr_e"), printerJSON)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	if payload["success"] != true {
		t.Fatalf("expected success=true, got %v", payload)
	}

	rr, payload = doJSON(t, server, http.MethodGet, "/api/records", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	data, _ := payload["data"].([]any)
	if len(data) != 1 {
		t.Fatalf("expected one record, got %v", payload["data"])
	}
	record := data[0].(map[string]any)
	if record["status"] != "Completed" || record["date"] != "2024-01-10" {
		t.Fatalf("unexpected record: %v", record)
	}
	if tasks, _ := record["tasks"].([]any); len(tasks) != 1 {
		t.Fatalf("expected one task, got %v", record["tasks"])
	}
}

func TestViewerDeleteOverHTTP(t *testing.T) {
	fs := newFakeStore()
	fs.addUser("usr_v", "viewer")
	fs.seedRecord("rec_1", time.Now())
	server := newTestServer(t, fs)

	rr, payload := doJSON(t, server, http.MethodDelete, "/api/records/rec_1", tokenFor(t, "usr_v"), "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
	if payload["success"] != false || payload["code"] != CodePermissionDenied {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if msg, _ := payload["error"].(string); !strings.Contains(msg, "Permiso denegado") {
		t.Fatalf("expected permission message, got %q", msg)
	}

	_, payload = doJSON(t, server, http.MethodGet, "/api/records", "", "")
	if data, _ := payload["data"].([]any); len(data) != 1 {
		t.Fatalf("record should remain, got %v", payload["data"])
	}
}

func TestViewerWriteEndpointsAreForbidden(t *testing.T) {
	fs := newFakeStore()
	fs.addUser("usr_v", "viewer")
	fs.seedRecord("rec_1", time.Now())
	server := newTestServer(t, fs)
	token := tokenFor(t, "usr_v")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "create record", method: http.MethodPost, path: "/api/records", body: printerJSON},
		{name: "update record", method: http.MethodPatch, path: "/api/records/rec_1", body: `{"notes":"x"}`},
		{name: "delete record", method: http.MethodDelete, path: "/api/records/rec_1"},
		{name: "add reference item", method: http.MethodPost, path: "/api/reference-lists/equipment", body: `{"name":"Printer"}`},
		{name: "open draft", method: http.MethodPost, path: "/api/drafts", body: `{"equipmentType":"Printer"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr, payload := doJSON(t, server, tc.method, tc.path, token, tc.body)
			if rr.Code != http.StatusForbidden {
				t.Fatalf("expected status 403, got %d body=%s", rr.Code, rr.Body.String())
			}
			if payload["code"] != CodePermissionDenied {
				t.Fatalf("expected code %s, got %v", CodePermissionDenied, payload["code"])
			}
		})
	}
	if fs.writeCount() != 0 {
		t.Fatalf("expected no writes, got %d", fs.writeCount())
	}
}

func TestMutationsRequireToken(t *testing.T) {
	server := newTestServer(t, newFakeStore())
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/records"},
		{http.MethodPatch, "/api/records/rec_1"},
		{http.MethodDelete, "/api/records/rec_1"},
		{http.MethodPost, "/api/reference-lists/equipment"},
	} {
		rr, payload := doJSON(t, server, tc.method, tc.path, "", `{}`)
		if rr.Code != http.StatusUnauthorized || payload["success"] != false {
			t.Fatalf("%s %s: expected 401, got %d %v", tc.method, tc.path, rr.Code, payload)
		}
	}
}

func TestInvalidListOverHTTP(t *testing.T) {
	fs := newFakeStore()
	fs.addUser("usr_v", "viewer")
	server := newTestServer(t, fs)

	rr, payload := doJSON(t, server, http.MethodPost, "/api/reference-lists/maintenance", tokenFor(t, "usr_v"), `{"name":"x"}`)
	if rr.Code != http.StatusUnprocessableEntity || payload["code"] != CodeInvalidList {
		t.Fatalf("expected INVALID_LIST, got %d %v", rr.Code, payload)
	}
	rr, payload = doJSON(t, server, http.MethodGet, "/api/reference-lists/maintenance", "", "")
	if rr.Code != http.StatusUnprocessableEntity || payload["code"] != CodeInvalidList {
		t.Fatalf("expected INVALID_LIST, got %d %v", rr.Code, payload)
	}
}

func TestSessionReportsFreshRole(t *testing.T) {
	fs := newFakeStore()
	fs.addUser("usr_1", "editor")
	server := newTestServer(t, fs)
	token := tokenFor(t, "usr_1")

	_, payload := doJSON(t, server, http.MethodGet, "/api/session", token, "")
	if payload["authenticated"] != true || payload["role"] != "editor" {
		t.Fatalf("unexpected session: %v", payload)
	}

	fs.setRole("usr_1", "viewer")
	_, payload = doJSON(t, server, http.MethodGet, "/api/session", token, "")
	if payload["role"] != "viewer" {
		t.Fatalf("expected role change to apply immediately, got %v", payload["role"])
	}

	_, payload = doJSON(t, server, http.MethodGet, "/api/session", "not-a-token", "")
	if payload["authenticated"] != false {
		t.Fatalf("expected unauthenticated, got %v", payload)
	}
}

func TestSignUpSignInRefreshLogout(t *testing.T) {
	fs := newFakeStore()
	server := newTestServer(t, fs)

	rr, payload := doJSON(t, server, http.MethodPost, "/api/auth/signup", "", `{"email":"jane@example.com","password":"correct-horse"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	if payload["role"] != "viewer" || payload["token"] == "" {
		t.Fatalf("unexpected signup payload: %v", payload)
	}

	rr, payload = doJSON(t, server, http.MethodPost, "/api/auth/signup", "", `{"email":"JANE@example.com","password":"correct-horse"}`)
	if rr.Code != http.StatusConflict || payload["success"] != false {
		t.Fatalf("duplicate signup: expected 409, got %d %v", rr.Code, payload)
	}

	rr, _ = doJSON(t, server, http.MethodPost, "/api/auth/signin", "", `{"email":"jane@example.com","password":"wrong-horse"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: expected 401, got %d", rr.Code)
	}

	rr, payload = doJSON(t, server, http.MethodPost, "/api/auth/signin", "", `{"email":"jane@example.com","password":"correct-horse"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("signin: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	token, _ := payload["token"].(string)
	refresh, _ := payload["refreshToken"].(string)

	rr, payload = doJSON(t, server, http.MethodPost, "/api/session/refresh", "", `{"refreshToken":"`+refresh+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	rotated, _ := payload["refreshToken"].(string)
	if rotated == "" || rotated == refresh {
		t.Fatalf("expected a rotated refresh token, got %q", rotated)
	}
	rr, _ = doJSON(t, server, http.MethodPost, "/api/session/refresh", "", `{"refreshToken":"`+refresh+`"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh token: expected 401, got %d", rr.Code)
	}

	rr, _ = doJSON(t, server, http.MethodPost, "/api/session/logout", token, `{"refreshToken":"`+rotated+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rr.Code)
	}
	_, payload = doJSON(t, server, http.MethodGet, "/api/session", token, "")
	if payload["authenticated"] != false {
		t.Fatalf("expected revoked token to be rejected, got %v", payload)
	}
}

func TestAIEndpointsFallBackAndRateLimit(t *testing.T) {
	svc := newTestService(t, newFakeStore())
	svc.cfg.AIRatePerSec = 1
	svc.cfg.AIRateBurst = 2
	server := NewHTTPServer(svc, "*", nil)

	rr, payload := doJSON(t, server, http.MethodPost, "/api/ai/suggest-tasks", "", `{"equipmentType":"Laptop"}`)
	if rr.Code != http.StatusOK || payload["success"] != true {
		t.Fatalf("expected 200, got %d %v", rr.Code, payload)
	}
	if tasks, ok := payload["tasks"].([]any); !ok || len(tasks) != 0 {
		t.Fatalf("expected empty task list, got %v", payload["tasks"])
	}

	_, payload = doJSON(t, server, http.MethodPost, "/api/ai/check-relevance", "", `{"equipmentType":"Printer","taskDescription":"Cleaned rollers"}`)
	if payload["isRelevant"] != false || payload["relevanceExplanation"] != "could not check relevance" {
		t.Fatalf("unexpected verdict: %v", payload)
	}

	rr, payload = doJSON(t, server, http.MethodPost, "/api/ai/suggest-tasks", "", `{"equipmentType":"Laptop"}`)
	if rr.Code != http.StatusTooManyRequests || payload["code"] != "RATE_LIMITED" {
		t.Fatalf("expected 429, got %d %v", rr.Code, payload)
	}
}

func TestAIRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	svc := newTestService(t, newFakeStore())
	svc.cfg.AIRatePerSec = 1
	svc.cfg.AIRateBurst = 1
	handler := NewHTTPServer(svc, "*", nil).Handler()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/ai/suggest-tasks", strings.NewReader(`{"equipmentType":"Laptop"}`))
		req.RemoteAddr = "203.0.113.7:5000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected one allowed request then 429s, got %v", codes)
	}
}

func TestSearchStoreOutageIsAnError(t *testing.T) {
	fs := newFakeStore()
	fs.listRecordsFn = func(context.Context) ([]store.MaintenanceRecord, error) {
		return nil, errors.New("connection refused")
	}
	server := newTestServer(t, fs)

	rr, payload := doJSON(t, server, http.MethodGet, "/api/records/search?q=printer", "", "")
	if rr.Code != http.StatusInternalServerError || payload["success"] != false || payload["code"] != CodeStoreError {
		t.Fatalf("expected 500 STORE_ERROR, got %d %v", rr.Code, payload)
	}
}

func TestExportCSVOverHTTP(t *testing.T) {
	fs := newFakeStore()
	fs.seedRecord("rec_1", time.Now())
	server := newTestServer(t, fs)

	req := httptest.NewRequest(http.MethodGet, "/api/records/export.csv", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("unexpected content type %q", rr.Header().Get("Content-Type"))
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), ".csv") {
		t.Fatalf("unexpected disposition %q", rr.Header().Get("Content-Disposition"))
	}
	rows, err := csv.NewReader(rr.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "Laptop" || rows[1][4] != "01/02/2024" {
		t.Fatalf("unexpected csv rows: %v", rows)
	}
}

func TestReportWithoutRendererIsUnavailable(t *testing.T) {
	fs := newFakeStore()
	fs.seedRecord("rec_1", time.Now())
	server := newTestServer(t, fs)

	rr, payload := doJSON(t, server, http.MethodGet, "/api/records/rec_1/report.pdf", "", "")
	if rr.Code != http.StatusServiceUnavailable || payload["code"] != "REPORT_UNAVAILABLE" {
		t.Fatalf("expected 503 REPORT_UNAVAILABLE, got %d %v", rr.Code, payload)
	}
	rr, _ = doJSON(t, server, http.MethodGet, "/api/records/rec_missing/report.pdf", "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestDraftLifecycleOverHTTP(t *testing.T) {
	fs := newFakeStore()
	fs.addUser("usr_e", "editor")
	svc := newTestServiceWithDeps(t, Deps{Store: fs, Assistant: instantVerdicts()})
	server := NewHTTPServer(svc, "*", nil)
	token := tokenFor(t, "usr_e")

	rr, payload := doJSON(t, server, http.MethodPost, "/api/drafts", token, `{"equipmentType":"Printer"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create draft: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	draftID := payload["data"].(map[string]any)["id"].(string)

	rr, payload = doJSON(t, server, http.MethodPost, "/api/drafts/"+draftID+"/tasks", token, `{"description":"Cleaned rollers"}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("add task: expected 202, got %d body=%s", rr.Code, rr.Body.String())
	}
	if payload["data"].(map[string]any)["pending"] != true {
		t.Fatalf("new task should be pending: %v", payload)
	}

	rr, _ = doJSON(t, server, http.MethodGet, "/api/drafts/"+draftID, tokenFor(t, "usr_other"), "")
	if rr.Code != http.StatusUnauthorized && rr.Code != http.StatusNotFound {
		t.Fatalf("other user: expected 401 or 404, got %d", rr.Code)
	}

	rr, payload = doJSON(t, server, http.MethodPost, "/api/drafts/"+draftID+"/commit", token,
		`{"assetNumber":"A-001","user":"Jane","technician":"Bob","date":"2024-01-10","status":"Completed"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("commit: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	if payload["data"].(map[string]any)["equipment"] != "Printer" {
		t.Fatalf("unexpected committed record: %v", payload)
	}

	rr, _ = doJSON(t, server, http.MethodDelete, "/api/drafts/"+draftID, token, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("discard after commit: expected 404, got %d", rr.Code)
	}
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	server := newTestServer(t, newFakeStore())
	rr, payload := doJSON(t, server, http.MethodGet, "/api/nope", "", "")
	if rr.Code != http.StatusNotFound || payload["success"] != false {
		t.Fatalf("expected 404 failure body, got %d %v", rr.Code, payload)
	}
}

func TestRouteLabel(t *testing.T) {
	tests := map[string]string{
		"/api/records":                    "/api/records",
		"/api/records/rec_123":            "/api/records/{id}",
		"/api/records/rec_123/report.pdf": "/api/records/{id}/report.pdf",
		"/api/records/search":             "/api/records/search",
		"/api/records/export.xlsx":        "/api/records/export.xlsx",
		"/api/reference-lists/equipment":  "/api/reference-lists/{list}",
		"/api/drafts/d1/tasks/t1":         "/api/drafts/{id}/tasks/{taskId}",
		"/api/drafts/d1/commit":           "/api/drafts/{id}/commit",
		"/metrics":                        "/metrics",
		"/api/health":                     "/api/health",
		"/":                               unmatchedRoute,
		"/wp-login.php":                   unmatchedRoute,
		"/api/unknown/thing":              unmatchedRoute,
		"/api/records/rec_1/extra/path":   unmatchedRoute,
		"/api/drafts/d1/tasks/t1/x":       unmatchedRoute,
	}
	for path, want := range tests {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if got := routeLabel(req); got != want {
			t.Errorf("routeLabel(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestUnknownPathsShareOneRouteLabel(t *testing.T) {
	labels := map[string]bool{}
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/scan/%d/admin.php", i), nil)
		labels[routeLabel(req)] = true
	}
	if len(labels) != 1 || !labels[unmatchedRoute] {
		t.Fatalf("expected a single %q label, got %v", unmatchedRoute, labels)
	}
}
