package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ioezgamer/studio/internal/auth"
	"github.com/ioezgamer/studio/internal/authpw"
	"github.com/ioezgamer/studio/internal/export"
	"github.com/ioezgamer/studio/internal/logging"
	"github.com/ioezgamer/studio/internal/obs"
	"github.com/ioezgamer/studio/internal/search"
	"github.com/ioezgamer/studio/internal/store"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type HTTPServer struct {
	service    *Service
	corsOrigin string
	logger     *zap.Logger
	aiLimiter  *ipLimiter
}

func NewHTTPServer(service *Service, corsOrigin string, logger *zap.Logger) *HTTPServer {
	return &HTTPServer{
		service:    service,
		corsOrigin: corsOrigin,
		logger:     logging.OrNop(logger),
		aiLimiter:  newIPLimiter(service.cfg.AIRatePerSec, service.cfg.AIRateBurst, service.cfg.TrustedProxies),
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(obs.Instrument(http.HandlerFunc(s.handle), routeLabel))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeOK(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		s.handleReady(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/metrics" {
		obs.Handler().ServeHTTP(w, r)
		return
	}

	// Auth routes (no session required)
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signup" {
		s.handleSignUp(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signin" {
		s.handleSignIn(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeOK(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		session, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeOK(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		writeOK(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"userId":        session.UserID,
			"userName":      session.UserName,
			"role":          session.Role,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/refresh" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if strings.TrimSpace(body.RefreshToken) == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return
		}
		session, err := s.service.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeOK(w, http.StatusOK, sessionPayload(session))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/logout" {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.Logout(r.Context(), session, body.RefreshToken); err != nil {
			s.fail(w, r, err)
			return
		}
		writeOK(w, http.StatusOK, map[string]any{})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/records" {
		records, err := s.service.ListRecords(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeOK(w, http.StatusOK, map[string]any{"data": records})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/records" {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var body RecordInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		record, err := s.service.CreateRecord(r.Context(), body, session.UserID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeOK(w, http.StatusCreated, map[string]any{"data": record})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/records/search" {
		query := r.URL.Query()
		limit, _ := strconv.Atoi(query.Get("limit"))
		resp, err := s.service.SearchRecords(r.Context(), search.Query{
			Text:   query.Get("q"),
			Status: query.Get("status"),
			Limit:  limit,
		})
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeOK(w, http.StatusOK, map[string]any{"data": resp})
		return
	}

	if r.Method == http.MethodGet && (r.URL.Path == "/api/records/export.xlsx" || r.URL.Path == "/api/records/export.csv") {
		format := export.FormatXLSX
		if strings.HasSuffix(r.URL.Path, ".csv") {
			format = export.FormatCSV
		}
		result, err := s.service.ExportRecords(r.Context(), format)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeFile(w, result)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/dashboard" {
		dashboard, err := s.service.Dashboard(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeOK(w, http.StatusOK, map[string]any{"data": dashboard})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/reference-lists" {
		lists, err := s.service.ReferenceLists(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeOK(w, http.StatusOK, map[string]any{"data": lists})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/ai/suggest-tasks" {
		if !s.allowAI(w, r) {
			return
		}
		var body struct {
			EquipmentType string `json:"equipmentType"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		writeOK(w, http.StatusOK, map[string]any{"tasks": s.service.SuggestTasks(r.Context(), body.EquipmentType)})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/ai/check-relevance" {
		if !s.allowAI(w, r) {
			return
		}
		var body struct {
			EquipmentType   string `json:"equipmentType"`
			TaskDescription string `json:"taskDescription"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		verdict := s.service.CheckRelevance(r.Context(), body.EquipmentType, body.TaskDescription)
		writeOK(w, http.StatusOK, map[string]any{
			"isRelevant":           verdict.IsRelevant,
			"relevanceExplanation": verdict.Explanation,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/drafts" {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var body struct {
			EquipmentType string `json:"equipmentType"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		draft, err := s.service.CreateDraft(r.Context(), session.UserID, body.EquipmentType)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeOK(w, http.StatusCreated, map[string]any{"data": draft})
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "records" {
		s.handleRecord(w, r, parts[2], parts[3:])
		return
	}
	if len(parts) == 3 && parts[0] == "api" && parts[1] == "reference-lists" {
		s.handleReferenceList(w, r, parts[2])
		return
	}
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "drafts" {
		s.handleDraft(w, r, parts[2], parts[3:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
	}
	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}

	writeJSON(w, statusCode, map[string]any{
		"success": status == "ready",
		"ok":      status == "ready",
		"status":  status,
		"checks":  checks,
	})
}

func (s *HTTPServer) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	session, err := s.service.SignUp(r.Context(), authpw.SignUpRequest{
		Email:       body.Email,
		Password:    body.Password,
		DisplayName: body.DisplayName,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, sessionPayload(session))
}

func (s *HTTPServer) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	session, err := s.service.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, sessionPayload(session))
}

// handleRecord serves /api/records/{id} and /api/records/{id}/report.{pdf,png}.
func (s *HTTPServer) handleRecord(w http.ResponseWriter, r *http.Request, id string, rest []string) {
	if len(rest) == 1 && r.Method == http.MethodGet && (rest[0] == "report.pdf" || rest[0] == "report.png") {
		format := export.FormatPDF
		if rest[0] == "report.png" {
			format = export.FormatPNG
		}
		result, err := s.service.RecordReport(r.Context(), id, format)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeFile(w, result)
		return
	}
	if len(rest) != 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch r.Method {
	case http.MethodGet:
		record, err := s.service.GetRecord(r.Context(), id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeOK(w, http.StatusOK, map[string]any{"data": record})
	case http.MethodPatch:
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var body RecordPatch
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.UpdateRecord(r.Context(), id, body, session.UserID); err != nil {
			s.fail(w, r, err)
			return
		}
		writeOK(w, http.StatusOK, map[string]any{})
	case http.MethodDelete:
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		if err := s.service.DeleteRecord(r.Context(), id, session.UserID); err != nil {
			s.fail(w, r, err)
			return
		}
		writeOK(w, http.StatusOK, map[string]any{})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleReferenceList(w http.ResponseWriter, r *http.Request, list string) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.service.ListReferenceItems(r.Context(), list)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeOK(w, http.StatusOK, map[string]any{"data": items})
	case http.MethodPost:
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var body struct {
			Name  string `json:"name"`
			Names string `json:"names"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if body.Names != "" {
			items, err := s.service.AddReferenceItems(r.Context(), list, SplitNames(body.Names), session.UserID)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeOK(w, http.StatusCreated, map[string]any{"data": items})
			return
		}
		item, err := s.service.AddReferenceItem(r.Context(), list, body.Name, session.UserID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeOK(w, http.StatusCreated, map[string]any{"data": item})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

// handleDraft serves /api/drafts/{id}[/tasks[/{taskId}] | /commit]. Drafts
// are private to the session that opened them.
func (s *HTTPServer) handleDraft(w http.ResponseWriter, r *http.Request, draftID string, rest []string) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		draft, err := s.service.GetDraft(session.UserID, draftID)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeOK(w, http.StatusOK, map[string]any{"data": draft})

	case len(rest) == 0 && r.Method == http.MethodDelete:
		if err := s.service.DiscardDraft(session.UserID, draftID); err != nil {
			s.fail(w, r, err)
			return
		}
		writeOK(w, http.StatusOK, map[string]any{})

	case len(rest) == 1 && rest[0] == "tasks" && r.Method == http.MethodPost:
		if !s.allowAI(w, r) {
			return
		}
		var body struct {
			Description string `json:"description"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		task, err := s.service.AddDraftTask(session.UserID, draftID, body.Description)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeOK(w, http.StatusAccepted, map[string]any{"data": task})

	case len(rest) == 2 && rest[0] == "tasks" && r.Method == http.MethodDelete:
		if err := s.service.RemoveDraftTask(session.UserID, draftID, rest[1]); err != nil {
			s.fail(w, r, err)
			return
		}
		writeOK(w, http.StatusOK, map[string]any{})

	case len(rest) == 1 && rest[0] == "commit" && r.Method == http.MethodPost:
		var body RecordInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		record, err := s.service.CommitDraft(ctx, session.UserID, draftID, body)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeOK(w, http.StatusCreated, map[string]any{"data": record})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) allowAI(w http.ResponseWriter, r *http.Request) bool {
	if s.aiLimiter.Allow(r) {
		return true
	}
	writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Demasiadas solicitudes, intenta de nuevo en un momento.", nil)
	return false
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		s.logger.Error("session lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return session, true
}

// fail writes err. Denials and validation errors were already logged by the
// service; anything unmapped is logged here.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		var domainErr *DomainError
		if !errors.As(err, &domainErr) {
			s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		}
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		s.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", writer.status),
			zap.Int64("duration_ms", time.Since(started).Milliseconds()),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
	header.Set("Access-Control-Expose-Headers", "Content-Disposition, X-Archive-URL, X-Request-ID")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

// routeShapes is the closed set of metric route labels. Anything else is
// labelled unmatchedRoute so unknown paths cannot grow the series count.
var routeShapes = map[string]bool{
	"/api/health":                     true,
	"/api/ready":                      true,
	"/metrics":                        true,
	"/api/auth/signup":                true,
	"/api/auth/signin":                true,
	"/api/session":                    true,
	"/api/session/refresh":            true,
	"/api/session/logout":             true,
	"/api/records":                    true,
	"/api/records/search":             true,
	"/api/records/export.xlsx":        true,
	"/api/records/export.csv":         true,
	"/api/records/{id}":               true,
	"/api/records/{id}/report.pdf":    true,
	"/api/records/{id}/report.png":    true,
	"/api/dashboard":                  true,
	"/api/reference-lists":            true,
	"/api/reference-lists/{list}":     true,
	"/api/ai/suggest-tasks":           true,
	"/api/ai/check-relevance":         true,
	"/api/drafts":                     true,
	"/api/drafts/{id}":                true,
	"/api/drafts/{id}/tasks":          true,
	"/api/drafts/{id}/tasks/{taskId}": true,
	"/api/drafts/{id}/commit":         true,
}

const unmatchedRoute = "unmatched"

// routeLabel replaces ids with placeholders so metric labels stay bounded.
func routeLabel(r *http.Request) string {
	parts := splitPath(r.URL.Path)
	if len(parts) >= 3 && parts[0] == "api" {
		switch parts[1] {
		case "records":
			if parts[2] != "search" && parts[2] != "export.xlsx" && parts[2] != "export.csv" {
				parts[2] = "{id}"
			}
		case "reference-lists":
			parts[2] = "{list}"
		case "drafts":
			parts[2] = "{id}"
			if len(parts) == 5 {
				parts[4] = "{taskId}"
			}
		}
	}
	label := "/" + strings.Join(parts, "/")
	if !routeShapes[label] {
		return unmatchedRoute
	}
	return label
}

func sessionPayload(session Session) map[string]any {
	return map[string]any{
		"token":        session.Token,
		"refreshToken": session.RefreshToken,
		"userId":       session.UserID,
		"userName":     session.UserName,
		"role":         session.Role,
		"expiresAt":    session.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeOK marks payload as a success body.
func writeOK(w http.ResponseWriter, status int, payload map[string]any) {
	payload["success"] = true
	writeJSON(w, status, payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"success": false,
		"code":    code,
		"error":   message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeFile(w http.ResponseWriter, result *export.Result) {
	header := w.Header()
	header.Set("Content-Type", result.MimeType)
	header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	header.Set("Content-Length", strconv.Itoa(len(result.Data)))
	if result.ArchiveURL != "" {
		header.Set("X-Archive-URL", result.ArchiveURL)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, ErrNotConfigured) {
		return http.StatusServiceUnavailable, "NOT_CONFIGURED", "Service not configured", nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
