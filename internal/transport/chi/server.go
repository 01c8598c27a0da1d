package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchplane/internal/domain"
	domquery "github.com/kailas-cloud/searchplane/internal/domain/search/query"
	"github.com/kailas-cloud/searchplane/internal/pipeline"
	healthuc "github.com/kailas-cloud/searchplane/internal/usecase/health"
	itemuc "github.com/kailas-cloud/searchplane/internal/usecase/item"
	queryuc "github.com/kailas-cloud/searchplane/internal/usecase/query"
	tokenuc "github.com/kailas-cloud/searchplane/internal/usecase/token"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 16 << 20

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest          ErrorCode = "bad_request"
	CodeInvalidToken        ErrorCode = "invalid_token"
	CodeInvalidReference    ErrorCode = "invalid_reference"
	CodeMalformedInput      ErrorCode = "malformed_input"
	CodeNotFound            ErrorCode = "not_found"
	CodeResourceUnavailable ErrorCode = "resource_not_available"
	CodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Dispatcher executes pipeline messages.
type Dispatcher interface {
	Execute(ctx context.Context, msg pipeline.Message) (any, error)
}

// Server exposes the pipeline over HTTP.
type Server struct {
	pipeline      Dispatcher
	health        *healthuc.Service
	notifications http.Handler
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(p Dispatcher, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		pipeline: p,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		invalidTokenHandler,
		malformedInputHandler,
		sentinelHandler(domain.ErrInvalidReference, http.StatusBadRequest, CodeInvalidReference),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrResourceNotAvailable, http.StatusServiceUnavailable, CodeResourceUnavailable),
	}
	return s
}

// WithNotifications mounts h at GET /v1/notifications.
func (s *Server) WithNotifications(h http.Handler) *Server {
	s.notifications = h
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/ping", s.Ping)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Use(RejectMalformedAuthorization)

		r.Put("/items", s.IndexItems)
		r.Delete("/items", s.DeleteItems)
		r.Post("/query", s.Query)

		r.Put("/tokens", s.PutToken)
		r.Get("/tokens", s.GetTokens)
		r.Delete("/tokens", s.DeleteTokens)
		r.Delete("/tokens/{token_id}", s.DeleteToken)

		if s.notifications != nil {
			r.Method(http.MethodGet, "/notifications", s.notifications)
		}
	})
}

// refParams are the tenant query parameters shared by every /v1 route.
type refParams struct {
	AppID   string
	IndexID string
	Token   string
}

func bindRefParams(r *http.Request, requireIndex bool) (refParams, error) {
	var p refParams
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "app_id", q, &p.AppID); err != nil {
		return p, err
	}
	if err := runtime.BindQueryParameter("form", true, requireIndex, "index_id", q, &p.IndexID); err != nil {
		return p, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "token", q, &p.Token); err != nil {
		return p, err
	}
	return p, nil
}

// envelope binds the tenant parameters and builds the message envelope.
// It writes a 400 and returns false on invalid parameters.
func envelope(w http.ResponseWriter, r *http.Request, requireIndex bool) (pipeline.Envelope, bool) {
	p, err := bindRefParams(r, requireIndex)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return pipeline.Envelope{}, false
	}
	ref := domain.NewReference(p.AppID, p.IndexID)
	return pipeline.NewEnvelope(ref, RequestCredentials(r, p.Token)), true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// itemDTO is the wire form of an item.
type itemDTO struct {
	ID              string         `json:"id"`
	Type            string         `json:"type"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	IndexedMetadata map[string]any `json:"indexed_metadata,omitempty"`
	SearchableText  string         `json:"searchable_text,omitempty"`
}

type itemsRequest struct {
	Items []itemDTO `json:"items"`
}

// IndexItems handles PUT /v1/items.
func (s *Server) IndexItems(w http.ResponseWriter, r *http.Request) {
	env, ok := envelope(w, r, true)
	if !ok {
		return
	}
	var req itemsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	items := make([]domain.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = domain.Item{
			UUID:            domain.ItemUUID{ID: it.ID, Type: it.Type},
			Metadata:        it.Metadata,
			IndexedMetadata: it.IndexedMetadata,
			SearchableText:  it.SearchableText,
		}
	}

	res, err := s.pipeline.Execute(r.Context(), &itemuc.IndexItems{Envelope: env, Items: items})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeleteItems handles DELETE /v1/items.
func (s *Server) DeleteItems(w http.ResponseWriter, r *http.Request) {
	env, ok := envelope(w, r, true)
	if !ok {
		return
	}
	var req itemsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	uuids := make([]domain.ItemUUID, len(req.Items))
	for i, it := range req.Items {
		uuids[i] = domain.ItemUUID{ID: it.ID, Type: it.Type}
	}

	res, err := s.pipeline.Execute(r.Context(), &itemuc.DeleteItems{Envelope: env, UUIDs: uuids})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Query handles POST /v1/query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	env, ok := envelope(w, r, true)
	if !ok {
		return
	}
	var q domquery.Query
	if !decodeBody(w, r, &q) {
		return
	}

	res, err := s.pipeline.Execute(r.Context(), &queryuc.Query{Envelope: env, Query: q})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PutToken handles PUT /v1/tokens.
func (s *Server) PutToken(w http.ResponseWriter, r *http.Request) {
	env, ok := envelope(w, r, false)
	if !ok {
		return
	}
	var tok domain.Token
	if !decodeBody(w, r, &tok) {
		return
	}

	res, err := s.pipeline.Execute(r.Context(), &tokenuc.PutToken{Envelope: env, Token: tok})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetTokens handles GET /v1/tokens.
func (s *Server) GetTokens(w http.ResponseWriter, r *http.Request) {
	env, ok := envelope(w, r, false)
	if !ok {
		return
	}

	res, err := s.pipeline.Execute(r.Context(), &tokenuc.GetTokens{Envelope: env})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tokens": res})
}

// DeleteTokens handles DELETE /v1/tokens.
func (s *Server) DeleteTokens(w http.ResponseWriter, r *http.Request) {
	env, ok := envelope(w, r, false)
	if !ok {
		return
	}

	if _, err := s.pipeline.Execute(r.Context(), &tokenuc.DeleteTokens{Envelope: env}); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteToken handles DELETE /v1/tokens/{token_id}.
func (s *Server) DeleteToken(w http.ResponseWriter, r *http.Request) {
	env, ok := envelope(w, r, false)
	if !ok {
		return
	}

	cmd := &tokenuc.DeleteToken{Envelope: env, TokenUUID: chi.URLParam(r, "token_id")}
	if _, err := s.pipeline.Execute(r.Context(), cmd); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Ping handles GET /ping.
func (s *Server) Ping(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidToken,
		domain.ErrInvalidReference,
		domain.ErrNotFound,
		domain.ErrResourceNotAvailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// invalidTokenHandler reports the rejection kind with a 401.
func invalidTokenHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrInvalidToken) {
		return false
	}
	var ite *domain.InvalidTokenError
	if errors.As(err, &ite) {
		msg = fmt.Sprintf("%s: %s", msg, ite.Kind)
	}
	writeError(w, http.StatusUnauthorized, CodeInvalidToken, msg)
	return true
}

// malformedInputHandler returns the human-readable item/field message with a 400.
func malformedInputHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrMalformedInput) {
		return false
	}
	msg := err.Error()
	var mie *domain.MalformedInputError
	if errors.As(err, &mie) {
		msg = mie.Error()
	}
	writeError(w, http.StatusBadRequest, CodeMalformedInput, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
