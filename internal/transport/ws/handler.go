// Package ws serves live notifications over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchplane/internal/domain"
	"github.com/kailas-cloud/searchplane/internal/notify"
	chitransport "github.com/kailas-cloud/searchplane/internal/transport/chi"
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultSendBuffer   = 64
)

// Registry tracks open connections.
type Registry interface {
	Add(conn notify.Conn, ref domain.RepositoryReference) notify.Handle
	Remove(h notify.Handle) bool
}

// Authorizer validates handshake credentials.
type Authorizer interface {
	Validate(ctx context.Context, ref domain.RepositoryReference, creds domain.Credentials) (domain.Token, error)
}

// Config holds handler settings.
type Config struct {
	AllowedOrigins []string
	WriteTimeout   time.Duration
	SendBuffer     int
	RequireToken   bool
}

// Handler upgrades GET /v1/notifications to a WebSocket and registers the
// connection for its (app_id, index_id) bucket.
type Handler struct {
	registry Registry
	auth     Authorizer
	cfg      Config
	logger   *zap.Logger
}

// NewHandler creates a Handler. auth may be nil when RequireToken is false.
func NewHandler(registry Registry, auth Authorizer, cfg Config, logger *zap.Logger) *Handler {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	return &Handler{registry: registry, auth: auth, cfg: cfg, logger: logger}
}

type handshakeParams struct {
	AppID   string
	IndexID string
	Token   string
}

func bindParams(r *http.Request) (handshakeParams, error) {
	var p handshakeParams
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "app_id", q, &p.AppID); err != nil {
		return p, err
	}
	if err := runtime.BindQueryParameter("form", true, true, "index_id", q, &p.IndexID); err != nil {
		return p, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "token", q, &p.Token); err != nil {
		return p, err
	}
	return p, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, err := bindParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, chitransport.CodeBadRequest, err.Error())
		return
	}
	ref := domain.NewReference(p.AppID, p.IndexID)
	if err := ref.Validate(true); err != nil {
		writeError(w, http.StatusBadRequest, chitransport.CodeInvalidReference, domain.ErrInvalidReference.Error())
		return
	}

	if h.cfg.RequireToken {
		if _, err := h.auth.Validate(r.Context(), ref, chitransport.RequestCredentials(r, p.Token)); err != nil {
			h.rejectHandshake(w, err)
			return
		}
	}

	// The server's read/write timeouts must not apply to a long-lived socket.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.cfg.AllowedOrigins})
	if err != nil {
		h.logger.Debug("websocket accept failed", zap.Error(err))
		return
	}

	// Client frames are not application messages; CloseRead still handles
	// control frames and cancels ctx when the peer goes away.
	ctx := ws.CloseRead(r.Context())

	c := newConn(h.cfg.SendBuffer)
	handle := h.registry.Add(c, ref)
	defer func() {
		h.registry.Remove(handle)
		_ = c.Close()
	}()

	log := h.logger.With(zap.String("handle", string(handle)), zap.String("bucket", ref.Key()))
	log.Debug("notification connection opened")

	reason := h.writeLoop(ctx, ws, c)
	log.Debug("notification connection closed", zap.String("reason", reason))
}

// writeLoop forwards queued messages until the peer disconnects, the
// registry drops the connection, or a write fails.
func (h *Handler) writeLoop(ctx context.Context, ws *websocket.Conn, c *conn) string {
	for {
		select {
		case <-ctx.Done():
			_ = ws.Close(websocket.StatusNormalClosure, "closed")
			return "peer"
		case <-c.done:
			_ = ws.Close(websocket.StatusGoingAway, "dropped")
			return "dropped"
		case msg := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, h.cfg.WriteTimeout)
			err := ws.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				_ = ws.Close(websocket.StatusInternalError, "write_failed")
				return "write_failed"
			}
		}
	}
}

func (h *Handler) rejectHandshake(w http.ResponseWriter, err error) {
	var ite *domain.InvalidTokenError
	switch {
	case errors.As(err, &ite):
		writeError(w, http.StatusUnauthorized, chitransport.CodeInvalidToken, ite.Error())
	case errors.Is(err, domain.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, chitransport.CodeInvalidToken, domain.ErrInvalidToken.Error())
	case errors.Is(err, domain.ErrResourceNotAvailable):
		h.logger.Warn("handshake authorization unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, chitransport.CodeResourceUnavailable, domain.ErrResourceNotAvailable.Error())
	default:
		h.logger.Error("handshake authorization failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, chitransport.CodeInternalError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code chitransport.ErrorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(chitransport.ErrorResponse{Code: code, Message: message})
}
