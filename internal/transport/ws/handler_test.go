package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchplane/internal/domain"
	"github.com/kailas-cloud/searchplane/internal/notify"
	chitransport "github.com/kailas-cloud/searchplane/internal/transport/chi"
)

// --- Mocks ---

type mockAuthorizer struct {
	err   error
	creds domain.Credentials
}

func (m *mockAuthorizer) Validate(_ context.Context, _ domain.RepositoryReference, creds domain.Credentials) (domain.Token, error) {
	m.creds = creds
	return domain.Token{}, m.err
}

func startServer(t *testing.T, reg *notify.Registry, auth Authorizer, cfg Config) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewHandler(reg, auth, cfg, zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/notifications?" + query
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// --- Tests ---

func TestHandler_ReceivesBucketBroadcasts(t *testing.T) {
	reg := notify.NewRegistry(zap.NewNop())
	srv := startServer(t, reg, nil, Config{})
	ref := domain.NewReference("app1", "idx1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, wsURL(srv, "app_id=app1&index_id=idx1"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.CloseNow()

	waitFor(t, func() bool { return reg.CountBucket(ref) == 1 })

	if err := reg.Broadcast(domain.NewReference("app1", "other"), map[string]string{"type": "skip"}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Broadcast(ref, map[string]string{"type": "items_were_indexed"}); err != nil {
		t.Fatal(err)
	}

	typ, data, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if typ != websocket.MessageText {
		t.Errorf("expected text frame, got %v", typ)
	}
	var got map[string]string
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got["type"] != "items_were_indexed" {
		t.Errorf("received message from another bucket: %v", got)
	}
}

func TestHandler_RemovedOnClose(t *testing.T) {
	reg := notify.NewRegistry(zap.NewNop())
	srv := startServer(t, reg, nil, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, wsURL(srv, "app_id=app1&index_id=idx1"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitFor(t, func() bool { return reg.Count() == 1 })

	_ = c.Close(websocket.StatusNormalClosure, "bye")
	waitFor(t, func() bool { return reg.Count() == 0 })
}

func TestHandler_BadParams(t *testing.T) {
	reg := notify.NewRegistry(zap.NewNop())
	srv := startServer(t, reg, nil, Config{})

	for _, q := range []string{"index_id=idx1", "app_id=app1"} {
		resp, err := http.Get(srv.URL + "/v1/notifications?" + q)
		if err != nil {
			t.Fatal(err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", q, resp.StatusCode)
		}
	}
	if reg.Count() != 0 {
		t.Error("nothing should be registered")
	}
}

func TestHandler_RequireToken(t *testing.T) {
	reg := notify.NewRegistry(zap.NewNop())
	auth := &mockAuthorizer{err: domain.NewInvalidToken(domain.TokenUnknown, "app1")}
	srv := startServer(t, reg, auth, Config{RequireToken: true})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, wsURL(srv, "app_id=app1&index_id=idx1&token=bad"), nil)
	if err == nil {
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
	var body chitransport.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Code != chitransport.CodeInvalidToken {
		t.Errorf("unexpected code %s", body.Code)
	}
	if auth.creds.Token != "bad" {
		t.Errorf("token not passed to authorizer: %+v", auth.creds)
	}

	auth.err = nil
	c, _, err := websocket.Dial(ctx, wsURL(srv, "app_id=app1&index_id=idx1&token=good"), nil)
	if err != nil {
		t.Fatalf("dial with valid token: %v", err)
	}
	defer c.CloseNow()
	waitFor(t, func() bool { return reg.Count() == 1 })
}

func TestHandler_AuthorizerUnavailable(t *testing.T) {
	auth := &mockAuthorizer{err: errors.Join(domain.ErrResourceNotAvailable, errors.New("redis down"))}
	srv := startServer(t, notify.NewRegistry(zap.NewNop()), auth, Config{RequireToken: true})

	resp, err := http.Get(srv.URL + "/v1/notifications?app_id=a&index_id=i")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("got %d, want 503", resp.StatusCode)
	}
}

func TestConn_Send(t *testing.T) {
	c := newConn(1)
	if err := c.Send([]byte("a")); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := c.Send([]byte("b")); !errors.Is(err, errQueueFull) {
		t.Errorf("expected queue full, got %v", err)
	}

	_ = c.Close()
	_ = c.Close()
	if err := c.Send([]byte("c")); !errors.Is(err, errConnClosed) {
		t.Errorf("expected closed, got %v", err)
	}
}

func TestHandler_RegistryDropClosesSocket(t *testing.T) {
	reg := notify.NewRegistry(zap.NewNop())
	srv := startServer(t, reg, nil, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, wsURL(srv, "app_id=app1&index_id=idx1"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.CloseNow()
	waitFor(t, func() bool { return reg.Count() == 1 })

	reg.CloseAll()

	_, _, err = c.Read(ctx)
	if websocket.CloseStatus(err) != websocket.StatusGoingAway {
		t.Errorf("expected going away close, got %v", err)
	}
}
