package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchplane/internal/domain"
	"github.com/kailas-cloud/searchplane/internal/pipeline"
	healthuc "github.com/kailas-cloud/searchplane/internal/usecase/health"
	itemuc "github.com/kailas-cloud/searchplane/internal/usecase/item"
	queryuc "github.com/kailas-cloud/searchplane/internal/usecase/query"
	tokenuc "github.com/kailas-cloud/searchplane/internal/usecase/token"
)

// --- Mocks ---

type mockDispatcher struct {
	msg pipeline.Message
	res any
	err error
}

func (m *mockDispatcher) Execute(_ context.Context, msg pipeline.Message) (any, error) {
	m.msg = msg
	return m.res, m.err
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(context.Context) error { return m.err }

func newTestRouter(d *mockDispatcher, dbErr error) http.Handler {
	s := NewServer(d, healthuc.New(&mockPinger{err: dbErr}, nil), zap.NewNop())
	r := chi.NewRouter()
	s.Routes(r)
	return r
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

// --- Tests ---

func TestIndexItems_BuildsCommand(t *testing.T) {
	d := &mockDispatcher{res: itemuc.Result{Count: 1}}
	h := newTestRouter(d, nil)

	body := `{"items":[{"id":"1","type":"product","metadata":{"title":"Shoe"},"indexed_metadata":{"color":"red"},"searchable_text":"red shoe"}]}`
	rr := do(h, "PUT", "/v1/items?app_id=app1&index_id=idx1&token=t1", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}

	cmd, ok := d.msg.(*itemuc.IndexItems)
	if !ok {
		t.Fatalf("unexpected message %T", d.msg)
	}
	if cmd.Reference().Key() != "app1~~idx1" || cmd.Credentials().Token != "t1" {
		t.Errorf("unexpected envelope %s / %+v", cmd.Reference(), cmd.Credentials())
	}
	if cmd.Credentials().Method != "PUT" || cmd.Credentials().Path != "/v1/items" {
		t.Errorf("unexpected credentials %+v", cmd.Credentials())
	}
	if len(cmd.Items) != 1 || cmd.Items[0].UUID.Composed() != "1~product" || cmd.Items[0].SearchableText != "red shoe" {
		t.Errorf("unexpected items %+v", cmd.Items)
	}
}

func TestDeleteItems_BuildsCommand(t *testing.T) {
	d := &mockDispatcher{res: itemuc.Result{Count: 2}}
	h := newTestRouter(d, nil)

	rr := do(h, "DELETE", "/v1/items?app_id=app1&index_id=idx1", `{"items":[{"id":"1","type":"p"},{"id":"2","type":"p"}]}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	cmd, ok := d.msg.(*itemuc.DeleteItems)
	if !ok || len(cmd.UUIDs) != 2 {
		t.Fatalf("unexpected message %+v", d.msg)
	}
}

func TestQuery_BuildsMessage(t *testing.T) {
	d := &mockDispatcher{res: queryuc.Response{Total: 0, Items: []domain.Item{}}}
	h := newTestRouter(d, nil)

	body := `{"q":"shoes","filters":{"color":{"values":["red"]}},"aggregations":{"color":{}},"size":5}`
	rr := do(h, "POST", "/v1/query?app_id=app1&index_id=idx1", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	msg, ok := d.msg.(*queryuc.Query)
	if !ok {
		t.Fatalf("unexpected message %T", d.msg)
	}
	if msg.Query.Text != "shoes" || msg.Query.Size != 5 || len(msg.Query.Filters["color"].Values) != 1 {
		t.Errorf("unexpected query %+v", msg.Query)
	}
}

func TestTokenRoutes(t *testing.T) {
	tests := []struct {
		method string
		target string
		body   string
		want   int
		check  func(pipeline.Message) bool
	}{
		{"PUT", "/v1/tokens?app_id=app1", `{"indices":["idx1"]}`, http.StatusOK, func(m pipeline.Message) bool {
			c, ok := m.(*tokenuc.PutToken)
			return ok && len(c.Token.Indices) == 1
		}},
		{"GET", "/v1/tokens?app_id=app1", "", http.StatusOK, func(m pipeline.Message) bool {
			_, ok := m.(*tokenuc.GetTokens)
			return ok
		}},
		{"DELETE", "/v1/tokens?app_id=app1", "", http.StatusNoContent, func(m pipeline.Message) bool {
			_, ok := m.(*tokenuc.DeleteTokens)
			return ok
		}},
		{"DELETE", "/v1/tokens/tok-1?app_id=app1", "", http.StatusNoContent, func(m pipeline.Message) bool {
			c, ok := m.(*tokenuc.DeleteToken)
			return ok && c.TokenUUID == "tok-1"
		}},
	}
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			d := &mockDispatcher{}
			rr := do(newTestRouter(d, nil), tc.method, tc.target, tc.body)
			if rr.Code != tc.want {
				t.Fatalf("got %d, want %d", rr.Code, tc.want)
			}
			if !tc.check(d.msg) {
				t.Errorf("unexpected message %+v", d.msg)
			}
		})
	}
}

func TestMissingParams_400(t *testing.T) {
	d := &mockDispatcher{}
	h := newTestRouter(d, nil)

	for _, target := range []string{"/v1/query?index_id=idx1", "/v1/query?app_id=app1"} {
		rr := do(h, "POST", target, `{}`)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", target, rr.Code)
		}
		if resp := decodeError(t, rr); resp.Code != CodeBadRequest {
			t.Errorf("%s: code %s", target, resp.Code)
		}
	}
	if d.msg != nil {
		t.Error("nothing should be dispatched")
	}
}

func TestInvalidBody_400(t *testing.T) {
	rr := do(newTestRouter(&mockDispatcher{}, nil), "PUT", "/v1/items?app_id=a&index_id=i", `{"items":`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", rr.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		code     ErrorCode
		contains string
	}{
		{"invalid token", domain.NewInvalidToken(domain.TokenExpired, "app1"), http.StatusUnauthorized, CodeInvalidToken, "expired"},
		{"malformed item", fmt.Errorf("commit: %w", &domain.MalformedInputError{ItemID: "2", ItemType: "p", Field: "metadata", Reason: "NaN"}),
			http.StatusBadRequest, CodeMalformedInput, `item 2 of type p`},
		{"malformed generic", fmt.Errorf("%w: size too large", domain.ErrMalformedInput), http.StatusBadRequest, CodeMalformedInput, "size too large"},
		{"invalid reference", domain.ErrInvalidReference, http.StatusBadRequest, CodeInvalidReference, ""},
		{"not found", fmt.Errorf("token x: %w", domain.ErrNotFound), http.StatusNotFound, CodeNotFound, ""},
		{"unavailable", fmt.Errorf("batch: %w: %w", domain.ErrResourceNotAvailable, errors.New("disk full")),
			http.StatusServiceUnavailable, CodeResourceUnavailable, ""},
		{"internal", errors.New("engine exploded at 0xdeadbeef"), http.StatusInternalServerError, CodeInternalError, "internal error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := &mockDispatcher{err: tc.err}
			rr := do(newTestRouter(d, nil), "POST", "/v1/query?app_id=a&index_id=i", `{}`)
			if rr.Code != tc.status {
				t.Fatalf("got %d, want %d", rr.Code, tc.status)
			}
			resp := decodeError(t, rr)
			if resp.Code != tc.code {
				t.Errorf("code: got %s, want %s", resp.Code, tc.code)
			}
			if !strings.Contains(resp.Message, tc.contains) {
				t.Errorf("message %q should contain %q", resp.Message, tc.contains)
			}
			if strings.Contains(resp.Message, "disk full") || strings.Contains(resp.Message, "0xdeadbeef") {
				t.Errorf("internal details leaked: %q", resp.Message)
			}
		})
	}
}

func TestHealthAndPing(t *testing.T) {
	h := newTestRouter(&mockDispatcher{}, nil)
	if rr := do(h, "GET", "/health", ""); rr.Code != http.StatusOK {
		t.Errorf("health: got %d", rr.Code)
	}
	if rr := do(h, "GET", "/ping", ""); rr.Code != http.StatusOK || rr.Body.String() != "pong" {
		t.Errorf("ping: got %d %q", rr.Code, rr.Body.String())
	}

	down := newTestRouter(&mockDispatcher{}, errors.New("redis down"))
	rr := do(down, "GET", "/health", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("health down: got %d", rr.Code)
	}
	var body map[string]any
	_ = json.NewDecoder(rr.Body).Decode(&body)
	if body["status"] != string(healthuc.Unhealthy) {
		t.Errorf("unexpected health body %v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rr := do(newTestRouter(&mockDispatcher{}, nil), "GET", "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Errorf("metrics: got %d", rr.Code)
	}
}

func TestNotificationsMount(t *testing.T) {
	called := false
	s := NewServer(&mockDispatcher{}, healthuc.New(&mockPinger{}, nil), zap.NewNop()).
		WithNotifications(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			called = true
			w.WriteHeader(http.StatusSwitchingProtocols)
		}))
	r := chi.NewRouter()
	s.Routes(r)

	do(r, "GET", "/v1/notifications?app_id=a&index_id=i", "")
	if !called {
		t.Error("notifications handler not mounted")
	}
	if rr := do(newTestRouter(&mockDispatcher{}, nil), "GET", "/v1/notifications", ""); rr.Code == http.StatusSwitchingProtocols {
		t.Error("notifications must not be mounted without a handler")
	}
}
