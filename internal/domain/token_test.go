package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestToken_AllowsIndex_EmptyScopeAllowsAny(t *testing.T) {
	tok := Token{UUID: "t", AppID: "a"}
	for _, idx := range []string{"i1", "i2", "anything"} {
		if !tok.AllowsIndex(idx) {
			t.Errorf("expected %q to be allowed", idx)
		}
	}
}

func TestToken_AllowsIndex_Restricted(t *testing.T) {
	tok := Token{Indices: []string{"i1"}}
	if !tok.AllowsIndex("i1") {
		t.Error("expected i1 allowed")
	}
	if tok.AllowsIndex("i2") {
		t.Error("expected i2 rejected")
	}
}

func TestToken_AllowsReferrer(t *testing.T) {
	tok := Token{HTTPReferrers: []string{"shop.example.com"}}

	tests := []struct {
		referrer string
		want     bool
	}{
		{"https://shop.example.com", true},
		{"http://shop.example.com/", true},
		{"shop.example.com", true},
		{"https://evil.example.com", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := tok.AllowsReferrer(tc.referrer); got != tc.want {
			t.Errorf("AllowsReferrer(%q) = %v, want %v", tc.referrer, got, tc.want)
		}
	}
}

func TestToken_AllowsEndpoint(t *testing.T) {
	tok := Token{Endpoints: []string{"POST~~/v1/query"}}

	if !tok.AllowsEndpoint("post", "v1/query/") {
		t.Error("expected canonical match")
	}
	if tok.AllowsEndpoint("PUT", "/v1/items") {
		t.Error("expected mismatch")
	}
}

func TestToken_Expired_Boundary(t *testing.T) {
	tok := Token{SecondsValid: 60, UpdatedAt: 1000}

	if tok.Expired(time.Unix(1059, 0)) {
		t.Error("expected valid one second before the boundary")
	}
	if !tok.Expired(time.Unix(1060, 0)) {
		t.Error("expected expired at the boundary")
	}
	if !tok.Expired(time.Unix(5000, 0)) {
		t.Error("expected expired after the boundary")
	}
}

func TestToken_NeverExpires(t *testing.T) {
	tok := Token{SecondsValid: 0, UpdatedAt: 1}
	if tok.Expired(time.Unix(1<<40, 0)) {
		t.Error("zero seconds_valid must never expire")
	}
}

func TestCanonicalEndpoint(t *testing.T) {
	if got := CanonicalEndpoint("GET", "/v1/Tokens/"); got != "get~~v1/tokens" {
		t.Errorf("got %q", got)
	}
}

func TestInvalidTokenError_Unwrap(t *testing.T) {
	err := NewInvalidToken(TokenExpired, "app1")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatal("expected errors.Is ErrInvalidToken")
	}
	var ite *InvalidTokenError
	if !errors.As(err, &ite) || ite.Kind != TokenExpired {
		t.Fatalf("expected kind expired, got %v", err)
	}
}

func TestMalformedInputError_Message(t *testing.T) {
	err := &MalformedInputError{ItemID: "12", ItemType: "product", Field: "price", Reason: "unsupported value"}
	want := `malformed input: item 12 of type product, field "price": unsupported value`
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, ErrMalformedInput) {
		t.Error("expected errors.Is ErrMalformedInput")
	}
}

func TestReference_Key(t *testing.T) {
	ref := NewReference("app", "idx")
	if ref.Key() != "app~~idx" {
		t.Errorf("got %q", ref.Key())
	}
	if err := NewReference("", "idx").Validate(false); !errors.Is(err, ErrInvalidReference) {
		t.Errorf("expected invalid reference, got %v", err)
	}
	if err := NewReference("app", "").Validate(true); !errors.Is(err, ErrInvalidReference) {
		t.Errorf("expected invalid reference for missing index, got %v", err)
	}
}

func TestReference_ValidateIDs(t *testing.T) {
	tests := []struct {
		name         string
		app, index   string
		requireIndex bool
		ok           bool
	}{
		{"plain", "shop", "products", true, true},
		{"dash and underscore", "shop-eu_1", "products_v2", true, true},
		{"app only", "shop", "", false, true},
		{"parent dir in index", "attacker", "../victim/secret", true, false},
		{"dot dot", "shop", "..", true, false},
		{"slash in app", "a/b", "idx", true, false},
		{"backslash", "shop", `..\victim`, true, false},
		{"separator in index", "a", "b~~c", true, false},
		{"separator in app", "a~~b", "c", true, false},
		{"tilde", "shop", "idx~1", true, false},
		{"space", "shop", "my idx", true, false},
		{"blank app", " ", "idx", true, false},
		{"invalid index without requirement", "shop", "../x", false, false},
		{"too long", strings.Repeat("a", MaxIDLength+1), "idx", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewReference(tt.app, tt.index).Validate(tt.requireIndex)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidReference) {
				t.Fatalf("expected ErrInvalidReference, got %v", err)
			}
		})
	}
}

func TestReference_DistinctKeys(t *testing.T) {
	// Valid references never share a key.
	a := NewReference("a", "b_c")
	b := NewReference("a_b", "c")
	if a.Validate(true) != nil || b.Validate(true) != nil {
		t.Fatal("expected both references to be valid")
	}
	if a.Key() == b.Key() {
		t.Errorf("keys collide: %q", a.Key())
	}
}

func TestParseItemUUID(t *testing.T) {
	u, err := ParseItemUUID("12~product")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.ID != "12" || u.Type != "product" || u.Composed() != "12~product" {
		t.Errorf("unexpected uuid %+v", u)
	}
	if _, err := ParseItemUUID("nope"); !errors.Is(err, ErrMalformedInput) {
		t.Errorf("expected malformed input, got %v", err)
	}
}
