package index

import (
	"testing"

	"github.com/efebarandurmaz/atlas/internal/graph"
)

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver()

	got := r.Resolve("abc123", graph.NodeFunction, "getUser", "src/auth/service.ts")
	want := "function.getuser.auth_service_ts"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestResolver_ResolveIsIdempotent(t *testing.T) {
	r := NewResolver()

	first := r.Resolve("abc123", graph.NodeFunction, "getUser", "src/auth/service.ts")
	second := r.Resolve("abc123", graph.NodeFunction, "getUser", "src/auth/service.ts")
	if first != second {
		t.Fatalf("expected identical canonical ids, got %q and %q", first, second)
	}
}

func TestResolver_CollisionSuffix(t *testing.T) {
	r := NewResolver()

	first := r.Resolve("id-1", graph.NodeFunction, "handler", "src/auth/routes.ts")
	second := r.Resolve("id-2", graph.NodeFunction, "handler", "src/auth/routes.ts")
	third := r.Resolve("id-3", graph.NodeFunction, "handler", "src/auth/routes.ts")

	if first == second || second == third {
		t.Fatal("expected distinct canonical ids for colliding nodes")
	}
	if second != first+"_2" {
		t.Fatalf("expected %q, got %q", first+"_2", second)
	}
	if third != first+"_3" {
		t.Fatalf("expected %q, got %q", first+"_3", third)
	}
}

func TestResolver_Canonical(t *testing.T) {
	r := NewResolver()
	canonical := r.Resolve("orig-1", graph.NodeClass, "UserService", "src/auth/service.ts")

	cases := []struct {
		name string
		id   string
		want string
		ok   bool
	}{
		{"original id", "orig-1", canonical, true},
		{"canonical id", canonical, canonical, true},
		{"unknown id", "nope", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := r.Canonical(tc.id)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestResolver_Original(t *testing.T) {
	r := NewResolver()
	canonical := r.Resolve("orig-1", graph.NodeClass, "UserService", "src/auth/service.ts")

	got, ok := r.Original(canonical)
	if !ok || got != "orig-1" {
		t.Fatalf("expected orig-1, got %q (ok=%v)", got, ok)
	}
}

func TestResolver_MissingFilePath(t *testing.T) {
	r := NewResolver()

	got := r.Resolve("x", graph.NodeVariable, "count", "")
	want := "variable.count.main_unknown"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestDomainOf(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"src/auth/login.ts", "auth"},
		{"lib/billing/invoice.py", "billing"},
		{"packages/internal/payments/charge.go", "payments"},
		{"main.ts", "main"},
		{"src/index.ts", "main"},
		{"", "main"},
		{"SRC\\Auth\\Login.ts", "auth"},
	}
	for _, tc := range cases {
		if got := DomainOf(tc.path); got != tc.want {
			t.Errorf("DomainOf(%q): expected %q, got %q", tc.path, tc.want, got)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"GetUser", "getuser"},
		{"get-user.v2", "get_user_v2"},
		{"", "unknown"},
		{"名前", "__"},
	}
	for _, tc := range cases {
		if got := sanitizeToken(tc.in); got != tc.want {
			t.Errorf("sanitizeToken(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
