package routing

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStaticRouteWinsOverDNS(t *testing.T) {
	resolver, err := NewResolver([]Route{
		{Label: "sw1.example", Endpoint: "127.0.0.1:16100"},
	})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	addr, err := resolver.Resolve("sw1.example")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if addr.Port != 16100 || !addr.IP.IsLoopback() {
		t.Fatalf("Resolve returned %v, want 127.0.0.1:16100", addr)
	}
}

func TestResolveFallsBackToDNS(t *testing.T) {
	resolver, err := NewResolver(nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	addr, err := resolver.Resolve("127.0.0.1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if addr.Port != 161 {
		t.Fatalf("Resolve port = %d, want 161", addr.Port)
	}
	if !addr.IP.IsLoopback() {
		t.Fatalf("Resolve IP = %v, want loopback", addr.IP)
	}
}

func TestNilResolverUsesDNS(t *testing.T) {
	var resolver *Resolver
	addr, err := resolver.Resolve("127.0.0.1")
	if err != nil {
		t.Fatalf("Resolve on nil resolver: %v", err)
	}
	if addr.Port != 161 {
		t.Fatalf("Resolve port = %d, want 161", addr.Port)
	}
}

func TestNewResolverValidation(t *testing.T) {
	tests := []struct {
		name   string
		routes []Route
	}{
		{"missing_label", []Route{{Endpoint: "127.0.0.1:161"}}},
		{"missing_endpoint", []Route{{Label: "sw1"}}},
		{"endpoint_without_port", []Route{{Label: "sw1", Endpoint: "127.0.0.1"}}},
		{"duplicate_label", []Route{
			{Label: "sw1", Endpoint: "127.0.0.1:161"},
			{Label: "sw1", Endpoint: "127.0.0.2:161"},
		}},
	}
	for _, tt := range tests {
		if _, err := NewResolver(tt.routes); err == nil {
			t.Errorf("%s: NewResolver accepted invalid routes", tt.name)
		}
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	routesYAML := `routes:
  - label: sw1.example
    endpoint: 127.0.0.1:16100
  - label: sw2.example
    endpoint: 127.0.0.1:16101
`
	if err := os.WriteFile(path, []byte(routesYAML), 0o644); err != nil {
		t.Fatalf("write route file: %v", err)
	}

	resolver, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if resolver.StaticRoutes() != 2 {
		t.Fatalf("StaticRoutes = %d, want 2", resolver.StaticRoutes())
	}

	addr, err := resolver.Resolve("sw2.example")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if addr.Port != 16101 {
		t.Fatalf("Resolve port = %d, want 16101", addr.Port)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFromFile accepted a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("routes: {not a list}"), 0o644); err != nil {
		t.Fatalf("write route file: %v", err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("LoadFromFile accepted malformed yaml")
	}
}
