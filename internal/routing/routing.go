// Package routing turns client-supplied routing labels into backend UDP
// endpoints. A label is normally a DNS name or address literal resolved on
// the snmp service port; an optional route file pins labels to explicit
// endpoints, which also lets backends live on non-standard ports.
package routing

import (
	"fmt"
	"net"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Route struct {
	Label    string `yaml:"label"`
	Endpoint string `yaml:"endpoint"`
}

type Config struct {
	Routes []Route `yaml:"routes"`
}

// Resolver maps routing labels to UDP endpoints, consulting the static
// route table before DNS. A nil Resolver resolves everything through DNS.
type Resolver struct {
	static map[string]string
}

func NewResolver(routes []Route) (*Resolver, error) {
	static := make(map[string]string, len(routes))
	for i, route := range routes {
		label := strings.TrimSpace(route.Label)
		if label == "" {
			return nil, fmt.Errorf("route %d: label is required", i)
		}
		endpoint := strings.TrimSpace(route.Endpoint)
		host, port, err := net.SplitHostPort(endpoint)
		if err != nil || host == "" || port == "" {
			return nil, fmt.Errorf("route %d: invalid endpoint %q (want host:port)", i, route.Endpoint)
		}
		if _, exists := static[label]; exists {
			return nil, fmt.Errorf("route %d: duplicate label %q", i, label)
		}
		static[label] = endpoint
	}
	return &Resolver{static: static}, nil
}

func LoadFromFile(path string) (*Resolver, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse route yaml: %w", err)
	}

	return NewResolver(cfg.Routes)
}

// Resolve returns the backend endpoint for label. Static routes win;
// otherwise the label is resolved as a host name on the snmp service port,
// falling back to 161 when the service database has no such entry.
func (r *Resolver) Resolve(label string) (*net.UDPAddr, error) {
	if r != nil {
		if endpoint, ok := r.static[label]; ok {
			addr, err := net.ResolveUDPAddr("udp", endpoint)
			if err != nil {
				return nil, fmt.Errorf("resolve static route %q: %w", label, err)
			}
			return addr, nil
		}
	}

	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(label, "snmp"))
	if err != nil {
		addr, err = net.ResolveUDPAddr("udp", net.JoinHostPort(label, "161"))
	}
	if err != nil {
		return nil, fmt.Errorf("resolve backend %q: %w", label, err)
	}
	return addr, nil
}

// StaticRoutes returns the number of configured static routes.
func (r *Resolver) StaticRoutes() int {
	if r == nil {
		return 0
	}
	return len(r.static)
}
