package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type rawConfig struct {
	Listen struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
	} `yaml:"listen"`
	Services []struct {
		Name     string `yaml:"name"`
		Domain   string `yaml:"domain"`
		Strategy string `yaml:"strategy"`
		Hosts    []struct {
			Address string `yaml:"address"`
			Port    int    `yaml:"port"`
		} `yaml:"hosts"`
	} `yaml:"services"`
	Timeouts struct {
		Upstream string `yaml:"upstream"`
	} `yaml:"timeouts"`
}

// Config is the fully validated, ready-to-use configuration.
type Config struct {
	Listen          Listener
	Services        []ServiceConfig
	UpstreamTimeout time.Duration
}

// Load reads and validates a YAML config file per spec.md §6's shape:
//
//	listen: { address, port }
//	services: [ { name, domain, strategy, hosts: [ { address, port } ] } ]
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var rc rawConfig
	if err := yaml.Unmarshal(b, &rc); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}

	listen := Listener{Address: strings.TrimSpace(rc.Listen.Address), Port: rc.Listen.Port}
	if listen.Port == 0 {
		listen.Port = 8080
	}

	if len(rc.Services) == 0 {
		return nil, fmt.Errorf("services: at least one is required")
	}

	seenDomains := make(map[string]bool)
	svcs := make([]ServiceConfig, 0, len(rc.Services))
	for i, s := range rc.Services {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return nil, fmt.Errorf("services[%d]: name is required", i)
		}
		domain := strings.ToLower(strings.TrimSpace(s.Domain))
		if domain == "" {
			return nil, fmt.Errorf("services[%d]: domain is required", i)
		}
		if seenDomains[domain] {
			return nil, fmt.Errorf("services[%d]: duplicate domain %q", i, domain)
		}
		seenDomains[domain] = true

		strategy := strings.ToLower(strings.TrimSpace(s.Strategy))
		if strategy == "" {
			strategy = "round-robin"
		}
		switch strategy {
		case "round-robin", "random":
		default:
			return nil, fmt.Errorf("services[%d]: unknown strategy %q", i, strategy)
		}

		if len(s.Hosts) == 0 {
			return nil, fmt.Errorf("services[%d]: hosts is empty", i)
		}
		hosts := make([]HostConfig, 0, len(s.Hosts))
		for j, h := range s.Hosts {
			addr := strings.TrimSpace(h.Address)
			if addr == "" {
				return nil, fmt.Errorf("services[%d].hosts[%d]: address is required", i, j)
			}
			if h.Port <= 0 || h.Port > 65535 {
				return nil, fmt.Errorf("services[%d].hosts[%d]: invalid port %d", i, j, h.Port)
			}
			hosts = append(hosts, HostConfig{Address: addr, Port: h.Port})
		}

		svcs = append(svcs, ServiceConfig{
			Name:     name,
			Domain:   domain,
			Strategy: strategy,
			Hosts:    hosts,
		})
	}

	var upstreamTimeout time.Duration
	if rc.Timeouts.Upstream != "" {
		d, err := time.ParseDuration(rc.Timeouts.Upstream)
		if err != nil {
			return nil, fmt.Errorf("timeouts.upstream: %v", err)
		}
		upstreamTimeout = d
	} else {
		upstreamTimeout = 30 * time.Second
	}

	return &Config{
		Listen:          listen,
		Services:        svcs,
		UpstreamTimeout: upstreamTimeout,
	}, nil
}
