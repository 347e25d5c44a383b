package config

import "github.com/mira-labs/edgecache/internal/model"

// HostConfig is one backend instance entry as loaded from YAML.
type HostConfig struct {
	Address string
	Port    int
}

// ServiceConfig is one service entry as loaded from YAML.
type ServiceConfig struct {
	Name     string
	Domain   string
	Strategy string // "round-robin" | "random"
	Hosts    []HostConfig
}

// Listener is the single proxy entrypoint.
type Listener struct {
	Address string
	Port    int
}

// ToModel builds the immutable runtime Service list the registry is
// constructed from. Validation already happened in Load; this is a pure
// shape conversion, including the YAML "round-robin"/"random" spelling to
// model.Strategy's underscored enum.
func (c *Config) ToModel() []model.Service {
	out := make([]model.Service, 0, len(c.Services))
	for _, sc := range c.Services {
		hosts := make([]*model.Host, 0, len(sc.Hosts))
		for _, hc := range sc.Hosts {
			hosts = append(hosts, &model.Host{Address: hc.Address, Port: hc.Port})
		}
		out = append(out, model.Service{
			Name:     sc.Name,
			Domain:   sc.Domain,
			Strategy: strategyFromConfig(sc.Strategy),
			Hosts:    hosts,
		})
	}
	return out
}

func strategyFromConfig(s string) model.Strategy {
	if s == "random" {
		return model.StrategyRandom
	}
	return model.StrategyRoundRobin
}
