// Package config provides tool-server configuration types and the loader
// for the standard mcpServers JSON document.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// ServerConfig describes one tool-server process to launch. Name is the
// unique key the server's tools are attributed to.
type ServerConfig struct {
	Name    string            `json:"name"`
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Validate reports whether the config can be launched.
func (c ServerConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("server config missing name")
	}

	if c.Command == "" {
		return fmt.Errorf("server config %q missing command", c.Name)
	}

	return nil
}

// document is the on-disk shape: {"mcpServers": {"<name>": {...}, ...}},
// compatible with the config files used by MCP-aware clients.
type document struct {
	MCPServers map[string]serverEntry `json:"mcpServers"`
}

type serverEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Load reads an mcpServers JSON file and returns the configured servers
// sorted by name for deterministic startup order.
func Load(path string) ([]ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes an mcpServers JSON document.
func Parse(data []byte) ([]ServerConfig, error) {
	var doc document

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if len(doc.MCPServers) == 0 {
		return nil, fmt.Errorf("config defines no servers under mcpServers")
	}

	configs := make([]ServerConfig, 0, len(doc.MCPServers))

	for name, entry := range doc.MCPServers {
		cfg := ServerConfig{
			Name:    name,
			Command: entry.Command,
			Args:    entry.Args,
			Env:     entry.Env,
		}

		if err := cfg.Validate(); err != nil {
			return nil, err
		}

		configs = append(configs, cfg)
	}

	sort.Slice(configs, func(i, j int) bool {
		return configs[i].Name < configs[j].Name
	})

	return configs, nil
}
