package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// NodeConfig is the vpd node configuration.
type NodeConfig struct {
	Node NodeSettings `hcl:"node,block"`
}

type NodeSettings struct {
	Home      string `hcl:"home,optional"`
	Addr      string `hcl:"addr,optional"`
	Transport string `hcl:"transport,optional"`
	LogLevel  string `hcl:"log_level,optional"`
}

func DefaultNodeConfig() *NodeConfig {
	return &NodeConfig{
		Node: NodeSettings{
			Home:      ".vpd",
			Addr:      "tcp://127.0.0.1:26658",
			Transport: "socket",
			LogLevel:  "info",
		},
	}
}

// LoadNodeConfig reads an HCL config file. A missing file is not an error,
// the defaults apply.
func LoadNodeConfig(filename string) (*NodeConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultNodeConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %s", filename, diags.Error())
	}

	var cfg NodeConfig
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("decode %s: %s", filename, diags.Error())
	}

	def := DefaultNodeConfig()
	if cfg.Node.Home == "" {
		cfg.Node.Home = def.Node.Home
	}
	if cfg.Node.Addr == "" {
		cfg.Node.Addr = def.Node.Addr
	}
	if cfg.Node.Transport == "" {
		cfg.Node.Transport = def.Node.Transport
	}
	if cfg.Node.LogLevel == "" {
		cfg.Node.LogLevel = def.Node.LogLevel
	}
	return &cfg, nil
}

func (c *NodeConfig) Validate() error {
	if c.Node.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	switch c.Node.Transport {
	case "socket", "grpc":
	default:
		return fmt.Errorf("invalid transport: %s", c.Node.Transport)
	}
	switch c.Node.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Node.LogLevel)
	}
	return nil
}
