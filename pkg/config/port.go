package config

import (
	"os"
	"strconv"
	"strings"
)

// PortSource reports where a resolved port came from, for startup logging.
type PortSource string

const (
	PortSourceConfig   PortSource = "config"
	PortSourcePortFile PortSource = "port file"
	PortSourceDefault  PortSource = "default"
)

// ResolvePort determines the TCP port the transfer server listens on.
//
// Resolution order:
//  1. cfg.Port when set (> 0);
//  2. the port file (cfg.PortFile) containing a single integer;
//  3. DefaultPort (1256) when the file is absent or malformed.
//
// A malformed or out-of-range port file is not an error: legacy
// deployments shipped without one and expected the server to come up
// on the default port regardless.
func ResolvePort(cfg *ServerConfig) (int, PortSource) {
	if cfg.Port > 0 {
		return cfg.Port, PortSourceConfig
	}

	if port, ok := readPortFile(cfg.PortFile); ok {
		return port, PortSourcePortFile
	}

	return DefaultPort, PortSourceDefault
}

// readPortFile parses a plain-text file holding one integer port.
func readPortFile(path string) (int, bool) {
	if path == "" {
		return 0, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}

	port, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || port <= 0 || port > 65535 {
		return 0, false
	}

	return port, true
}
