package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolvePort_ConfigWins(t *testing.T) {
	tmpDir := t.TempDir()
	portFile := filepath.Join(tmpDir, "port.info")
	if err := os.WriteFile(portFile, []byte("2000\n"), 0644); err != nil {
		t.Fatalf("Failed to write port file: %v", err)
	}

	cfg := &ServerConfig{Port: 1500, PortFile: portFile}

	port, source := ResolvePort(cfg)
	if port != 1500 {
		t.Errorf("Expected configured port 1500 to win, got %d", port)
	}
	if source != PortSourceConfig {
		t.Errorf("Expected source %q, got %q", PortSourceConfig, source)
	}
}

func TestResolvePort_PortFile(t *testing.T) {
	tmpDir := t.TempDir()
	portFile := filepath.Join(tmpDir, "port.info")
	if err := os.WriteFile(portFile, []byte("  2345 \n"), 0644); err != nil {
		t.Fatalf("Failed to write port file: %v", err)
	}

	cfg := &ServerConfig{Port: 0, PortFile: portFile}

	port, source := ResolvePort(cfg)
	if port != 2345 {
		t.Errorf("Expected port 2345 from port file, got %d", port)
	}
	if source != PortSourcePortFile {
		t.Errorf("Expected source %q, got %q", PortSourcePortFile, source)
	}
}

func TestResolvePort_MissingFile(t *testing.T) {
	cfg := &ServerConfig{Port: 0, PortFile: filepath.Join(t.TempDir(), "nonexistent")}

	port, source := ResolvePort(cfg)
	if port != DefaultPort {
		t.Errorf("Expected default port %d, got %d", DefaultPort, port)
	}
	if source != PortSourceDefault {
		t.Errorf("Expected source %q, got %q", PortSourceDefault, source)
	}
}

func TestResolvePort_MalformedFile(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"not a number", "hello\n"},
		{"negative", "-5\n"},
		{"zero", "0\n"},
		{"out of range", "99999\n"},
		{"empty", ""},
		{"trailing garbage", "1256 extra\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			portFile := filepath.Join(t.TempDir(), "port.info")
			if err := os.WriteFile(portFile, []byte(tc.content), 0644); err != nil {
				t.Fatalf("Failed to write port file: %v", err)
			}

			cfg := &ServerConfig{Port: 0, PortFile: portFile}

			port, source := ResolvePort(cfg)
			if port != DefaultPort {
				t.Errorf("Expected default port %d for %q, got %d", DefaultPort, tc.content, port)
			}
			if source != PortSourceDefault {
				t.Errorf("Expected source %q, got %q", PortSourceDefault, source)
			}
		})
	}
}

func TestResolvePort_EmptyPortFilePath(t *testing.T) {
	cfg := &ServerConfig{Port: 0, PortFile: ""}

	port, _ := ResolvePort(cfg)
	if port != DefaultPort {
		t.Errorf("Expected default port %d, got %d", DefaultPort, port)
	}
}
