// Package setup registers the MCP server with desktop MCP clients.
package setup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
)

const (
	// ServerName is the key the server is registered under.
	ServerName = "lab-report-normalizer"
	// BinaryName is the MCP server executable looked up when no path is given.
	BinaryName = "mcp-server"

	historyPathEnv = "LABNORM_HISTORY_SQLITE_PATH"
	configFileEnv  = "LABNORM_CONFIG_FILE"
)

// DesktopConfig is the client configuration file. Top-level keys other than
// mcpServers are kept as they were found.
type DesktopConfig struct {
	MCPServers map[string]ServerEntry `json:"mcpServers"`
	other      map[string]json.RawMessage
}

// ServerEntry launches one MCP server.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options controls registration.
type Options struct {
	BinaryPath string
	ConfigFile string
	DataDir    string
}

// Status describes the current registration.
type Status struct {
	ConfigPath  string
	Registered  bool
	Command     string
	BinaryFound bool
	DataDir     string
	Issues      []string
}

// DesktopConfigPath returns the client config file for the current platform.
func DesktopConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "Claude")
			break
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "Claude")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", errors.New("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

// DefaultDataDir is where run history lives when no data directory is given.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".lab-report-normalizer")
}

// LoadDesktopConfig reads configPath. A missing file yields an empty config.
func LoadDesktopConfig(configPath string) (*DesktopConfig, error) {
	cfg := &DesktopConfig{
		MCPServers: make(map[string]ServerEntry),
		other:      make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg.other); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw, ok := cfg.other["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &cfg.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(cfg.other, "mcpServers")
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]ServerEntry)
	}
	return cfg, nil
}

// SaveDesktopConfig writes cfg to configPath, creating its directory.
func SaveDesktopConfig(configPath string, cfg *DesktopConfig) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := make(map[string]interface{}, len(cfg.other)+1)
	for k, v := range cfg.other {
		out[k] = v
	}
	out["mcpServers"] = cfg.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Register adds or replaces the server entry in configPath and returns it.
func Register(configPath string, opts Options) (ServerEntry, error) {
	cfg, err := LoadDesktopConfig(configPath)
	if err != nil {
		return ServerEntry{}, err
	}

	binary := opts.BinaryPath
	if binary == "" {
		if binary, err = FindBinary(BinaryName); err != nil {
			return ServerEntry{}, fmt.Errorf("could not find server binary: %w", err)
		}
	}

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return ServerEntry{}, fmt.Errorf("failed to create data directory: %w", err)
	}

	entry := ServerEntry{
		Command: binary,
		Env:     map[string]string{historyPathEnv: filepath.Join(dataDir, "history.db")},
	}
	if opts.ConfigFile != "" {
		abs, err := filepath.Abs(opts.ConfigFile)
		if err != nil {
			return ServerEntry{}, fmt.Errorf("resolving config file: %w", err)
		}
		entry.Env[configFileEnv] = abs
	}

	cfg.MCPServers[ServerName] = entry
	if err := SaveDesktopConfig(configPath, cfg); err != nil {
		return ServerEntry{}, err
	}
	return entry, nil
}

// Unregister removes the server entry. It reports whether an entry was removed.
func Unregister(configPath string) (bool, error) {
	cfg, err := LoadDesktopConfig(configPath)
	if err != nil {
		return false, err
	}
	if _, ok := cfg.MCPServers[ServerName]; !ok {
		return false, nil
	}
	delete(cfg.MCPServers, ServerName)
	return true, SaveDesktopConfig(configPath, cfg)
}

// GetStatus inspects the registration in configPath.
func GetStatus(configPath string) (*Status, error) {
	cfg, err := LoadDesktopConfig(configPath)
	if err != nil {
		return nil, err
	}

	status := &Status{ConfigPath: configPath, DataDir: DefaultDataDir()}
	entry, ok := cfg.MCPServers[ServerName]
	if !ok {
		status.Issues = append(status.Issues, "server is not registered")
		return status, nil
	}

	status.Registered = true
	status.Command = entry.Command
	if info, err := os.Stat(entry.Command); err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("server binary not found: %s", entry.Command))
	} else {
		status.BinaryFound = true
		if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
			status.Issues = append(status.Issues, fmt.Sprintf("server binary is not executable: %s", entry.Command))
		}
	}

	if p, ok := entry.Env[historyPathEnv]; ok {
		status.DataDir = filepath.Dir(p)
	}
	if _, err := os.Stat(status.DataDir); errors.Is(err, os.ErrNotExist) {
		status.Issues = append(status.Issues, fmt.Sprintf("data directory does not exist: %s", status.DataDir))
	}
	if cf, ok := entry.Env[configFileEnv]; ok {
		if _, err := os.Stat(cf); err != nil {
			status.Issues = append(status.Issues, fmt.Sprintf("config file not found: %s", cf))
		}
	}

	sort.Strings(status.Issues)
	return status, nil
}

// FindBinary looks for name on PATH and in the usual build and install locations.
func FindBinary(name string) (string, error) {
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	home, _ := os.UserHomeDir()
	for _, loc := range []string{
		filepath.Join(".", name),
		filepath.Join(".", "bin", name),
		filepath.Join(home, ".local", "bin", name),
		filepath.Join(home, "go", "bin", name),
		filepath.Join("/usr/local/bin", name),
	} {
		if _, err := os.Stat(loc); err == nil {
			if abs, err := filepath.Abs(loc); err == nil {
				return abs, nil
			}
			return loc, nil
		}
	}
	return "", fmt.Errorf("binary %q not found in common locations", name)
}
