package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// defaultMCPServerPath expands to ~/development/linux-mcp-server, the
// conventional checkout location of the diagnostic tool server.
func defaultMCPServerPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "development/linux-mcp-server"
	}
	return filepath.Join(home, "development", "linux-mcp-server")
}

// MCPServerCommand validates the Linux MCP server installation and returns
// the interpreter path and arguments used to launch it over stdio.
//
// Two failure modes are kept distinguishable for callers and log readers:
// the server checkout being absent entirely (ErrServerPathNotFound) and the
// checkout existing without its isolated Python runtime
// (ErrServerRuntimeNotFound).
func (c *Config) MCPServerCommand() (command string, args []string, err error) {
	info, statErr := os.Stat(c.MCPServerPath)
	if statErr != nil || !info.IsDir() {
		return "", nil, fmt.Errorf("%w: %s (set LINUX_MCP_SERVER_PATH)",
			ErrServerPathNotFound, c.MCPServerPath)
	}

	python := filepath.Join(c.MCPServerPath, ".venv", "bin", "python")
	if _, statErr := os.Stat(python); statErr != nil {
		return "", nil, fmt.Errorf("%w: %s (run the server's install step to create .venv)",
			ErrServerRuntimeNotFound, python)
	}

	return python, []string{"-m", "linux_mcp_server"}, nil
}

// MCPServerEnv returns the environment for the MCP server process: the
// current process environment, plus the log path allow-list override when
// one is configured. Unset means the server applies its own default list.
func (c *Config) MCPServerEnv() []string {
	env := os.Environ()
	if c.MCPAllowedLogPaths != "" {
		env = append(env, "LINUX_MCP_ALLOWED_LOG_PATHS="+c.MCPAllowedLogPaths)
	}
	return env
}
