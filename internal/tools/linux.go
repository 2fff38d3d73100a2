package tools

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/mcp"

	"github.com/koopa0/sysagent/internal/config"
	"github.com/koopa0/sysagent/internal/log"
)

// linuxServerName identifies the diagnostic tool server to the MCP host.
const linuxServerName = "linux"

// LoadLinuxTools connects to the Linux MCP diagnostic server over stdio and
// returns its tools.
//
// The server installation is validated first so the two local failure modes
// stay distinguishable to callers: config.ErrServerPathNotFound when the
// checkout is absent, config.ErrServerRuntimeNotFound when its Python
// runtime is missing. Connection or handshake failures surface as ordinary
// wrapped errors.
func LoadLinuxTools(ctx context.Context, g *genkit.Genkit, cfg *config.Config, logger *log.Logger) ([]ai.Tool, error) {
	command, args, err := cfg.MCPServerCommand()
	if err != nil {
		return nil, err
	}

	host, err := mcp.NewMCPHost(g, mcp.MCPHostOptions{
		Name:    "sysagent",
		Version: "1.0.0",
		MCPServers: []mcp.MCPServerConfig{
			{
				Name: linuxServerName,
				Config: mcp.MCPClientOptions{
					Name: linuxServerName,
					Stdio: &mcp.StdioConfig{
						Command: command,
						Args:    args,
						Env:     cfg.MCPServerEnv(),
					},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("starting linux MCP server: %w", err)
	}

	mcpTools, err := host.GetActiveTools(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("listing linux MCP tools: %w", err)
	}

	names := make([]string, 0, len(mcpTools))
	for _, t := range mcpTools {
		names = append(names, t.Name())
	}
	logger.Info("linux diagnostic tools connected", "count", len(mcpTools), "tools", names)

	return mcpTools, nil
}
