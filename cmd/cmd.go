// Package cmd provides the sysagent CLI entry points.
//
// Invocation:
//   - no arguments: interactive troubleshooting session
//   - any arguments: joined into a single query, answered once
//   - reembed: rebuild the knowledge base embeddings
//   - version, help: utility output
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/koopa0/sysagent/internal/config"
	"github.com/koopa0/sysagent/internal/log"
)

// Execute is the main entry point for the sysagent CLI.
func Execute() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, logClose, logPath, err := log.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	slog.SetDefault(logger)
	logger.Debug("logging initialized", "path", logPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args[1:]
	if len(args) == 0 {
		return runInteractive(ctx, cfg, logger, logClose)
	}

	switch args[0] {
	case "version", "--version", "-v":
		defer logClose()
		runVersion()
		return nil
	case "help", "--help", "-h":
		defer logClose()
		runHelp()
		return nil
	case "reembed":
		return runReembed(ctx, cfg, logger, logClose)
	default:
		// Everything else is a question for the agent.
		return runQuery(ctx, cfg, logger, logClose, queryFromArgs(args))
	}
}

// queryFromArgs joins raw command line arguments into one question, so the
// user does not have to quote it.
func queryFromArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("sysagent - conversational Linux troubleshooting assistant")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sysagent                  Start an interactive session")
	fmt.Println("  sysagent <question...>    Answer a single question and exit")
	fmt.Println("  sysagent reembed          Rebuild knowledge base embeddings")
	fmt.Println("  sysagent version          Show version information")
	fmt.Println("  sysagent help             Show this help")
	fmt.Println()
	fmt.Println("Interactive session:")
	fmt.Println("  exit, quit, q             Leave the session")
	fmt.Println("  Ctrl+C                    Leave the session")
	fmt.Println()
	fmt.Println("Key environment variables:")
	fmt.Println("  LLM_PROVIDER              watsonx (default), openai, ollama, gemini, anthropic")
	fmt.Println("  LLM_MODEL                 Override the provider's default model")
	fmt.Println("  AGENT_INSTRUCTIONS_FILE   Agent instructions document")
	fmt.Println("  LINUX_MCP_SERVER_PATH     Linux diagnostic MCP server checkout")
	fmt.Println("  POSTGRES_HOST/PORT/DB     Knowledge base database")
	fmt.Println("  DEBUG                     Verbose console output")
}
