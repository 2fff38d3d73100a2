package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/koopa0/sysagent/internal/app"
	"github.com/koopa0/sysagent/internal/config"
	"github.com/koopa0/sysagent/internal/log"
	"github.com/koopa0/sysagent/internal/tools"
	"github.com/koopa0/sysagent/internal/ui"
)

// runQuery answers a single question and exits. Used when the question is
// passed as command line arguments.
func runQuery(ctx context.Context, cfg *config.Config, logger *log.Logger, logClose func() error, query string) error {
	a, err := app.Setup(ctx, cfg, logger, logClose)
	if err != nil {
		logger.Error("setup failed", "error", err)
		if logClose != nil {
			_ = logClose()
		}
		return err
	}
	defer a.Close(ctx)

	// One-shot mode is a session of exactly one interaction.
	runLogger := logger.With("run_id", uuid.NewString(), "interaction", 1)
	console := ui.NewConsole(runLogger)
	ctx = tools.ContextWithSink(ctx, toolSink(cfg, runLogger, console))

	runLogger.Info("single query", "query", query)
	answer, err := a.Agent.Run(ctx, query)
	if err != nil {
		runLogger.Error("query failed", "error", err)
		console.Errorln("Sorry, I could not answer that. See the log for details.")
		return fmt.Errorf("answering query: %w", err)
	}

	console.Answer(answer)
	return nil
}

// runInteractive starts the conversational loop. Every failure inside a
// turn is recoverable; only setup errors end the session.
func runInteractive(ctx context.Context, cfg *config.Config, logger *log.Logger, logClose func() error) error {
	a, err := app.Setup(ctx, cfg, logger, logClose)
	if err != nil {
		logger.Error("setup failed", "error", err)
		if logClose != nil {
			_ = logClose()
		}
		return err
	}
	defer a.Close(ctx)

	runLogger := logger.With("run_id", uuid.NewString())
	console := ui.NewConsole(runLogger)
	ctx = tools.ContextWithSink(ctx, toolSink(cfg, runLogger, console))

	degraded := make([]string, 0, len(a.Toolset.Unavailable))
	for _, c := range a.Toolset.Unavailable {
		degraded = append(degraded, c.Name)
		runLogger.Warn("capability unavailable", "capability", c.Name, "reason", c.Reason)
	}
	ui.Banner{Provider: cfg.Provider, Model: cfg.ModelName, Degraded: degraded}.Print()

	interact(ctx, a, console, runLogger, os.Stdin)
	console.Println("Goodbye!")
	return nil
}

// interact runs the read-ask-answer loop until EOF, an exit command, or
// context cancellation. Stdin reads happen on their own goroutine so a
// signal can end the session even while blocked on input.
func interact(ctx context.Context, a *app.App, console *ui.Console, logger *log.Logger, in io.Reader) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	interaction := 0
	for {
		console.Prompt()

		var input string
		select {
		case <-ctx.Done():
			logger.Info("session interrupted")
			return
		case line, ok := <-lines:
			if !ok {
				logger.Info("input closed, ending session")
				return
			}
			input = strings.TrimSpace(line)
		}

		if input == "" {
			continue
		}
		if isExitCommand(input) {
			logger.Info("exit command received", "command", input)
			return
		}

		interaction++
		turnLogger := logger.With("interaction", interaction)
		// The turn console stamps the counter on the mirrored records too.
		turnConsole := console.WithLogger(turnLogger)
		turnLogger.Info("user query", "query", input)

		answer, err := a.Agent.Run(ctx, input)
		if err != nil {
			if ctx.Err() != nil {
				turnLogger.Info("session interrupted")
				return
			}
			turnLogger.Error("turn failed", "error", err)
			turnConsole.Errorln("Sorry, something went wrong with that question. Please try again.")
			continue
		}

		turnConsole.Answer(answer)
		turnLogger.Debug("turn complete", "answer_len", len(answer))
	}
}

// isExitCommand reports whether input ends the interactive session.
func isExitCommand(input string) bool {
	switch strings.ToLower(input) {
	case "exit", "quit", "q":
		return true
	}
	return false
}

// toolSink builds the tool event sink for a run. Tool activity always goes
// to the log; it is echoed to the console only in debug mode.
func toolSink(cfg *config.Config, logger *log.Logger, console *ui.Console) tools.EventSink {
	var echo func(string)
	if cfg.Debug {
		echo = console.Println
	}
	return tools.NewLogSink(logger, echo)
}
