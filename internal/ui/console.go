package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/koopa0/sysagent/internal/log"
)

// Console prints user-facing output and mirrors every line into the
// structured log, so the log file holds the complete session even when the
// console stays quiet about internals.
type Console struct {
	out      io.Writer
	errOut   io.Writer
	logger   *log.Logger
	renderer *glamour.TermRenderer
}

// NewConsole creates a console on stdout/stderr.
func NewConsole(logger *log.Logger) *Console {
	return NewConsoleTo(os.Stdout, os.Stderr, logger)
}

// NewConsoleTo creates a console with explicit writers, used by tests.
func NewConsoleTo(out, errOut io.Writer, logger *log.Logger) *Console {
	if logger == nil {
		logger = log.NewNop()
	}

	// A nil renderer degrades to plain text.
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		logger.Warn("markdown renderer unavailable, using plain output", "error", err)
	}

	return &Console{out: out, errOut: errOut, logger: logger, renderer: renderer}
}

// WithLogger returns a copy of the console whose mirrored records go
// through logger. The run loop uses it to stamp the interaction counter and
// run ID on every record of a turn, the answer included.
func (c *Console) WithLogger(logger *log.Logger) *Console {
	cp := *c
	cp.logger = logger
	return &cp
}

// Println prints a line to stdout and logs it.
func (c *Console) Println(msg string) {
	fmt.Fprintln(c.out, msg)
	c.logger.Info(msg)
}

// Printf formats, prints to stdout, and logs.
func (c *Console) Printf(format string, args ...any) {
	c.Println(fmt.Sprintf(format, args...))
}

// Errorln prints a short error line to stderr and logs it at error level.
// Callers log the full error separately; this is the user-visible summary.
func (c *Console) Errorln(msg string) {
	fmt.Fprintln(c.errOut, msg)
	c.logger.Error(msg)
}

// Answer renders the agent's markdown answer for the terminal. The raw
// markdown goes to the log; the styled version goes to the screen.
func (c *Console) Answer(markdown string) {
	c.logger.Info("agent answer\n" + markdown)

	if c.renderer == nil {
		fmt.Fprintln(c.out, markdown)
		return
	}
	rendered, err := c.renderer.Render(markdown)
	if err != nil {
		fmt.Fprintln(c.out, markdown)
		return
	}
	fmt.Fprint(c.out, strings.TrimLeft(rendered, "\n"))
}

// Prompt prints the input prompt without a trailing newline.
func (c *Console) Prompt() {
	fmt.Fprint(c.out, "\nYou: ")
}
