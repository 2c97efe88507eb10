package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rbright/voxscribe/internal/session"
)

// Console prints session events as plain lines.
type Console struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

// NewConsole writes events to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out, now: time.Now}
}

func (c *Console) Status(kind session.StatusKind, message string) {
	c.printf("[%s] %s\n", kind, message)
}

func (c *Console) Output(line string) {
	c.printf("%s  %s\n", c.now().Format("15:04:05"), line)
}

func (c *Console) ClearOutput() {
	c.printf("---- output cleared ----\n")
}

func (c *Console) State(session.Snapshot) {}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.out, format, args...)
}

// ConsoleHelp lists plain-mode line commands.
const ConsoleHelp = "commands: [r]ecord/toggle, [s]ave, [e]nd, [c]lear, [q]uit"

// RunConsole reads line commands from in until quit, EOF, done closes, or ctx ends.
func RunConsole(ctx context.Context, in io.Reader, out io.Writer, controls Controls, done <-chan struct{}) error {
	_, _ = fmt.Fprintln(out, ConsoleHelp)

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		case err := <-readErr:
			_ = controls.Exit()
			if err != nil {
				return fmt.Errorf("read console input: %w", err)
			}
			return nil
		case line := <-lines:
			quit, err := dispatchLine(controls, line)
			if err != nil {
				_, _ = fmt.Fprintln(out, err.Error())
			}
			if quit {
				return nil
			}
		}
	}
}

// dispatchLine maps one console line to a control call.
func dispatchLine(controls Controls, line string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return false, nil
	case "r", "record", "t", "toggle":
		return false, controls.Toggle()
	case "s", "save":
		return false, controls.Save()
	case "e", "end":
		return false, controls.End()
	case "c", "clear":
		return false, controls.Clear()
	case "q", "quit", "exit":
		return true, controls.Exit()
	case "h", "help", "?":
		return false, fmt.Errorf("%s", ConsoleHelp)
	default:
		return false, fmt.Errorf("unknown command %q; %s", strings.TrimSpace(line), ConsoleHelp)
	}
}
