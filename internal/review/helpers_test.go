package review

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// fakeRunner answers commands from a handler and records every invocation.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []Command
	handler func(Command) CommandResult
}

func (f *fakeRunner) Run(ctx context.Context, c Command) CommandResult {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	if f.handler == nil {
		return CommandResult{}
	}
	return f.handler(c)
}

func (f *fakeRunner) callsFor(bin string) []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Command
	for _, c := range f.calls {
		if c.Name == bin {
			out = append(out, c)
		}
	}
	return out
}

// byTool dispatches on the binary name; unknown tools exit cleanly with no output.
func byTool(handlers map[string]func(Command) CommandResult) func(Command) CommandResult {
	return func(c Command) CommandResult {
		if h, ok := handlers[c.Name]; ok {
			return h(c)
		}
		return CommandResult{}
	}
}

func reply(stdout, stderr string, exit int) func(Command) CommandResult {
	return func(Command) CommandResult {
		return CommandResult{Stdout: stdout, Stderr: stderr, ExitCode: exit}
	}
}

// pylintReply answers the JSON pass with jsonOut and the text pass with textOut.
func pylintReply(jsonOut, textOut string, exit int) func(Command) CommandResult {
	return func(c Command) CommandResult {
		if hasArg(c.Args, "--output-format=json") {
			return CommandResult{Stdout: jsonOut, ExitCode: exit}
		}
		return CommandResult{Stdout: textOut, ExitCode: exit}
	}
}

func hasArg(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

func writePy(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Black.Timeout = 0
	cfg.Pylint.Timeout = 0
	cfg.DetectSecrets.Timeout = 0
	return cfg
}

func symbols(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, iss := range issues {
		out = append(out, iss.Symbol)
	}
	return out
}

func joinArgs(c Command) string {
	return strings.Join(c.Args, " ")
}
