package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fulmenhq/pyreview/pkg/logger"
)

// ResolveOptions configures how binary resolution works
type ResolveOptions struct {
	// EnvOverride specifies an environment variable name to check for explicit override
	// e.g., "PYREVIEW_TOOL_PYLINT" would check the PYREVIEW_TOOL_PYLINT environment variable
	EnvOverride string
	// Configured is the bin value from config: a bare name or a path
	Configured string
	// AllowPath determines if PATH fallback is allowed
	AllowPath bool
}

// Resolution records where a binary was found
type Resolution struct {
	Tool   string
	Path   string
	Source string // "env", "config", "virtualenv" or "path"
}

// EnvVarName returns the override variable for a tool, e.g. detect-secrets ->
// PYREVIEW_TOOL_DETECT_SECRETS
func EnvVarName(toolName string) string {
	return "PYREVIEW_TOOL_" + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(toolName))
}

// ResolveBinary finds the path to a tool binary following the resolution order:
// 1. Environment variable override (if specified)
// 2. Configured path (when it contains a path separator)
// 3. The active virtualenv's bin directory ($VIRTUAL_ENV)
// 4. PATH lookup of the configured name (if AllowPath is true)
func ResolveBinary(toolName string, opts ResolveOptions) (Resolution, error) {
	logger.Debug("starting binary resolution", logger.String("tool", toolName), logger.String("env_override", opts.EnvOverride), logger.Bool("allow_path", opts.AllowPath))

	if opts.EnvOverride != "" {
		if overridePath := os.Getenv(opts.EnvOverride); overridePath != "" {
			if isFile(overridePath) {
				logger.Debug("resolution successful: env override", logger.String("path", overridePath))
				return Resolution{Tool: toolName, Path: overridePath, Source: "env"}, nil
			}
			logger.Warn("env override path invalid; continuing resolution", logger.String("env_var", opts.EnvOverride), logger.String("path", overridePath))
		}
	}

	name := strings.TrimSpace(opts.Configured)
	if name == "" {
		name = toolName
	}
	if strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		if isFile(name) {
			logger.Debug("resolution successful: configured path", logger.String("path", name))
			return Resolution{Tool: toolName, Path: name, Source: "config"}, nil
		}
		return Resolution{}, fmt.Errorf("tool %s not found: configured path %s does not exist", toolName, name)
	}

	if venv := os.Getenv("VIRTUAL_ENV"); venv != "" {
		binDir, binaryName := "bin", name
		if runtime.GOOS == "windows" {
			binDir, binaryName = "Scripts", name+".exe"
		}
		candidate := filepath.Join(venv, binDir, binaryName)
		if isFile(candidate) {
			logger.Debug("resolution successful: virtualenv", logger.String("path", candidate))
			return Resolution{Tool: toolName, Path: candidate, Source: "virtualenv"}, nil
		}
		logger.Debug("virtualenv candidate not found", logger.String("candidate", candidate))
	}

	if opts.AllowPath {
		if pathBinary, err := exec.LookPath(name); err == nil {
			logger.Debug("resolution successful: PATH fallback", logger.String("path", pathBinary))
			return Resolution{Tool: toolName, Path: pathBinary, Source: "path"}, nil
		}
		logger.Debug("PATH fallback failed", logger.String("tool", name))
	}

	var suggestions []string
	if opts.EnvOverride != "" {
		suggestions = append(suggestions, fmt.Sprintf("set %s=/path/to/%s", opts.EnvOverride, toolName))
	}
	suggestions = append(suggestions, fmt.Sprintf("run 'pip install %s' in the active environment", toolName))
	if opts.AllowPath {
		suggestions = append(suggestions, fmt.Sprintf("ensure %s is in your PATH", name))
	}
	return Resolution{}, fmt.Errorf("tool %s not found: %s", toolName, strings.Join(suggestions, " or "))
}

// ProbeVersion runs "<path> --version" and returns the first non-empty output line
func ProbeVersion(ctx context.Context, path string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, "--version") // #nosec G204 -- path comes from ResolveBinary
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s --version timed out after %s", path, timeout)
		}
		return "", fmt.Errorf("%s --version failed: %v", path, err)
	}
	for _, line := range strings.Split(out.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("%s --version printed nothing", path)
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
