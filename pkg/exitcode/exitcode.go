// Package exitcode provides standardized exit codes for pyreview
package exitcode

// Exit codes for the pyreview CLI
const (
	Success           = 0
	GeneralError      = 1
	ConfigError       = 2
	ValidationError   = 3
	FileSystemError   = 4
	TimeoutError      = 7
	UnsupportedFormat = 8
	ToolNotFound      = 9
	// ScoreBelowThreshold means at least one file scored under --fail-under
	ScoreBelowThreshold = 10
	// FindingsPresent means findings matched a --fail-on-* gate
	FindingsPresent = 11
	Interrupted     = 130
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case ConfigError:
		return "Configuration error"
	case ValidationError:
		return "Validation error"
	case FileSystemError:
		return "File system error"
	case TimeoutError:
		return "Timeout error"
	case UnsupportedFormat:
		return "Unsupported format"
	case ToolNotFound:
		return "Tool not found"
	case ScoreBelowThreshold:
		return "Lint score below threshold"
	case FindingsPresent:
		return "Blocking findings present"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
