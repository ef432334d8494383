package config

import "fmt"

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding surfaced to users without blocking.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path names the offending
// environment variable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as an
// error where convenient.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

var knownBackends = map[string]struct{}{
	"postgres": {}, "mysql": {}, "mssql": {}, "sqlite": {},
}

// Validate statically checks the configuration and returns findings. It does
// not mutate the config; callers decide whether warnings are fatal.
func Validate(c Config) []Issue {
	var issues []Issue

	if _, ok := knownBackends[c.DBBackend]; !ok {
		issues = append(issues, Issue{SeverityError, "DB_BACKEND",
			fmt.Sprintf("unknown backend %q", c.DBBackend)})
	}
	if c.DatasetID <= 0 {
		issues = append(issues, Issue{SeverityError, "DATASET_ID", "must be a positive integer"})
	}
	if c.BatchSize <= 0 {
		issues = append(issues, Issue{SeverityError, "BATCH_SIZE", "must be a positive integer"})
	}
	if c.DBName == "" {
		issues = append(issues, Issue{SeverityError, "DB_NAME", "must not be empty"})
	}

	// Network backends need endpoint and credentials; sqlite only a file path.
	if c.DBBackend != "sqlite" {
		if c.DBHost == "" {
			issues = append(issues, Issue{SeverityError, "DB_HOST", "must not be empty"})
		}
		if c.DBPort == "" {
			issues = append(issues, Issue{SeverityError, "DB_PORT", "must not be empty"})
		}
		if c.DBUser == "" {
			issues = append(issues, Issue{SeverityError, "DB_USER", "must not be empty"})
		}
		if c.DBPassword == "" {
			issues = append(issues, Issue{SeverityWarning, "DB_PASSWORD", "empty password"})
		}
	}

	switch c.MetricsBackend {
	case "", "none", "pushgateway":
	default:
		issues = append(issues, Issue{SeverityWarning, "METRICS_BACKEND",
			fmt.Sprintf("unknown backend %q; metrics will be disabled", c.MetricsBackend)})
	}
	if c.MetricsBackend == "pushgateway" && c.PushgatewayURL == "" {
		issues = append(issues, Issue{SeverityError, "PUSHGATEWAY_URL", "must not be empty"})
	}

	return issues
}
