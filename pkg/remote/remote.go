package remote

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/fleetops/fleetops/internal/collections"
)

// HostResult is the outcome of one command on one host. Output holds
// stdout and stderr interleaved.
type HostResult struct {
	Host     string
	ExitCode int
	Output   string
}

// Executor runs a shell command on a set of hosts and waits for all of them.
// It returns the per-host results together with an *UnreachableError or a
// *CommandError when a host could not be reached or exited with a code
// outside the allowed ones.
type Executor interface {
	Run(ctx context.Context, hosts []string, command string, opts ...RunOption) ([]HostResult, error)
}

type Config struct {
	AsRoot           bool
	AllowedExitCodes []int
	Timeout          time.Duration
	Quiet            bool
}

type RunOption func(*Config)

// AsRoot runs the command through sudo for this call only.
func AsRoot() RunOption {
	return func(c *Config) {
		c.AsRoot = true
	}
}

func AllowExitCodes(codes ...int) RunOption {
	return func(c *Config) {
		c.AllowedExitCodes = codes
	}
}

func WithTimeout(timeout time.Duration) RunOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// Quiet logs command output at debug level instead of info.
func Quiet() RunOption {
	return func(c *Config) {
		c.Quiet = true
	}
}

func ApplyOptions(opts ...RunOption) Config {
	cfg := Config{AllowedExitCodes: []int{0}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

const (
	unreachableExitCode = 255
	// NotStartedExitCode marks a command that could not even be started locally.
	NotStartedExitCode = -1
)

type UnreachableError struct {
	Hosts []string
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("hosts unreachable: %s", strings.Join(e.Hosts, ","))
}

type CommandError struct {
	Command string
	Failed  []HostResult
}

func (e *CommandError) Error() string {
	return fmt.Sprintf(
		"command `%s` failed on %d host(s): %s",
		e.Command,
		len(e.Failed),
		strings.Join(collections.Convert(e.Failed, func(r HostResult) string {
			return fmt.Sprintf("%s (exit code %d)", r.Host, r.ExitCode)
		}), ", "),
	)
}

func isUnreachable(r HostResult) bool {
	return r.ExitCode == unreachableExitCode || r.ExitCode == NotStartedExitCode
}

// CheckResults turns per-host results into the typed error of the Executor
// contract. Unreachable hosts take precedence over bad exit codes.
func CheckResults(command string, results []HostResult, cfg Config) error {
	unreachable := collections.FilterBy(results, isUnreachable)
	if len(unreachable) > 0 && !slices.Contains(cfg.AllowedExitCodes, unreachableExitCode) {
		return &UnreachableError{
			Hosts: collections.Convert(unreachable, func(r HostResult) string { return r.Host }),
		}
	}

	failed := collections.FilterBy(results, func(r HostResult) bool {
		return !slices.Contains(cfg.AllowedExitCodes, r.ExitCode)
	})
	if len(failed) > 0 {
		return &CommandError{Command: command, Failed: failed}
	}
	return nil
}

// RunOne is a convenience wrapper for commands targeting a single host.
func RunOne(ctx context.Context, executor Executor, host, command string, opts ...RunOption) (HostResult, error) {
	results, err := executor.Run(ctx, []string{host}, command, opts...)
	if len(results) == 0 {
		if err == nil {
			err = fmt.Errorf("no result returned for host %s", host)
		}
		return HostResult{Host: host}, err
	}
	return results[0], err
}
