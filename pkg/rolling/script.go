package rolling

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/fleetops/fleetops/internal/collections"
	"github.com/fleetops/fleetops/pkg/hostset"
	"github.com/fleetops/fleetops/pkg/remote"
)

const (
	ExitSuccess = 0
	ExitFatal   = 1
	ExitSoft    = 2

	HostsEnvVar = "HOSTS"
	BatchEnvVar = "BATCH"
)

type ScriptResult struct {
	ExitCode int
	Output   string
}

type Verdict int

const (
	Continue Verdict = iota
	Soft
	Fatal
)

func (v Verdict) String() string {
	switch v {
	case Continue:
		return "continue"
	case Soft:
		return "soft failure"
	default:
		return "fatal"
	}
}

// Classify maps a script exit code to a verdict. Exit codes other than 0, 1
// and 2 are fatal.
func Classify(result ScriptResult) Verdict {
	switch result.ExitCode {
	case ExitSuccess:
		return Continue
	case ExitSoft:
		return Soft
	default:
		return Fatal
	}
}

// MergeScriptResults folds per-host results into one: any fatal result makes
// the merge fatal, otherwise any soft one makes it soft. The output collects
// the outputs carrying the worst verdict.
func MergeScriptResults(results []ScriptResult) ScriptResult {
	worst := Continue
	for _, result := range results {
		if verdict := Classify(result); verdict > worst {
			worst = verdict
		}
	}

	merged := ScriptResult{ExitCode: ExitSuccess}
	outputs := []string{}
	for _, result := range results {
		if Classify(result) != worst {
			continue
		}
		if len(outputs) == 0 {
			merged.ExitCode = result.ExitCode
		}
		if output := strings.TrimSpace(result.Output); output != "" {
			outputs = append(outputs, output)
		}
	}
	merged.Output = strings.Join(outputs, "\n")
	return merged
}

// Script checks a batch before or after the action.
type Script interface {
	Name() string
	Run(ctx context.Context, batch hostset.Batch) ScriptResult
}

type scriptFunc struct {
	name string
	fn   func(ctx context.Context, batch hostset.Batch) ScriptResult
}

func (s scriptFunc) Name() string {
	return s.name
}

func (s scriptFunc) Run(ctx context.Context, batch hostset.Batch) ScriptResult {
	return s.fn(ctx, batch)
}

func ScriptFunc(name string, fn func(ctx context.Context, batch hostset.Batch) ScriptResult) Script {
	return scriptFunc{name: name, fn: fn}
}

// LocalScript runs an executable on the local machine with the batch hosts
// in the HOSTS environment variable, comma separated.
type LocalScript struct {
	Path   string
	logger *zap.SugaredLogger
}

func NewLocalScript(logger *zap.SugaredLogger, path string) *LocalScript {
	return &LocalScript{Path: path, logger: logger}
}

func (s *LocalScript) Name() string {
	return filepath.Base(s.Path)
}

func (s *LocalScript) Run(ctx context.Context, batch hostset.Batch) ScriptResult {
	//nolint:gosec
	cmd := exec.CommandContext(ctx, s.Path)
	cmd.Env = append(
		os.Environ(),
		fmt.Sprintf("%s=%s", HostsEnvVar, batch.Hosts),
		fmt.Sprintf("%s=%s", BatchEnvVar, strconv.Itoa(batch.Index)),
	)

	output := &bytes.Buffer{}
	logWriter := remote.NewLogWriter(s.logger.With("script", s.Name()), false)
	defer logWriter.Flush()
	cmd.Stdout = io.MultiWriter(output, logWriter)
	cmd.Stderr = cmd.Stdout

	err := cmd.Run()
	if err == nil {
		return ScriptResult{ExitCode: ExitSuccess, Output: output.String()}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return ScriptResult{ExitCode: exitErr.ExitCode(), Output: output.String()}
	}
	return ScriptResult{
		ExitCode: remote.NotStartedExitCode,
		Output:   fmt.Sprintf("failed to run %s: %v", s.Path, err),
	}
}

// RemoteScript runs a command on every host of the batch and merges the
// per-host verdicts.
type RemoteScript struct {
	name     string
	command  string
	executor remote.Executor
}

func NewRemoteScript(executor remote.Executor, name, command string) *RemoteScript {
	return &RemoteScript{name: name, command: command, executor: executor}
}

func (s *RemoteScript) Name() string {
	return s.name
}

func (s *RemoteScript) Run(ctx context.Context, batch hostset.Batch) ScriptResult {
	hostResults, err := s.executor.Run(
		ctx,
		batch.Hosts.Hosts(),
		s.command,
		remote.AllowExitCodes(ExitSuccess, ExitFatal, ExitSoft),
	)
	if len(hostResults) == 0 && err != nil {
		return ScriptResult{ExitCode: remote.NotStartedExitCode, Output: err.Error()}
	}

	return MergeScriptResults(collections.Convert(hostResults, func(r remote.HostResult) ScriptResult {
		output := strings.TrimSpace(r.Output)
		if output == "" {
			output = fmt.Sprintf("exit code %d", r.ExitCode)
		}
		return ScriptResult{ExitCode: r.ExitCode, Output: fmt.Sprintf("%s: %s", r.Host, output)}
	}))
}
