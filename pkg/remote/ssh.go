package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	sshBin  = "ssh"
	psshBin = "pssh"
	nsshBin = "nssh"

	DefaultParallelism = 16
)

type SSHExecutor struct {
	logger      *zap.SugaredLogger
	command     string
	args        []string
	parallelism int
}

func stripCommandFromArgs(args []string) (string, []string) {
	remainingSSHArgs := []string{}
	command := sshBin
	for _, arg := range args {
		if arg == sshBin || arg == psshBin || arg == nsshBin {
			command = arg
		} else {
			remainingSSHArgs = append(remainingSSHArgs, arg)
		}
	}

	return command, remainingSSHArgs
}

// NewSSHExecutor builds an executor from --ssh-args. The ssh binary itself
// may be part of the arguments (ssh, pssh or nssh), ssh is the default.
func NewSSHExecutor(logger *zap.SugaredLogger, sshArgs []string, parallelism int) *SSHExecutor {
	command, args := stripCommandFromArgs(sshArgs)
	if parallelism < 1 {
		parallelism = DefaultParallelism
	}
	return &SSHExecutor{
		logger:      logger,
		command:     command,
		args:        args,
		parallelism: parallelism,
	}
}

func (e *SSHExecutor) fullArgs(host, remoteCommand string) []string {
	fullSSHArgs := []string{}
	fullSSHArgs = append(fullSSHArgs, e.args...)
	switch e.command {
	case nsshBin, psshBin:
		fullSSHArgs = append(fullSSHArgs, "run", remoteCommand, host)
	default:
		fullSSHArgs = append(fullSSHArgs, host, remoteCommand)
	}
	return fullSSHArgs
}

func wrapWithSudo(command string) string {
	return "sudo -n sh -c " + shellquote.Join(command)
}

func (e *SSHExecutor) Run(ctx context.Context, hosts []string, command string, opts ...RunOption) ([]HostResult, error) {
	cfg := ApplyOptions(opts...)

	remoteCommand := command
	if cfg.AsRoot {
		remoteCommand = wrapWithSudo(command)
	}

	results := make([]HostResult, len(hosts))

	g := new(errgroup.Group)
	g.SetLimit(e.parallelism)
	for i, host := range hosts {
		g.Go(func() error {
			results[i] = e.runOnHost(ctx, host, remoteCommand, cfg)
			return nil
		})
	}
	_ = g.Wait()

	return results, CheckResults(command, results, cfg)
}

func (e *SSHExecutor) runOnHost(ctx context.Context, host, remoteCommand string, cfg Config) HostResult {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	args := e.fullArgs(host, remoteCommand)
	cmd := exec.CommandContext(ctx, e.command, args...)
	e.logger.Debugf("Full ssh command: `%s %s`", e.command, strings.Join(args, " "))

	logger := e.logger.With("host", host)
	output := &bytes.Buffer{}
	lw := NewLogWriter(logger, cfg.Quiet)
	cmd.Stdout = io.MultiWriter(output, lw)
	cmd.Stderr = cmd.Stdout

	err := cmd.Run()
	lw.Flush()

	result := HostResult{Host: host, Output: output.String()}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		logger.Errorf("Failed to start remote command: %v", err)
		result.ExitCode = NotStartedExitCode
		result.Output = fmt.Sprintf("%s%v", result.Output, err)
	}
	return result
}

// LogWriter forwards written bytes into the logger one line at a time.
type LogWriter struct {
	mu     sync.Mutex
	logger *zap.SugaredLogger
	quiet  bool
	buf    bytes.Buffer
}

func NewLogWriter(logger *zap.SugaredLogger, quiet bool) *LogWriter {
	return &LogWriter{logger: logger, quiet: quiet}
}

func (w *LogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// incomplete line, keep it for the next write
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.log(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

// Flush logs whatever is left without a trailing newline.
func (w *LogWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() > 0 {
		w.log(w.buf.String())
		w.buf.Reset()
	}
}

func (w *LogWriter) log(line string) {
	if w.quiet {
		w.logger.Debug(line)
	} else {
		w.logger.Info(line)
	}
}
