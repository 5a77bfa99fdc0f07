// Package actions holds the disruptive operations a rolling run applies to a
// batch of hosts.
package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fleetops/fleetops/pkg/remote"
	"github.com/fleetops/fleetops/pkg/utils"
)

const (
	DefaultPollInterval    = 10 * time.Second
	DefaultRecoveryTimeout = 15 * time.Minute
)

// NotReadyError lists the hosts a recovery wait is still waiting for.
type NotReadyError struct {
	Condition string
	Hosts     []string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("%s not yet on %s", e.Condition, strings.Join(e.Hosts, ","))
}

// waitFor polls check until it reports no pending hosts. Only NotReadyError
// is retried, any other error ends the wait.
func waitFor(
	ctx context.Context,
	clock clockwork.Clock,
	timeout, interval time.Duration,
	check func() error,
) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultRecoveryTimeout
	}

	_, err := utils.WrapWithRetries(ctx, utils.RetryPolicy{
		MaxAttempts: int(timeout/interval) + 1,
		Delay:       interval,
		Backoff:     utils.BackoffConstant,
		Clock:       clock,
		Retryable: func(err error) bool {
			var notReady *NotReadyError
			return errors.As(err, &notReady)
		},
	}, func() (struct{}, error) {
		return struct{}{}, check()
	})
	return err
}

// pendingHosts runs command on hosts and returns the hosts where it did not
// succeed or where ready rejects the output. Unreachable hosts are pending.
func pendingHosts(
	ctx context.Context,
	executor remote.Executor,
	hosts []string,
	command string,
	ready func(output string) bool,
	opts ...remote.RunOption,
) ([]string, error) {
	results, err := executor.Run(ctx, hosts, command, opts...)
	if len(results) == 0 && err != nil {
		return nil, err
	}

	byHost := make(map[string]remote.HostResult, len(results))
	for _, result := range results {
		byHost[result.Host] = result
	}

	pending := []string{}
	for _, host := range hosts {
		result, found := byHost[host]
		if !found || result.ExitCode != 0 || (ready != nil && !ready(result.Output)) {
			pending = append(pending, host)
		}
	}
	return pending, nil
}
