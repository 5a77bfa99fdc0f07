package actions

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/fleetops/fleetops/pkg/confmgmt"
	"github.com/fleetops/fleetops/pkg/hostset"
	"github.com/fleetops/fleetops/pkg/remote"
)

const (
	// the delay lets the ssh session close before the host goes down
	RebootCommand   = "nohup sh -c 'sleep 5; systemctl reboot' >/dev/null 2>&1 &"
	BootTimeCommand = "date +%s; cut -d' ' -f1 /proc/uptime"
)

// ParseBootTime reads the output of BootTimeCommand: the current epoch on
// the first line and the uptime in seconds on the second.
func ParseBootTime(output string) (time.Time, error) {
	lines := strings.Fields(output)
	if len(lines) != 2 {
		return time.Time{}, fmt.Errorf("unexpected boot time output %q", output)
	}

	now, err := strconv.ParseInt(lines[0], 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse epoch %q: %w", lines[0], err)
	}
	uptime, err := strconv.ParseFloat(lines[1], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse uptime %q: %w", lines[1], err)
	}

	return time.Unix(now, 0).Add(-time.Duration(uptime * float64(time.Second))), nil
}

// WaitRebootedSince blocks until every host booted after since.
func WaitRebootedSince(
	ctx context.Context,
	logger *zap.SugaredLogger,
	executor remote.Executor,
	clock clockwork.Clock,
	hosts []string,
	since time.Time,
	timeout, interval time.Duration,
) error {
	err := waitFor(ctx, clock, timeout, interval, func() error {
		pending, err := pendingHosts(ctx, executor, hosts, BootTimeCommand, func(output string) bool {
			bootTime, err := ParseBootTime(output)
			return err == nil && bootTime.After(since)
		}, remote.Quiet())
		if err != nil {
			return err
		}
		if len(pending) > 0 {
			logger.Infof("Waiting for %s to come back after reboot", strings.Join(pending, ","))
			return &NotReadyError{Condition: "reboot", Hosts: pending}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed waiting for reboot since %s: %w", since.Format(time.RFC3339), err)
	}
	return nil
}

type Reboot struct {
	logger   *zap.SugaredLogger
	executor remote.Executor
	clock    clockwork.Clock
	opts     *RebootOpts
}

func NewReboot(logger *zap.SugaredLogger, executor remote.Executor, clock clockwork.Clock, opts *RebootOpts) *Reboot {
	return &Reboot{
		logger:   logger,
		executor: executor,
		clock:    clock,
		opts:     opts,
	}
}

func (r *Reboot) Name() string {
	return "reboot"
}

func (r *Reboot) Act(ctx context.Context, batch hostset.Batch) error {
	r.logger.Infof("Rebooting %s", batch.Hosts)
	_, err := r.executor.Run(ctx, batch.Hosts.Hosts(), RebootCommand, remote.AsRoot())
	return err
}

func (r *Reboot) Recover(ctx context.Context, batch hostset.Batch, since time.Time) error {
	hosts := batch.Hosts.Hosts()
	if err := WaitRebootedSince(
		ctx, r.logger, r.executor, r.clock, hosts, since, r.opts.RebootTimeout, r.opts.PollInterval,
	); err != nil {
		return err
	}

	if !r.opts.WaitPuppet {
		return nil
	}
	puppet := confmgmt.NewPuppet(r.logger, r.executor, r.clock, hosts)
	puppet.PollInterval = r.opts.PollInterval
	if r.opts.RunPuppet {
		if err := puppet.Run(ctx); err != nil {
			return fmt.Errorf("failed to run puppet after reboot: %w", err)
		}
	}
	return puppet.WaitSince(ctx, since, r.opts.PuppetTimeout)
}
