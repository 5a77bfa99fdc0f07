package actions

import (
	"context"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/fleetops/fleetops/internal/collections"
	"github.com/fleetops/fleetops/pkg/confmgmt"
	"github.com/fleetops/fleetops/pkg/hostset"
	"github.com/fleetops/fleetops/pkg/remote"
)

// RestartCommand restarts the daemons one after the other. Ignoring errors
// only restarts daemons that are running and never fails.
func RestartCommand(daemons []string, ignoreErrors bool) string {
	if ignoreErrors {
		return strings.Join(collections.Convert(daemons, func(daemon string) string {
			quoted := shellquote.Join(daemon)
			return "(systemctl --quiet is-active " + quoted + " && systemctl restart " + quoted + " || /bin/true)"
		}), "; ")
	}

	return strings.Join(collections.Convert(daemons, func(daemon string) string {
		return shellquote.Join("systemctl", "restart", daemon)
	}), " && ")
}

func IsActiveCommand(daemons []string) string {
	return shellquote.Join(append([]string{"systemctl", "--quiet", "is-active"}, daemons...)...)
}

type RestartDaemons struct {
	logger   *zap.SugaredLogger
	executor remote.Executor
	clock    clockwork.Clock
	opts     *RestartDaemonsOpts
	reason   string
}

func NewRestartDaemons(
	logger *zap.SugaredLogger,
	executor remote.Executor,
	clock clockwork.Clock,
	opts *RestartDaemonsOpts,
	reason string,
) *RestartDaemons {
	return &RestartDaemons{
		logger:   logger,
		executor: executor,
		clock:    clock,
		opts:     opts,
		reason:   reason,
	}
}

func (r *RestartDaemons) Name() string {
	return "restart-daemons"
}

func (r *RestartDaemons) Act(ctx context.Context, batch hostset.Batch) error {
	hosts := batch.Hosts.Hosts()
	restart := func() error {
		r.logger.Infof("Restarting %s on %s", strings.Join(r.opts.Daemons, ","), batch.Hosts)
		_, err := r.executor.Run(ctx, hosts, RestartCommand(r.opts.Daemons, r.opts.IgnoreRestartErrors), remote.AsRoot())
		return err
	}

	if !r.opts.DisablePuppet {
		return restart()
	}
	return confmgmt.NewPuppet(r.logger, r.executor, r.clock, hosts).WithDisabled(ctx, r.reason, restart)
}

// Recover waits for the daemons to be active again. Restarts with ignored
// errors have nothing to verify.
func (r *RestartDaemons) Recover(ctx context.Context, batch hostset.Batch, _ time.Time) error {
	if r.opts.IgnoreRestartErrors {
		return nil
	}

	command := IsActiveCommand(r.opts.Daemons)
	return waitFor(ctx, r.clock, r.opts.ActiveTimeout, r.opts.PollInterval, func() error {
		pending, err := pendingHosts(ctx, r.executor, batch.Hosts.Hosts(), command, nil, remote.Quiet())
		if err != nil {
			return err
		}
		if len(pending) > 0 {
			return &NotReadyError{Condition: strings.Join(r.opts.Daemons, ",") + " active", Hosts: pending}
		}
		return nil
	})
}
