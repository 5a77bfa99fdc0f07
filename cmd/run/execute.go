package run

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fleetops/fleetops/pkg/alerting"
	"github.com/fleetops/fleetops/pkg/cmdutil"
	"github.com/fleetops/fleetops/pkg/lock"
	"github.com/fleetops/fleetops/pkg/metrics"
	"github.com/fleetops/fleetops/pkg/prettyprint"
	"github.com/fleetops/fleetops/pkg/rolling"
	"github.com/fleetops/fleetops/pkg/rolling/actions"
)

// Execute resolves the target hosts and runs action over them batch by
// batch. The batch plan is printed instead when --dry-run is given.
func Execute(ctx context.Context, f cmdutil.Factory, opts *rolling.RunOptions, action rolling.Action) error {
	logger := zap.S()

	hosts, err := f.GetResolver().Resolve(ctx, opts.Targeting.Target())
	if err != nil {
		return &rolling.PreconditionError{Reason: fmt.Sprintf("failed to resolve %s", opts.Targeting.Target()), Err: err}
	}

	if opts.DepoolCommand != "" {
		action = actions.NewPooled(logger, f.GetExecutor(), action, opts.DepoolCommand, opts.RepoolCommand)
	}

	silencer := f.GetSilencer()
	if opts.Cluster.Cluster != "" && silencer == nil {
		return &rolling.PreconditionError{Reason: "--cluster needs --alertmanager-host to silence the cluster alerts"}
	}

	recorder := metrics.NewRecorder(action.Name(), f.GetClock().Now)
	executor := rolling.NewExecutor(
		logger,
		f.GetClock(),
		silencer,
		action,
		opts.ExecutorOptions(logger, f.GetExecutor(), recorder),
	)

	if opts.DryRun {
		batches, err := executor.Plan(hosts)
		if err != nil {
			return err
		}
		fmt.Print(prettyprint.PlanToString(action.Name(), batches))
		return nil
	}

	lockName := opts.Targeting.Target().String()
	if opts.Cluster.Cluster != "" {
		lockName = opts.Cluster.Cluster
	}
	locker, err := lock.NewManager(logger, opts.LockEndpoints, lockName, alerting.Comment(opts.Task.Reason, opts.Task.TaskID))
	if err != nil {
		return err
	}
	defer func() {
		if err := locker.Close(); err != nil {
			logger.Warnf("Failed to close the lock client: %v", err)
		}
	}()

	var results *rolling.Results
	runErr := lock.WithLock(ctx, locker, func() error {
		run := func() error {
			var err error
			results, err = executor.Run(ctx, hosts)
			return err
		}

		if opts.Cluster.Cluster == "" {
			return run()
		}

		gate, err := cmdutil.NewGate(f, opts.Cluster.Cluster, opts.Task.TaskID, true)
		if err != nil {
			return err
		}
		return gate.Bracket(ctx, opts.Task.Reason, opts.Cluster.Force, opts.Cluster.WaitTimeout, run)
	})

	if opts.MetricsTextfile != "" {
		if err := recorder.WriteTextfile(opts.MetricsTextfile); err != nil {
			logger.Warnf("Failed to write metrics to %s: %v", opts.MetricsTextfile, err)
		}
	}

	if results == nil {
		return runErr
	}

	fmt.Print(prettyprint.ResultsToString(results))
	if exitCode := results.Report(logger); exitCode != 0 && runErr == nil {
		return fmt.Errorf("%s did not complete on every host", action.Name())
	}
	return runErr
}
