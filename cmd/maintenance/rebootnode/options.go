package rebootnode

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/fleetops/fleetops/pkg/alerting"
	"github.com/fleetops/fleetops/pkg/cluster"
	"github.com/fleetops/fleetops/pkg/cmdutil"
	"github.com/fleetops/fleetops/pkg/hostset"
	"github.com/fleetops/fleetops/pkg/options"
	"github.com/fleetops/fleetops/pkg/procedure"
	"github.com/fleetops/fleetops/pkg/rolling"
	"github.com/fleetops/fleetops/pkg/rolling/actions"
)

type Options struct {
	Cluster  options.RequiredClusterOptions
	Task     options.TaskIDOpts
	Reboot   actions.RebootOpts
	Host     string
	Downtime time.Duration
}

func (o *Options) DefineFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Host, "host", "", "The cluster node to reboot")
	fs.DurationVar(&o.Downtime, "downtime", rolling.DefaultDowntimeDuration,
		"How long the alerts of the node are silenced")

	o.Cluster.DefineFlags(fs)
	o.Task.DefineFlags(fs)
	o.Reboot.DefineFlags(fs)
}

func (o *Options) Validate() error {
	if o.Host == "" {
		return fmt.Errorf("please specify --host")
	}
	if o.Downtime <= 0 {
		return fmt.Errorf("invalid --downtime specified: %v, must be positive", o.Downtime)
	}
	return options.Validate(&o.Cluster, &o.Task, &o.Reboot)
}

// Procedure reboots one node with its cluster in maintenance. Steps that
// completed before a failure are undone in reverse order.
func (o *Options) Procedure(f cmdutil.Factory, gate *cluster.Gate) *procedure.Procedure {
	logger := zap.S()
	silencer := f.GetSilencer()
	reboot := actions.NewReboot(logger, f.GetExecutor(), f.GetClock(), &o.Reboot)
	batch := hostset.Batch{Index: 1, Total: 1, Hosts: hostset.New(o.Host)}
	comment := alerting.Comment(o.Task.Reason, o.Task.TaskID)

	var (
		clusterSilences []alerting.SilenceID
		hostSilence     alerting.SilenceID
		rebootedAt      time.Time
	)

	return procedure.New(logger, fmt.Sprintf("reboot %s", o.Host),
		procedure.Step{
			Name: "enter cluster maintenance",
			Do: func(ctx context.Context) error {
				var err error
				clusterSilences, err = gate.EnterMaintenance(ctx, o.Task.Reason, o.Cluster.Force)
				if err != nil {
					// the step is not marked done, so Undo will not release these
					return multierr.Append(err, gate.ReleaseOwned(ctx, clusterSilences))
				}
				return nil
			},
			Undo: func(ctx context.Context) error {
				return gate.ExitMaintenance(ctx, clusterSilences, o.Cluster.Force)
			},
		},
		procedure.Step{
			Name: "downtime host",
			Do: func(ctx context.Context) error {
				var err error
				hostSilence, err = alerting.DowntimeHosts(ctx, silencer, []string{o.Host}, o.Downtime, comment)
				return err
			},
			Undo: func(ctx context.Context) error {
				return silencer.ExpireSilences(ctx, []alerting.SilenceID{hostSilence})
			},
		},
		procedure.Step{
			Name: "reboot",
			Do: func(ctx context.Context) error {
				rebootedAt = f.GetClock().Now()
				return reboot.Act(ctx, batch)
			},
		},
		procedure.Step{
			Name: "wait for the host to recover",
			Do: func(ctx context.Context) error {
				return reboot.Recover(ctx, batch, rebootedAt)
			},
		},
		procedure.Step{
			Name: "wait for the cluster to be healthy",
			Do: func(ctx context.Context) error {
				return gate.WaitForClusterHealthy(ctx, o.Cluster.WaitTimeout, true)
			},
		},
		procedure.Step{
			Name: "exit cluster maintenance",
			Do: func(ctx context.Context) error {
				return gate.ExitMaintenance(ctx, clusterSilences, o.Cluster.Force)
			},
		},
		procedure.Step{
			Name: "uptime host",
			Do: func(ctx context.Context) error {
				return alerting.UptimeHosts(ctx, logger, silencer, []string{o.Host})
			},
		},
	)
}

func (o *Options) Run(ctx context.Context, f cmdutil.Factory) error {
	gate, err := cmdutil.NewGate(f, o.Cluster.Cluster, o.Task.TaskID, true)
	if err != nil {
		return err
	}
	return o.Procedure(f, gate).Run(ctx)
}
