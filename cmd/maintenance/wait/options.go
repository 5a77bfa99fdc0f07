package wait

import (
	"context"

	"github.com/spf13/pflag"

	"github.com/fleetops/fleetops/pkg/cmdutil"
	"github.com/fleetops/fleetops/pkg/options"
)

type Options struct {
	Cluster options.RequiredClusterOptions
	// MaintenanceIsHealthy is only used by wait-healthy.
	MaintenanceIsHealthy bool
}

func (o *Options) DefineFlags(fs *pflag.FlagSet) {
	o.Cluster.DefineFlags(fs)
}

func (o *Options) Validate() error {
	return o.Cluster.Validate()
}

func (o *Options) RunHealthy(ctx context.Context, f cmdutil.Factory) error {
	gate, err := cmdutil.NewGate(f, o.Cluster.Cluster, "", false)
	if err != nil {
		return err
	}
	return gate.WaitForClusterHealthy(ctx, o.Cluster.WaitTimeout, o.MaintenanceIsHealthy)
}

func (o *Options) RunEvents(ctx context.Context, f cmdutil.Factory) error {
	gate, err := cmdutil.NewGate(f, o.Cluster.Cluster, "", false)
	if err != nil {
		return err
	}
	return gate.WaitForInProgressEvents(ctx, o.Cluster.WaitTimeout)
}
