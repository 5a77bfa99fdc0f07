package enter

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/fleetops/fleetops/pkg/cmdutil"
	"github.com/fleetops/fleetops/pkg/options"
)

type Options struct {
	Cluster options.RequiredClusterOptions
	Task    options.TaskIDOpts
}

func (o *Options) DefineFlags(fs *pflag.FlagSet) {
	o.Cluster.DefineFlags(fs)
	o.Task.DefineFlags(fs)
}

func (o *Options) Validate() error {
	return options.Validate(&o.Cluster, &o.Task)
}

func (o *Options) Run(ctx context.Context, f cmdutil.Factory) error {
	gate, err := cmdutil.NewGate(f, o.Cluster.Cluster, o.Task.TaskID, true)
	if err != nil {
		return err
	}

	silences, err := gate.EnterMaintenance(ctx, o.Task.Reason, o.Cluster.Force)
	for _, silence := range silences {
		fmt.Printf("Created silence: %s\n", silence)
	}
	if err != nil {
		return err
	}

	fmt.Printf(
		"Cluster %s is in maintenance, task id:\n\n%s\n\nPass the silence ids to 'fleetops maintenance exit --silence-ids' later.\n",
		o.Cluster.Cluster,
		o.Task.TaskID,
	)
	return nil
}
