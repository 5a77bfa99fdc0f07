package exit

import (
	"context"

	"github.com/spf13/pflag"

	"github.com/fleetops/fleetops/internal/collections"
	"github.com/fleetops/fleetops/pkg/alerting"
	"github.com/fleetops/fleetops/pkg/cmdutil"
	"github.com/fleetops/fleetops/pkg/options"
)

type Options struct {
	Cluster    options.RequiredClusterOptions
	SilenceIDs []string
}

func (o *Options) DefineFlags(fs *pflag.FlagSet) {
	o.Cluster.DefineFlags(fs)
	fs.StringSliceVar(&o.SilenceIDs, "silence-ids", nil,
		"Comma-delimited silences to release. By default every silence matching the cluster alerts is released")
}

func (o *Options) Validate() error {
	return o.Cluster.Validate()
}

func (o *Options) Run(ctx context.Context, f cmdutil.Factory) error {
	gate, err := cmdutil.NewGate(f, o.Cluster.Cluster, "", true)
	if err != nil {
		return err
	}

	silences := collections.Convert(o.SilenceIDs, func(id string) alerting.SilenceID { return alerting.SilenceID(id) })
	return gate.ExitMaintenance(ctx, silences, o.Cluster.Force)
}
