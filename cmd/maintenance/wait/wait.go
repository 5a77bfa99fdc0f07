package wait

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetops/fleetops/pkg/cli"
	"github.com/fleetops/fleetops/pkg/cmdutil"
)

func NewHealthy(f cmdutil.Factory) *cobra.Command {
	opts := &Options{}

	cmd := cli.SetDefaultsOn(&cobra.Command{
		Use:   "wait-healthy",
		Short: "Wait for a cluster to become healthy",
		Long: `fleetops maintenance wait-healthy:
  Poll the cluster status until it is healthy. Fails after
  --cluster-wait-timeout and prints the last status seen.`,
		PreRunE: cli.PopulateProfileDefaultsAndValidate(
			f.GetBaseOptions(), opts,
		),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("free args not expected: %v", args)
			}
			return opts.RunHealthy(cmd.Context(), f)
		},
	})

	opts.DefineFlags(cmd.PersistentFlags())
	cmd.PersistentFlags().BoolVar(&opts.MaintenanceIsHealthy, "maintenance-is-healthy", false,
		"Count a cluster whose only issue is the maintenance flags as healthy")

	return cmd
}

func NewEvents(f cmdutil.Factory) *cobra.Command {
	opts := &Options{}

	cmd := cli.SetDefaultsOn(&cobra.Command{
		Use:   "wait-events",
		Short: "Wait for the in-progress events of a cluster to finish",
		Long: `fleetops maintenance wait-events:
  Poll the cluster until no background operation (e.g. a rebalance) is
  in progress, logging the mean progress on the way.`,
		PreRunE: cli.PopulateProfileDefaultsAndValidate(
			f.GetBaseOptions(), opts,
		),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("free args not expected: %v", args)
			}
			return opts.RunEvents(cmd.Context(), f)
		},
	})

	opts.DefineFlags(cmd.PersistentFlags())

	return cmd
}
