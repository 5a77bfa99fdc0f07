package rebootnode

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetops/fleetops/pkg/cli"
	"github.com/fleetops/fleetops/pkg/cmdutil"
)

func New(f cmdutil.Factory) *cobra.Command {
	opts := &Options{}

	cmd := cli.SetDefaultsOn(&cobra.Command{
		Use:   "reboot-node",
		Short: "Reboot a single cluster node with the cluster in maintenance",
		Long: `fleetops maintenance reboot-node:
  Put the cluster in maintenance, downtime and reboot the node, wait for
  it to come back and for the cluster to be healthy, then take the
  cluster out of maintenance.

  If a step fails, the completed steps are undone in reverse order.`,
		PreRunE: cli.PopulateProfileDefaultsAndValidate(
			f.GetBaseOptions(), opts,
		),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("free args not expected: %v", args)
			}
			return opts.Run(cmd.Context(), f)
		},
	})

	opts.DefineFlags(cmd.PersistentFlags())

	return cmd
}
