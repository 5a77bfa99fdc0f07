package exit

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetops/fleetops/pkg/cli"
	"github.com/fleetops/fleetops/pkg/cmdutil"
)

func New(f cmdutil.Factory) *cobra.Command {
	opts := &Options{}

	cmd := cli.SetDefaultsOn(&cobra.Command{
		Use:   "exit",
		Short: "Take a cluster out of maintenance",
		Long: `fleetops maintenance exit:
  Unset the maintenance flags of the cluster, then release the silences.
  A cluster that is unhealthy for reasons other than the maintenance
  flags is left untouched unless --force is given.`,
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
