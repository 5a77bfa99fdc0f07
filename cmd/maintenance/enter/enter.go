package enter

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetops/fleetops/pkg/cli"
	"github.com/fleetops/fleetops/pkg/cmdutil"
)

func New(f cmdutil.Factory) *cobra.Command {
	opts := &Options{}

	cmd := cli.SetDefaultsOn(&cobra.Command{
		Use:   "enter",
		Short: "Put a cluster in maintenance",
		Long: `fleetops maintenance enter:
  Silence the alerts of the cluster and set its maintenance flags.
  A cluster that is not healthy is refused unless --force is given,
  a cluster already in maintenance is left as it is.`,
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
