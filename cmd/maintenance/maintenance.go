package maintenance

import (
	"github.com/spf13/cobra"

	"github.com/fleetops/fleetops/cmd/maintenance/enter"
	"github.com/fleetops/fleetops/cmd/maintenance/exit"
	"github.com/fleetops/fleetops/cmd/maintenance/rebootnode"
	"github.com/fleetops/fleetops/cmd/maintenance/wait"
	"github.com/fleetops/fleetops/pkg/cli"
	"github.com/fleetops/fleetops/pkg/cmdutil"
)

func New(f cmdutil.Factory) *cobra.Command {
	cmd := cli.SetDefaultsOn(&cobra.Command{
		Use:   "maintenance",
		Short: "Put a cluster in and out of maintenance",
		Long: `fleetops maintenance [command]:
    Manage cluster maintenance: silence the cluster alerts and set the
    maintenance flags, wait for the cluster to settle, take the cluster
    out of maintenance again.`,
		RunE: cli.RequireSubcommand,
	})

	cmd.AddCommand(
		enter.New(f),
		exit.New(f),
		wait.NewHealthy(f),
		wait.NewEvents(f),
		rebootnode.New(f),
	)

	return cmd
}
