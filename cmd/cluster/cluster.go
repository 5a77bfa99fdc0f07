package cluster

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fleetops/fleetops/pkg/cli"
	"github.com/fleetops/fleetops/pkg/cmdutil"
	"github.com/fleetops/fleetops/pkg/nodetree"
	"github.com/fleetops/fleetops/pkg/prettyprint"
)

type Options struct {
	Cluster string
}

func (o *Options) DefineFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Cluster, "cluster", "", "Name of a cluster from the active profile")
}

func (o *Options) Validate() error {
	if o.Cluster == "" {
		return fmt.Errorf("please specify --cluster")
	}
	return nil
}

type treeBackend interface {
	OSDTree(ctx context.Context) (*nodetree.Node, error)
}

func (o *Options) RunStatus(ctx context.Context, f cmdutil.Factory) error {
	backend, err := f.GetCluster(o.Cluster)
	if err != nil {
		return err
	}

	snapshot, err := backend.Snapshot(ctx)
	if err != nil {
		return err
	}
	fmt.Print(prettyprint.SnapshotToString(o.Cluster, snapshot))
	return nil
}

func (o *Options) RunTree(ctx context.Context, f cmdutil.Factory) error {
	backend, err := f.GetCluster(o.Cluster)
	if err != nil {
		return err
	}

	trees, supported := backend.(treeBackend)
	if !supported {
		return fmt.Errorf("cluster %s does not expose a node tree", o.Cluster)
	}

	root, err := trees.OSDTree(ctx)
	if err != nil {
		return err
	}
	fmt.Print(prettyprint.TreeToString(root))
	return nil
}

func newSubcommand(f cmdutil.Factory, use, short, long string, run func(*Options, context.Context, cmdutil.Factory) error) *cobra.Command {
	opts := &Options{}

	cmd := cli.SetDefaultsOn(&cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		PreRunE: cli.PopulateProfileDefaultsAndValidate(
			f.GetBaseOptions(), opts,
		),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("free args not expected: %v", args)
			}
			return run(opts, cmd.Context(), f)
		},
	})

	opts.DefineFlags(cmd.PersistentFlags())
	return cmd
}

func New(f cmdutil.Factory) *cobra.Command {
	cmd := cli.SetDefaultsOn(&cobra.Command{
		Use:   "cluster",
		Short: "Inspect a cluster",
		Long: `fleetops cluster [command]:
    Read-only views of a cluster from the active profile.`,
		RunE: cli.RequireSubcommand,
	})

	cmd.AddCommand(
		newSubcommand(f, "status", "Print the cluster health",
			`fleetops cluster status:
  Print the health status, the flags and the in-progress events.`,
			(*Options).RunStatus),
		newSubcommand(f, "tree", "Print the cluster node tree",
			`fleetops cluster tree:
  Print the node tree of the cluster, e.g. the OSD tree of Ceph,
  with the class, the status and the weight of every unit.`,
			(*Options).RunTree),
	)

	return cmd
}
