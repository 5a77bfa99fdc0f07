package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/fleetops/fleetops/pkg/cluster"
)

type ClusterOptions struct {
	Cluster     string
	Force       bool
	WaitTimeout time.Duration
}

func (o *ClusterOptions) DefineFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Cluster, "cluster", "",
		"Name of a cluster from the active profile")

	fs.BoolVar(&o.Force, "force", false,
		"Proceed even if the cluster is not healthy")

	fs.DurationVar(&o.WaitTimeout, "cluster-wait-timeout", cluster.DefaultWaitTimeout,
		"How long to wait for the cluster to become healthy")
}

func (o *ClusterOptions) Validate() error {
	if o.WaitTimeout <= 0 {
		return fmt.Errorf("invalid --cluster-wait-timeout specified: %v, must be positive", o.WaitTimeout)
	}
	return nil
}

// RequiredClusterOptions is ClusterOptions for commands that cannot work without a cluster.
type RequiredClusterOptions struct {
	ClusterOptions
}

func (o *RequiredClusterOptions) Validate() error {
	if o.Cluster == "" {
		return fmt.Errorf("please specify --cluster")
	}
	return o.ClusterOptions.Validate()
}
