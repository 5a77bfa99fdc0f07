package rolling

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/fleetops/fleetops/internal/cli"
	"github.com/fleetops/fleetops/internal/collections"
	"github.com/fleetops/fleetops/pkg/options"
	"github.com/fleetops/fleetops/pkg/remote"
	"github.com/fleetops/fleetops/pkg/utils"
)

const (
	DefaultBatchSize    = 1
	DefaultMaxBatchSize = 20
	DefaultGraceSleep   = 30 * time.Second
	MinGraceSleep       = time.Second
)

// RunOptions are the flags shared by every rolling action.
type RunOptions struct {
	Targeting options.TargetingOptions
	Task      options.TaskIDOpts
	Cluster   options.ClusterOptions

	BatchSize    int
	MaxBatchSize int
	GraceSleep   time.Duration
	Downtime     time.Duration

	PreScripts       []string
	PostScripts      []string
	RemotePreChecks  []string
	RemotePostChecks []string

	DryRun bool

	DepoolCommand string
	RepoolCommand string

	LockEndpoints   []string
	MetricsTextfile string
}

func (o *RunOptions) DefineFlags(fs *pflag.FlagSet) {
	o.Targeting.DefineFlags(fs)
	o.Task.DefineFlags(fs)

	fs.IntVar(&o.BatchSize, "batch-size", DefaultBatchSize,
		"How many hosts are acted upon at the same time")

	fs.IntVar(&o.MaxBatchSize, "max-batch-size", DefaultMaxBatchSize,
		"Upper bound for --batch-size, a guard against typos")

	fs.DurationVar(&o.GraceSleep, "grace-sleep", DefaultGraceSleep,
		fmt.Sprintf("How long to wait between batches. At least %v unless --dry-run", MinGraceSleep))

	fs.DurationVar(&o.Downtime, "downtime", DefaultDowntimeDuration,
		"How long alerts of a batch are silenced while the action runs")

	fs.StringArrayVar(&o.PreScripts, "pre-script", nil,
		`Local executable run before every batch, with the batch hosts in $HOSTS.
Exit code 0 continues, 2 is logged and ignored, anything else aborts. Repeatable`)

	fs.StringArrayVar(&o.PostScripts, "post-script", nil,
		"Local executable run after every batch, same semantics as --pre-script. Repeatable")

	fs.StringArrayVar(&o.RemotePreChecks, "remote-pre-check", nil,
		"Command run on every host of a batch before acting, same exit code semantics as --pre-script. Repeatable")

	fs.StringArrayVar(&o.RemotePostChecks, "remote-post-check", nil,
		"Command run on every host of a batch after recovery. Repeatable")

	fs.BoolVar(&o.DryRun, "dry-run", false,
		"Only print the hosts and the batches, do not touch anything")

	fs.StringVar(&o.DepoolCommand, "depool", "",
		"Command run on every host of a batch to take it out of the load balancer before acting")

	fs.StringVar(&o.RepoolCommand, "repool", "",
		"Command run on every host of a batch to put it back into the load balancer after recovery")

	o.Cluster.DefineFlags(fs)

	fs.StringSliceVar(&o.LockEndpoints, "lock-endpoints", nil,
		"Comma-delimited etcd endpoints. When set, only one run per cluster or target is allowed at a time")

	fs.StringVar(&o.MetricsTextfile, "metrics-textfile", "",
		"Write run metrics in the Prometheus text format to this file when the run ends")

	cli.SetFlagGroup(fs, "Targeting options", "alias", "query", "reason", "task-id")
	cli.SetFlagGroup(fs, "Batching options", "batch-size", "max-batch-size", "grace-sleep", "downtime", "dry-run")
	cli.SetFlagGroup(fs, "Hook options", "pre-script", "post-script", "remote-pre-check", "remote-post-check", "depool", "repool")
	cli.SetFlagGroup(fs, "Cluster options", "cluster", "force", "cluster-wait-timeout", "lock-endpoints", "metrics-textfile")
}

func (o *RunOptions) Validate() error {
	errs := []error{
		o.Targeting.Validate(),
		o.Task.Validate(),
		o.Cluster.Validate(),
	}

	if o.MaxBatchSize < 1 {
		errs = append(errs, fmt.Errorf("invalid --max-batch-size specified: %d, must be positive", o.MaxBatchSize))
	}

	if o.BatchSize < 1 || o.BatchSize > o.MaxBatchSize {
		errs = append(errs, fmt.Errorf(
			"invalid --batch-size specified: %d, must be in range [1, %d]",
			o.BatchSize,
			o.MaxBatchSize,
		))
	}

	if !o.DryRun && o.GraceSleep < MinGraceSleep {
		errs = append(errs, fmt.Errorf("invalid --grace-sleep specified: %v, must be at least %v", o.GraceSleep, MinGraceSleep))
	}

	if o.Downtime <= 0 {
		errs = append(errs, fmt.Errorf("invalid --downtime specified: %v, must be positive", o.Downtime))
	}

	for _, script := range append(append([]string{}, o.PreScripts...), o.PostScripts...) {
		if err := utils.CheckExecutable(script); err != nil {
			errs = append(errs, fmt.Errorf("invalid script: %w", err))
		}
	}

	if o.RepoolCommand != "" && o.DepoolCommand == "" {
		errs = append(errs, fmt.Errorf("--repool specified without --depool"))
	}

	return multierr.Combine(errs...)
}

// Scripts builds the pre and post batch checks, local scripts first.
func (o *RunOptions) Scripts(logger *zap.SugaredLogger, executor remote.Executor) ([]Script, []Script) {
	local := func(path string) Script { return NewLocalScript(logger, path) }
	remoteCheck := func(command string) Script { return NewRemoteScript(executor, command, command) }

	pre := append(collections.Convert(o.PreScripts, local), collections.Convert(o.RemotePreChecks, remoteCheck)...)
	post := append(collections.Convert(o.PostScripts, local), collections.Convert(o.RemotePostChecks, remoteCheck)...)
	return pre, post
}

func (o *RunOptions) ExecutorOptions(logger *zap.SugaredLogger, executor remote.Executor, observer Observer) ExecutorOptions {
	pre, post := o.Scripts(logger, executor)
	return ExecutorOptions{
		BatchSize:        o.BatchSize,
		GraceSleep:       o.GraceSleep,
		DowntimeDuration: o.Downtime,
		Reason:           o.Task.Reason,
		TaskID:           o.Task.TaskID,
		PreScripts:       pre,
		PostScripts:      post,
		Observer:         observer,
	}
}
