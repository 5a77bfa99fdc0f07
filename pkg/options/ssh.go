package options

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/fleetops/fleetops/pkg/profile"
	"github.com/fleetops/fleetops/pkg/remote"
	"github.com/fleetops/fleetops/pkg/utils"
)

type SSHOptions struct {
	Args        []string
	Parallelism int

	rawArgs        string
	rawParallelism string
}

func (o *SSHOptions) DefineFlags(fs *pflag.FlagSet) {
	profile.PopulateFromProfileLater(
		fs.StringVar, &o.rawArgs, "ssh-args",
		"",
		`[can specify in profile] This argument will be used when ssh-ing to the hosts. It may be used to override
the ssh command itself, ssh username or any additional arguments.
Double quotes are can be escaped with backward slash '\'.
Examples:
1) --ssh-args "pssh -A -J <some jump host>"
2) --ssh-args "ssh -o ProxyCommand=\"...\""`)

	profile.PopulateFromProfileLater(
		fs.StringVar, &o.rawParallelism, "ssh-parallelism",
		strconv.Itoa(remote.DefaultParallelism),
		"[can specify in profile] How many hosts of a batch are contacted at the same time")
}

func (o *SSHOptions) Validate() error {
	args, err := utils.ParseSSHArgs(o.rawArgs)
	if err != nil {
		return fmt.Errorf("failed to parse --ssh-args: %w", err)
	}
	o.Args = args

	parallelism, err := strconv.Atoi(o.rawParallelism)
	if err != nil {
		return fmt.Errorf("failed to parse --ssh-parallelism: %w", err)
	}
	if parallelism < 1 {
		return fmt.Errorf("invalid --ssh-parallelism specified: %d, must be positive", parallelism)
	}
	o.Parallelism = parallelism

	return nil
}
