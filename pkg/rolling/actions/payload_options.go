package actions

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/fleetops/fleetops/pkg/utils"
)

type PayloadOpts struct {
	PayloadFilepath string
	Parallelism     int
}

func (o *PayloadOpts) DefineFlags(fs *pflag.FlagSet) {
	fs.StringVar(
		&o.PayloadFilepath,
		"payload",
		"",
		"File path to arbitrary executable to run in the context of the local machine",
	)

	fs.IntVar(&o.Parallelism, "payload-parallelism", 1,
		"How many payload processes of a batch run at the same time")
}

func (o *PayloadOpts) Validate() error {
	if o.PayloadFilepath == "" {
		return fmt.Errorf("empty --payload specified")
	}
	if err := utils.CheckExecutable(o.PayloadFilepath); err != nil {
		return fmt.Errorf("invalid --payload: %w", err)
	}
	if o.Parallelism < 1 {
		return fmt.Errorf("invalid --payload-parallelism specified: %d, must be positive", o.Parallelism)
	}
	return nil
}
