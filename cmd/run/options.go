package run

import (
	"github.com/spf13/pflag"

	"github.com/fleetops/fleetops/pkg/options"
	"github.com/fleetops/fleetops/pkg/rolling"
)

// Options are the rolling flags plus the flags of one action.
type Options struct {
	Run    rolling.RunOptions
	Action options.Options
}

func (o *Options) DefineFlags(fs *pflag.FlagSet) {
	o.Run.DefineFlags(fs)
	o.Action.DefineFlags(fs)
}

func (o *Options) Validate() error {
	return options.Validate(&o.Run, o.Action)
}
