package actions

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

const DefaultActiveTimeout = 5 * time.Minute

type RestartDaemonsOpts struct {
	Daemons             []string
	IgnoreRestartErrors bool
	DisablePuppet       bool
	ActiveTimeout       time.Duration
	PollInterval        time.Duration
}

func (o *RestartDaemonsOpts) DefineFlags(fs *pflag.FlagSet) {
	fs.StringSliceVar(&o.Daemons, "daemons", nil,
		"Comma-delimited systemd units to restart, in order")

	fs.BoolVar(&o.IgnoreRestartErrors, "ignore-restart-errors", false,
		"Only restart the units that are running and ignore failures")

	fs.BoolVar(&o.DisablePuppet, "disable-puppet", false,
		"Disable puppet on the batch hosts while restarting")

	fs.DurationVar(&o.ActiveTimeout, "active-timeout", DefaultActiveTimeout,
		"How long to wait for the units to be active again")

	fs.DurationVar(&o.PollInterval, "poll-interval", DefaultPollInterval,
		"How often the units are checked while waiting")
}

func (o *RestartDaemonsOpts) Validate() error {
	if len(o.Daemons) == 0 {
		return fmt.Errorf("please specify at least one unit in --daemons")
	}
	if o.ActiveTimeout <= 0 {
		return fmt.Errorf("invalid --active-timeout specified: %v, must be positive", o.ActiveTimeout)
	}
	if o.PollInterval <= 0 {
		return fmt.Errorf("invalid --poll-interval specified: %v, must be positive", o.PollInterval)
	}
	return nil
}
