package actions

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/fleetops/fleetops/pkg/confmgmt"
)

type RebootOpts struct {
	RebootTimeout time.Duration
	PollInterval  time.Duration
	WaitPuppet    bool
	RunPuppet     bool
	PuppetTimeout time.Duration
}

func (o *RebootOpts) DefineFlags(fs *pflag.FlagSet) {
	fs.DurationVar(&o.RebootTimeout, "reboot-timeout", DefaultRecoveryTimeout,
		"How long to wait for the hosts of a batch to come back after the reboot")

	fs.DurationVar(&o.PollInterval, "poll-interval", DefaultPollInterval,
		"How often the hosts are checked while waiting")

	fs.BoolVar(&o.WaitPuppet, "wait-puppet", true,
		"After the reboot, also wait for a successful puppet run that started after it")

	fs.BoolVar(&o.RunPuppet, "run-puppet", false,
		"Trigger a puppet run once the hosts are back instead of waiting for the scheduled one")

	fs.DurationVar(&o.PuppetTimeout, "puppet-timeout", confmgmt.DefaultWaitTimeout,
		"How long to wait for the puppet run")
}

func (o *RebootOpts) Validate() error {
	if o.RebootTimeout <= 0 {
		return fmt.Errorf("invalid --reboot-timeout specified: %v, must be positive", o.RebootTimeout)
	}
	if o.PollInterval <= 0 || o.PollInterval > o.RebootTimeout {
		return fmt.Errorf("invalid --poll-interval specified: %v, must be in range (0, %v]", o.PollInterval, o.RebootTimeout)
	}
	if o.RunPuppet && !o.WaitPuppet {
		return fmt.Errorf("--run-puppet needs --wait-puppet")
	}
	if o.WaitPuppet && o.PuppetTimeout <= 0 {
		return fmt.Errorf("invalid --puppet-timeout specified: %v, must be positive", o.PuppetTimeout)
	}
	return nil
}
