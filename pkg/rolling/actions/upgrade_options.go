package actions

import (
	"fmt"
	"time"

	"github.com/blang/semver"
	"github.com/spf13/pflag"
)

type UpgradeOpts struct {
	Packages      []string
	MinVersion    *semver.Version
	VerifyTimeout time.Duration
	PollInterval  time.Duration

	minVersionUnparsed string
}

func (o *UpgradeOpts) DefineFlags(fs *pflag.FlagSet) {
	fs.StringSliceVar(&o.Packages, "packages", nil,
		`Comma-delimited packages to install or upgrade. Apt version pins are allowed.
  E.g.: '--packages=ceph-osd,ceph-common=17.2.7-1~bpo12+1'`)

	fs.StringVar(&o.minVersionUnparsed, "min-version", "",
		"After the upgrade every package must be installed at this version or newer, e.g. '17.2.7'")

	fs.DurationVar(&o.VerifyTimeout, "verify-timeout", time.Minute,
		"How long to wait for the installed versions to match")

	fs.DurationVar(&o.PollInterval, "poll-interval", DefaultPollInterval,
		"How often the installed versions are checked while waiting")
}

func (o *UpgradeOpts) Validate() error {
	if len(o.Packages) == 0 {
		return fmt.Errorf("please specify at least one package in --packages")
	}

	if o.minVersionUnparsed != "" {
		version, err := semver.ParseTolerant(o.minVersionUnparsed)
		if err != nil {
			return fmt.Errorf("failed to parse --min-version: %w", err)
		}
		o.MinVersion = &version
	}

	if o.VerifyTimeout <= 0 || o.PollInterval <= 0 {
		return fmt.Errorf("--verify-timeout and --poll-interval must be positive")
	}
	return nil
}
