package command

import (
	"github.com/spf13/pflag"

	"github.com/fleetops/fleetops/pkg/options"
)

type Description struct {
	use              string
	shortDescription string
	longDescription  string
}

type BaseOptions struct {
	SSH           options.SSHOptions
	Alerting      options.AlertingOptions
	Verbose       bool
	ProfileFile   string
	ActiveProfile string
}

func (o *BaseOptions) Validate() error {
	return options.Validate(&o.SSH, &o.Alerting)
}

func (o *BaseOptions) DefineFlags(fs *pflag.FlagSet) {
	fs.StringVar(
		&o.ProfileFile, "config-file",
		"",
		"Path to config file with profile data in yaml format")

	fs.StringVar(
		&o.ActiveProfile, "profile",
		"",
		"Profile name from --config-file to take defaults, inventory and clusters from")

	o.SSH.DefineFlags(fs)
	o.Alerting.DefineFlags(fs)

	fs.BoolVar(&o.Verbose, "verbose", false, "Switches log level from INFO to DEBUG")
}

func NewDescription(use, shortDescription, longDescription string) *Description {
	return &Description{
		use:              use,
		shortDescription: shortDescription,
		longDescription:  longDescription,
	}
}

func (b *Description) GetUse() string {
	return b.use
}

func (b *Description) GetShortDescription() string {
	return b.shortDescription
}

func (b *Description) GetLongDescription() string {
	return b.longDescription
}
