package options

import (
	"github.com/spf13/pflag"

	"github.com/fleetops/fleetops/pkg/profile"
)

type AlertingOptions struct {
	AlertmanagerHost string
}

func (o *AlertingOptions) DefineFlags(fs *pflag.FlagSet) {
	profile.PopulateFromProfileLater(
		fs.StringVar, &o.AlertmanagerHost, "alertmanager-host",
		"",
		`[can specify in profile] Host where amtool is run to silence alerts.
Without it no downtimes are scheduled`)
}

func (o *AlertingOptions) Validate() error {
	return nil
}

func (o *AlertingOptions) Enabled() bool {
	return o.AlertmanagerHost != ""
}
