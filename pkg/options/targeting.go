package options

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/fleetops/fleetops/pkg/hostset"
)

type TargetingOptions struct {
	Alias string
	Query string
}

func (o *TargetingOptions) DefineFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Alias, "alias", "",
		"Name of a host alias from the inventory of the active profile")

	fs.StringVar(&o.Query, "query", "",
		`Comma-delimited list of hosts or globs matched against the inventory hosts.
Numeric ranges are expanded. E.g.: '--query=cephosd[1001-1004].example.org,cloudvirt*'`)
}

func (o *TargetingOptions) Validate() error {
	if o.Alias != "" && o.Query != "" {
		return fmt.Errorf("--alias and --query are mutually exclusive")
	}
	if o.Alias == "" && o.Query == "" {
		return fmt.Errorf("please specify either --alias or --query")
	}
	return nil
}

func (o *TargetingOptions) Target() hostset.Target {
	return hostset.Target{Alias: o.Alias, Query: o.Query}
}
