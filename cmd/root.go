package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fleetops/fleetops/cmd/cluster"
	"github.com/fleetops/fleetops/cmd/maintenance"
	"github.com/fleetops/fleetops/cmd/run"
	"github.com/fleetops/fleetops/cmd/version"
	"github.com/fleetops/fleetops/pkg/cli"
	"github.com/fleetops/fleetops/pkg/cmdutil"
	"github.com/fleetops/fleetops/pkg/command"
)

var RootCommandDescription = command.NewDescription(
	"fleetops",
	"fleetops: a CLI tool for rolling maintenance of server fleets",
	`fleetops: a CLI tool for rolling maintenance of server fleets.
Reboots, restarts and upgrades hosts batch by batch, and puts clusters
in and out of maintenance around the work`,
)

type RootOptions struct {
	*command.BaseOptions
}

func (r *RootOptions) Validate() error {
	return r.BaseOptions.Validate()
}

func (r *RootOptions) DefineFlags(fs *pflag.FlagSet) {
	r.BaseOptions.DefineFlags(fs)
}

func NewRootCommand(
	logLevelSetter zap.AtomicLevel,
	logger *zap.SugaredLogger,
	boptions *command.BaseOptions,
) *cobra.Command {
	roptions := &RootOptions{
		BaseOptions: boptions,
	}

	cmd := cli.SetDefaultsOn(&cobra.Command{
		Use:   RootCommandDescription.GetUse(),
		Short: RootCommandDescription.GetShortDescription(),
		Long:  fmt.Sprintf("%s (%s)", RootCommandDescription.GetLongDescription(), version.Version()),
		// hide --completion for more compact --help
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logLevel := "info"
			if roptions.Verbose {
				logLevel = "debug"
			}

			lvc, err := zapcore.ParseLevel(logLevel)
			if err != nil {
				logger.Warn("Failed to set level")
				return err
			}
			logLevelSetter.SetLevel(lvc)

			zap.S().Debugf("Current logging level enabled: %s", logLevel)
			return nil
		},
		RunE: cli.RequireSubcommand,
	})
	roptions.DefineFlags(cmd.PersistentFlags())

	cmd.SetHelpCommand(&cobra.Command{
		Hidden: true,
	})
	cmd.SetOut(color.Output)
	cmd.SetErr(color.Error)

	return cmd
}

func InitRootCommandTree(root *cobra.Command, f cmdutil.Factory) {
	root.AddCommand(
		run.New(f),
		maintenance.New(f),
		cluster.New(f),
		version.New(),
	)
}
