package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fleetops/fleetops/internal/cli"
	"github.com/fleetops/fleetops/pkg/command"
	"github.com/fleetops/fleetops/pkg/options"
	"github.com/fleetops/fleetops/pkg/profile"
)

const helpHint = "Try '--help' option for more info"

func withHelpHint(err error) error {
	return fmt.Errorf("%w\n%s", err, helpHint)
}

// PopulateProfileDefaultsAndValidate loads the active profile, so that flags
// left unset pick up its values, and then validates every options group.
func PopulateProfileDefaultsAndValidate(rootOpts *command.BaseOptions, optsArgs ...options.Options) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return withHelpHint(fmt.Errorf("free args not expected: %v", args))
		}

		err := profile.FillDefaultsFromActiveProfile(rootOpts.ProfileFile, rootOpts.ActiveProfile)
		if err != nil {
			return err
		}
		if rootOpts.ActiveProfile != "" {
			zap.S().Debugf("Using profile %s from %s", rootOpts.ActiveProfile, rootOpts.ProfileFile)
		}

		if err := options.Validate(append([]options.Options{rootOpts}, optsArgs...)...); err != nil {
			return withHelpHint(err)
		}
		return nil
	}
}

func RequireSubcommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return withHelpHint(fmt.Errorf("you have not selected a subcommand"))
	}
	return withHelpHint(fmt.Errorf("unknown subcommand %q for %s", args[0], cmd.CommandPath()))
}

func SetDefaultsOn(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().SortFlags = false
	cmd.PersistentFlags().SortFlags = false

	cobra.AddTemplateFunc("drawNiceTree", func(cmd *cobra.Command) string {
		if cmd.HasAvailableSubCommands() {
			var builder strings.Builder
			builder.WriteString("Subcommands:")
			for _, line := range cli.GenerateCommandTree(cmd, 23) {
				builder.WriteString("\n")
				builder.WriteString(line)
			}
			builder.WriteString("\n")
			return builder.String()
		}
		return ""
	})

	cobra.AddTemplateFunc("generateUsage", cli.GenerateUsage)

	cobra.AddTemplateFunc("listAllFlagsInNiceGroups", func(cmd *cobra.Command) string {
		if cmd == cmd.Root() {
			return "Global options:\n" + cli.ColorizeUsages(cmd.LocalFlags())
		}
		return strings.Join(cli.GenerateCommandOptionsMessage(cmd), "\n")
	})

	cmd.SetUsageTemplate(cli.UsageTemplate)

	return cmd
}
