package version

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/fleetops/fleetops/pkg/command"
)

var ( // These variables are populated during build time using ldflags
	BuildTimestamp string
	BuildVersion   string
	BuildCommit    string
)

const unknown = "unknown"

var VersionCommandDescription = command.NewDescription(
	"version",
	"Print fleetops version",
	"Print fleetops version and other build info: git commit, build date and Go version",
)

func orUnknown(value string) string {
	if value == "" {
		return unknown
	}
	return value
}

// Version is the release tag, or "dev" for builds without ldflags.
func Version() string {
	if BuildVersion == "" {
		return "dev"
	}
	return BuildVersion
}

func New() *cobra.Command {
	short := false

	cmd := &cobra.Command{
		Use:   VersionCommandDescription.GetUse(),
		Short: VersionCommandDescription.GetShortDescription(),
		Long:  VersionCommandDescription.GetLongDescription(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("free args not expected: %v", args)
			}

			out := cmd.OutOrStdout()
			if short {
				_, err := fmt.Fprintln(out, Version())
				return err
			}

			_, err := fmt.Fprintf(
				out,
				"Tag: %s\nGit commit: %s\nBuild date: %s\nGo: %s %s/%s\n",
				Version(),
				orUnknown(BuildCommit),
				orUnknown(BuildTimestamp),
				runtime.Version(),
				runtime.GOOS,
				runtime.GOARCH,
			)
			return err
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print the version tag only")
	return cmd
}
