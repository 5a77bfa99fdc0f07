package run

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fleetops/fleetops/pkg/cli"
	"github.com/fleetops/fleetops/pkg/cmdutil"
	"github.com/fleetops/fleetops/pkg/command"
	"github.com/fleetops/fleetops/pkg/options"
	"github.com/fleetops/fleetops/pkg/rolling"
	"github.com/fleetops/fleetops/pkg/rolling/actions"
)

var RunCommandDescription = command.NewDescription(
	"run",
	"Apply a disruptive action to a set of hosts, batch by batch",
	`fleetops run [action]:
  Resolve the hosts from --alias or --query, split them into batches of
  --batch-size and apply the action to one batch at a time. Every batch is
  silenced in alertmanager for --downtime, checked with the pre and post
  scripts and must fully recover before the next one starts.

  The first failing batch aborts the run. Failed and untouched hosts are
  printed and the exit code is 1.

  With --cluster the whole run happens with the cluster in maintenance.`,
)

var (
	RebootCommandDescription = command.NewDescription(
		"reboot",
		"Reboot the hosts",
		`fleetops run reboot:
  Reboot every host of a batch and wait until it booted again.
  Unless --wait-puppet=false, also wait for a successful puppet run
  that started after the reboot.`,
	)

	RestartDaemonsCommandDescription = command.NewDescription(
		"restart-daemons",
		"Restart systemd units on the hosts",
		`fleetops run restart-daemons:
  Restart the --daemons units in order on every host of a batch and wait
  until they are all active again.

  With --ignore-restart-errors only running units are restarted and the
  outcome is not verified.`,
	)

	UpgradeCommandDescription = command.NewDescription(
		"upgrade",
		"Install or upgrade packages on the hosts",
		`fleetops run upgrade:
  Install the --packages with apt-get on every host of a batch and verify
  the installed versions, against --min-version when given.`,
	)

	PayloadCommandDescription = command.NewDescription(
		"payload",
		"Run an arbitrary executable in the context of the local machine",
		`fleetops run payload:
  Run an arbitrary executable (e.g. shell code) on the local machine, once
  per host of a batch. If you want to execute ssh commands on the host,
  you must write ssh commands yourself.

  The host is treated as done when the executable finishes with a zero
  exit code. The executable owns any waiting.

  Certain environment variable will be passed to your executable on each run:
    $HOSTNAME: the fqdn of the host currently processed.`,
	)

	K8sPodsCommandDescription = command.NewDescription(
		"k8s-pods",
		"Restart Kubernetes pods",
		`fleetops run k8s-pods:
  Delete the pods of a batch, addressed by name or by
  <hostname>.<subdomain>.<namespace>.svc.cluster.local, and wait until
  their controller brings new pods to the Running phase.`,
	)
)

type actionBuilder func(f cmdutil.Factory, opts *rolling.RunOptions) (rolling.Action, error)

func newActionCommand(
	f cmdutil.Factory,
	description *command.Description,
	actionOpts options.Options,
	build actionBuilder,
) *cobra.Command {
	opts := &Options{Action: actionOpts}

	cmd := cli.SetDefaultsOn(&cobra.Command{
		Use:     description.GetUse(),
		Short:   description.GetShortDescription(),
		Long:    description.GetLongDescription(),
		PreRunE: cli.PopulateProfileDefaultsAndValidate(f.GetBaseOptions(), opts),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("free args not expected: %v", args)
			}

			action, err := build(f, &opts.Run)
			if err != nil {
				return err
			}
			return Execute(cmd.Context(), f, &opts.Run, action)
		},
	})

	opts.DefineFlags(cmd.Flags())
	return cmd
}

func New(f cmdutil.Factory) *cobra.Command {
	cmd := cli.SetDefaultsOn(&cobra.Command{
		Use:   RunCommandDescription.GetUse(),
		Short: RunCommandDescription.GetShortDescription(),
		Long:  RunCommandDescription.GetLongDescription(),
		RunE:  cli.RequireSubcommand,
	})

	rebootOpts := &actions.RebootOpts{}
	restartOpts := &actions.RestartDaemonsOpts{}
	upgradeOpts := &actions.UpgradeOpts{}
	payloadOpts := &actions.PayloadOpts{}
	k8sOpts := &actions.K8sPodsOpts{}

	cmd.AddCommand(
		newActionCommand(f, RebootCommandDescription, rebootOpts,
			func(f cmdutil.Factory, _ *rolling.RunOptions) (rolling.Action, error) {
				return actions.NewReboot(zap.S(), f.GetExecutor(), f.GetClock(), rebootOpts), nil
			}),
		newActionCommand(f, RestartDaemonsCommandDescription, restartOpts,
			func(f cmdutil.Factory, runOpts *rolling.RunOptions) (rolling.Action, error) {
				return actions.NewRestartDaemons(zap.S(), f.GetExecutor(), f.GetClock(), restartOpts, runOpts.Task.Reason), nil
			}),
		newActionCommand(f, UpgradeCommandDescription, upgradeOpts,
			func(f cmdutil.Factory, _ *rolling.RunOptions) (rolling.Action, error) {
				return actions.NewUpgrade(zap.S(), f.GetExecutor(), f.GetClock(), upgradeOpts), nil
			}),
		newActionCommand(f, PayloadCommandDescription, payloadOpts,
			func(cmdutil.Factory, *rolling.RunOptions) (rolling.Action, error) {
				return actions.NewPayload(zap.S(), payloadOpts), nil
			}),
		newActionCommand(f, K8sPodsCommandDescription, k8sOpts,
			func(f cmdutil.Factory, _ *rolling.RunOptions) (rolling.Action, error) {
				client, err := actions.NewK8sClient(k8sOpts.KubeconfigPath)
				if err != nil {
					return nil, err
				}
				return actions.NewK8sPods(zap.S(), client, f.GetClock(), k8sOpts), nil
			}),
	)

	return cmd
}
