package actions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blang/semver"
	"github.com/jonboulle/clockwork"
	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/fleetops/fleetops/internal/collections"
	"github.com/fleetops/fleetops/pkg/hostset"
	"github.com/fleetops/fleetops/pkg/remote"
)

// ParseDebianVersion extracts the semantic upstream version out of a Debian
// package version: 2:17.2.7-1~bpo12+1 gives 17.2.7.
func ParseDebianVersion(raw string) (semver.Version, error) {
	upstream := strings.TrimSpace(raw)
	if epoch := strings.Index(upstream, ":"); epoch >= 0 {
		upstream = upstream[epoch+1:]
	}
	if revision := strings.LastIndex(upstream, "-"); revision >= 0 {
		upstream = upstream[:revision]
	}
	if tilde := strings.Index(upstream, "~"); tilde >= 0 {
		upstream = upstream[:tilde]
	}

	version, err := semver.ParseTolerant(upstream)
	if err != nil {
		return semver.Version{}, fmt.Errorf("failed to parse package version %q: %w", raw, err)
	}
	return version, nil
}

func InstallCommand(packages []string) string {
	args := []string{
		"apt-get", "install", "--yes", "--quiet",
		"-o", "Dpkg::Options::=--force-confdef",
		"-o", "Dpkg::Options::=--force-confold",
	}
	return "DEBIAN_FRONTEND=noninteractive " + shellquote.Join(append(args, packages...)...)
}

func InstalledVersionCommand(pkg string) string {
	return shellquote.Join("dpkg-query", "--show", "--showformat=${Version}", pkg)
}

type Upgrade struct {
	logger   *zap.SugaredLogger
	executor remote.Executor
	clock    clockwork.Clock
	opts     *UpgradeOpts
}

func NewUpgrade(logger *zap.SugaredLogger, executor remote.Executor, clock clockwork.Clock, opts *UpgradeOpts) *Upgrade {
	return &Upgrade{
		logger:   logger,
		executor: executor,
		clock:    clock,
		opts:     opts,
	}
}

func (u *Upgrade) Name() string {
	return "upgrade"
}

func (u *Upgrade) Act(ctx context.Context, batch hostset.Batch) error {
	hosts := batch.Hosts.Hosts()
	if _, err := u.executor.Run(ctx, hosts, "apt-get update --quiet", remote.AsRoot(), remote.Quiet()); err != nil {
		return fmt.Errorf("failed to update package lists: %w", err)
	}

	u.logger.Infof("Installing %s on %s", strings.Join(u.opts.Packages, ","), batch.Hosts)
	_, err := u.executor.Run(ctx, hosts, InstallCommand(u.opts.Packages), remote.AsRoot())
	return err
}

// Recover checks every package is installed, at least at the minimum version
// when one is requested.
func (u *Upgrade) Recover(ctx context.Context, batch hostset.Batch, _ time.Time) error {
	hosts := batch.Hosts.Hosts()
	return waitFor(ctx, u.clock, u.opts.VerifyTimeout, u.opts.PollInterval, func() error {
		pending := hostset.New()
		for _, pkg := range packageNames(u.opts.Packages) {
			lagging, err := pendingHosts(ctx, u.executor, hosts, InstalledVersionCommand(pkg), u.satisfies, remote.Quiet())
			if err != nil {
				return err
			}
			for _, host := range lagging {
				pending.Add(host)
			}
		}

		if pending.Len() > 0 {
			return &NotReadyError{
				Condition: fmt.Sprintf("%s at %s", strings.Join(packageNames(u.opts.Packages), ","), u.wanted()),
				Hosts:     pending.Hosts(),
			}
		}
		return nil
	})
}

func (u *Upgrade) satisfies(output string) bool {
	if u.opts.MinVersion == nil {
		return strings.TrimSpace(output) != ""
	}
	installed, err := ParseDebianVersion(output)
	if err != nil {
		u.logger.Warnf("%v", err)
		return false
	}
	return installed.GTE(*u.opts.MinVersion)
}

func (u *Upgrade) wanted() string {
	if u.opts.MinVersion == nil {
		return "any version"
	}
	return ">=" + u.opts.MinVersion.String()
}

func packageNames(packages []string) []string {
	return collections.Convert(packages, func(pkg string) string {
		name, _, _ := strings.Cut(pkg, "=")
		return name
	})
}
