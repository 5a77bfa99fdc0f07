package cluster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/fleetops/fleetops/pkg/alerting"
	"github.com/fleetops/fleetops/pkg/utils"
)

type GateOptions struct {
	SilenceDuration time.Duration
	PollInterval    time.Duration
	TaskID          string
}

func (o GateOptions) withDefaults() GateOptions {
	if o.SilenceDuration <= 0 {
		o.SilenceDuration = DefaultSilenceDuration
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	return o
}

// Gate moves a cluster in and out of maintenance: alert silences plus the
// backend's maintenance flags. Silences are always created before flags are
// set and released after flags are unset.
type Gate struct {
	logger   *zap.SugaredLogger
	backend  Backend
	silencer alerting.Silencer
	clock    clockwork.Clock
	opts     GateOptions
}

func NewGate(
	logger *zap.SugaredLogger,
	backend Backend,
	silencer alerting.Silencer,
	clock clockwork.Clock,
	opts GateOptions,
) *Gate {
	return &Gate{
		logger:   logger,
		backend:  backend,
		silencer: silencer,
		clock:    clock,
		opts:     opts.withDefaults(),
	}
}

// EnterMaintenance returns the created silences even when it fails after
// creating them, so the caller can release them.
func (g *Gate) EnterMaintenance(ctx context.Context, reason string, force bool) ([]alerting.SilenceID, error) {
	name := g.backend.Name()

	silenceID, err := g.silencer.AddSilence(
		ctx,
		g.backend.AlertMatchers(),
		g.opts.SilenceDuration,
		alerting.Comment(reason, g.opts.TaskID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to silence alerts of cluster %s: %w", name, err)
	}
	silences := []alerting.SilenceID{silenceID}
	g.logger.Infof("Silenced alerts of cluster %s (silence %s)", name, silenceID)

	snapshot, err := g.backend.Snapshot(ctx)
	if err != nil {
		return silences, err
	}

	if snapshot.IsJustMaintenance() {
		g.logger.Infof("Cluster %s is already in maintenance, not touching flags", name)
		return silences, nil
	}

	if !snapshot.IsHealthy() {
		if !force {
			return silences, &ClusterUnhealthyError{Cluster: name, Operation: "enter maintenance", Snapshot: snapshot}
		}
		g.logger.Warnf("Cluster %s is not healthy, forcing maintenance anyway: %s", name, snapshot)
	}

	present := snapshot.Flags()
	for _, flag := range g.backend.MaintenanceFlags() {
		if hasFlag(present, flag) {
			g.logger.Debugf("Flag %s already set on cluster %s", flag, name)
			continue
		}
		if err := g.backend.SetFlag(ctx, flag); err != nil {
			return silences, err
		}
		g.logger.Infof("Set flag %s on cluster %s", flag, name)
	}

	g.logger.Infof("Cluster %s is in maintenance", name)
	return silences, nil
}

// ExitMaintenance unsets the maintenance flags and releases silences. With no
// silences given, every silence matching the cluster alert matchers is
// released. An unhealthy cluster without force is left untouched, silences
// included.
func (g *Gate) ExitMaintenance(ctx context.Context, silences []alerting.SilenceID, force bool) error {
	name := g.backend.Name()

	snapshot, err := g.backend.Snapshot(ctx)
	if err != nil {
		return err
	}

	justMaintenance := snapshot.IsJustMaintenance()
	if !snapshot.IsHealthy() && !justMaintenance && !force {
		return &ClusterUnhealthyError{Cluster: name, Operation: "exit maintenance", Snapshot: snapshot}
	}

	var flagsErr error
	if justMaintenance {
		flagsErr = g.unsetMaintenanceFlags(ctx, snapshot.Flags())
	} else {
		g.logger.Infof("Cluster %s already out of maintenance", name)
	}

	return multierr.Append(flagsErr, g.releaseSilences(ctx, silences))
}

func (g *Gate) unsetMaintenanceFlags(ctx context.Context, present []Flag) error {
	for _, flag := range g.backend.MaintenanceFlags() {
		if !hasFlag(present, flag) {
			continue
		}
		if err := g.backend.UnsetFlag(ctx, flag); err != nil {
			return err
		}
		g.logger.Infof("Unset flag %s on cluster %s", flag, g.backend.Name())
	}
	return nil
}

func (g *Gate) releaseSilences(ctx context.Context, silences []alerting.SilenceID) error {
	var err error
	if len(silences) == 0 {
		err = alerting.ExpireMatching(ctx, g.logger, g.silencer, g.backend.AlertMatchers())
	} else {
		err = g.silencer.ExpireSilences(ctx, silences)
	}
	if err != nil {
		return fmt.Errorf("failed to release silences of cluster %s: %w", g.backend.Name(), err)
	}
	return nil
}

func (g *Gate) poll(
	ctx context.Context,
	timeout time.Duration,
	waitingFor string,
	done func(Snapshot) bool,
) error {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	start := g.clock.Now()

	for {
		snapshot, err := g.backend.Snapshot(ctx)
		if err != nil {
			return err
		}
		if done(snapshot) {
			return nil
		}
		if g.clock.Since(start) >= timeout {
			return &ClusterTimeoutError{
				Cluster:    g.backend.Name(),
				WaitingFor: waitingFor,
				Timeout:    timeout,
				Snapshot:   snapshot,
			}
		}
		if err := utils.Sleep(ctx, g.clock, g.opts.PollInterval); err != nil {
			return err
		}
	}
}

func (g *Gate) WaitForClusterHealthy(ctx context.Context, timeout time.Duration, maintenanceCountsAsHealthy bool) error {
	name := g.backend.Name()
	g.logger.Infof("Waiting for cluster %s to become healthy", name)

	return g.poll(ctx, timeout, "a healthy status", func(snapshot Snapshot) bool {
		if snapshot.IsHealthy() {
			g.logger.Infof("Cluster %s is healthy", name)
			return true
		}
		if maintenanceCountsAsHealthy && snapshot.IsJustMaintenance() {
			g.logger.Infof("Cluster %s is healthy apart from maintenance flags", name)
			return true
		}
		g.logger.Debugf("Cluster %s not healthy yet: %s", name, snapshot)
		return false
	})
}

func (g *Gate) WaitForInProgressEvents(ctx context.Context, timeout time.Duration) error {
	name := g.backend.Name()

	return g.poll(ctx, timeout, "in-progress events to finish", func(snapshot Snapshot) bool {
		events := snapshot.InProgress()
		if len(events) == 0 {
			g.logger.Infof("No in-progress events on cluster %s", name)
			return true
		}
		g.logger.Infof(
			"Waiting for %d in-progress events on cluster %s, mean progress %.2f%%",
			len(events),
			name,
			MeanProgress(events),
		)
		return false
	})
}

// Bracket runs fn with the cluster in maintenance. After a successful fn the
// cluster must become healthy (maintenance flags allowed) within timeout
// before maintenance is exited. If anything fails the flags are left as they
// are for an operator to inspect, the silences created on entry are released.
func (g *Gate) Bracket(ctx context.Context, reason string, force bool, timeout time.Duration, fn func() error) error {
	name := g.backend.Name()

	silences, err := g.EnterMaintenance(ctx, reason, force)
	if err != nil {
		return multierr.Append(
			fmt.Errorf("failed to put cluster %s in maintenance: %w", name, err),
			g.ReleaseOwned(ctx, silences),
		)
	}

	if err := fn(); err != nil {
		g.logger.Warnf("Operation failed, leaving the maintenance flags of cluster %s in place", name)
		return multierr.Append(err, g.ReleaseOwned(ctx, silences))
	}

	if err := g.WaitForClusterHealthy(ctx, timeout, true); err != nil {
		return multierr.Append(err, g.ReleaseOwned(ctx, silences))
	}

	err = g.ExitMaintenance(ctx, silences, force)
	var unhealthy *ClusterUnhealthyError
	if errors.As(err, &unhealthy) {
		return multierr.Append(err, g.ReleaseOwned(ctx, silences))
	}
	return err
}

// ReleaseOwned releases exactly the given silences and never falls back to
// matching, so nothing created by someone else is expired.
func (g *Gate) ReleaseOwned(ctx context.Context, silences []alerting.SilenceID) error {
	if len(silences) == 0 {
		return nil
	}
	return g.releaseSilences(context.WithoutCancel(ctx), silences)
}
