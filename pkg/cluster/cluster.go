package cluster

import (
	"context"
	"time"
)

// Flag is a named cluster-wide switch, e.g. Ceph's noout.
type Flag string

// ProgressEvent is a background operation that reports a completion
// fraction in [0, 1], such as a rebalance.
type ProgressEvent struct {
	ID       string
	Message  string
	Progress float64
}

// Snapshot is a point-in-time view of cluster health.
type Snapshot interface {
	IsHealthy() bool
	// IsJustMaintenance reports whether the only deviation from a healthy
	// state is the set of maintenance flags.
	IsJustMaintenance() bool
	Flags() []Flag
	InProgress() []ProgressEvent
	String() string
}

// Backend is the cluster specific part of the maintenance gate. SetFlag and
// UnsetFlag return a *FlagSetError when the confirmation does not match.
type Backend interface {
	Name() string
	Snapshot(ctx context.Context) (Snapshot, error)
	SetFlag(ctx context.Context, flag Flag) error
	UnsetFlag(ctx context.Context, flag Flag) error
	// MaintenanceFlags are set in this order on entry and unset in the
	// same order on exit.
	MaintenanceFlags() []Flag
	AlertMatchers() []string
}

const (
	DefaultPollInterval    = 10 * time.Second
	DefaultWaitTimeout     = 600 * time.Second
	DefaultSilenceDuration = 4 * time.Hour
)

func MeanProgress(events []ProgressEvent) float64 {
	if len(events) == 0 {
		return 100
	}
	sum := 0.0
	for _, event := range events {
		sum += event.Progress
	}
	return sum * 100 / float64(len(events))
}

func hasFlag(flags []Flag, flag Flag) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}
