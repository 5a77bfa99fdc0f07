package mock

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/fleetops/fleetops/pkg/cluster"
)

var MaintenanceFlags = []cluster.Flag{"noout", "norebalance"}

// Snapshot is an in-memory cluster.Snapshot.
type Snapshot struct {
	SetFlags []cluster.Flag
	Issues   []string
	Events   []cluster.ProgressEvent
}

func (s Snapshot) IsHealthy() bool {
	return len(s.SetFlags) == 0 && len(s.Issues) == 0
}

func (s Snapshot) IsJustMaintenance() bool {
	if len(s.Issues) > 0 || len(s.SetFlags) == 0 {
		return false
	}
	for _, flag := range s.SetFlags {
		if !slices.Contains(MaintenanceFlags, flag) {
			return false
		}
	}
	return true
}

func (s Snapshot) Flags() []cluster.Flag {
	return s.SetFlags
}

func (s Snapshot) InProgress() []cluster.ProgressEvent {
	return s.Events
}

func (s Snapshot) String() string {
	flags := make([]string, 0, len(s.SetFlags))
	for _, flag := range s.SetFlags {
		flags = append(flags, string(flag))
	}
	return fmt.Sprintf("flags=[%s] issues=[%s] events=%d", strings.Join(flags, ","), strings.Join(s.Issues, ","), len(s.Events))
}

// Backend is a stateful fake cluster. Flags toggle through SetFlag and
// UnsetFlag, BeforeSnapshot lets a test evolve the state between polls.
type Backend struct {
	mu             sync.Mutex
	flags          []cluster.Flag
	issues         []string
	events         []cluster.ProgressEvent
	snapshots      int
	FailFlag       map[cluster.Flag]error
	BeforeSnapshot func(b *Backend, call int)
	Operations     []string
}

func NewBackend() *Backend {
	return &Backend{FailFlag: map[cluster.Flag]error{}}
}

func (b *Backend) Name() string {
	return "fake"
}

func (b *Backend) MaintenanceFlags() []cluster.Flag {
	return MaintenanceFlags
}

func (b *Backend) AlertMatchers() []string {
	return []string{"service=~.*fake.*"}
}

func (b *Backend) SetIssues(issues ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.issues = issues
}

func (b *Backend) SetEvents(events ...cluster.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = events
}

func (b *Backend) SetFlags(flags ...cluster.Flag) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flags = flags
}

func (b *Backend) Snapshot(_ context.Context) (cluster.Snapshot, error) {
	b.mu.Lock()
	call := b.snapshots
	b.snapshots++
	hook := b.BeforeSnapshot
	b.mu.Unlock()

	if hook != nil {
		hook(b, call)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		SetFlags: slices.Clone(b.flags),
		Issues:   slices.Clone(b.issues),
		Events:   slices.Clone(b.events),
	}, nil
}

func (b *Backend) SetFlag(_ context.Context, flag cluster.Flag) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Operations = append(b.Operations, "set "+string(flag))
	if err := b.FailFlag[flag]; err != nil {
		return err
	}
	if !slices.Contains(b.flags, flag) {
		b.flags = append(b.flags, flag)
	}
	return nil
}

func (b *Backend) UnsetFlag(_ context.Context, flag cluster.Flag) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Operations = append(b.Operations, "unset "+string(flag))
	if err := b.FailFlag[flag]; err != nil {
		return err
	}
	b.flags = slices.DeleteFunc(b.flags, func(f cluster.Flag) bool { return f == flag })
	return nil
}

func (b *Backend) Snapshots() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshots
}

func (b *Backend) Ops() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.Operations)
}
