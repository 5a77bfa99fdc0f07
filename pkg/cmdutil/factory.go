package cmdutil

import (
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/fleetops/fleetops/pkg/alerting"
	"github.com/fleetops/fleetops/pkg/cluster"
	"github.com/fleetops/fleetops/pkg/cluster/ceph"
	"github.com/fleetops/fleetops/pkg/command"
	"github.com/fleetops/fleetops/pkg/hostset"
	"github.com/fleetops/fleetops/pkg/profile"
	"github.com/fleetops/fleetops/pkg/remote"
)

const BackendCeph = "ceph"

// Factory hands out the dependencies of the commands. Everything is built on
// first use, after flags and the profile have been parsed.
type Factory interface {
	GetBaseOptions() *command.BaseOptions
	GetExecutor() remote.Executor
	// GetSilencer returns nil when no alertmanager host is configured.
	GetSilencer() alerting.Silencer
	GetResolver() hostset.Resolver
	GetClock() clockwork.Clock
	GetCluster(name string) (cluster.Backend, error)
}

type factory struct {
	opts  *command.BaseOptions
	clock clockwork.Clock

	executorOnce sync.Once
	executor     remote.Executor

	mu       sync.Mutex
	clusters map[string]cluster.Backend
}

// New builds a factory. A nil executor means commands run over SSH as set up
// by the base options.
func New(opts *command.BaseOptions, clock clockwork.Clock, executor remote.Executor) Factory {
	return &factory{
		opts:     opts,
		clock:    clock,
		executor: executor,
		clusters: map[string]cluster.Backend{},
	}
}

func (f *factory) GetBaseOptions() *command.BaseOptions {
	return f.opts
}

func (f *factory) GetExecutor() remote.Executor {
	f.executorOnce.Do(func() {
		if f.executor == nil {
			f.executor = remote.NewSSHExecutor(zap.S(), f.opts.SSH.Args, f.opts.SSH.Parallelism)
		}
	})
	return f.executor
}

func (f *factory) GetSilencer() alerting.Silencer {
	if !f.opts.Alerting.Enabled() {
		return nil
	}
	return alerting.NewAmtool(zap.S(), f.GetExecutor(), f.opts.Alerting.AlertmanagerHost)
}

func (f *factory) GetResolver() hostset.Resolver {
	return hostset.NewInventoryResolver(profile.Inventory())
}

func (f *factory) GetClock() clockwork.Clock {
	return f.clock
}

func (f *factory) GetCluster(name string) (cluster.Backend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if backend, found := f.clusters[name]; found {
		return backend, nil
	}

	definition, err := profile.LookupCluster(name)
	if err != nil {
		return nil, err
	}

	var backend cluster.Backend
	switch definition.Backend {
	case BackendCeph, "":
		backend, err = ceph.New(zap.S(), f.GetExecutor(), name, definition.Controllers)
	default:
		err = fmt.Errorf("cluster %s has unsupported backend %q, supported: %s", name, definition.Backend, BackendCeph)
	}
	if err != nil {
		return nil, err
	}

	f.clusters[name] = backend
	return backend, nil
}

// NewGate builds the maintenance gate of a profile cluster. Entering and
// exiting maintenance needs a silencer, waiting does not.
func NewGate(f Factory, clusterName, taskID string, needSilencer bool) (*cluster.Gate, error) {
	backend, err := f.GetCluster(clusterName)
	if err != nil {
		return nil, err
	}

	silencer := f.GetSilencer()
	if needSilencer && silencer == nil {
		return nil, fmt.Errorf("please specify --alertmanager-host, cluster alerts are silenced during maintenance")
	}

	return cluster.NewGate(zap.S(), backend, silencer, f.GetClock(), cluster.GateOptions{TaskID: taskID}), nil
}
