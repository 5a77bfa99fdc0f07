package actions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fleetops/fleetops/pkg/hostset"
	"github.com/fleetops/fleetops/pkg/remote"
	"github.com/fleetops/fleetops/pkg/rolling"
)

// StillDepooledError is returned when a batch failed after its hosts were
// taken out of the load balancer: they are left depooled for an operator.
type StillDepooledError struct {
	Hosts []string
	Err   error
}

func (e *StillDepooledError) Error() string {
	return fmt.Sprintf("%v (hosts still depooled: %s)", e.Err, strings.Join(e.Hosts, ","))
}

func (e *StillDepooledError) Unwrap() error {
	return e.Err
}

// Pooled takes the batch hosts out of the load balancer around another
// action. Hosts are repooled only after a successful recovery.
type Pooled struct {
	logger        *zap.SugaredLogger
	executor      remote.Executor
	inner         rolling.Action
	depoolCommand string
	repoolCommand string
}

func NewPooled(
	logger *zap.SugaredLogger,
	executor remote.Executor,
	inner rolling.Action,
	depoolCommand, repoolCommand string,
) *Pooled {
	return &Pooled{
		logger:        logger,
		executor:      executor,
		inner:         inner,
		depoolCommand: depoolCommand,
		repoolCommand: repoolCommand,
	}
}

func (p *Pooled) Name() string {
	return p.inner.Name()
}

func (p *Pooled) Act(ctx context.Context, batch hostset.Batch) error {
	hosts := batch.Hosts.Hosts()
	p.logger.Infof("Depooling %s", batch.Hosts)
	if _, err := p.executor.Run(ctx, hosts, p.depoolCommand, remote.AsRoot()); err != nil {
		return &StillDepooledError{Hosts: hosts, Err: fmt.Errorf("failed to depool: %w", err)}
	}

	if err := p.inner.Act(ctx, batch); err != nil {
		return &StillDepooledError{Hosts: hosts, Err: err}
	}
	return nil
}

func (p *Pooled) Recover(ctx context.Context, batch hostset.Batch, since time.Time) error {
	hosts := batch.Hosts.Hosts()
	if err := p.inner.Recover(ctx, batch, since); err != nil {
		return &StillDepooledError{Hosts: hosts, Err: err}
	}

	if p.repoolCommand == "" {
		p.logger.Warnf("No repool command given, %s stay depooled", batch.Hosts)
		return nil
	}

	p.logger.Infof("Repooling %s", batch.Hosts)
	if _, err := p.executor.Run(ctx, hosts, p.repoolCommand, remote.AsRoot()); err != nil {
		return &StillDepooledError{Hosts: hosts, Err: fmt.Errorf("failed to repool: %w", err)}
	}
	return nil
}
