package actions

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fleetops/fleetops/pkg/hostset"
	"github.com/fleetops/fleetops/pkg/remote"
)

const (
	HostnameEnvVar = "HOSTNAME"
)

// Payload runs a local executable once per host of the batch, with the host
// in $HOSTNAME. The executable owns the whole operation, waiting included.
type Payload struct {
	logger *zap.SugaredLogger
	opts   *PayloadOpts
}

func NewPayload(logger *zap.SugaredLogger, opts *PayloadOpts) *Payload {
	return &Payload{
		logger: logger,
		opts:   opts,
	}
}

func (p *Payload) Name() string {
	return "payload"
}

func (p *Payload) runOnHost(ctx context.Context, host string) error {
	//nolint:gosec
	cmd := exec.CommandContext(ctx, p.opts.PayloadFilepath)
	cmd.Env = append(os.Environ(), fmt.Sprintf("%s=%s", HostnameEnvVar, host))

	logWriter := remote.NewLogWriter(p.logger.With("host", host), false)
	defer logWriter.Flush()
	cmd.Stdout = logWriter
	cmd.Stderr = logWriter

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("payload finished with an error on %s: %w", host, err)
	}
	return nil
}

func (p *Payload) Act(ctx context.Context, batch hostset.Batch) error {
	errs := make([]error, batch.Hosts.Len())

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.opts.Parallelism)
	for i, host := range batch.Hosts.Hosts() {
		group.Go(func() error {
			errs[i] = p.runOnHost(groupCtx, host)
			return nil
		})
	}
	_ = group.Wait()

	return multierr.Combine(errs...)
}

func (p *Payload) Recover(context.Context, hostset.Batch, time.Time) error {
	return nil
}
