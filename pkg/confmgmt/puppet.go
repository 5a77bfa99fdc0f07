package confmgmt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kballard/go-shellquote"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/fleetops/fleetops/pkg/remote"
	"github.com/fleetops/fleetops/pkg/utils"
)

const (
	LastRunSummaryPath = "/var/lib/puppet/state/last_run_summary.yaml"

	DefaultWaitTimeout  = 15 * time.Minute
	DefaultPollInterval = 10 * time.Second

	// --detailed-exitcodes: 2 means changes were applied successfully.
	exitCodeChangesApplied = 2
)

// LastRunSummary is the subset of last_run_summary.yaml we care about.
type LastRunSummary struct {
	Time struct {
		LastRun int64 `yaml:"last_run"`
	} `yaml:"time"`
	Events struct {
		Failure int `yaml:"failure"`
		Success int `yaml:"success"`
		Total   int `yaml:"total"`
	} `yaml:"events"`
}

func (s LastRunSummary) LastRun() time.Time {
	return time.Unix(s.Time.LastRun, 0)
}

func ParseLastRunSummary(raw string) (LastRunSummary, error) {
	summary := LastRunSummary{}
	if err := yaml.Unmarshal([]byte(raw), &summary); err != nil {
		return summary, fmt.Errorf("failed to parse %s: %w", LastRunSummaryPath, err)
	}
	return summary, nil
}

type NotConvergedError struct {
	Hosts []string
	Since time.Time
}

func (e *NotConvergedError) Error() string {
	return fmt.Sprintf(
		"puppet did not run successfully since %s on: %s",
		e.Since.Format(time.RFC3339),
		strings.Join(e.Hosts, ","),
	)
}

// Puppet drives the puppet agent on a fixed set of hosts.
type Puppet struct {
	logger       *zap.SugaredLogger
	executor     remote.Executor
	clock        clockwork.Clock
	hosts        []string
	PollInterval time.Duration
}

func NewPuppet(logger *zap.SugaredLogger, executor remote.Executor, clock clockwork.Clock, hosts []string) *Puppet {
	return &Puppet{
		logger:       logger,
		executor:     executor,
		clock:        clock,
		hosts:        hosts,
		PollInterval: DefaultPollInterval,
	}
}

func (p *Puppet) Disable(ctx context.Context, reason string) error {
	p.logger.Infof("Disabling puppet on %s: %s", strings.Join(p.hosts, ","), reason)
	_, err := p.executor.Run(ctx, p.hosts, shellquote.Join("puppet", "agent", "--disable", reason), remote.AsRoot())
	return err
}

func (p *Puppet) Enable(ctx context.Context, reason string) error {
	p.logger.Infof("Enabling puppet on %s: %s", strings.Join(p.hosts, ","), reason)
	_, err := p.executor.Run(ctx, p.hosts, "puppet agent --enable", remote.AsRoot())
	return err
}

func (p *Puppet) Run(ctx context.Context) error {
	_, err := p.executor.Run(
		ctx,
		p.hosts,
		"puppet agent --onetime --no-daemonize --detailed-exitcodes",
		remote.AsRoot(),
		remote.AllowExitCodes(0, exitCodeChangesApplied),
	)
	return err
}

func (p *Puppet) summaries(ctx context.Context) (map[string]LastRunSummary, error) {
	results, err := p.executor.Run(ctx, p.hosts, "cat "+LastRunSummaryPath, remote.AsRoot(), remote.Quiet())
	if err != nil {
		return nil, err
	}

	summaries := make(map[string]LastRunSummary, len(results))
	for _, result := range results {
		summary, err := ParseLastRunSummary(result.Output)
		if err != nil {
			return nil, fmt.Errorf("host %s: %w", result.Host, err)
		}
		summaries[result.Host] = summary
	}
	return summaries, nil
}

// WaitSince blocks until every host completed a failure-free puppet run that
// started after since. Unreachable hosts are polled again until the timeout.
func (p *Puppet) WaitSince(ctx context.Context, since time.Time, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	interval := p.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	policy := utils.RetryPolicy{
		MaxAttempts: int(timeout/interval) + 1,
		Delay:       interval,
		Backoff:     utils.BackoffConstant,
		Clock:       p.clock,
		Retryable: func(err error) bool {
			var notConverged *NotConvergedError
			var unreachable *remote.UnreachableError
			return errors.As(err, &notConverged) || errors.As(err, &unreachable)
		},
	}

	_, err := utils.WrapWithRetries(ctx, policy, func() (struct{}, error) {
		summaries, err := p.summaries(ctx)
		if err != nil {
			return struct{}{}, err
		}

		pending := []string{}
		for _, host := range p.hosts {
			summary := summaries[host]
			if summary.LastRun().Before(since) || summary.Events.Failure > 0 {
				pending = append(pending, host)
			}
		}
		if len(pending) > 0 {
			return struct{}{}, &NotConvergedError{Hosts: pending, Since: since}
		}
		return struct{}{}, nil
	})
	if err != nil {
		return fmt.Errorf("failed waiting for puppet convergence: %w", err)
	}

	p.logger.Infof("Puppet converged on %s", strings.Join(p.hosts, ","))
	return nil
}

// WithDisabled runs fn with puppet disabled and re-enables it afterwards,
// whatever fn returns.
func (p *Puppet) WithDisabled(ctx context.Context, reason string, fn func() error) (err error) {
	if err := p.Disable(ctx, reason); err != nil {
		return fmt.Errorf("failed to disable puppet: %w", err)
	}

	defer func() {
		if enableErr := p.Enable(context.WithoutCancel(ctx), reason); enableErr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to enable puppet: %w", enableErr))
		}
	}()

	return fn()
}
