package rolling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/fleetops/fleetops/pkg/alerting"
	"github.com/fleetops/fleetops/pkg/hostset"
	"github.com/fleetops/fleetops/pkg/utils"
)

// Action is the disruptive operation applied to one batch at a time.
// Recover blocks until the hosts are confirmed healthy again after since,
// and must bound its own waits.
type Action interface {
	Name() string
	Act(ctx context.Context, batch hostset.Batch) error
	Recover(ctx context.Context, batch hostset.Batch, since time.Time) error
}

type State int

const (
	StateIdle State = iota
	StateGraceSleep
	StatePreScripts
	StateActing
	StateRecovering
	StatePostScripts
	StateBatchDone
	StateAborted
)

var stateNames = map[State]string{
	StateIdle:        "idle",
	StateGraceSleep:  "grace-sleep",
	StatePreScripts:  "pre-scripts",
	StateActing:      "acting",
	StateRecovering:  "recovering",
	StatePostScripts: "post-scripts",
	StateBatchDone:   "batch-done",
	StateAborted:     "aborted",
}

func (s State) String() string {
	if name, found := stateNames[s]; found {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Observer is notified of the progress of a run. Methods are called from the
// run goroutine.
type Observer interface {
	BatchStarted(batch hostset.Batch)
	StateChanged(batch hostset.Batch, state State)
	BatchFinished(batch hostset.Batch, err error, elapsed time.Duration)
}

const (
	DefaultDowntimeDuration = 20 * time.Minute
)

type ExecutorOptions struct {
	BatchSize        int
	GraceSleep       time.Duration
	DowntimeDuration time.Duration
	Reason           string
	TaskID           string
	PreScripts       []Script
	PostScripts      []Script
	Observer         Observer
}

// Executor runs an action over hosts batch by batch, strictly in order, and
// stops the whole run at the first batch that fails.
type Executor struct {
	logger *zap.SugaredLogger
	clock  clockwork.Clock
	// silencer is optional, without it no downtime is scheduled.
	silencer alerting.Silencer
	action   Action
	opts     ExecutorOptions
}

func NewExecutor(
	logger *zap.SugaredLogger,
	clock clockwork.Clock,
	silencer alerting.Silencer,
	action Action,
	opts ExecutorOptions,
) *Executor {
	if opts.DowntimeDuration <= 0 {
		opts.DowntimeDuration = DefaultDowntimeDuration
	}
	return &Executor{
		logger:   logger,
		clock:    clock,
		silencer: silencer,
		action:   action,
		opts:     opts,
	}
}

func (e *Executor) Plan(hosts hostset.HostSet) ([]hostset.Batch, error) {
	batches, err := hostset.Split(hosts, e.opts.BatchSize)
	if err != nil {
		return nil, &PreconditionError{Reason: "invalid batch size", Err: err}
	}
	return batches, nil
}

// Run returns the results together with the error that aborted the run, if
// any. The results are always usable for reporting.
func (e *Executor) Run(ctx context.Context, hosts hostset.HostSet) (*Results, error) {
	results := NewResults(hosts)

	batches, err := e.Plan(hosts)
	if err != nil {
		return results, err
	}

	e.logger.Infof("Running %s on %d hosts in %d batches", e.action.Name(), hosts.Len(), len(batches))

	for i, batch := range batches {
		e.notifyStarted(batch)
		start := e.clock.Now()

		err := e.runBatch(ctx, batch, i == 0)
		e.notifyFinished(batch, err, e.clock.Since(start))

		if err != nil {
			e.transition(batch, StateAborted)
			if failErr := results.Fail(batch.Hosts.Hosts()...); failErr != nil {
				e.logger.Errorf("Failed to record failed hosts: %v", failErr)
			}
			e.logger.Errorf("Aborting %s at %s: %v", e.action.Name(), batch, err)
			return results, fmt.Errorf("%s aborted at %s: %w", e.action.Name(), batch, err)
		}

		if successErr := results.Success(batch.Hosts.Hosts()...); successErr != nil {
			return results, successErr
		}
		e.logger.Infof("Completed %s", batch)
	}

	return results, nil
}

func (e *Executor) runBatch(ctx context.Context, batch hostset.Batch, first bool) error {
	if !first && e.opts.GraceSleep > 0 {
		e.transition(batch, StateGraceSleep)
		e.logger.Infof("Sleeping %v before %s", e.opts.GraceSleep, batch)
		if err := utils.Sleep(ctx, e.clock, e.opts.GraceSleep); err != nil {
			return err
		}
	}

	e.transition(batch, StatePreScripts)
	if err := e.runScripts(ctx, batch, e.opts.PreScripts); err != nil {
		return err
	}

	e.transition(batch, StateActing)
	since := e.clock.Now()
	err := e.withDowntime(ctx, batch, func() error {
		e.logger.Infof("Running %s on %s", e.action.Name(), batch)
		if err := e.action.Act(ctx, batch); err != nil {
			return &ActionFailure{Action: e.action.Name(), Batch: batch.Index, Err: err}
		}

		e.transition(batch, StateRecovering)
		if err := e.action.Recover(ctx, batch, since); err != nil {
			var recoveryTimeout *RecoveryTimeout
			if errors.As(err, &recoveryTimeout) {
				return err
			}
			return &RecoveryTimeout{Action: e.action.Name(), Batch: batch.Index, Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.transition(batch, StatePostScripts)
	if err := e.runScripts(ctx, batch, e.opts.PostScripts); err != nil {
		return err
	}

	e.transition(batch, StateBatchDone)
	return nil
}

// withDowntime keeps alerts of the batch hosts silenced while fn runs. A
// downtime that cannot be scheduled or released fails the batch as an
// ActionFailure.
func (e *Executor) withDowntime(ctx context.Context, batch hostset.Batch, fn func() error) error {
	if e.silencer == nil {
		return fn()
	}

	err := alerting.Downtime(
		ctx,
		e.silencer,
		batch.Hosts.Hosts(),
		e.opts.DowntimeDuration,
		alerting.Comment(e.opts.Reason, e.opts.TaskID),
		fn,
	)
	if err == nil {
		return nil
	}

	var (
		actionFailure   *ActionFailure
		recoveryTimeout *RecoveryTimeout
	)
	if errors.As(err, &actionFailure) || errors.As(err, &recoveryTimeout) {
		return err
	}
	return &ActionFailure{Action: e.action.Name(), Batch: batch.Index, Err: err}
}

func (e *Executor) runScripts(ctx context.Context, batch hostset.Batch, scripts []Script) error {
	for _, script := range scripts {
		if err := ctx.Err(); err != nil {
			return err
		}

		result := script.Run(ctx, batch)
		switch Classify(result) {
		case Continue:
			e.logger.Debugf("Script %s passed on %s", script.Name(), batch)
		case Soft:
			e.logger.Warnf(
				"Script %s soft-failed on %s, continuing: %s",
				script.Name(),
				batch,
				result.Output,
			)
		case Fatal:
			return &ScriptFatalError{Script: script.Name(), Batch: batch.Index, Result: result}
		}
	}
	return nil
}

func (e *Executor) transition(batch hostset.Batch, state State) {
	e.logger.Debugf("%s: %s", batch, state)
	if e.opts.Observer != nil {
		e.opts.Observer.StateChanged(batch, state)
	}
}

func (e *Executor) notifyStarted(batch hostset.Batch) {
	e.logger.Infof("Starting %s", batch)
	if e.opts.Observer != nil {
		e.opts.Observer.BatchStarted(batch)
	}
}

func (e *Executor) notifyFinished(batch hostset.Batch, err error, elapsed time.Duration) {
	if e.opts.Observer != nil {
		e.opts.Observer.BatchFinished(batch, err, elapsed)
	}
}
