package procedure

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Step is one externally visible change. Undo may be nil for steps that
// need no compensation.
type Step struct {
	Name string
	Do   func(ctx context.Context) error
	Undo func(ctx context.Context) error
}

// Procedure runs steps in order and, on failure, undoes the completed ones
// in reverse order.
type Procedure struct {
	logger *zap.SugaredLogger
	name   string
	steps  []Step
	done   []bool
}

func New(logger *zap.SugaredLogger, name string, steps ...Step) *Procedure {
	return &Procedure{
		logger: logger,
		name:   name,
		steps:  steps,
		done:   make([]bool, len(steps)),
	}
}

func (p *Procedure) Run(ctx context.Context) error {
	for i, step := range p.steps {
		p.logger.Infof("%s: %s", p.name, step.Name)
		if err := step.Do(ctx); err != nil {
			stepErr := fmt.Errorf("%s: step %q failed: %w", p.name, step.Name, err)
			p.logger.Errorf("%s: %v, completed steps: %v", p.name, err, p.Done())
			return multierr.Append(stepErr, p.Rollback(context.WithoutCancel(ctx)))
		}
		p.done[i] = true
	}
	return nil
}

// Done lists the names of the completed steps.
func (p *Procedure) Done() []string {
	names := []string{}
	for i, step := range p.steps {
		if p.done[i] {
			names = append(names, step.Name)
		}
	}
	return names
}

// Rollback undoes every completed step, latest first. Having nothing to roll
// back is not an error. A failing undo does not stop the remaining ones.
func (p *Procedure) Rollback(ctx context.Context) error {
	rolledBack := 0
	var err error
	for i := len(p.steps) - 1; i >= 0; i-- {
		if !p.done[i] {
			continue
		}
		step := p.steps[i]
		p.done[i] = false
		rolledBack++

		if step.Undo == nil {
			p.logger.Debugf("%s: nothing to undo for %q", p.name, step.Name)
			continue
		}
		p.logger.Warnf("%s: rolling back %q", p.name, step.Name)
		if undoErr := step.Undo(ctx); undoErr != nil {
			err = multierr.Append(err, fmt.Errorf("failed to roll back %q: %w", step.Name, undoErr))
		}
	}

	if rolledBack == 0 {
		p.logger.Infof("%s: rollback initiated but nothing to roll back", p.name)
	}
	return err
}
