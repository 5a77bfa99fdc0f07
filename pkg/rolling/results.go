package rolling

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/fleetops/fleetops/pkg/hostset"
)

// Results tracks the outcome of every host of a run. A host is never both
// successful and failed.
type Results struct {
	All        hostset.HostSet
	Successful hostset.HostSet
	Failed     hostset.HostSet
}

func NewResults(all hostset.HostSet) *Results {
	return &Results{
		All:        all,
		Successful: hostset.New(),
		Failed:     hostset.New(),
	}
}

func (r *Results) validate(hosts []string, opposite hostset.HostSet, outcome string) error {
	for _, host := range hosts {
		if !r.All.Contains(host) {
			return fmt.Errorf("host %s is not part of this run", host)
		}
		if opposite.Contains(host) {
			return fmt.Errorf("host %s cannot be marked %s, already recorded with the opposite outcome", host, outcome)
		}
	}
	return nil
}

func (r *Results) Success(hosts ...string) error {
	if err := r.validate(hosts, r.Failed, "successful"); err != nil {
		return err
	}
	for _, host := range hosts {
		r.Successful.Add(host)
	}
	return nil
}

func (r *Results) Fail(hosts ...string) error {
	if err := r.validate(hosts, r.Successful, "failed"); err != nil {
		return err
	}
	for _, host := range hosts {
		r.Failed.Add(host)
	}
	return nil
}

// NotAttempted are the hosts left untouched by an aborted run.
func (r *Results) NotAttempted() hostset.HostSet {
	return r.All.Minus(r.Successful, r.Failed)
}

func (r *Results) ExitCode() int {
	if r.Failed.Len() == 0 && r.NotAttempted().Len() == 0 {
		return 0
	}
	return 1
}

// Report logs the outcome and returns the process exit code.
func (r *Results) Report(logger *zap.SugaredLogger) int {
	notAttempted := r.NotAttempted()
	if r.ExitCode() == 0 {
		logger.Infof("All %d hosts have been processed successfully", r.All.Len())
		return 0
	}

	logger.Errorf("Run did not complete: %d successful, %d failed, %d not attempted",
		r.Successful.Len(), r.Failed.Len(), notAttempted.Len())
	if r.Successful.Len() > 0 {
		logger.Infof("Successful hosts: %s", r.Successful)
	}
	if r.Failed.Len() > 0 {
		logger.Errorf("Failed hosts: %s", r.Failed)
	}
	if notAttempted.Len() > 0 {
		logger.Warnf("Hosts not attempted: %s", notAttempted)
	}
	return 1
}
