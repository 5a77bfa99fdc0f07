package rolling_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/fleetops/fleetops/internal/testutil"
	alertingmock "github.com/fleetops/fleetops/pkg/alerting/mock"
	"github.com/fleetops/fleetops/pkg/hostset"
	"github.com/fleetops/fleetops/pkg/rolling"
)

func TestRolling(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Rolling Suite")
}

type fakeAction struct {
	mu          sync.Mutex
	journal     []string
	failAct     map[int]error
	failRecover map[int]error
	silencer    *alertingmock.Silencer
	silencedNow []int
}

func newFakeAction() *fakeAction {
	return &fakeAction{failAct: map[int]error{}, failRecover: map[int]error{}}
}

func (a *fakeAction) Name() string {
	return "fake"
}

func (a *fakeAction) Act(_ context.Context, batch hostset.Batch) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.journal = append(a.journal, fmt.Sprintf("act %d", batch.Index))
	if a.silencer != nil {
		a.silencedNow = append(a.silencedNow, len(a.silencer.Active()))
	}
	return a.failAct[batch.Index]
}

func (a *fakeAction) Recover(_ context.Context, batch hostset.Batch, _ time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.journal = append(a.journal, fmt.Sprintf("recover %d", batch.Index))
	return a.failRecover[batch.Index]
}

func (a *fakeAction) Journal() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string{}, a.journal...)
}

type recordingObserver struct {
	states   []string
	finished []error
}

func (o *recordingObserver) BatchStarted(hostset.Batch) {}

func (o *recordingObserver) StateChanged(batch hostset.Batch, state rolling.State) {
	o.states = append(o.states, fmt.Sprintf("%d:%s", batch.Index, state))
}

func (o *recordingObserver) BatchFinished(_ hostset.Batch, err error, _ time.Duration) {
	o.finished = append(o.finished, err)
}

func exitOn(batchIndex, exitCode int) rolling.Script {
	return rolling.ScriptFunc("check", func(_ context.Context, batch hostset.Batch) rolling.ScriptResult {
		if batch.Index == batchIndex {
			return rolling.ScriptResult{ExitCode: exitCode, Output: fmt.Sprintf("check exited %d", exitCode)}
		}
		return rolling.ScriptResult{}
	})
}

func sevenHosts() hostset.HostSet {
	return hostset.New("h1", "h2", "h3", "h4", "h5", "h6", "h7")
}

var _ = Describe("Test Executor", func() {
	var (
		action *fakeAction
		clock  clockwork.FakeClock
		opts   rolling.ExecutorOptions
	)

	BeforeEach(func() {
		action = newFakeAction()
		clock = clockwork.NewFakeClock()
		opts = rolling.ExecutorOptions{BatchSize: 2, Reason: "test", TaskID: "T1"}
	})

	run := func(silencer *alertingmock.Silencer) (*rolling.Results, error) {
		var executor *rolling.Executor
		if silencer == nil {
			executor = rolling.NewExecutor(zap.S(), clock, nil, action, opts)
		} else {
			executor = rolling.NewExecutor(zap.S(), clock, silencer, action, opts)
		}

		var results *rolling.Results
		err := testutil.RunAdvancing(clock, time.Second, func() error {
			var runErr error
			results, runErr = executor.Run(context.Background(), sevenHosts())
			return runErr
		})
		return results, err
	}

	It("processes every batch in order and succeeds", func() {
		results, err := run(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(results.Successful.Hosts()).To(Equal(results.All.Hosts()))
		Expect(results.ExitCode()).To(Equal(0))
		Expect(action.Journal()).To(Equal([]string{
			"act 1", "recover 1", "act 2", "recover 2", "act 3", "recover 3", "act 4", "recover 4",
		}))
	})

	It("sleeps between batches but not before the first one", func() {
		opts.GraceSleep = 30 * time.Second
		observer := &recordingObserver{}
		opts.Observer = observer
		start := clock.Now()

		_, err := run(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(clock.Since(start)).To(Equal(90 * time.Second))
		Expect(observer.states[:6]).To(Equal([]string{
			"1:pre-scripts", "1:acting", "1:recovering", "1:post-scripts", "1:batch-done",
			"2:grace-sleep",
		}))
	})

	It("stops the line when the action fails on the third batch", func() {
		action.failAct[3] = errors.New("reboot command failed")

		results, err := run(nil)

		var actionFailure *rolling.ActionFailure
		Expect(errors.As(err, &actionFailure)).To(BeTrue())
		Expect(actionFailure.Batch).To(Equal(3))
		Expect(results.Successful.Hosts()).To(Equal([]string{"h1", "h2", "h3", "h4"}))
		Expect(results.Failed.Hosts()).To(Equal([]string{"h5", "h6"}))
		Expect(results.NotAttempted().Hosts()).To(Equal([]string{"h7"}))
		Expect(results.ExitCode()).To(Equal(1))
		Expect(action.Journal()).NotTo(ContainElement("act 4"))
	})

	It("does not act on the batch with a fatal pre-script nor on later ones", func() {
		opts.PreScripts = []rolling.Script{exitOn(0, 0), exitOn(2, rolling.ExitFatal)}

		results, err := run(nil)

		var fatal *rolling.ScriptFatalError
		Expect(errors.As(err, &fatal)).To(BeTrue())
		Expect(fatal.Result.Output).To(Equal("check exited 1"))
		Expect(action.Journal()).To(Equal([]string{"act 1", "recover 1"}))
		Expect(results.Failed.Hosts()).To(Equal([]string{"h3", "h4"}))
		Expect(results.Successful.Hosts()).To(Equal([]string{"h1", "h2"}))
		Expect(results.NotAttempted().Hosts()).To(Equal([]string{"h5", "h6", "h7"}))
	})

	It("continues on soft script failures", func() {
		opts.PreScripts = []rolling.Script{exitOn(1, rolling.ExitSoft)}
		opts.PostScripts = []rolling.Script{exitOn(4, rolling.ExitSoft)}

		results, err := run(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(results.ExitCode()).To(Equal(0))
	})

	It("treats unknown exit codes as fatal", func() {
		opts.PostScripts = []rolling.Script{exitOn(1, 127)}

		results, err := run(nil)

		var fatal *rolling.ScriptFatalError
		Expect(errors.As(err, &fatal)).To(BeTrue())
		Expect(results.Failed.Hosts()).To(Equal([]string{"h1", "h2"}))
		Expect(action.Journal()).To(Equal([]string{"act 1", "recover 1"}))
	})

	It("reports recovery errors as recovery timeouts", func() {
		underlying := errors.New("host h2 did not come back")
		action.failRecover[1] = underlying

		_, err := run(nil)

		var recovery *rolling.RecoveryTimeout
		Expect(errors.As(err, &recovery)).To(BeTrue())
		Expect(errors.Is(err, underlying)).To(BeTrue())
	})

	It("rejects an invalid batch size before doing anything", func() {
		opts.BatchSize = 0

		results, err := run(nil)

		var precondition *rolling.PreconditionError
		Expect(errors.As(err, &precondition)).To(BeTrue())
		Expect(errors.Is(err, hostset.ErrInvalidBatchSize)).To(BeTrue())
		Expect(results.NotAttempted().Len()).To(Equal(7))
		Expect(action.Journal()).To(BeEmpty())
	})

	Context("with a silencer", func() {
		var silencer *alertingmock.Silencer

		BeforeEach(func() {
			silencer = alertingmock.NewSilencer()
			action.silencer = silencer
		})

		It("holds a downtime for every batch while acting", func() {
			_, err := run(silencer)
			Expect(err).NotTo(HaveOccurred())
			Expect(action.silencedNow).To(Equal([]int{1, 1, 1, 1}))
			Expect(silencer.Active()).To(BeEmpty())
			Expect(silencer.Events[0]).To(ContainSubstring(`instance=~(h1|h2)(:[0-9]+)?`))
		})

		It("releases the downtime when the action fails", func() {
			action.failAct[2] = errors.New("boom")

			_, err := run(silencer)
			Expect(err).To(HaveOccurred())
			Expect(silencer.Active()).To(BeEmpty())
		})

		It("fails the batch without acting when the downtime cannot be scheduled", func() {
			silencer.AddErr = errors.New("alertmanager unreachable")

			results, err := run(silencer)

			var actionFailure *rolling.ActionFailure
			Expect(errors.As(err, &actionFailure)).To(BeTrue())
			Expect(action.Journal()).To(BeEmpty())
			Expect(results.Failed.Hosts()).To(Equal([]string{"h1", "h2"}))
		})
	})
})
