package confmgmt_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/fleetops/fleetops/internal/testutil"
	"github.com/fleetops/fleetops/pkg/confmgmt"
	"github.com/fleetops/fleetops/pkg/remote/mock"
)

func TestConfmgmt(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Configuration Management Suite")
}

func summary(lastRun time.Time, failures int) string {
	return fmt.Sprintf(`---
version:
  config: "1700000000"
  puppet: "7.23.0"
time:
  last_run: %d
  total: 42.5
events:
  failure: %d
  success: 3
  total: %d
`, lastRun.Unix(), failures, failures+3)
}

var _ = Describe("Test Puppet", func() {
	var (
		executor *mock.Executor
		clock    clockwork.FakeClock
		puppet   *confmgmt.Puppet
		start    time.Time
	)

	BeforeEach(func() {
		start = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		executor = mock.NewExecutor()
		clock = clockwork.NewFakeClockAt(start)
		puppet = confmgmt.NewPuppet(zap.S(), executor, clock, []string{"h1", "h2"})
	})

	It("parses the last run summary", func() {
		parsed, err := confmgmt.ParseLastRunSummary(summary(start, 1))
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed.LastRun().Equal(start)).To(BeTrue())
		Expect(parsed.Events.Failure).To(Equal(1))
	})

	It("runs agent commands as root", func() {
		Expect(puppet.Disable(context.Background(), "rebooting hosts")).To(Succeed())
		Expect(puppet.Run(context.Background())).To(Succeed())

		calls := executor.Calls()
		Expect(calls).To(HaveLen(2))
		Expect(calls[0].Command).To(Equal("puppet agent --disable 'rebooting hosts'"))
		Expect(calls[0].AsRoot).To(BeTrue())
		Expect(calls[1].Command).To(HavePrefix("puppet agent --onetime"))
	})

	It("accepts exit code 2 from a puppet run", func() {
		executor.On("puppet agent --onetime", mock.Reply{ExitCode: 2})
		Expect(puppet.Run(context.Background())).To(Succeed())

		executor.On("puppet agent --onetime", mock.Reply{ExitCode: 4})
		Expect(puppet.Run(context.Background())).NotTo(Succeed())
	})

	It("waits until every host ran puppet cleanly after the given time", func() {
		since := start.Add(-time.Minute)
		executor.OnFunc("cat "+confmgmt.LastRunSummaryPath, func(host string, call int) mock.Reply {
			switch {
			case call == 0:
				return mock.Reply{Output: summary(since.Add(-time.Hour), 0)}
			case call == 1 && host == "h2":
				return mock.Reply{ExitCode: 255}
			case call == 2 && host == "h2":
				return mock.Reply{Output: summary(start, 2)}
			default:
				return mock.Reply{Output: summary(start, 0)}
			}
		})

		err := testutil.RunAdvancing(clock, confmgmt.DefaultPollInterval, func() error {
			return puppet.WaitSince(context.Background(), since, time.Hour)
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(executor.CommandsWithPrefix("cat ")).To(HaveLen(4))
	})

	It("gives up after the timeout naming the hosts that did not converge", func() {
		executor.OnFunc("cat "+confmgmt.LastRunSummaryPath, func(host string, _ int) mock.Reply {
			if host == "h2" {
				return mock.Reply{Output: summary(start.Add(-time.Hour), 0)}
			}
			return mock.Reply{Output: summary(start, 0)}
		})

		err := testutil.RunAdvancing(clock, confmgmt.DefaultPollInterval, func() error {
			return puppet.WaitSince(context.Background(), start, time.Minute)
		})

		var notConverged *confmgmt.NotConvergedError
		Expect(errors.As(err, &notConverged)).To(BeTrue())
		Expect(notConverged.Hosts).To(Equal([]string{"h2"}))
		Expect(executor.CommandsWithPrefix("cat ")).To(HaveLen(7))
	})

	It("re-enables puppet even when the wrapped function fails", func() {
		failure := errors.New("restart failed")
		err := puppet.WithDisabled(context.Background(), "restart", func() error {
			return failure
		})
		Expect(errors.Is(err, failure)).To(BeTrue())
		Expect(executor.Commands()).To(Equal([]string{
			"puppet agent --disable restart",
			"puppet agent --enable",
		}))
	})

	It("does not run the wrapped function when puppet cannot be disabled", func() {
		executor.On("puppet agent --disable", mock.Reply{ExitCode: 255})
		called := false
		err := puppet.WithDisabled(context.Background(), "restart", func() error {
			called = true
			return nil
		})
		Expect(err).To(HaveOccurred())
		Expect(called).To(BeFalse())
	})
})
