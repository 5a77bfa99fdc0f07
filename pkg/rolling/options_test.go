package rolling_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/fleetops/fleetops/pkg/remote/mock"
	"github.com/fleetops/fleetops/pkg/rolling"
)

var _ = Describe("Test RunOptions", func() {
	var opts *rolling.RunOptions

	parse := func(args ...string) error {
		opts = &rolling.RunOptions{}
		fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
		opts.DefineFlags(fs)
		if err := fs.Parse(args); err != nil {
			return err
		}
		return opts.Validate()
	}

	It("accepts the minimal invocation with defaults", func() {
		Expect(parse("--alias", "cephosd", "--reason", "kernel upgrade")).To(Succeed())
		Expect(opts.BatchSize).To(Equal(rolling.DefaultBatchSize))
		Expect(opts.GraceSleep).To(Equal(rolling.DefaultGraceSleep))
		Expect(opts.Downtime).To(Equal(20 * time.Minute))
		Expect(opts.Task.TaskID).To(HavePrefix("fleetops-"))
	})

	DescribeTable("rejects invalid values",
		func(expected string, args ...string) {
			args = append([]string{"--reason", "test"}, args...)
			Expect(parse(args...)).To(MatchError(ContainSubstring(expected)))
		},
		Entry("batch size above the maximum", "--batch-size", "--query", "db1", "--batch-size", "25"),
		Entry("zero batch size", "--batch-size", "--query", "db1", "--batch-size", "0"),
		Entry("short grace sleep", "--grace-sleep", "--query", "db1", "--grace-sleep", "500ms"),
		Entry("repool without depool", "--repool", "--query", "db1", "--repool", "pool"),
		Entry("missing script", "does not exist", "--query", "db1", "--pre-script", "/nonexistent/check.sh"),
		Entry("no target", "--alias or --query"),
	)

	It("allows any grace sleep for a dry run", func() {
		Expect(parse("--query", "db1", "--reason", "test", "--grace-sleep", "0s", "--dry-run")).To(Succeed())
	})

	It("raises the batch size limit with --max-batch-size", func() {
		Expect(parse("--query", "db1", "--reason", "test", "--batch-size", "30", "--max-batch-size", "40")).To(Succeed())
	})

	It("builds local scripts before remote checks", func() {
		script := filepath.Join(GinkgoT().TempDir(), "pre.sh")
		Expect(os.WriteFile(script, []byte("#!/bin/sh\n"), 0o755)).To(Succeed())

		Expect(parse(
			"--query", "db1", "--reason", "test",
			"--pre-script", script,
			"--remote-pre-check", "check-replication",
			"--remote-post-check", "check-health",
		)).To(Succeed())

		executorOpts := opts.ExecutorOptions(zap.S(), mock.NewExecutor(), nil)
		Expect(executorOpts.PreScripts).To(HaveLen(2))
		Expect(executorOpts.PreScripts[0].Name()).To(Equal("pre.sh"))
		Expect(executorOpts.PreScripts[1].Name()).To(Equal("check-replication"))
		Expect(executorOpts.PostScripts).To(HaveLen(1))
		Expect(executorOpts.Reason).To(Equal("test"))
	})
})
