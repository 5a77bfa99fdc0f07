package options_test

import (
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/pflag"

	"github.com/fleetops/fleetops/pkg/options"
)

func TestOptions(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Options Suite")
}

func parse(opts options.Options, args ...string) error {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.DefineFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	return opts.Validate()
}

var _ = Describe("Test targeting", func() {
	DescribeTable("alias and query",
		func(args []string, expectedErr string) {
			err := parse(&options.TargetingOptions{}, args...)
			if expectedErr == "" {
				Expect(err).NotTo(HaveOccurred())
			} else {
				Expect(err).To(MatchError(ContainSubstring(expectedErr)))
			}
		},
		Entry("alias only", []string{"--alias", "cephosd"}, ""),
		Entry("query only", []string{"--query", "db[1-3]"}, ""),
		Entry("both", []string{"--alias", "cephosd", "--query", "db1"}, "mutually exclusive"),
		Entry("neither", []string{}, "either --alias or --query"),
	)
})

var _ = Describe("Test task id", func() {
	It("generates a task id when none is given", func() {
		opts := &options.TaskIDOpts{}
		Expect(parse(opts, "--reason", "kernel upgrade")).To(Succeed())
		Expect(opts.TaskID).To(HavePrefix(options.TaskIDPrefix))
		Expect(len(opts.TaskID)).To(Equal(len(options.TaskIDPrefix) + 36))
	})

	It("keeps the given task id", func() {
		opts := &options.TaskIDOpts{}
		Expect(parse(opts, "--reason", "kernel upgrade", "--task-id", "T12345")).To(Succeed())
		Expect(opts.TaskID).To(Equal("T12345"))
	})

	It("requires a reason", func() {
		Expect(parse(&options.TaskIDOpts{}, "--reason", "  ")).To(MatchError(ContainSubstring("--reason")))
	})
})

var _ = Describe("Test ssh options", func() {
	It("parses quoted ssh arguments", func() {
		opts := &options.SSHOptions{}
		Expect(parse(opts, "--ssh-args", `ssh -o ProxyCommand="ssh -W %h:%p bastion"`, "--ssh-parallelism", "4")).To(Succeed())
		Expect(opts.Args).To(Equal([]string{"ssh", "-o", "ProxyCommand=ssh -W %h:%p bastion"}))
		Expect(opts.Parallelism).To(Equal(4))
	})

	DescribeTable("invalid parallelism",
		func(value string) {
			Expect(parse(&options.SSHOptions{}, "--ssh-parallelism", value)).To(MatchError(ContainSubstring("--ssh-parallelism")))
		},
		Entry("zero", "0"),
		Entry("not a number", "many"),
	)
})

var _ = Describe("Test Validate", func() {
	It("combines every validation error", func() {
		err := options.Validate(&options.TargetingOptions{}, &options.TaskIDOpts{})
		Expect(err).To(HaveOccurred())
		Expect(strings.Count(err.Error(), ";")).To(Equal(1))
	})

	It("requires a cluster when asked to", func() {
		Expect(parse(&options.RequiredClusterOptions{})).To(MatchError(ContainSubstring("--cluster")))
		Expect(parse(&options.ClusterOptions{})).To(Succeed())
	})
})
