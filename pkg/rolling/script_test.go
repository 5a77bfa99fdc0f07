package rolling_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/fleetops/fleetops/pkg/hostset"
	"github.com/fleetops/fleetops/pkg/remote"
	"github.com/fleetops/fleetops/pkg/remote/mock"
	"github.com/fleetops/fleetops/pkg/rolling"
)

var _ = Describe("Test failure policy", func() {
	DescribeTable("classification",
		func(exitCode int, expected rolling.Verdict) {
			Expect(rolling.Classify(rolling.ScriptResult{ExitCode: exitCode})).To(Equal(expected))
		},
		Entry("success", 0, rolling.Continue),
		Entry("fatal", 1, rolling.Fatal),
		Entry("soft", 2, rolling.Soft),
		Entry("unknown", 3, rolling.Fatal),
		Entry("not started", remote.NotStartedExitCode, rolling.Fatal),
	)

	DescribeTable("merging per-host results",
		func(results []rolling.ScriptResult, expected rolling.ScriptResult) {
			Expect(rolling.MergeScriptResults(results)).To(Equal(expected))
		},
		Entry("all fine", []rolling.ScriptResult{{ExitCode: 0, Output: "a: ok"}, {ExitCode: 0}},
			rolling.ScriptResult{ExitCode: 0, Output: "a: ok"}),
		Entry("soft wins over success",
			[]rolling.ScriptResult{{ExitCode: 0, Output: "a: ok"}, {ExitCode: 2, Output: "b: lagging"}},
			rolling.ScriptResult{ExitCode: 2, Output: "b: lagging"}),
		Entry("fatal wins over soft",
			[]rolling.ScriptResult{{ExitCode: 2, Output: "a: lagging"}, {ExitCode: 1, Output: "b: broken"}, {ExitCode: 5, Output: "c: weird"}},
			rolling.ScriptResult{ExitCode: 1, Output: "b: broken\nc: weird"}),
		Entry("nothing", []rolling.ScriptResult{}, rolling.ScriptResult{ExitCode: 0}),
	)
})

var _ = Describe("Test LocalScript", func() {
	var batch hostset.Batch

	BeforeEach(func() {
		batch = hostset.Batch{Index: 2, Total: 3, Hosts: hostset.New("db1", "db2")}
	})

	writeScript := func(body string) string {
		path := filepath.Join(GinkgoT().TempDir(), "check.sh")
		Expect(os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755)).To(Succeed())
		return path
	}

	It("passes the batch hosts through the environment", func() {
		script := rolling.NewLocalScript(zap.S(), writeScript(`echo "checking $HOSTS in batch $BATCH"; exit 2`))

		result := script.Run(context.Background(), batch)
		Expect(script.Name()).To(Equal("check.sh"))
		Expect(result.ExitCode).To(Equal(rolling.ExitSoft))
		Expect(result.Output).To(Equal("checking db1,db2 in batch 2\n"))
	})

	It("is fatal when the script cannot be started", func() {
		result := rolling.NewLocalScript(zap.S(), "/nonexistent/check.sh").Run(context.Background(), batch)
		Expect(result.ExitCode).To(Equal(remote.NotStartedExitCode))
		Expect(rolling.Classify(result)).To(Equal(rolling.Fatal))
	})
})

var _ = Describe("Test RemoteScript", func() {
	It("merges host verdicts and names the failing hosts", func() {
		executor := mock.NewExecutor().OnFunc("check-replication", func(host string, _ int) mock.Reply {
			switch host {
			case "db2":
				return mock.Reply{ExitCode: 2, Output: "lag 30s\n"}
			case "db3":
				return mock.Reply{ExitCode: 1}
			}
			return mock.Reply{Output: "ok"}
		})
		script := rolling.NewRemoteScript(executor, "replication", "check-replication")

		result := script.Run(context.Background(), hostset.Batch{Index: 1, Total: 1, Hosts: hostset.New("db1", "db2")})
		Expect(result).To(Equal(rolling.ScriptResult{ExitCode: 2, Output: "db2: lag 30s"}))

		result = script.Run(context.Background(), hostset.Batch{Index: 1, Total: 1, Hosts: hostset.New("db2", "db3")})
		Expect(result).To(Equal(rolling.ScriptResult{ExitCode: 1, Output: "db3: exit code 1"}))
	})

	It("is fatal when a host is unreachable", func() {
		executor := mock.NewExecutor().On("check", mock.Reply{ExitCode: 255})
		result := rolling.NewRemoteScript(executor, "check", "check").Run(
			context.Background(),
			hostset.Batch{Index: 1, Total: 1, Hosts: hostset.New("db1")},
		)
		Expect(rolling.Classify(result)).To(Equal(rolling.Fatal))
	})
})
