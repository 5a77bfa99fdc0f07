package rolling_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fleetops/fleetops/pkg/hostset"
	"github.com/fleetops/fleetops/pkg/rolling"
)

var _ = Describe("Test Results", func() {
	var results *rolling.Results

	BeforeEach(func() {
		results = rolling.NewResults(hostset.New("a", "b", "c"))
	})

	It("rejects hosts outside of the run", func() {
		Expect(results.Success("z")).To(MatchError(ContainSubstring("not part of this run")))
		Expect(results.Fail("z")).To(HaveOccurred())
	})

	It("never records a host with both outcomes", func() {
		Expect(results.Success("a")).To(Succeed())
		Expect(results.Fail("a")).To(HaveOccurred())
		Expect(results.Fail("b")).To(Succeed())
		Expect(results.Success("b")).To(HaveOccurred())
		Expect(results.Successful.Hosts()).To(Equal([]string{"a"}))
		Expect(results.Failed.Hosts()).To(Equal([]string{"b"}))
	})

	It("reports untouched hosts and exits with 1", func() {
		Expect(results.Success("a")).To(Succeed())
		Expect(results.Fail("b")).To(Succeed())

		core, logs := observer.New(zapcore.InfoLevel)
		Expect(results.Report(zap.New(core).Sugar())).To(Equal(1))
		Expect(logs.FilterMessage("Hosts not attempted: c").Len()).To(Equal(1))
		Expect(logs.FilterMessage("Failed hosts: b").Len()).To(Equal(1))
	})

	It("exits with 0 when every host succeeded", func() {
		Expect(results.Success("a", "b", "c")).To(Succeed())
		Expect(results.Report(zap.S())).To(Equal(0))
	})
})
