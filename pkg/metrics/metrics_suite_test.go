package metrics_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/fleetops/fleetops/pkg/hostset"
	"github.com/fleetops/fleetops/pkg/metrics"
	"github.com/fleetops/fleetops/pkg/rolling"
)

func TestMetrics(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Metrics Suite")
}

var finishedAt = time.Date(2024, time.March, 13, 17, 20, 0, 0, time.UTC)

func replay(recorder *metrics.Recorder) {
	batches, err := hostset.Split(hostset.New("h1", "h2", "h3", "h4", "h5"), 2)
	Expect(err).NotTo(HaveOccurred())

	for i, batch := range batches {
		recorder.BatchStarted(batch)
		recorder.StateChanged(batch, rolling.StateActing)
		var batchErr error
		if i == len(batches)-1 {
			recorder.StateChanged(batch, rolling.StateAborted)
			batchErr = errors.New("reboot timed out")
		}
		recorder.BatchFinished(batch, batchErr, time.Minute)
	}
}

var _ = Describe("Test Recorder", func() {
	var recorder *metrics.Recorder

	BeforeEach(func() {
		recorder = metrics.NewRecorder("reboot", func() time.Time { return finishedAt })
		replay(recorder)
	})

	It("counts batches and hosts by outcome", func() {
		expected := `
# HELP fleetops_batches_total Batches processed by the run, by outcome.
# TYPE fleetops_batches_total counter
fleetops_batches_total{action="reboot",outcome="failure"} 1
fleetops_batches_total{action="reboot",outcome="success"} 2
# HELP fleetops_hosts_total Hosts processed by the run, by outcome.
# TYPE fleetops_hosts_total counter
fleetops_hosts_total{action="reboot",outcome="failure"} 1
fleetops_hosts_total{action="reboot",outcome="success"} 4
`
		Expect(testutil.GatherAndCompare(recorder.Registry(), strings.NewReader(expected),
			"fleetops_batches_total", "fleetops_hosts_total")).To(Succeed())
	})

	It("keeps only the latest state", func() {
		expected := `
# HELP fleetops_batch_state 1 for the state the current batch is in.
# TYPE fleetops_batch_state gauge
fleetops_batch_state{action="reboot",state="aborted"} 1
# HELP fleetops_last_batch_index 1-based index of the last batch started.
# TYPE fleetops_last_batch_index gauge
fleetops_last_batch_index 3
`
		Expect(testutil.GatherAndCompare(recorder.Registry(), strings.NewReader(expected),
			"fleetops_batch_state", "fleetops_last_batch_index")).To(Succeed())
	})

	It("writes a textfile", func() {
		path := filepath.Join(GinkgoT().TempDir(), "fleetops.prom")
		Expect(recorder.WriteTextfile(path)).To(Succeed())

		content, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(ContainSubstring(`fleetops_batch_duration_seconds_count{action="reboot"} 3`))
		Expect(string(content)).To(ContainSubstring("# TYPE fleetops_last_batch_finished_timestamp_seconds gauge"))
	})
})
