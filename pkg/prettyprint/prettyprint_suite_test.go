package prettyprint_test

import (
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fleetops/fleetops/pkg/cluster"
	"github.com/fleetops/fleetops/pkg/cluster/mock"
	"github.com/fleetops/fleetops/pkg/hostset"
	"github.com/fleetops/fleetops/pkg/nodetree"
	"github.com/fleetops/fleetops/pkg/prettyprint"
	"github.com/fleetops/fleetops/pkg/rolling"
)

func TestPrettyPrint(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "PrettyPrint Suite")
}

func rowOf(output, first string) []string {
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == first {
			return fields
		}
	}
	return nil
}

var _ = Describe("Test prettyprint", func() {
	It("prints the batch plan", func() {
		batches, err := hostset.Split(hostset.New("h1", "h2", "h3"), 2)
		Expect(err).NotTo(HaveOccurred())

		output := prettyprint.PlanToString("reboot", batches)
		Expect(output).To(HavePrefix("Plan for reboot, 2 batches:"))
		Expect(rowOf(output, "1/2")).To(Equal([]string{"1/2", "2", "h1,h2"}))
		Expect(rowOf(output, "2/2")).To(Equal([]string{"2/2", "1", "h3"}))
	})

	It("prints every host with its outcome", func() {
		results := rolling.NewResults(hostset.New("h1", "h2", "h3"))
		Expect(results.Success("h1")).To(Succeed())
		Expect(results.Fail("h2")).To(Succeed())

		output := prettyprint.ResultsToString(results)
		Expect(rowOf(output, "h1")).To(Equal([]string{"h1", prettyprint.OutcomeSuccessful}))
		Expect(rowOf(output, "h2")).To(Equal([]string{"h2", prettyprint.OutcomeFailed}))
		Expect(rowOf(output, "h3")).To(Equal([]string{"h3", "not", "attempted"}))
	})

	It("prints the tree indented", func() {
		root, err := nodetree.Build([]nodetree.Record{
			{ID: -1, Name: "default", Type: "root", Children: []int{-2}},
			{ID: -2, Name: "node1", Type: "host", Children: []int{0}},
			{ID: 0, Name: "osd.0", Type: "osd", Class: "ssd", Status: "up", Weight: 1.5},
		}, "osd")
		Expect(err).NotTo(HaveOccurred())

		output := prettyprint.TreeToString(root)
		Expect(output).To(ContainSubstring("    osd.0"))
		Expect(rowOf(output, "0")).To(Equal([]string{"0", "osd.0", "osd", "ssd", "up", "1.500"}))
		Expect(rowOf(output, "-2")).To(Equal([]string{"-2", "node1", "host"}))
	})

	It("prints the cluster status with events", func() {
		snapshot := mock.Snapshot{
			SetFlags: []cluster.Flag{"noout"},
			Events:   []cluster.ProgressEvent{{ID: "rebalance", Message: "Rebalancing after osd.3 marked in", Progress: 0.25}},
		}

		output := prettyprint.SnapshotToString("eqiad", snapshot)
		Expect(output).To(ContainSubstring("Cluster: eqiad\n"))
		Expect(output).To(ContainSubstring("Healthy: false, only maintenance: true\n"))
		Expect(output).To(ContainSubstring("Flags: noout\n"))
		Expect(rowOf(output, "rebalance")[1]).To(Equal("25.0%"))
	})
})
