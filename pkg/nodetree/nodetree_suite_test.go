package nodetree_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fleetops/fleetops/pkg/nodetree"
)

func TestNodeTree(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Node Tree Suite")
}

func wellFormed() []nodetree.Record {
	return []nodetree.Record{
		{ID: 0, Name: "osd.0", Type: "osd", Class: "ssd", Status: "up", Weight: 1.745},
		{ID: -1, Name: "default", Type: "root", Children: []int{-3, -5}},
		{ID: -3, Name: "node1", Type: "host", Children: []int{0, 1}},
		{ID: 1, Name: "osd.1", Type: "osd", Class: "hdd", Status: "down", Weight: 3.5},
		{ID: -5, Name: "node2", Type: "host", Children: []int{2}},
		{ID: 2, Name: "osd.2", Type: "osd", Class: "nvme", Status: "destroyed"},
	}
}

var _ = Describe("Test Build", func() {
	It("rebuilds a well-formed tree", func() {
		root, err := nodetree.Build(wellFormed(), "osd")
		Expect(err).NotTo(HaveOccurred())

		expected := &nodetree.Node{
			ID: -1, Name: "default", Type: "root",
			Children: []*nodetree.Node{
				{
					ID: -3, Name: "node1", Type: "host",
					Children: []*nodetree.Node{
						{ID: 0, Name: "osd.0", Type: "osd", Unit: &nodetree.Unit{
							ID: 0, Name: "osd.0", Class: nodetree.ClassSSD, Status: nodetree.StatusUp, Weight: 1.745,
						}},
						{ID: 1, Name: "osd.1", Type: "osd", Unit: &nodetree.Unit{
							ID: 1, Name: "osd.1", Class: nodetree.ClassHDD, Status: nodetree.StatusDown, Weight: 3.5,
						}},
					},
				},
				{
					ID: -5, Name: "node2", Type: "host",
					Children: []*nodetree.Node{
						{ID: 2, Name: "osd.2", Type: "osd", Unit: &nodetree.Unit{
							ID: 2, Name: "osd.2", Class: nodetree.ClassUnknown, Status: nodetree.StatusUnknown,
						}},
					},
				},
			},
		}
		Expect(cmp.Diff(expected, root)).To(BeEmpty())
	})

	It("has one leaf per unit record", func() {
		root, err := nodetree.Build(wellFormed(), "osd")
		Expect(err).NotTo(HaveOccurred())
		Expect(root.Units()).To(HaveLen(3))
		Expect(root.String()).To(ContainSubstring("    osd.1 hdd down 3.500\n"))
	})

	DescribeTable("malformed input",
		func(mutate func([]nodetree.Record) []nodetree.Record, reason string) {
			_, err := nodetree.Build(mutate(wellFormed()), "osd")

			var malformed *nodetree.MalformedError
			Expect(errors.As(err, &malformed)).To(BeTrue())
			Expect(malformed.Reason).To(ContainSubstring(reason))
		},
		Entry("two roots", func(r []nodetree.Record) []nodetree.Record {
			return append(r, nodetree.Record{ID: -9, Name: "other", Type: "root", Children: []int{}})
		}, "found 2"),
		Entry("no root", func(r []nodetree.Record) []nodetree.Record {
			return r[2:]
		}, "found 0"),
		Entry("dangling child", func(r []nodetree.Record) []nodetree.Record {
			r[4].Children = []int{2, 42}
			return r
		}, "child id 42"),
		Entry("inner node without children", func(r []nodetree.Record) []nodetree.Record {
			r[4].Children = nil
			return r
		}, "has no children"),
		Entry("duplicate ids", func(r []nodetree.Record) []nodetree.Record {
			return append(r, nodetree.Record{ID: 2, Name: "osd.2bis", Type: "osd"})
		}, "duplicate id 2"),
		Entry("cycle", func(r []nodetree.Record) []nodetree.Record {
			r[4].Children = []int{2, -3, -5}
			return r
		}, "cycle"),
	)

	It("accepts an empty children list", func() {
		root, err := nodetree.Build([]nodetree.Record{{ID: -1, Name: "default", Type: "root", Children: []int{}}}, "osd")
		Expect(err).NotTo(HaveOccurred())
		Expect(root.Units()).To(BeEmpty())
	})
})
