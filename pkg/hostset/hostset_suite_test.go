package hostset

import (
	"fmt"
	"math"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestHostSet(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "HostSet Suite")
}

func makeHosts(n int) HostSet {
	hosts := New()
	for i := 1; i <= n; i++ {
		hosts.Add(fmt.Sprintf("host%d.example.org", i))
	}
	return hosts
}

var _ = Describe("Test HostSet", func() {
	It("drops duplicates and keeps the first occurrence order", func() {
		hosts := New("b", "a", "b", "", " c ", "a")
		Expect(hosts.Hosts()).To(Equal([]string{"b", "a", "c"}))
		Expect(hosts.Len()).To(Equal(3))
		Expect(hosts.Contains("c")).To(BeTrue())
		Expect(hosts.Contains("d")).To(BeFalse())
	})

	It("subtracts other sets preserving order", func() {
		all := New("a", "b", "c", "d", "e")
		left := all.Minus(New("b", "x"), New("e"))
		Expect(left.Hosts()).To(Equal([]string{"a", "c", "d"}))
	})

	It("zero value is usable", func() {
		var hosts HostSet
		Expect(hosts.Contains("a")).To(BeFalse())
		Expect(hosts.Add("a")).To(BeTrue())
		Expect(hosts.Add("a")).To(BeFalse())
		Expect(hosts.String()).To(Equal("a"))
	})
})

var _ = Describe("Test Split", func() {
	DescribeTable("batch sizes",
		func(hostCount, batchSize int, expectedSizes []int) {
			hosts := makeHosts(hostCount)
			batches, err := Split(hosts, batchSize)
			Expect(err).NotTo(HaveOccurred())

			sizes := []int{}
			concatenated := []string{}
			for i, batch := range batches {
				Expect(batch.Index).To(Equal(i + 1))
				Expect(batch.Total).To(Equal(len(batches)))
				sizes = append(sizes, batch.Hosts.Len())
				concatenated = append(concatenated, batch.Hosts.Hosts()...)
			}

			Expect(sizes).To(Equal(expectedSizes))
			Expect(concatenated).To(Equal(hosts.Hosts()))
		},
		Entry("7 hosts by 2", 7, 2, []int{2, 2, 2, 1}),
		Entry("batch size equal to host count", 5, 5, []int{5}),
		Entry("batch size larger than host count", 3, 10, []int{3}),
		Entry("batch size 1", 3, 1, []int{1, 1, 1}),
		Entry("even split", 6, 3, []int{3, 3}),
		Entry("no hosts", 0, 4, []int{}),
		Entry("largest possible batch size", 3, math.MaxInt, []int{3}),
	)

	It("is deterministic", func() {
		hosts := makeHosts(11)
		first, err := Split(hosts, 4)
		Expect(err).NotTo(HaveOccurred())
		second, err := Split(hosts, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(first)).To(Equal(len(second)))
		for i := range first {
			Expect(first[i].Hosts.Hosts()).To(Equal(second[i].Hosts.Hosts()))
		}
	})

	It("rejects non-positive batch sizes", func() {
		_, err := Split(makeHosts(3), 0)
		Expect(err).To(MatchError(ErrInvalidBatchSize))
	})
})
