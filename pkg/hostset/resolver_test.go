package hostset

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Test InventoryResolver", func() {
	resolver := NewInventoryResolver(Inventory{
		Aliases: map[string][]string{
			"ceph-osd": {"cephosd[1001-1003].eqiad.wmnet"},
			"web":      {"web*.example.org", "static1.example.org"},
		},
		Hosts: []string{
			"web2.example.org",
			"web1.example.org",
			"db1.example.org",
			"static1.example.org",
		},
	})

	DescribeTable("resolves targets",
		func(target Target, expected []string) {
			hosts, err := resolver.Resolve(context.Background(), target)
			Expect(err).NotTo(HaveOccurred())
			Expect(hosts.Hosts()).To(Equal(expected))
		},
		Entry("alias with a range", Target{Alias: "ceph-osd"},
			[]string{"cephosd1001.eqiad.wmnet", "cephosd1002.eqiad.wmnet", "cephosd1003.eqiad.wmnet"}),
		Entry("alias with a glob keeps inventory order", Target{Alias: "web"},
			[]string{"web2.example.org", "web1.example.org", "static1.example.org"}),
		Entry("query with literal hosts and duplicates", Target{Query: "b.example.org, a.example.org,b.example.org"},
			[]string{"b.example.org", "a.example.org"}),
		Entry("query with glob", Target{Query: "db*"},
			[]string{"db1.example.org"}),
	)

	It("fails when nothing matches", func() {
		_, err := resolver.Resolve(context.Background(), Target{Query: "nothing*"})
		Expect(err).To(MatchError(ErrNoHostsMatched))
	})

	It("fails on unknown aliases", func() {
		_, err := resolver.Resolve(context.Background(), Target{Alias: "unknown"})
		Expect(err).To(HaveOccurred())
	})

	It("rejects alias and query together", func() {
		_, err := resolver.Resolve(context.Background(), Target{Alias: "web", Query: "db*"})
		Expect(err).To(HaveOccurred())
	})
})
