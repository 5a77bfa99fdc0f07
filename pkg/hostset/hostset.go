package hostset

import (
	"errors"
	"fmt"
	"strings"
)

// HostSet is an ordered collection of unique host names. The order of the
// first occurrence of every host is kept, so two HostSets built from the
// same input always iterate identically.
type HostSet struct {
	hosts []string
	index map[string]struct{}
}

func New(hosts ...string) HostSet {
	s := HostSet{
		hosts: make([]string, 0, len(hosts)),
		index: make(map[string]struct{}, len(hosts)),
	}
	for _, host := range hosts {
		s.Add(host)
	}
	return s
}

// Add appends the host unless it is empty or already present.
func (s *HostSet) Add(host string) bool {
	host = strings.TrimSpace(host)
	if host == "" {
		return false
	}
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, present := s.index[host]; present {
		return false
	}
	s.index[host] = struct{}{}
	s.hosts = append(s.hosts, host)
	return true
}

func (s HostSet) Len() int {
	return len(s.hosts)
}

func (s HostSet) Contains(host string) bool {
	_, present := s.index[host]
	return present
}

// Hosts returns a copy of the hosts in set order.
func (s HostSet) Hosts() []string {
	result := make([]string, len(s.hosts))
	copy(result, s.hosts)
	return result
}

// Minus returns the hosts of s not present in any of the others, in s order.
func (s HostSet) Minus(others ...HostSet) HostSet {
	result := New()
	for _, host := range s.hosts {
		excluded := false
		for _, other := range others {
			if other.Contains(host) {
				excluded = true
				break
			}
		}
		if !excluded {
			result.Add(host)
		}
	}
	return result
}

func (s HostSet) String() string {
	return strings.Join(s.hosts, ",")
}

var ErrInvalidBatchSize = errors.New("batch size must be at least 1")

// Batch is a contiguous part of a HostSet, processed as one unit.
type Batch struct {
	// Index is 1-based.
	Index int
	Total int
	Hosts HostSet
}

func (b Batch) String() string {
	return fmt.Sprintf("batch %d/%d [%s]", b.Index, b.Total, b.Hosts)
}

// Split cuts hosts into ceil(len/size) contiguous batches. Concatenating the
// batches in order gives back the original host order.
func Split(hosts HostSet, size int) ([]Batch, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidBatchSize, size)
	}

	total := hosts.Len() / size
	if hosts.Len()%size != 0 {
		total++
	}
	batches := make([]Batch, 0, total)
	for start := 0; start < hosts.Len(); start += size {
		end := min(start+size, hosts.Len())
		batches = append(batches, Batch{
			Index: len(batches) + 1,
			Total: total,
			Hosts: New(hosts.hosts[start:end]...),
		})
	}
	return batches, nil
}
