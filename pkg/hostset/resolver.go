package hostset

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/fleetops/fleetops/pkg/utils"
)

var ErrNoHostsMatched = errors.New("no hosts matched")

// Target selects hosts either by a named alias or by a query. Exactly one
// of the fields is expected to be set.
type Target struct {
	Alias string
	Query string
}

func (t Target) String() string {
	if t.Alias != "" {
		return "alias " + t.Alias
	}
	return "query " + t.Query
}

type Resolver interface {
	Resolve(ctx context.Context, target Target) (HostSet, error)
}

// Inventory is the static host list known to the resolver.
type Inventory struct {
	Aliases map[string][]string
	Hosts   []string
}

type InventoryResolver struct {
	inventory Inventory
}

func NewInventoryResolver(inventory Inventory) *InventoryResolver {
	return &InventoryResolver{inventory: inventory}
}

// Resolve turns an alias or a query into hosts. A query is a comma-delimited
// list of items, every item is either a literal host (numeric ranges like
// db[1-3] are expanded) or a glob matched against the inventory hosts.
func (r *InventoryResolver) Resolve(_ context.Context, target Target) (HostSet, error) {
	var items []string
	switch {
	case target.Alias != "" && target.Query != "":
		return HostSet{}, fmt.Errorf("alias and query are mutually exclusive")
	case target.Alias != "":
		aliased, present := r.inventory.Aliases[target.Alias]
		if !present {
			return HostSet{}, fmt.Errorf("alias %s is not defined in the inventory", target.Alias)
		}
		items = aliased
	case target.Query != "":
		items = strings.Split(target.Query, ",")
	default:
		return HostSet{}, fmt.Errorf("neither alias nor query specified")
	}

	hosts := New()
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		expanded, err := utils.ExpandHostRanges(item)
		if err != nil {
			return HostSet{}, err
		}

		for _, pattern := range expanded {
			if !isGlob(pattern) {
				hosts.Add(pattern)
				continue
			}
			for _, host := range r.inventory.Hosts {
				matched, err := path.Match(pattern, host)
				if err != nil {
					return HostSet{}, fmt.Errorf("invalid host pattern %s: %w", pattern, err)
				}
				if matched {
					hosts.Add(host)
				}
			}
		}
	}

	if hosts.Len() == 0 {
		return HostSet{}, fmt.Errorf("%w %s", ErrNoHostsMatched, target)
	}
	return hosts, nil
}

func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?")
}
