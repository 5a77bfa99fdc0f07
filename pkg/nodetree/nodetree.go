package nodetree

import (
	"fmt"
	"strings"
)

const RootType = "root"

// Record is one flat node as reported by the cluster, e.g. an entry of
// `ceph osd tree -f json`. Children is nil when the record carries no
// children list at all.
type Record struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Children []int   `json:"children,omitempty"`
	Class    string  `json:"device_class,omitempty"`
	Status   string  `json:"status,omitempty"`
	Weight   float64 `json:"crush_weight,omitempty"`
}

type UnitClass string

const (
	ClassHDD     UnitClass = "hdd"
	ClassSSD     UnitClass = "ssd"
	ClassUnknown UnitClass = "unknown"
)

type UnitStatus string

const (
	StatusUp      UnitStatus = "up"
	StatusDown    UnitStatus = "down"
	StatusUnknown UnitStatus = "unknown"
)

// Unit is a typed leaf, a single storage daemon for Ceph.
type Unit struct {
	ID     int
	Name   string
	Class  UnitClass
	Status UnitStatus
	Weight float64
}

func newUnit(r Record) *Unit {
	class := UnitClass(r.Class)
	if class != ClassHDD && class != ClassSSD {
		class = ClassUnknown
	}
	status := UnitStatus(r.Status)
	if status != StatusUp && status != StatusDown {
		status = StatusUnknown
	}
	return &Unit{
		ID:     r.ID,
		Name:   r.Name,
		Class:  class,
		Status: status,
		Weight: r.Weight,
	}
}

type Node struct {
	ID       int
	Name     string
	Type     string
	Children []*Node
	// Unit is set on leaves of the unit type only.
	Unit *Unit
}

type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return "malformed node tree: " + e.Reason
}

func malformed(format string, args ...any) error {
	return &MalformedError{Reason: fmt.Sprintf(format, args...)}
}

// Build reconstructs the tree rooted at the single record of type "root".
// Records of unitType become leaves carrying a Unit, every other record must
// carry a children list, and every referenced child id must resolve.
func Build(records []Record, unitType string) (*Node, error) {
	byID := make(map[int]Record, len(records))
	var roots []Record
	for _, r := range records {
		if _, duplicate := byID[r.ID]; duplicate {
			return nil, malformed("duplicate id %d", r.ID)
		}
		byID[r.ID] = r
		if r.Type == RootType {
			roots = append(roots, r)
		}
	}

	if len(roots) != 1 {
		return nil, malformed("expected exactly one %q record, found %d", RootType, len(roots))
	}

	visiting := map[int]bool{}
	var build func(r Record) (*Node, error)
	build = func(r Record) (*Node, error) {
		node := &Node{ID: r.ID, Name: r.Name, Type: r.Type}
		if r.Type == unitType {
			node.Unit = newUnit(r)
			return node, nil
		}
		if r.Children == nil {
			return nil, malformed("%s %q (id %d) is not a %s and has no children", r.Type, r.Name, r.ID, unitType)
		}
		if visiting[r.ID] {
			return nil, malformed("cycle through id %d", r.ID)
		}
		visiting[r.ID] = true
		defer delete(visiting, r.ID)

		for _, childID := range r.Children {
			child, found := byID[childID]
			if !found {
				return nil, malformed("child id %d of %q does not resolve", childID, r.Name)
			}
			childNode, err := build(child)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, childNode)
		}
		return node, nil
	}

	return build(roots[0])
}

// Walk visits nodes depth-first, parents before children.
func (n *Node) Walk(visit func(node *Node, depth int)) {
	var walk func(node *Node, depth int)
	walk = func(node *Node, depth int) {
		visit(node, depth)
		for _, child := range node.Children {
			walk(child, depth+1)
		}
	}
	walk(n, 0)
}

func (n *Node) Units() []Unit {
	units := []Unit{}
	n.Walk(func(node *Node, _ int) {
		if node.Unit != nil {
			units = append(units, *node.Unit)
		}
	})
	return units
}

func (n *Node) String() string {
	sb := strings.Builder{}
	n.Walk(func(node *Node, depth int) {
		sb.WriteString(strings.Repeat("  ", depth))
		if node.Unit != nil {
			sb.WriteString(fmt.Sprintf("%s %s %s %.3f\n", node.Name, node.Unit.Class, node.Unit.Status, node.Unit.Weight))
			return
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", node.Type, node.Name))
	})
	return sb.String()
}
