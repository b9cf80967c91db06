package dg

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// mkID hands out the sequence numbers that give nodes and memory
// objects their stable total order.
var mkID = func() func() int {
	var cntr int
	return func() int {
		cntr++
		return cntr
	}
}()

// A Node identifies the program point that performed a write. Nodes are
// created by the graph builder and treated as opaque handles afterwards;
// equality is identity.
type Node struct {
	id   int
	name string
}

func NewNode(name string) *Node {
	return &Node{id: mkID(), name: name}
}

func (n *Node) String() string {
	if n.name != "" {
		return n.name
	}
	return fmt.Sprintf("n%d", n.id)
}

// A NodeSet is a set of definition nodes. When tracking the exact
// membership becomes too expensive (see MergeOptions.MaxSetSize) the set
// collapses to an unknown state: it stops enumerating members and
// conservatively contains every node.
type NodeSet struct {
	nodes   map[*Node]struct{}
	unknown bool
}

func NewNodeSet(nodes ...*Node) *NodeSet {
	s := &NodeSet{}
	for _, n := range nodes {
		s.Add(n)
	}
	return s
}

// Add inserts n, reporting whether the set changed. Inserting into an
// unknown set is a no-op.
func (s *NodeSet) Add(n *Node) bool {
	if s.unknown {
		return false
	}
	if s.nodes == nil {
		s.nodes = make(map[*Node]struct{})
	}
	if _, found := s.nodes[n]; found {
		return false
	}
	s.nodes[n] = struct{}{}
	return true
}

// Contains reports whether n may be a member. An unknown set contains
// every node.
func (s *NodeSet) Contains(n *Node) bool {
	if s.unknown {
		return true
	}
	_, found := s.nodes[n]
	return found
}

// Len returns the number of tracked members. An unknown set tracks
// nothing, so its length is 0 even though it contains every node.
func (s *NodeSet) Len() int { return len(s.nodes) }

func (s *NodeSet) IsUnknown() bool { return s.unknown }

// MakeUnknown collapses the set to the conservative state, discarding
// the membership tracking for good. Returns true only on the
// transition.
func (s *NodeSet) MakeUnknown() bool {
	if s.unknown {
		return false
	}
	s.nodes = nil
	s.unknown = true
	return true
}

// Nodes returns the tracked members in creation order. Unknown sets
// have no enumerable members.
func (s *NodeSet) Nodes() []*Node {
	nodes := maps.Keys(s.nodes)
	slices.SortFunc(nodes, func(a, b *Node) bool { return a.id < b.id })
	return nodes
}

// union absorbs o's members, reporting whether the set changed. Merging
// an unknown set in makes the receiver unknown.
func (s *NodeSet) union(o *NodeSet) bool {
	if o.unknown {
		return s.MakeUnknown()
	}
	changed := false
	for n := range o.nodes {
		changed = s.Add(n) || changed
	}
	return changed
}

func (s *NodeSet) String() string {
	if s.unknown {
		return "{?}"
	}
	return fmt.Sprint(s.Nodes())
}
