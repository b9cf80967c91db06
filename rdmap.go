package dg

import (
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// An RDMap maps definition sites to the set of nodes whose writes may
// still reach the owning program point. Entries are kept sorted by
// (target, offset, length) so that the run of sites belonging to one
// object can be recovered with a binary search.
//
// Each RDMap instance is owned by a single graph node; the external
// fixed-point driver mutates it only through Merge/Add/Update and reads
// it through Get after convergence.
type RDMap struct {
	defs []rdEntry
}

type rdEntry struct {
	site  DefSite
	nodes *NodeSet
}

// MergeOptions tunes the precision/cost tradeoffs of RDMap.Merge.
type MergeOptions struct {
	// StrongUpdateUnknown allows a definition at an unknown offset to
	// be killed when the kill set provably overwrites the target object
	// in full (a kill at offset 0 with length covering the object's
	// known size).
	StrongUpdateUnknown bool

	// MaxSetSize caps the node set of a single site; past the cap the
	// set collapses to unknown. 0 means uncapped.
	MaxSetSize int

	// FoldUnknown folds every concrete-offset site of a target into the
	// target's unknown-offset site as soon as one arrives. To a def-use
	// relation the concrete sites add no resolving power once an
	// unknown write to the same object must be accounted for:
	//
	//   def(A, 0, 4) at N1
	//   def(A, ?) at N2
	//   use(A, 2)
	//
	// reaches N1 and N2 either way, so both definitions can live in the
	// single unknown-offset entry. Folding loses some precision for
	// uses that provably miss a concrete site, in exchange for much
	// smaller maps when unknown writes are common.
	FoldUnknown bool
}

// killAction is the strong-update decision for one incoming site.
type killAction uint8

const (
	// weakMerge keeps the incoming definition alongside ours.
	weakMerge killAction = iota
	// skipSite drops the incoming definition; the kill set proves it is
	// completely overwritten on this edge.
	skipSite
	// reclassifyUnknown keeps the incoming definition but treats its
	// offset as unknown for this pass: a kill of the same target has an
	// unknown offset, so it is too imprecise to prove anything dead.
	reclassifyUnknown
)

// classifyKill decides whether the kills on an edge overwrite the
// incoming site. Dynamically allocated targets are never strongly
// killed: the allocation site may stand for many runtime instances, and
// overwriting one says nothing about the others.
func classifyKill(site DefSite, kills KillSet, strongUpdateUnknown bool) killAction {
	if len(kills) == 0 {
		return weakMerge
	}

	if strongUpdateUnknown && site.Off.IsUnknown() && site.Target.Size() > 0 {
		// The incoming offset is unknown, but a single kill overwriting
		// the whole object still proves the definition dead.
		// XXX: several kills that only cover the object together are
		// not detected; checking that would cost more than it buys.
		for _, kill := range kills.forTarget(site.Target) {
			if kill.Off == Off(0) && kill.Len.Cmp(Off(site.Target.Size())) >= 0 {
				return skipSite
			}
		}
		return weakMerge
	}

	if site.Target.Kind() == ObjDynAlloc {
		return weakMerge
	}

	for _, kill := range kills.forTarget(site.Target) {
		if kill.Off.IsUnknown() {
			return reclassifyUnknown
		}
		if containsRange(kill, site) {
			return skipSite
		}
	}
	return weakMerge
}

// containsRange reports whether kill's byte range contains site's
// whole range. Containment of a range without a concrete start can
// never be proven; unknown lengths extend a range to the end of the
// object, so Cmp's unknown-as-maximum order keeps the comparison
// conservative.
func containsRange(kill, site DefSite) bool {
	if site.Off.IsUnknown() {
		return false
	}
	return site.Off.Cmp(kill.Off) >= 0 &&
		site.Off.Add(site.Len).Cmp(kill.Off.Add(kill.Len)) <= 0
}

// Merge folds other's definitions into m, honouring the strong updates
// listed in kills. It reports whether m changed, which the driver uses
// as the fixed-point termination test. Merge is monotone (node sets
// only grow, or collapse to the strictly more conservative unknown
// state) and idempotent, which is what makes the driver's loop
// terminate.
func (m *RDMap) Merge(other *RDMap, kills KillSet, opts MergeOptions) bool {
	if m == other {
		return false
	}

	changed := false
	for _, in := range other.defs {
		isUnknown := in.site.Off.IsUnknown()

		switch classifyKill(in.site, kills, opts.StrongUpdateUnknown) {
		case skipSite:
			// Completely overwritten on this edge.
			continue
		case reclassifyUnknown:
			isUnknown = true
		}

		var ours *NodeSet
		if opts.FoldUnknown && isUnknown {
			ours = m.foldUnknown(in.site.Target, &changed)
		} else {
			ours = m.entryFor(in.site)
		}

		changed = ours.union(in.nodes) || changed

		// Crop the set when it outgrows the cap. Not for sites of
		// unknown memory though: those would degenerate to "unknown
		// memory defined at an unknown place".
		if !in.site.Target.IsUnknown() && opts.MaxSetSize > 0 && ours.Len() > opts.MaxSetSize {
			log.Debugf("reaching set for %v outgrew %d nodes, collapsing to unknown",
				in.site, opts.MaxSetSize)
			ours.MakeUnknown()
		}
	}

	return changed
}

// foldUnknown returns obj's unknown-offset entry after folding every
// other entry for obj into it and deleting them. changed is raised when
// the folded sets contribute new members.
func (m *RDMap) foldUnknown(obj *MemoryObject, changed *bool) *NodeSet {
	unknown := m.entryFor(DefSite{obj, UnknownOffset, UnknownOffset})

	lo, hi := m.objectRange(obj)
	kept := lo
	for i := lo; i < hi; i++ {
		e := m.defs[i]
		if e.site.Target != obj {
			log.Panicf("object range of %v yielded a site of %v", obj, e.site.Target)
		}
		if e.nodes == unknown {
			m.defs[kept] = e
			kept++
			continue
		}
		*changed = unknown.union(e.nodes) || *changed
	}
	m.defs = slices.Delete(m.defs, kept, hi)

	return unknown
}

// Add records node as a weak definition of site, reporting whether it
// was new.
func (m *RDMap) Add(site DefSite, node *Node) bool {
	return m.entryFor(site).Add(node)
}

// Update strongly replaces the definitions of site with node: the new
// write provably overwrites the whole site, so the previous definitions
// are dead there. Reports whether the entry changed.
func (m *RDMap) Update(site DefSite, node *Node) bool {
	s := m.entryFor(site)
	_, had := s.nodes[node]
	changed := !had || s.Len() > 1

	s.nodes = map[*Node]struct{}{node: {}}
	s.unknown = false
	return changed
}

// DefinesAnyOffset reports whether the map holds a definition of obj at
// any offset.
func (m *RDMap) DefinesAnyOffset(obj *MemoryObject) bool {
	lo, hi := m.objectRange(obj)
	return lo != hi
}

// Get returns the definitions that may reach a read of length bytes at
// off in obj. An entry matches when its byte range may overlap the
// queried one: entries at unknown offsets always match, and an unknown
// query offset matches every entry of the object.
//
// The result is freshly allocated. It is unknown whenever any
// contributing set was unknown; such a result has no enumerable members
// but Contains reports true for every node.
func (m *RDMap) Get(obj *MemoryObject, off, length Offset) *NodeSet {
	ret := &NodeSet{}
	lo, hi := m.objectRange(obj)
	for i := lo; i < hi; i++ {
		e := m.defs[i]
		if e.site.Target != obj {
			log.Panicf("object range of %v yielded a site of %v", obj, e.site.Target)
		}
		if off.IsUnknown() || mayOverlap(e.site, off, length) {
			ret.union(e.nodes)
		}
	}
	return ret
}

// mayOverlap reports whether a definition of site may cover the read of
// length bytes at off (off is concrete here; unknown query offsets are
// handled in Get). The predicate proves "cannot overlap", never exact
// aliasing. Zero-length ranges cover no bytes and never overlap.
func mayOverlap(site DefSite, off, length Offset) bool {
	if site.Len == Off(0) || length == Off(0) {
		return false
	}
	if site.Off.IsUnknown() {
		return true
	}
	return site.Off.Cmp(inclusiveEnd(off, length)) <= 0 &&
		off.Cmp(inclusiveEnd(site.Off, site.Len)) <= 0
}

// inclusiveEnd returns the last byte of [off, off+length), or an
// unknown offset when the range has no concrete end.
func inclusiveEnd(off, length Offset) Offset {
	if off.IsUnknown() || length.IsUnknown() {
		return UnknownOffset
	}
	return Off(off.Value() + length.Value() - 1)
}

// Copy returns a deep copy built by merging into an empty map: fresh
// entries and node sets, shared object and node handles.
func (m *RDMap) Copy() *RDMap {
	c := &RDMap{}
	c.Merge(m, nil, MergeOptions{})
	return c
}

// Len returns the number of definition sites in the map.
func (m *RDMap) Len() int { return len(m.defs) }

// ForEach visits every (site, node set) pair in key order.
func (m *RDMap) ForEach(f func(DefSite, *NodeSet)) {
	for _, e := range m.defs {
		f(e.site, e.nodes)
	}
}

// search locates site's entry, returning its index and whether it is
// present; absent sites report their insertion index.
func (m *RDMap) search(site DefSite) (int, bool) {
	return slices.BinarySearchFunc(m.defs, site, func(e rdEntry, site DefSite) int {
		return compareSites(e.site, site)
	})
}

// entryFor returns the node set stored for site, creating an empty
// entry when the map has none.
func (m *RDMap) entryFor(site DefSite) *NodeSet {
	i, found := m.search(site)
	if !found {
		m.defs = slices.Insert(m.defs, i, rdEntry{site: site, nodes: &NodeSet{}})
	}
	return m.defs[i].nodes
}

// objectRange returns the bounds [lo, hi) of the entries targeting obj.
// Every operation that scans "all sites of one object" goes through
// here.
func (m *RDMap) objectRange(obj *MemoryObject) (int, int) {
	lo, _ := slices.BinarySearchFunc(m.defs, obj, func(e rdEntry, obj *MemoryObject) int {
		return compareObjects(e.site.Target, obj)
	})
	hi := lo
	for hi < len(m.defs) && m.defs[hi].site.Target == obj {
		hi++
	}
	return lo, hi
}
