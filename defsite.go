package dg

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// A DefSite identifies the byte range [Off, Off+Len) of a memory object
// written by a definition.
type DefSite struct {
	Target *MemoryObject
	Off    Offset
	Len    Offset
}

func (s DefSite) String() string {
	return fmt.Sprintf("%v[%v:+%v]", s.Target, s.Off, s.Len)
}

// compareSites orders sites by target identity first, so that all sites
// of one object form a contiguous run, then by offset and length with
// unknown last.
func compareSites(a, b DefSite) int {
	if c := compareObjects(a.Target, b.Target); c != 0 {
		return c
	}
	if c := a.Off.Cmp(b.Off); c != 0 {
		return c
	}
	return a.Len.Cmp(b.Len)
}

// A KillSet lists the writes performed on a control-flow edge that may
// strongly overwrite incoming definitions. It is kept sorted by target
// so that Merge can binary-search the run of kills for one object. A
// nil KillSet means no strong updates happen on the edge.
type KillSet []DefSite

func NewKillSet(sites ...DefSite) KillSet {
	ks := KillSet(slices.Clone(sites))
	slices.SortFunc(ks, func(a, b DefSite) bool { return compareSites(a, b) < 0 })
	return ks
}

// forTarget returns the contiguous run of kills targeting obj.
func (k KillSet) forTarget(obj *MemoryObject) []DefSite {
	lo, _ := slices.BinarySearchFunc(k, obj, func(s DefSite, obj *MemoryObject) int {
		return compareObjects(s.Target, obj)
	})
	hi := lo
	for hi < len(k) && k[hi].Target == obj {
		hi++
	}
	return k[lo:hi]
}
