package dg

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ObjectKind classifies how a memory object was allocated.
type ObjectKind uint8

const (
	// ObjRegular is storage with a single runtime instance (globals,
	// stack slots).
	ObjRegular ObjectKind = iota
	// ObjDynAlloc is a heap allocation site. One ObjDynAlloc object may
	// stand for arbitrarily many runtime instances, which rules out
	// strong updates against it.
	ObjDynAlloc
)

// A MemoryObject is an abstract storage location. Objects are created
// once by the graph builder and referenced by handle afterwards;
// equality is identity.
type MemoryObject struct {
	id   int
	name string
	size uint64
	kind ObjectKind

	unknown  bool
	pointsTo PointsToMap
}

// NewObject creates a memory object. size is in bytes, 0 meaning
// unknown or unbounded.
func NewObject(name string, size uint64, kind ObjectKind) *MemoryObject {
	return &MemoryObject{
		id:       mkID(),
		name:     name,
		size:     size,
		kind:     kind,
		pointsTo: make(PointsToMap),
	}
}

// UnknownMemory stands for "any memory": the target of definitions and
// pointers whose destination could not be resolved at all. It is
// permanently unknown.
var UnknownMemory = &MemoryObject{name: "unknown memory", unknown: true}

func (m *MemoryObject) Name() string     { return m.name }
func (m *MemoryObject) Size() uint64     { return m.size }
func (m *MemoryObject) Kind() ObjectKind { return m.kind }

// IsUnknown reports whether the object is in the terminal conservative
// state: it may point to, or be aliased with, anything.
func (m *MemoryObject) IsUnknown() bool { return m.unknown }

// SetUnknown moves the object into the terminal conservative state,
// discarding all points-to data. The transition is one-way; once
// unknown, the object can never be refined again. Returns true only on
// the first call.
func (m *MemoryObject) SetUnknown() bool {
	if m.unknown {
		return false
	}
	log.Debugf("%v becomes unknown, dropping points-to data for %d offsets", m, len(m.pointsTo))
	m.pointsTo = nil
	m.unknown = true
	return true
}

// AddPointsTo records that reading the object at off may yield ptr,
// reporting whether the pointer was new. Adding to an unknown object is
// a no-op.
func (m *MemoryObject) AddPointsTo(off Offset, ptr Pointer) bool {
	if m.unknown {
		return false
	}
	return m.pointsTo.add(off, ptr)
}

// PointsTo returns the pointers recorded at exactly off. The result is
// nil when nothing was recorded there; it is always nil for unknown
// objects, which must be treated as pointing to anything.
func (m *MemoryObject) PointsTo(off Offset) PointsToSet { return m.pointsTo[off] }

// Pointees resolves a read of the object at off conservatively.
// Pointers recorded at an unknown offset may live anywhere in the
// object, so they are always included, and a read at an unknown offset
// may observe every recorded pointer. The result is sorted by (object,
// offset); it is nil for unknown objects.
func (m *MemoryObject) Pointees(off Offset) []Pointer {
	if m.unknown {
		return nil
	}
	seen := make(PointsToSet)
	collect := func(s PointsToSet) {
		for ptr := range s {
			seen[ptr] = struct{}{}
		}
	}
	if off.IsUnknown() {
		for _, s := range m.pointsTo {
			collect(s)
		}
	} else {
		collect(m.pointsTo[off])
		collect(m.pointsTo[UnknownOffset])
	}
	return seen.Pointers()
}

func (m *MemoryObject) String() string {
	if m.name != "" {
		return m.name
	}
	return fmt.Sprintf("obj%d", m.id)
}

// compareObjects gives the stable total order on object handles that
// groups all definition sites of one object together.
func compareObjects(a, b *MemoryObject) int { return a.id - b.id }

// A Pointer is an abstract address: a memory object and a byte offset
// into it.
type Pointer struct {
	Obj *MemoryObject
	Off Offset
}

func (p Pointer) String() string {
	return fmt.Sprintf("%v+%v", p.Obj, p.Off)
}

func comparePointers(a, b Pointer) int {
	if c := compareObjects(a.Obj, b.Obj); c != 0 {
		return c
	}
	return a.Off.Cmp(b.Off)
}

// A PointsToSet is a set of abstract addresses.
type PointsToSet map[Pointer]struct{}

func (s PointsToSet) Contains(p Pointer) bool {
	_, found := s[p]
	return found
}

func (s PointsToSet) Len() int { return len(s) }

// Pointers returns the members sorted by (object, offset).
func (s PointsToSet) Pointers() []Pointer {
	ptrs := maps.Keys(s)
	slices.SortFunc(ptrs, func(a, b Pointer) bool { return comparePointers(a, b) < 0 })
	return ptrs
}

// A PointsToMap keys points-to sets by the offset the pointer was
// stored at.
type PointsToMap map[Offset]PointsToSet

func (m PointsToMap) add(off Offset, ptr Pointer) bool {
	s, ok := m[off]
	if !ok {
		s = make(PointsToSet)
		m[off] = s
	}
	if _, found := s[ptr]; found {
		return false
	}
	s[ptr] = struct{}{}
	return true
}
