package dg

import (
	"strconv"

	log "github.com/sirupsen/logrus"
)

// Offset is a byte offset into a memory object. An offset is either
// concrete or unknown; unknown models a displacement that could not be
// resolved to a constant (a variable array index, an unresolved GEP).
// Unknown offsets sort after every concrete offset, which keeps them at
// the end of each object's run in ordered containers.
type Offset struct {
	value   uint64
	unknown bool
}

// UnknownOffset is the conservative "could be any offset" value.
var UnknownOffset = Offset{unknown: true}

// Off returns the concrete offset v.
func Off(v uint64) Offset { return Offset{value: v} }

func (o Offset) IsUnknown() bool { return o.unknown }

// Value returns the concrete value of the offset. Reading the value of
// an unknown offset is a bug in the caller.
func (o Offset) Value() uint64 {
	if o.unknown {
		log.Panicf("Value read of an unknown offset")
	}
	return o.value
}

// Add sums two offsets. Adding an unknown displacement makes the result
// unknown; this is saturation into the conservative state, not overflow
// handling.
func (o Offset) Add(p Offset) Offset {
	if o.unknown || p.unknown {
		return UnknownOffset
	}
	return Off(o.value + p.value)
}

// Cmp compares two offsets, ordering unknown after all concrete values.
func (o Offset) Cmp(p Offset) int {
	switch {
	case o.unknown && p.unknown:
		return 0
	case o.unknown:
		return 1
	case p.unknown:
		return -1
	case o.value < p.value:
		return -1
	case o.value > p.value:
		return 1
	default:
		return 0
	}
}

func (o Offset) Less(p Offset) bool { return o.Cmp(p) < 0 }

func (o Offset) String() string {
	if o.unknown {
		return "?"
	}
	return strconv.FormatUint(o.value, 10)
}
