package assemble

// Slots is the bounded-array transform used for procedures and diagnoses.
// An ordered list of at most Size items is projected onto one principal
// position and Size-1 numbered other slots, the first of which is Base.
type Slots struct {
	Size int
	Base int
}

// Slot maps list position pos (pos >= 1) to its other-slot number.
func (s Slots) Slot(pos int) int {
	return pos - 1 + s.Base
}

// Others is the number of other slots.
func (s Slots) Others() int {
	if s.Size < 1 {
		return 0
	}
	return s.Size - 1
}

// Bound truncates items to at most s.Size and reports how many were dropped.
func Bound[T any](s Slots, items []T) ([]T, int) {
	if len(items) <= s.Size {
		return items, 0
	}
	return items[:s.Size], len(items) - s.Size
}

// Spread calls principal for position 0 and other for every following
// position with its slot number. It returns the overflow count.
func Spread[T any](s Slots, items []T, principal func(T), other func(slot int, item T)) int {
	kept, dropped := Bound(s, items)
	for pos, item := range kept {
		if pos == 0 {
			principal(item)
			continue
		}
		other(s.Slot(pos), item)
	}
	return dropped
}
