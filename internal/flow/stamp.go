package flow

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// Stamp is an ordering token attached to every datum on an edge. The color
// identifies an independent timeline (e.g. one source stream); the sequence
// orders packets within that timeline. Stamps of different colors are not
// meaningfully ordered.
type Stamp struct {
	Sequence uint64
	Color    uuid.UUID
}

// NewStamp returns a stamp with a fresh color and sequence 0.
func NewStamp() Stamp {
	return Stamp{Color: uuid.New()}
}

// Incremented returns the next stamp in the same timeline.
func (s Stamp) Incremented() Stamp {
	return Stamp{Sequence: s.Sequence + 1, Color: s.Color}
}

// SameColor reports whether both stamps belong to the same timeline.
func (s Stamp) SameColor(o Stamp) bool {
	return s.Color == o.Color
}

// Equal reports whether the stamps share a timeline and a position in it.
func (s Stamp) Equal(o Stamp) bool {
	return s.Color == o.Color && s.Sequence == o.Sequence
}

// Less orders stamps within a timeline by sequence. Across timelines the
// result falls back to byte-ordering the colors; that order is arbitrary and
// callers that care must check SameColor first.
func (s Stamp) Less(o Stamp) bool {
	if s.Color != o.Color {
		return bytes.Compare(s.Color[:], o.Color[:]) < 0
	}
	return s.Sequence < o.Sequence
}

func (s Stamp) String() string {
	return fmt.Sprintf("%d@%s", s.Sequence, s.Color)
}
