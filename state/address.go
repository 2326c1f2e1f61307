package state

import (
	"fmt"
	"strings"
)

// Address names a host or router.
type Address string

// Cost is a link or path cost. INF means unreachable.
type Cost uint32

func (c Cost) String() string {
	if c == INF {
		return "inf"
	}
	return fmt.Sprintf("%d", uint32(c))
}

// AddCost adds two costs, saturating at INFM. INF is absorbing.
func AddCost(a, b Cost) Cost {
	if a == INF || b == INF {
		return INF
	}
	return Cost(min(uint64(INFM), uint64(a)+uint64(b)))
}

// Widths are the fixed field widths shared by every node of a simulation.
type Widths struct {
	Dest  int `yaml:"dest"`
	Tag   int `yaml:"tag"`
	Name  int `yaml:"name"`
	Table int `yaml:"table"`
}

func (w Widths) Validate() error {
	if w.Dest <= 0 || w.Tag <= 0 || w.Name <= 0 || w.Table <= 0 {
		return fmt.Errorf("widths must be positive: %+v", w)
	}
	return nil
}

// HeaderLen is the length of the packet header preceding the payload.
func (w Widths) HeaderLen() int {
	return w.Dest + w.Tag
}

// PadLeft pads s with PadChar to width. It returns a FormatError when s does not fit.
func PadLeft(field, s string, width int) (string, error) {
	if len(s) > width {
		return "", &FormatError{
			Field:  field,
			Reason: fmt.Sprintf("%q is %d bytes, exceeds width %d", s, len(s), width),
		}
	}
	return strings.Repeat(string(PadChar), width-len(s)) + s, nil
}

// TrimPad strips leading PadChar padding.
func TrimPad(s string) string {
	return strings.TrimLeft(s, string(PadChar))
}
