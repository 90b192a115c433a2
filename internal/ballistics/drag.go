package ballistics

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// DragFunction identifies a standard projectile drag family.
type DragFunction int

const (
	G1 DragFunction = iota + 1
	G2
	G3
	G4
	G5
	G6
	G7
	G8
)

// maxDragVelocity is the exclusive upper bound of the fitted domain in ft/s.
const maxDragVelocity = 10000

func (d DragFunction) String() string {
	if d < G1 || d > G8 {
		return fmt.Sprintf("DragFunction(%d)", int(d))
	}
	return fmt.Sprintf("G%d", int(d))
}

// Supported reports whether a retardation table exists for d.
func (d DragFunction) Supported() bool {
	_, ok := dragTables[d]
	return ok
}

// MarshalText encodes d as "G1".."G8".
func (d DragFunction) MarshalText() ([]byte, error) {
	if d < G1 || d > G8 {
		return nil, fmt.Errorf("unknown drag function %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText accepts "G1".."G8", case-insensitive.
func (d *DragFunction) UnmarshalText(text []byte) error {
	parsed, err := ParseDragFunction(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDragFunction parses a drag family name such as "G7" or "g1".
func ParseDragFunction(s string) (DragFunction, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) == 2 && s[0] == 'G' && s[1] >= '1' && s[1] <= '8' {
		return DragFunction(s[1] - '0'), nil
	}
	return 0, fmt.Errorf("unknown drag function %q", s)
}

// Retardation returns the drag deceleration in ft/s² for a projectile of the
// given family and ballistic coefficient travelling at velocity ft/s.
func Retardation(fn DragFunction, coefficient, velocity float64) (float64, error) {
	if velocity <= 0 || velocity >= maxDragVelocity || math.IsNaN(velocity) {
		return 0, fmt.Errorf("%w: %s at %.3f ft/s", ErrDragOutOfRange, fn, velocity)
	}
	table, ok := dragTables[fn]
	if !ok {
		return 0, fmt.Errorf("%w: no table for %s", ErrDragOutOfRange, fn)
	}

	// Thresholds descend, so "velocity > above" flips from false to true once.
	i := sort.Search(len(table), func(i int) bool { return velocity > table[i].above })
	if i == len(table) {
		return 0, fmt.Errorf("%w: %s at %.3f ft/s", ErrDragOutOfRange, fn, velocity)
	}
	bp := table[i]
	return bp.a * math.Pow(velocity, bp.m) / coefficient, nil
}
