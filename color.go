package olecf

// Color is the red-black tree color flag of a directory entry. The
// reader never rebalances, so the flag is carried through untouched.
type Color int

const (
	Red Color = iota
	Black
)

func colorFromByte(b byte) (Color, bool) {
	switch b {
	case COLOR_RED:
		return Red, true
	case COLOR_BLACK:
		return Black, true
	default:
		return Black, false
	}
}
