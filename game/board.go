package game

// Cell is the content of one board square. Values match the wire encoding.
type Cell byte

// Cells
const (
	Empty Cell = iota
	X
	O
)

func (c Cell) String() string {
	switch c {
	case X:
		return "X"
	case O:
		return "O"
	}
	return "."
}

// Symbol is the side a participant plays. Values match the wire encoding.
type Symbol byte

// Symbols
const (
	SymbolO Symbol = iota
	SymbolX
)

// Cell returns the mark the symbol leaves on the board.
func (s Symbol) Cell() Cell {
	if s == SymbolX {
		return X
	}
	return O
}

// Other returns the opposing symbol.
func (s Symbol) Other() Symbol {
	if s == SymbolX {
		return SymbolO
	}
	return SymbolX
}

func (s Symbol) String() string {
	if s == SymbolX {
		return "X"
	}
	return "O"
}

// Board holds the nine cells; index 0 is position 1, index 8 is position 9.
type Board [9]Cell

var lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Winner returns the mark filling a complete row, column or diagonal, or Empty.
func (b Board) Winner() Cell {
	for _, l := range lines {
		if c := b[l[0]]; c != Empty && b[l[1]] == c && b[l[2]] == c {
			return c
		}
	}
	return Empty
}

func (b Board) String() string {
	s := make([]byte, len(b))
	for i, c := range b {
		s[i] = c.String()[0]
	}
	return string(s)
}

// Full reports whether no cell is empty.
func (b Board) Full() bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}
	return true
}
