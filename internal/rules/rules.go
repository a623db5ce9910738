// Package rules derives the win/lose/draw relation for an odd list of moves
// arranged on a cycle.
package rules

import (
	"errors"
	"fmt"
)

var ErrInvalidMoveSet = errors.New("invalid move set")

type Outcome int

const (
	Draw Outcome = iota
	Win
	Lose
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "Win"
	case Lose:
		return "Lose"
	default:
		return "Draw"
	}
}

// Invert returns the same result seen from the other side.
func (o Outcome) Invert() Outcome {
	switch o {
	case Win:
		return Lose
	case Lose:
		return Win
	default:
		return Draw
	}
}

// Table is the full pairwise relation. cells[i][j] is the outcome of moves[i]
// played against moves[j].
type Table struct {
	moves []string
	index map[string]int
	cells [][]Outcome
}

// Validate reports whether moves can form a game: odd count, at least three,
// pairwise distinct labels. Labels are compared as exact strings.
func Validate(moves []string) error {
	n := len(moves)
	if n < 3 {
		return fmt.Errorf("%w: need at least 3 moves, got %d", ErrInvalidMoveSet, n)
	}
	if n%2 == 0 {
		return fmt.Errorf("%w: need an odd number of moves, got %d", ErrInvalidMoveSet, n)
	}
	seen := make(map[string]struct{}, n)
	for _, m := range moves {
		if _, dup := seen[m]; dup {
			return fmt.Errorf("%w: duplicate move %q", ErrInvalidMoveSet, m)
		}
		seen[m] = struct{}{}
	}
	return nil
}

// Build places moves on a cycle: each move beats the (N-1)/2 moves that follow
// it and loses to the (N-1)/2 moves that precede it.
func Build(moves []string) (*Table, error) {
	if err := Validate(moves); err != nil {
		return nil, err
	}

	n := len(moves)
	winCount := (n - 1) / 2

	t := &Table{
		moves: append([]string(nil), moves...),
		index: make(map[string]int, n),
		cells: make([][]Outcome, n),
	}
	for i, m := range t.moves {
		t.index[m] = i
		row := make([]Outcome, n)
		for k := 1; k <= winCount; k++ {
			row[(i+k)%n] = Win
			row[(i-k+n)%n] = Lose
		}
		row[i] = Draw
		t.cells[i] = row
	}
	return t, nil
}

func (t *Table) Moves() []string {
	return append([]string(nil), t.moves...)
}

func (t *Table) Len() int { return len(t.moves) }

// At returns the outcome of moves[i] against moves[j] (0-based).
func (t *Table) At(i, j int) Outcome {
	return t.cells[i][j]
}

// Outcome looks moves up by label. ok is false when either label is unknown.
func (t *Table) Outcome(row, col string) (Outcome, bool) {
	i, ok := t.index[row]
	if !ok {
		return Draw, false
	}
	j, ok := t.index[col]
	if !ok {
		return Draw, false
	}
	return t.cells[i][j], true
}

// Check verifies the relation: draws only on the diagonal and every pair of
// distinct moves has exactly one winner.
func (t *Table) Check() error {
	for i := range t.cells {
		if t.cells[i][i] != Draw {
			return fmt.Errorf("rules: %q against itself is %s", t.moves[i], t.cells[i][i])
		}
		for j := i + 1; j < len(t.cells); j++ {
			a, b := t.cells[i][j], t.cells[j][i]
			if a == Draw || a.Invert() != b {
				return fmt.Errorf("rules: %q vs %q is %s/%s", t.moves[i], t.moves[j], a, b)
			}
		}
	}
	return nil
}
