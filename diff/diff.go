// Package diff computes a minimal edit script between two strings, rune by rune,
// and the runs of runes they have in common.
package diff

import (
	"fmt"
	"unicode/utf8"
)

type OpType int

const (
	Keep OpType = iota
	Insert
	Delete
)

func (op OpType) String() string {
	switch op {
	case Keep:
		return "keep"
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	}
	return fmt.Sprintf("OpType(%d)", int(op))
}

// Operation is a step of the edit script. Dist is the number of inserts and deletes
// left from this step on.
type Operation struct {
	Op   OpType
	Char rune
	Dist int
}

// Match is a run of runes kept from s1 into s2: s1[OldStart:OldStart+Len] equals
// s2[NewStart:NewStart+Len], in rune offsets.
type Match struct {
	OldStart, NewStart, Len int
}

// Example: abcd -> xabdy
//           s1      s2
//
// Legend:
//   ix = insert(x)
//   ka = keep(a)
//   dc = delete(c)
//
//          xabdy   xabdy   xabdy   xabdy   xabdy   xabdy
//  s1\s2   ^        ^        ^        ^        ^        ^
//        +-------+-------+-------+-------+-------+-------+
//        |       |       |       |       |       |       |
//  abcd  | ix 3  < ka 2  | da 3  | da 4  | iy 5  < da 4  |
//  ^     |       |      \|       |       |       |       |
//        +-------+-------+---^---+---^---+-------+---^---+
//        |       |       |       |       |       |       |
//  abcd  | ix 4  < ia 3  < kb 2  | db 3  | iy 4  < db 3  |
//   ^    |       |       |      \|       |       |       |
//        +-------+-------+-------+---^---+-------+---^---+
//        |       |       |       |       |       |       |
//  abcd  | ix 5  < ia 4  < ib 3  < dc 2  | iy 3  < dc 2  |
//    ^   |       |       |       |       |       |       |
//        +-------+-------+-------+---^---+-------+---^---+
//        |       |       |       |       |       |       |
//  abcd  | ix 4  < ia 3  < ib 2  < kd 1  | iy 2  < dd 1  |
//     ^  |       |       |       |      \|       |       |
//        +-------+-------+-------+-------+-------+---^---+
//        |       |       |       |       |       |       |
//  abcd  | ix 5  < ia 4  < ib 3  < id 2  < iy 1  < k0 0  |
//      ^ |       |       |       |       |       |       |
//        +-------+-------+-------+-------+-------+-------+

// Diff returns the sequence of keeps, insertions and deletions to transform s1 into s2.
//
// Time and space complexity: O(len(s1) * len(s2))
func Diff(s1, s2 string) ([]Operation, error) {
	if !utf8.ValidString(s1) {
		return nil, fmt.Errorf("s1 is not a valid utf8 string")
	}
	if !utf8.ValidString(s2) {
		return nil, fmt.Errorf("s2 is not a valid utf8 string")
	}
	chars1, chars2 := []rune(s1), []rune(s2)
	m, n := len(chars1), len(chars2)
	ops := make([]Operation, (m+1)*(n+1))
	coord := func(i, j int) int {
		return i*(n+1) + j
	}
	// Diff between s1 and an empty string: delete all chars
	for i, ch := range chars1 {
		ops[coord(i, n)] = Operation{Op: Delete, Char: ch, Dist: m - i}
	}
	// Diff between an empty string and s2: insert all chars
	for j, ch := range chars2 {
		ops[coord(m, j)] = Operation{Op: Insert, Char: ch, Dist: n - j}
	}
	// Compute all paths of operations that produce minimal edit distance.
	for i := m - 1; i >= 0; i-- {
		for j := n - 1; j >= 0; j-- {
			ch1, ch2 := chars1[i], chars2[j]
			if ch1 == ch2 {
				ops[coord(i, j)] = Operation{Op: Keep, Char: ch1, Dist: ops[coord(i+1, j+1)].Dist}
				continue
			}
			// Pick smallest dist between possible sequences, preferring insert on a tie.
			op1 := ops[coord(i+1, j)]
			op2 := ops[coord(i, j+1)]
			if op2.Dist <= op1.Dist {
				ops[coord(i, j)] = Operation{Op: Insert, Char: ch2, Dist: 1 + op2.Dist}
			} else {
				ops[coord(i, j)] = Operation{Op: Delete, Char: ch1, Dist: 1 + op1.Dist}
			}
		}
	}
	// Build sequence of operations.
	var operations []Operation
	var i, j int
	for i < m || j < n {
		op := ops[coord(i, j)]
		operations = append(operations, op)
		switch op.Op {
		case Keep:
			i++
			j++
		case Insert:
			j++
		case Delete:
			i++
		}
	}
	return operations, nil
}

// Distance returns the number of inserts/deletes to transform s1 into s2.
func Distance(s1, s2 string) (int, error) {
	operations, err := Diff(s1, s2)
	if err != nil {
		return 0, err
	}
	if len(operations) == 0 {
		return 0, nil
	}
	return operations[0].Dist, nil
}

// Matches returns the maximal runs of kept runes between s1 and s2, in order.
func Matches(s1, s2 string) ([]Match, error) {
	operations, err := Diff(s1, s2)
	if err != nil {
		return nil, err
	}
	return Runs(operations), nil
}

// Runs collapses consecutive keeps of an edit script into matches.
func Runs(operations []Operation) []Match {
	var matches []Match
	var i, j int
	for _, op := range operations {
		switch op.Op {
		case Keep:
			if k := len(matches) - 1; k >= 0 && matches[k].OldStart+matches[k].Len == i && matches[k].NewStart+matches[k].Len == j {
				matches[k].Len++
			} else {
				matches = append(matches, Match{OldStart: i, NewStart: j, Len: 1})
			}
			i++
			j++
		case Insert:
			j++
		case Delete:
			i++
		}
	}
	return matches
}
