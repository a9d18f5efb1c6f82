package factextract

import (
	"strconv"
	"strings"
)

// Unit is a contiguous slice of a document submitted to the generation
// capability. Top-level units come from the Chunker; deeper units are the
// halves produced when a unit overflowed.
type Unit struct {
	Text  string
	Index int   // position among its siblings
	Depth int   // 0 for top-level chunks
	Path  []int // lineage: chunk index, then 0/1 per split
}

func newTopLevelUnit(text string, index int) Unit {
	return Unit{Text: text, Index: index, Path: []int{index}}
}

// ID renders the lineage, e.g. "3" for a chunk and "3.1.0" for the first
// half of its second half.
func (u Unit) ID() string {
	parts := make([]string, len(u.Path))
	for i, p := range u.Path {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ".")
}

// Chunk returns the index of the top-level chunk this unit descends from.
func (u Unit) Chunk() int {
	if len(u.Path) == 0 {
		return u.Index
	}
	return u.Path[0]
}

// child derives a half of u. The path slice is copied so siblings never share
// backing arrays.
func (u Unit) child(text string, index int) Unit {
	path := make([]int, len(u.Path), len(u.Path)+1)
	copy(path, u.Path)
	return Unit{
		Text:  text,
		Index: index,
		Depth: u.Depth + 1,
		Path:  append(path, index),
	}
}
