package plan

import "fmt"

// UnionRangeError indicates a union index outside the declared branches.
type UnionRangeError struct {
	Index    int
	Branches int
}

func (e UnionRangeError) Error() string {
	return fmt.Sprintf("union index %d out of range for %d branches", e.Index, e.Branches)
}

func (e UnionRangeError) Is(err error) bool {
	_, ok := err.(UnionRangeError)
	return ok
}
