package cache

import (
	"hostgen/internal/memo"
	"hostgen/internal/project"
)

// Results is the session's in-memory result cache. The first result stored
// under a digest wins; a racing worker gets the stored one back.
type Results struct {
	table *memo.Table[string, *UnitResult]
}

func NewResults() *Results {
	return &Results{table: memo.NewTable[string, *UnitResult]()}
}

func (r *Results) Get(key project.Digest) (*UnitResult, bool) {
	if r == nil {
		return nil, false
	}
	return r.table.Get(key.String())
}

// Put stores res unless the digest is present and returns the stored result.
func (r *Results) Put(key project.Digest, res *UnitResult) *UnitResult {
	actual, _ := r.table.LoadOrStore(key.String(), res)
	return actual
}

func (r *Results) Len() int {
	return r.table.Len()
}

func (r *Results) Stats() memo.Stats {
	return r.table.Stats()
}
