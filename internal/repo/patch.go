package repo

import (
	"fmt"
	"strings"
)

// Patch is a sparse column -> value update set. Column names come from code,
// never from request input.
type Patch struct {
	cols []string
	vals map[string]any
}

func NewPatch() *Patch {
	return &Patch{vals: make(map[string]any)}
}

// Set records a column update; setting the same column twice keeps the last value.
func (p *Patch) Set(col string, v any) *Patch {
	if _, ok := p.vals[col]; !ok {
		p.cols = append(p.cols, col)
	}
	p.vals[col] = v
	return p
}

func (p *Patch) Empty() bool {
	return p == nil || len(p.cols) == 0
}

func (p *Patch) Columns() []string {
	return append([]string(nil), p.cols...)
}

func (p *Patch) Value(col string) (any, bool) {
	v, ok := p.vals[col]
	return v, ok
}

// buildUpdate renders UPDATE table SET ... , updated_at = now() WHERE id = $n RETURNING returning.
func buildUpdate(table string, p *Patch, id any, returning string) (string, []any) {
	sets := make([]string, 0, len(p.cols)+1)
	args := make([]any, 0, len(p.cols)+1)
	for i, col := range p.cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, p.vals[col])
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		table, strings.Join(sets, ", "), len(args), returning)
	return query, args
}
