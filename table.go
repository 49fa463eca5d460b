package harvester

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	pkgerrs "github.com/jamesprial/go-reddit-harvester/pkg/errors"
	"github.com/jamesprial/go-reddit-harvester/pkg/types"
)

// MergePolicy decides what happens when a merged row's id is already in the table.
type MergePolicy int

const (
	// MergeAppend concatenates rows. A post seen in two fetches appears twice.
	MergeAppend MergePolicy = iota
	// MergeUpsert replaces the existing row for an id in place and appends new ids.
	MergeUpsert
)

// Valid reports whether p is a known policy.
func (p MergePolicy) Valid() bool {
	return p == MergeAppend || p == MergeUpsert
}

func (p MergePolicy) String() string {
	switch p {
	case MergeAppend:
		return "append"
	case MergeUpsert:
		return "upsert"
	default:
		return fmt.Sprintf("MergePolicy(%d)", int(p))
	}
}

// ParseMergePolicy maps "append" or "upsert" (any case) to a MergePolicy.
// The empty string selects MergeAppend.
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "append":
		return MergeAppend, nil
	case "upsert":
		return MergeUpsert, nil
	}
	return MergeAppend, &pkgerrs.ConfigError{Field: "MergePolicy", Message: fmt.Sprintf("unknown merge policy %q", s)}
}

// Table is the ordered set of accumulated rows. Reads return copies, so callers
// never share memory with the table.
type Table struct {
	mu             sync.RWMutex
	rows           []types.Post
	index          map[string]int // id -> position of its first row
	policy         MergePolicy
	dropIncomplete bool
}

// NewTable returns an empty table using policy.
func NewTable(policy MergePolicy, dropIncomplete bool) *Table {
	return &Table{
		index:          make(map[string]int),
		policy:         policy,
		dropIncomplete: dropIncomplete,
	}
}

// Merge folds rows into the table under the table's policy and returns the
// number of rows appended or replaced.
func (t *Table) Merge(rows ...types.Post) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := 0
	for _, row := range rows {
		row.Comments = slices.Clone(row.Comments)

		if pos, ok := t.index[row.ID]; ok && t.policy == MergeUpsert {
			t.rows[pos] = row
			changed++
			continue
		}
		if _, ok := t.index[row.ID]; !ok {
			t.index[row.ID] = len(t.rows)
		}
		t.rows = append(t.rows, row)
		changed++
	}

	if t.dropIncomplete {
		t.dropIncompleteLocked()
	}
	return changed
}

func (t *Table) dropIncompleteLocked() {
	kept := t.rows[:0]
	for i := range t.rows {
		if t.rows[i].Complete() {
			kept = append(kept, t.rows[i])
		}
	}
	if len(kept) == len(t.rows) {
		return
	}
	clear(t.rows[len(kept):])
	t.rows = kept

	clear(t.index)
	for i := range t.rows {
		if _, ok := t.index[t.rows[i].ID]; !ok {
			t.index[t.rows[i].ID] = i
		}
	}
}

// Rows returns a copy of every row in table order.
func (t *Table) Rows() []types.Post {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]types.Post, len(t.rows))
	for i, row := range t.rows {
		row.Comments = slices.Clone(row.Comments)
		out[i] = row
	}
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Get returns a copy of the first row with id.
func (t *Table) Get(id string) (types.Post, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	pos, ok := t.index[id]
	if !ok {
		return types.Post{}, false
	}
	row := t.rows[pos]
	row.Comments = slices.Clone(row.Comments)
	return row, true
}

// Policy returns the merge policy the table was created with.
func (t *Table) Policy() MergePolicy {
	return t.policy
}
