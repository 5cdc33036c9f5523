package service

import (
	"encoding/json"
	"strconv"

	"procurement/internal/model"
)

// diffBuilder accumulates tagged field-level changes for one save operation.
// The collected diffs are serialized into a single RevisionEntry.
type diffBuilder struct {
	diffs []model.FieldDiff
}

func (b *diffBuilder) update(field, oldVal, newVal string) {
	if oldVal == newVal {
		return
	}
	b.diffs = append(b.diffs, model.FieldDiff{Field: field, Old: oldVal, New: newVal, Kind: model.DiffUpdated})
}

func (b *diffBuilder) updateInt(field string, oldVal, newVal int) {
	b.update(field, strconv.Itoa(oldVal), strconv.Itoa(newVal))
}

func (b *diffBuilder) add(field, newVal string) {
	b.diffs = append(b.diffs, model.FieldDiff{Field: field, New: newVal, Kind: model.DiffAdded})
}

func (b *diffBuilder) remove(field, oldVal string) {
	b.diffs = append(b.diffs, model.FieldDiff{Field: field, Old: oldVal, Kind: model.DiffRemoved})
}

func (b *diffBuilder) empty() bool {
	return len(b.diffs) == 0
}

func (b *diffBuilder) marshal() string {
	data, _ := json.Marshal(b.diffs)
	return string(data)
}
