package model

import (
	"encoding/json"
	"slices"
)

// ColumnMapping maps canonical charge keys to the column indices of one raw
// table. A key mapped to more than one index is a charge split across
// adjacent source columns whose values are summed.
type ColumnMapping struct {
	Columns  map[string][]int
	Unmapped []string
}

// NewColumnMapping returns an empty mapping.
func NewColumnMapping() ColumnMapping {
	return ColumnMapping{Columns: make(map[string][]int)}
}

// Has reports whether key is mapped to at least one column.
func (m ColumnMapping) Has(key string) bool {
	return len(m.Columns[key]) > 0
}

// Indices returns the column indices mapped to key.
func (m ColumnMapping) Indices(key string) []int {
	return m.Columns[key]
}

// Missing returns the keys from want that are not mapped, in want order.
func (m ColumnMapping) Missing(want []string) []string {
	var missing []string
	for _, k := range want {
		if !m.Has(k) {
			missing = append(missing, k)
		}
	}
	return missing
}

// Flatten renders the mapping as {key: index | [indices], "unmapped_headers": [...]}.
func (m ColumnMapping) Flatten() map[string]any {
	out := make(map[string]any, len(m.Columns)+1)
	for k, v := range m.Columns {
		if len(v) == 1 {
			out[k] = v[0]
		} else {
			out[k] = slices.Clone(v)
		}
	}
	if len(m.Unmapped) > 0 {
		out["unmapped_headers"] = slices.Clone(m.Unmapped)
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (m ColumnMapping) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Flatten())
}

// MarshalYAML implements yaml.Marshaler.
func (m ColumnMapping) MarshalYAML() (any, error) {
	return m.Flatten(), nil
}
