package provider

import (
	"context"

	"github.com/rotisserie/eris"
)

// Health summarizes a provider store.
type Health struct {
	Total          int      `json:"total"`
	WithCoords     int      `json:"with_coordinates"`
	MissingColumns []string `json:"missing_columns,omitempty"`
}

// OK reports whether the store has every required column and at least one
// located provider.
func (h *Health) OK() bool {
	return len(h.MissingColumns) == 0 && h.WithCoords > 0
}

// Check inspects the providers relation: required columns and row counts.
func Check(ctx context.Context, st Store) (*Health, error) {
	cols, err := st.Columns(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "provider: check columns")
	}
	if len(cols) == 0 {
		return nil, eris.New("provider: providers table does not exist")
	}

	present := make(map[string]bool, len(cols))
	for _, c := range cols {
		present[c] = true
	}
	h := &Health{}
	for _, c := range RequiredColumns {
		if !present[c] {
			h.MissingColumns = append(h.MissingColumns, c)
		}
	}
	if len(h.MissingColumns) > 0 {
		return h, nil
	}

	h.Total, h.WithCoords, err = st.Counts(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "provider: check counts")
	}
	return h, nil
}
