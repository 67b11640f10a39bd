package stage

import (
	"errors"
	"fmt"
)

// Selection errors. Both are configuration mistakes: nothing has been
// spawned when they surface.
var (
	ErrUnknownStage   = errors.New("unknown stage")
	ErrEmptySelection = errors.New("stage selection is empty")
)

// Select narrows the catalog to the stages a run should attempt. only keeps
// just the named stages; skip then removes stages from whatever remains.
// Catalog order is always preserved regardless of how the caller ordered
// the names. Narrowing the selection is the caller accepting that skipped
// predecessors ran earlier.
func Select(catalog []Stage, only, skip []Name) ([]Stage, error) {
	if err := checkKnown(catalog, only); err != nil {
		return nil, err
	}
	if err := checkKnown(catalog, skip); err != nil {
		return nil, err
	}

	keep := func(n Name) bool {
		if len(only) > 0 && !contains(only, n) {
			return false
		}
		return !contains(skip, n)
	}

	selected := make([]Stage, 0, len(catalog))
	for _, st := range catalog {
		if keep(st.Name) {
			selected = append(selected, st)
		}
	}
	if len(selected) == 0 {
		return nil, ErrEmptySelection
	}
	return selected, nil
}

func checkKnown(catalog []Stage, names []Name) error {
	for _, n := range names {
		found := false
		for _, st := range catalog {
			if st.Name == n {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %q", ErrUnknownStage, n)
		}
	}
	return nil
}

func contains(names []Name, n Name) bool {
	for _, candidate := range names {
		if candidate == n {
			return true
		}
	}
	return false
}
