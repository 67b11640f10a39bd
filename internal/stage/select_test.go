package stage

import (
	"errors"
	"testing"
)

func names(stages []Stage) []Name {
	out := make([]Name, len(stages))
	for i, st := range stages {
		out[i] = st.Name
	}
	return out
}

func equalNames(a, b []Name) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSelectDefaultIsFullCatalog(t *testing.T) {
	selected, err := Select(Catalog(), nil, nil)
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if !equalNames(names(selected), []Name{Clean, Configure, Build, Test}) {
		t.Errorf("selection = %v, want full catalog", names(selected))
	}
}

func TestSelectOnly(t *testing.T) {
	selected, err := Select(Catalog(), []Name{Test, Build}, nil)
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	// Catalog order wins over the order the caller passed.
	if !equalNames(names(selected), []Name{Build, Test}) {
		t.Errorf("selection = %v, want [build test]", names(selected))
	}
}

func TestSelectSkip(t *testing.T) {
	selected, err := Select(Catalog(), nil, []Name{Clean, Test})
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if !equalNames(names(selected), []Name{Configure, Build}) {
		t.Errorf("selection = %v, want [configure build]", names(selected))
	}
}

func TestSelectOnlyThenSkip(t *testing.T) {
	selected, err := Select(Catalog(), []Name{Build, Test}, []Name{Test})
	if err != nil {
		t.Fatalf("Select() error: %v", err)
	}
	if !equalNames(names(selected), []Name{Build}) {
		t.Errorf("selection = %v, want [build]", names(selected))
	}
}

func TestSelectUnknownStage(t *testing.T) {
	_, err := Select(Catalog(), []Name{"deploy"}, nil)
	if !errors.Is(err, ErrUnknownStage) {
		t.Errorf("error = %v, want ErrUnknownStage", err)
	}
	_, err = Select(Catalog(), nil, []Name{"deploy"})
	if !errors.Is(err, ErrUnknownStage) {
		t.Errorf("error = %v, want ErrUnknownStage", err)
	}
}

func TestSelectEmptySelection(t *testing.T) {
	_, err := Select(Catalog(), []Name{Build}, []Name{Build})
	if !errors.Is(err, ErrEmptySelection) {
		t.Errorf("error = %v, want ErrEmptySelection", err)
	}
}
