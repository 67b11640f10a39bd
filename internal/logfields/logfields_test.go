package logfields

import (
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"RunID", KeyRunID, "r1", RunID("r1")},
		{"Stage", KeyStage, "configure", Stage("configure")},
		{"Label", KeyLabel, "check-mlir", Label("check-mlir")},
		{"Status", KeyStatus, "success", Status("success")},
		{"Signal", KeySignal, "terminated", Signal("terminated")},
		{"Program", KeyProgram, "cmake", Program("cmake")},
		{"Dir", KeyDir, "/tmp/b", Dir("/tmp/b")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Branch", KeyBranch, "main", Branch("main")},
		{"Commit", KeyCommit, "abcd1234", Commit("abcd1234")},
		{"Remote", KeyRemote, "origin", Remote("origin")},
		{"Subject", KeySubject, "llvmbuilder.runs", Subject("llvmbuilder.runs")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

func TestErrorAttr(t *testing.T) {
	if got := Error(nil).Value.String(); got != "" {
		t.Fatalf("nil error should render empty, got %q", got)
	}
}
