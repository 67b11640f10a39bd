package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyLabel      = "label"
	KeyStatus     = "status"
	KeyExitCode   = "exit_code"
	KeySignal     = "signal"
	KeyDurationMS = "duration_ms"
	KeyProgram    = "program"
	KeyDir        = "dir"
	KeyPath       = "path"
	KeyBranch     = "branch"
	KeyCommit     = "commit"
	KeyRemote     = "remote"
	KeySubject    = "subject"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Label(l string) slog.Attr        { return slog.String(KeyLabel, l) }
func Status(s string) slog.Attr       { return slog.String(KeyStatus, s) }
func ExitCode(c int) slog.Attr        { return slog.Int(KeyExitCode, c) }
func Signal(s string) slog.Attr       { return slog.String(KeySignal, s) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Program(p string) slog.Attr      { return slog.String(KeyProgram, p) }
func Dir(d string) slog.Attr          { return slog.String(KeyDir, d) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Branch(b string) slog.Attr       { return slog.String(KeyBranch, b) }
func Commit(c string) slog.Attr       { return slog.String(KeyCommit, c) }
func Remote(r string) slog.Attr       { return slog.String(KeyRemote, r) }
func Subject(s string) slog.Attr      { return slog.String(KeySubject, s) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
