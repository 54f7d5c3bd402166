package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyChunk      = "chunk"
	KeyModule     = "module"
	KeyTarget     = "target"
	KeyMode       = "mode"
	KeyRound      = "round"
	KeyVerdict    = "verdict"
	KeyDurationMS = "duration_ms"
	KeySource     = "source"
	KeyOutput     = "output"
	KeyFiles      = "files"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Chunk(name string) slog.Attr     { return slog.String(KeyChunk, name) }
func Module(name string) slog.Attr    { return slog.String(KeyModule, name) }
func Target(id string) slog.Attr      { return slog.String(KeyTarget, id) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func Round(n int) slog.Attr           { return slog.Int(KeyRound, n) }
func Verdict(v string) slog.Attr      { return slog.String(KeyVerdict, v) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Source(path string) slog.Attr    { return slog.String(KeySource, path) }
func Output(path string) slog.Attr    { return slog.String(KeyOutput, path) }
func Files(n int) slog.Attr           { return slog.Int(KeyFiles, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
