// Package builder drives one compilation round over a module chunk: it
// collects the round's dirty sources, assembles the compiler invocation,
// reconciles and registers the outputs, and decides how the build
// continues afterwards.
package builder

// Verdict is the outcome of one round, steering the loop around it.
type Verdict int

const (
	// VerdictOK means the round compiled its change set and the chunk
	// needs no further passes.
	VerdictOK Verdict = iota
	// VerdictNothingDone means the round had nothing to compile.
	VerdictNothingDone
	// VerdictAdditionalPassRequired means sources were queued for the
	// next round and the chunk must be compiled again.
	VerdictAdditionalPassRequired
	// VerdictChunkRebuildRequired means incremental state is suspect and
	// the whole chunk must be rebuilt from scratch.
	VerdictChunkRebuildRequired
	// VerdictAbort means the round failed in a way that stops the build
	// for this chunk.
	VerdictAbort
)

var verdictNames = map[Verdict]string{
	VerdictOK:                     "ok",
	VerdictNothingDone:            "nothing_done",
	VerdictAdditionalPassRequired: "additional_pass_required",
	VerdictChunkRebuildRequired:   "chunk_rebuild_required",
	VerdictAbort:                  "abort",
}

func (v Verdict) String() string {
	if name, ok := verdictNames[v]; ok {
		return name
	}
	return "unknown"
}

// Successful reports whether the build may proceed past this round.
// Rebuild escalation counts as successful: the chunk is retried, not failed.
func (v Verdict) Successful() bool {
	return v != VerdictAbort
}
