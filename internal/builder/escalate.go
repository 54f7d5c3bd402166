package builder

import (
	"log/slog"

	"git.home.luguber.info/inful/groovybuild/internal/buildctx"
	"git.home.luguber.info/inful/groovybuild/internal/logfields"
	"git.home.luguber.info/inful/groovybuild/internal/projectmodel"
)

// Escalator turns compiler retry signals into chunk rebuilds, at most once
// per chunk and build session. Stale incremental state produces linkage
// errors a rebuild cures; a rebuild that still fails the same way will not
// be cured by another one, so the second signal falls through to a normal
// failed round instead of looping.
type Escalator struct {
	bctx *buildctx.Context
}

// NewEscalator creates an escalator keeping its once-per-chunk state in
// the build context.
func NewEscalator(bctx *buildctx.Context) *Escalator {
	return &Escalator{bctx: bctx}
}

// RebuildNeeded reports whether the round's retry signal escalates to a
// chunk rebuild. fullRebuild marks builds where every source is already
// scheduled, making escalation pointless. When a rebuild has already been
// ordered for the chunk, the flag is cleared and the signal is absorbed.
func (e *Escalator) RebuildNeeded(chunk *projectmodel.Chunk, retry, fullRebuild bool) bool {
	if fullRebuild || !retry {
		return false
	}
	if e.bctx.ChunkRebuildOrdered(chunk) {
		e.bctx.ClearChunkRebuild(chunk)
		return false
	}
	e.bctx.OrderChunkRebuild(chunk)
	slog.Info("Ordering chunk rebuild", logfields.Chunk(chunk.Name()))
	return true
}
