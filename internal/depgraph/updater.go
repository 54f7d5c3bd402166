// Package depgraph registers compiled outputs with the dependency tracking
// collaborators so downstream incremental rebuilds stay correct.
package depgraph

import (
	"fmt"
	"os"

	"git.home.luguber.info/inful/groovybuild/internal/buildctx"
	"git.home.luguber.info/inful/groovybuild/internal/diag"
	"git.home.luguber.info/inful/groovybuild/internal/groovyc"
	"git.home.luguber.info/inful/groovybuild/internal/metrics"
	"git.home.luguber.info/inful/groovybuild/internal/projectmodel"
)

// Updater feeds reconciled compiler output into the output registrar and
// the dependency graph, then records the round's successfully compiled
// sources.
type Updater struct {
	bctx     *buildctx.Context
	recorder metrics.Recorder
}

// NewUpdater creates an updater bound to the build context's registrars.
func NewUpdater(bctx *buildctx.Context, rec metrics.Recorder) *Updater {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Updater{bctx: bctx, recorder: rec}
}

// Register processes every compiled item of a round. Items are isolated
// from each other: a corrupt class file or a failing callback downgrades
// to a warning diagnostic naming the source, and the remaining items are
// still registered. Every item's source counts as successfully compiled —
// the compiler did produce output for it — so a registration failure never
// leaves a source permanently dirty. The set of compiled sources is always
// handed to the round registrar at the end, even when it is empty.
func (u *Updater) Register(chunk *projectmodel.Chunk, items []groovyc.CompiledItem) error {
	compiled := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))

	for _, item := range items {
		if !seen[item.SourcePath] {
			seen[item.SourcePath] = true
			compiled = append(compiled, item.SourcePath)
		}
		owner, _ := chunk.Owner(item.SourcePath)

		data, err := os.ReadFile(item.OutputPath)
		if err != nil {
			u.warn(item, fmt.Errorf("reading class file: %w", err))
			continue
		}
		binaryName, err := BinaryClassName(data)
		if err != nil {
			u.warn(item, err)
			continue
		}
		if err := u.bctx.Outputs.RegisterOutput(owner, item.OutputPath, []string{item.SourcePath}); err != nil {
			u.warn(item, fmt.Errorf("recording output: %w", err))
			continue
		}
		if err := u.bctx.Deps.AssociateClass(item.OutputPath, item.SourcePath, binaryName, data); err != nil {
			u.warn(item, fmt.Errorf("associating class %s: %w", binaryName, err))
			continue
		}
	}

	return u.bctx.Deps.RegisterCompiled(compiled)
}

// warn surfaces a per-item failure as a user-visible warning without
// stopping the round.
func (u *Updater) warn(item groovyc.CompiledItem, err error) {
	u.recorder.IncDependencyRegistrationFailure()
	msg := diag.Warningf("Class dependency information may be incomplete: error processing %s: %v", item.OutputPath, err)
	msg.SourcePath = item.SourcePath
	u.bctx.SendMessage(msg)
}
