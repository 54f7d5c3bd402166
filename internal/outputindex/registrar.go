package outputindex

import (
	"context"

	"git.home.luguber.info/inful/groovybuild/internal/buildctx"
	"git.home.luguber.info/inful/groovybuild/internal/projectmodel"
)

// Registrar adapts the store to the build context's registration
// interfaces. Those interfaces carry no context, so the build session's
// context is bound here once.
type Registrar struct {
	ctx   context.Context
	store *Store
}

var (
	_ buildctx.OutputRegistrar     = (*Registrar)(nil)
	_ buildctx.DependencyRegistrar = (*Registrar)(nil)
)

// Registrar binds the store to one build session.
func (s *Store) Registrar(ctx context.Context) *Registrar {
	return &Registrar{ctx: ctx, store: s}
}

// RegisterOutput records output files produced for the target.
func (r *Registrar) RegisterOutput(target projectmodel.Target, outputPath string, sourcePaths []string) error {
	return r.store.RegisterOutput(r.ctx, target.ID(), outputPath, sourcePaths)
}

// AssociateClass links an emitted class file to its source. The index only
// records the association; the class bytes are for bytecode-analyzing
// registrars and are not stored.
func (r *Registrar) AssociateClass(outputPath, sourcePath, binaryName string, _ []byte) error {
	return r.store.AssociateClass(r.ctx, outputPath, sourcePath, binaryName)
}

// RegisterCompiled marks sources as successfully compiled.
func (r *Registrar) RegisterCompiled(sourcePaths []string) error {
	return r.store.MarkCompiled(r.ctx, sourcePaths)
}
