package projectmodel

import (
	"fmt"

	"git.home.luguber.info/inful/groovybuild/internal/config"
)

// Project is the resolved module set with its derived chunk ordering.
type Project struct {
	Name    string
	Modules []*Module

	byName map[string]*Module
}

// FromConfig materializes the project model from configuration. Dependency
// references are resolved here; config validation has already checked they
// exist.
func FromConfig(cfg *config.ProjectConfig) (*Project, error) {
	p := &Project{
		Name:   cfg.Name,
		byName: make(map[string]*Module, len(cfg.Modules)),
	}
	for i := range cfg.Modules {
		m := moduleFromConfig(&cfg.Modules[i])
		if _, dup := p.byName[m.Name]; dup {
			return nil, fmt.Errorf("duplicate module name: %s", m.Name)
		}
		p.Modules = append(p.Modules, m)
		p.byName[m.Name] = m
	}
	for _, m := range p.Modules {
		for _, dep := range m.DependsOn {
			resolved, ok := p.byName[dep]
			if !ok {
				return nil, fmt.Errorf("module %s depends on unknown module %s", m.Name, dep)
			}
			m.Deps = append(m.Deps, resolved)
		}
	}
	return p, nil
}

// Module looks up a module by name, returning nil when absent.
func (p *Project) Module(name string) *Module {
	return p.byName[name]
}

// Chunks returns the build order: one production chunk per strongly
// connected dependency group, dependencies first, followed by the test
// chunks in the same group order. Cyclic module groups compile together
// as a single multi-target chunk.
func (p *Project) Chunks() []*Chunk {
	groups := p.dependencyGroups()

	var chunks []*Chunk
	for _, group := range groups {
		var targets []Target
		for _, m := range group {
			if len(m.SourceRoots) > 0 {
				targets = append(targets, Target{Module: m, Kind: KindProduction})
			}
		}
		if len(targets) > 0 {
			chunks = append(chunks, NewChunk(targets...))
		}
	}
	for _, group := range groups {
		var targets []Target
		for _, m := range group {
			if len(m.TestSourceRoots) > 0 {
				targets = append(targets, Target{Module: m, Kind: KindTest})
			}
		}
		if len(targets) > 0 {
			chunks = append(chunks, NewChunk(targets...))
		}
	}
	return chunks
}

// dependencyGroups computes strongly connected components of the module
// graph. With edges pointing at dependencies, Tarjan completes a component
// only after every component it depends on, so the emission order is
// already dependencies-first.
func (p *Project) dependencyGroups() [][]*Module {
	type nodeState struct {
		index   int
		lowlink int
		onStack bool
	}

	index := 0
	states := make(map[string]*nodeState, len(p.Modules))
	var stack []*Module
	var groups [][]*Module

	var strongconnect func(m *Module)
	strongconnect = func(m *Module) {
		st := &nodeState{index: index, lowlink: index}
		states[m.Name] = st
		index++
		stack = append(stack, m)
		st.onStack = true

		for _, dep := range m.Deps {
			depState, seen := states[dep.Name]
			if !seen {
				strongconnect(dep)
				if s := states[dep.Name]; s.lowlink < st.lowlink {
					st.lowlink = s.lowlink
				}
			} else if depState.onStack {
				if depState.index < st.lowlink {
					st.lowlink = depState.index
				}
			}
		}

		if st.lowlink == st.index {
			var group []*Module
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				states[w.Name].onStack = false
				group = append(group, w)
				if w == m {
					break
				}
			}
			groups = append(groups, group)
		}
	}

	for _, m := range p.Modules {
		if _, seen := states[m.Name]; !seen {
			strongconnect(m)
		}
	}

	return groups
}
