// Package projectmodel holds the compile-time view of the project: modules,
// build targets, and the chunks the build iterates over.
package projectmodel

import (
	"fmt"

	"git.home.luguber.info/inful/groovybuild/internal/config"
)

// TargetKind distinguishes production and test compilation of a module.
type TargetKind string

const (
	KindProduction TargetKind = "production"
	KindTest       TargetKind = "test"
)

// Module is a named unit of sources with its own outputs and classpath.
type Module struct {
	Name            string
	SourceRoots     []string
	TestSourceRoots []string
	OutputDir       string
	TestOutputDir   string
	Classpath       []string
	DependsOn       []string
	SdkVersion      string

	// Deps holds the resolved modules named by DependsOn, filled in by
	// FromConfig.
	Deps []*Module
}

func moduleFromConfig(mc *config.ModuleConfig) *Module {
	return &Module{
		Name:            mc.Name,
		SourceRoots:     mc.SourceRoots,
		TestSourceRoots: mc.TestSourceRoots,
		OutputDir:       mc.OutputDir,
		TestOutputDir:   mc.TestOutputDir,
		Classpath:       mc.Classpath,
		DependsOn:       mc.DependsOn,
		SdkVersion:      mc.SdkVersion,
	}
}

// Target is one compilation of a module: its production sources or its
// test sources.
type Target struct {
	Module *Module
	Kind   TargetKind
}

// ID uniquely names the target within the project.
func (t Target) ID() string {
	return fmt.Sprintf("%s:%s", t.Module.Name, t.Kind)
}

// IsTests reports whether the target compiles test sources.
func (t Target) IsTests() bool {
	return t.Kind == KindTest
}

// SourceRoots returns the roots compiled by this target.
func (t Target) SourceRoots() []string {
	if t.IsTests() {
		return t.Module.TestSourceRoots
	}
	return t.Module.SourceRoots
}

// OutputDir returns the directory this target's class files land in.
func (t Target) OutputDir() string {
	if t.IsTests() {
		return t.Module.TestOutputDir
	}
	return t.Module.OutputDir
}
