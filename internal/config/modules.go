package config

// ProjectConfig describes the modules making up the project.
type ProjectConfig struct {
	Name    string         `yaml:"name"`
	Modules []ModuleConfig `yaml:"modules"`
	// ExcludeGlobs filters files out of change detection entirely
	// (resources, generated files). Doublestar syntax, matched against
	// paths relative to the module source root.
	ExcludeGlobs []string `yaml:"exclude_globs,omitempty"`
}

// ModuleConfig describes a single module with its roots and outputs.
type ModuleConfig struct {
	Name            string   `yaml:"name"`
	SourceRoots     []string `yaml:"source_roots"`
	TestSourceRoots []string `yaml:"test_source_roots,omitempty"`
	OutputDir       string   `yaml:"output_dir"`
	TestOutputDir   string   `yaml:"test_output_dir,omitempty"`
	// Classpath lists jars and class directories this module compiles against.
	Classpath []string `yaml:"classpath,omitempty"`
	// DependsOn names modules whose outputs join this module's classpath.
	// Cyclic groups are compiled together as one chunk.
	DependsOn []string `yaml:"depends_on,omitempty"`
	// SdkVersion is the language level of the module SDK ("1.8", "17").
	SdkVersion string `yaml:"sdk_version,omitempty"`
}

// Module looks up a module by name, returning nil when absent.
func (p *ProjectConfig) Module(name string) *ModuleConfig {
	for i := range p.Modules {
		if p.Modules[i].Name == name {
			return &p.Modules[i]
		}
	}
	return nil
}
