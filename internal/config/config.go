package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the build tool configuration.
type Config struct {
	Project     ProjectConfig      `yaml:"project"`
	Compiler    CompilerConfig     `yaml:"compiler"`
	Stubs       StubsConfig        `yaml:"stubs"`
	Index       IndexConfig        `yaml:"index"`
	Logging     LoggingConfig      `yaml:"logging"`
	Metrics     *MetricsConfig     `yaml:"metrics,omitempty"`
	Diagnostics *DiagnosticsConfig `yaml:"diagnostics,omitempty"`
	Watch       *WatchConfig       `yaml:"watch,omitempty"`
}

// CompilerConfig controls how the Groovy compiler is launched.
type CompilerConfig struct {
	// RunnerJar is the jar carrying the compiler runner classes. It is always
	// placed first on the compiler classpath so its classes win resolution.
	RunnerJar string `yaml:"runner_jar"`
	// ExtraClasspath lists jars appended after the runner jar and before
	// module classpaths (compiler bundles, AST transform jars).
	ExtraClasspath []string `yaml:"extra_classpath,omitempty"`
	// MainClass is the runner's JVM entry point inside RunnerJar.
	MainClass string `yaml:"main_class,omitempty"`
	JavaPath  string `yaml:"java_path,omitempty"`
	// JavacPath locates the Java compiler used for the stub pass between
	// stub generation and the final Groovy rounds.
	JavacPath string `yaml:"javac_path,omitempty"`
	HeapMB         int      `yaml:"heap_mb,omitempty"`
	Encoding       string   `yaml:"encoding,omitempty"`
	InvokeDynamic  bool     `yaml:"invoke_dynamic,omitempty"`
	GrapeRoot      string   `yaml:"grape_root,omitempty"`
	ConfigScript   string   `yaml:"config_script,omitempty"`
	// InProcess runs compilations inside the host process instead of forking
	// a JVM per chunk. Mutually exclusive with classloader optimization.
	InProcess bool `yaml:"in_process,omitempty"`
	// OptimizeThreshold is the minimum number of source files before the
	// forked compiler is asked to optimize classloading. nil means default,
	// an explicit 0 disables optimization entirely.
	OptimizeThreshold *int `yaml:"optimize_threshold,omitempty"`
	// JointCompileJava admits .java files into the compiled file set so the
	// compiler performs joint compilation instead of stubbed two-pass builds.
	JointCompileJava bool `yaml:"joint_compile_java,omitempty"`
}

// OptimizeThresholdValue resolves the configured threshold, applying the
// default when the field was omitted.
func (c CompilerConfig) OptimizeThresholdValue() int {
	if c.OptimizeThreshold == nil {
		return DefaultOptimizeThreshold
	}
	return *c.OptimizeThreshold
}

// StubsConfig controls Java stub generation for two-pass builds.
type StubsConfig struct {
	// Root is the directory stub source trees are generated under,
	// one subtree per module and target kind.
	Root string `yaml:"root,omitempty"`
	// ExcludeGlobs filters sources out of stub generation rounds.
	ExcludeGlobs []string `yaml:"exclude_globs,omitempty"`
}

// IndexConfig locates the persistent source-to-output index.
type IndexConfig struct {
	Path string `yaml:"path,omitempty"`
	// CacheSize bounds the in-memory read cache over the index.
	CacheSize int `yaml:"cache_size,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// DiagnosticsConfig controls publication of compiler diagnostics to NATS.
type DiagnosticsConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// WatchConfig controls the file-watching rebuild daemon.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
	// QuietPeriod is how long the watcher waits after the last change
	// before starting a build.
	QuietPeriod string `yaml:"quiet_period,omitempty"`
	// MaxDelay caps how long coalescing may defer a build under a
	// steady stream of changes.
	MaxDelay string `yaml:"max_delay,omitempty"`
	// Schedule optionally triggers periodic full rebuilds (cron syntax).
	Schedule string `yaml:"schedule,omitempty"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Load .env files if present so ${VAR} expansion below sees them.
	loadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ApplyDefaults(&config); err != nil {
		return nil, err
	}
	if err := ValidateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	threshold := DefaultOptimizeThreshold
	exampleConfig := Config{
		Project: ProjectConfig{
			Name: "example",
			Modules: []ModuleConfig{
				{
					Name:        "core",
					SourceRoots: []string{"core/src/main/groovy"},
					OutputDir:   "build/classes/core",
					Classpath:   []string{"lib/groovy-4.0.21.jar"},
				},
				{
					Name:            "app",
					SourceRoots:     []string{"app/src/main/groovy"},
					TestSourceRoots: []string{"app/src/test/groovy"},
					OutputDir:       "build/classes/app",
					TestOutputDir:   "build/test-classes/app",
					Classpath:       []string{"lib/groovy-4.0.21.jar"},
					DependsOn:       []string{"core"},
				},
			},
		},
		Compiler: CompilerConfig{
			RunnerJar:         "lib/groovy-runner.jar",
			HeapMB:            DefaultHeapMB,
			Encoding:          DefaultEncoding,
			OptimizeThreshold: &threshold,
		},
		Stubs: StubsConfig{
			Root: DefaultStubRoot,
		},
		Index: IndexConfig{
			Path: DefaultIndexPath,
		},
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
