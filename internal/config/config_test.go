package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "groovybuild.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
project:
  name: sample
  modules:
    - name: app
      source_roots: [app/src]
      output_dir: build/app
compiler:
  runner_jar: lib/runner.jar
`

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	require.Equal(t, DefaultJavaPath, cfg.Compiler.JavaPath)
	require.Equal(t, DefaultJavacPath, cfg.Compiler.JavacPath)
	require.Equal(t, DefaultRunnerMainClass, cfg.Compiler.MainClass)
	require.Equal(t, DefaultHeapMB, cfg.Compiler.HeapMB)
	require.Equal(t, DefaultEncoding, cfg.Compiler.Encoding)
	require.Equal(t, DefaultOptimizeThreshold, cfg.Compiler.OptimizeThresholdValue())
	require.Nil(t, cfg.Compiler.OptimizeThreshold)
	require.Equal(t, DefaultStubRoot, cfg.Stubs.Root)
	require.Equal(t, DefaultIndexPath, cfg.Index.Path)
	require.Equal(t, LogLevelInfo, cfg.Logging.Level)
	require.Equal(t, LogFormatText, cfg.Logging.Format)
}

func TestLoad_ExplicitZeroThresholdDisablesOptimization(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
  optimize_threshold: 0
`))
	require.NoError(t, err)
	require.NotNil(t, cfg.Compiler.OptimizeThreshold)
	require.Zero(t, cfg.Compiler.OptimizeThresholdValue())
}

func TestLoad_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("BUILD_OUT", "/var/build/out")
	cfg, err := Load(writeConfig(t, `
project:
  name: sample
  modules:
    - name: app
      source_roots: [app/src]
      output_dir: ${BUILD_OUT}/app
compiler:
  runner_jar: lib/runner.jar
`))
	require.NoError(t, err)
	require.Equal(t, "/var/build/out/app", cfg.Project.Modules[0].OutputDir)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := map[string]string{
		"no modules": `
project:
  name: empty
compiler:
  runner_jar: lib/runner.jar
`,
		"missing runner jar": `
project:
  name: sample
  modules:
    - name: app
      source_roots: [app/src]
      output_dir: build/app
`,
		"module without output dir": `
project:
  name: sample
  modules:
    - name: app
      source_roots: [app/src]
compiler:
  runner_jar: lib/runner.jar
`,
		"shared output dir": `
project:
  name: sample
  modules:
    - name: a
      source_roots: [a/src]
      output_dir: build/shared
    - name: b
      source_roots: [b/src]
      output_dir: build/shared
compiler:
  runner_jar: lib/runner.jar
`,
		"unknown dependency": `
project:
  name: sample
  modules:
    - name: app
      source_roots: [app/src]
      output_dir: build/app
      depends_on: [ghost]
compiler:
  runner_jar: lib/runner.jar
`,
		"bad watch duration": minimalConfig + `
watch:
  enabled: true
  quiet_period: soon
`,
		"max delay below quiet period": minimalConfig + `
watch:
  enabled: true
  quiet_period: 10s
  max_delay: 1s
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			require.Error(t, err)
		})
	}
}

func TestLoad_NormalizesLoggingEnums(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
logging:
  level: DEBUG
  format: unknown-format
`))
	require.NoError(t, err)
	require.Equal(t, LogLevelDebug, cfg.Logging.Level)
	require.Equal(t, LogFormatText, cfg.Logging.Format)
}

func TestWatchConfig_DurationFallbacks(t *testing.T) {
	w := &WatchConfig{QuietPeriod: "250ms", MaxDelay: "nonsense"}
	require.Equal(t, "250ms", w.QuietPeriodDuration().String())
	require.Equal(t, DefaultWatchMaxDelay, w.MaxDelayDuration().String())
}

func TestInit_WritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groovybuild.yaml")
	require.NoError(t, Init(path, false))

	// Refuses to clobber without force.
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Project.Modules, 2)
	require.Equal(t, "core", cfg.Project.Modules[0].Name)
}
