package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// ValidateConfig validates the complete configuration structure.
func ValidateConfig(cfg *Config) error {
	validator := newConfigurationValidator(cfg)
	return validator.validate()
}

// configurationValidator coordinates validation across all configuration domains.
type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

// validate performs configuration validation using domain-specific methods.
func (cv *configurationValidator) validate() error {
	if err := cv.validateProject(); err != nil {
		return err
	}
	if err := cv.validateCompiler(); err != nil {
		return err
	}
	if err := cv.validateWatch(); err != nil {
		return err
	}
	return nil
}

// validateProject validates module definitions and their dependency references.
func (cv *configurationValidator) validateProject() error {
	if len(cv.config.Project.Modules) == 0 {
		return errors.New("at least one module must be configured")
	}

	moduleNames := make(map[string]bool)
	for _, m := range cv.config.Project.Modules {
		if m.Name == "" {
			return errors.New("module name cannot be empty")
		}
		if moduleNames[m.Name] {
			return fmt.Errorf("duplicate module name: %s", m.Name)
		}
		moduleNames[m.Name] = true

		if len(m.SourceRoots) == 0 && len(m.TestSourceRoots) == 0 {
			return fmt.Errorf("module %s has no source roots", m.Name)
		}
		if m.OutputDir == "" {
			return fmt.Errorf("module %s has no output_dir", m.Name)
		}
		if len(m.TestSourceRoots) > 0 && m.TestOutputDir == "" {
			return fmt.Errorf("module %s has test sources but no test_output_dir", m.Name)
		}
	}

	// Dependency references must resolve after all names are known.
	for _, m := range cv.config.Project.Modules {
		for _, dep := range m.DependsOn {
			if !moduleNames[dep] {
				return fmt.Errorf("module %s depends on unknown module %s", m.Name, dep)
			}
		}
	}

	// Output directories must not collide between modules.
	outputs := make(map[string]string)
	for _, m := range cv.config.Project.Modules {
		for _, dir := range []string{m.OutputDir, m.TestOutputDir} {
			if dir == "" {
				continue
			}
			clean := filepath.Clean(dir)
			if owner, ok := outputs[clean]; ok && owner != m.Name {
				return fmt.Errorf("modules %s and %s share output directory %s", owner, m.Name, clean)
			}
			outputs[clean] = m.Name
		}
	}

	return nil
}

// validateCompiler validates compiler launch settings.
func (cv *configurationValidator) validateCompiler() error {
	if cv.config.Compiler.RunnerJar == "" {
		return errors.New("compiler.runner_jar is required")
	}
	if cv.config.Compiler.HeapMB < 0 {
		return fmt.Errorf("compiler.heap_mb cannot be negative: %d", cv.config.Compiler.HeapMB)
	}
	if cv.config.Compiler.InProcess && cv.config.Compiler.OptimizeThresholdValue() > 0 {
		// Classloader optimization only applies to forked compilers; an
		// explicit threshold alongside in_process is a misconfiguration.
		if cv.config.Compiler.OptimizeThreshold != nil && *cv.config.Compiler.OptimizeThreshold != DefaultOptimizeThreshold {
			return errors.New("compiler.optimize_threshold has no effect with in_process: true")
		}
	}
	return nil
}

// validateWatch validates watch daemon durations and schedule.
func (cv *configurationValidator) validateWatch() error {
	w := cv.config.Watch
	if w == nil {
		return nil
	}

	quiet, err := time.ParseDuration(w.QuietPeriod)
	if err != nil {
		return fmt.Errorf("invalid watch.quiet_period: %s: %w", w.QuietPeriod, err)
	}
	maxDelay, err := time.ParseDuration(w.MaxDelay)
	if err != nil {
		return fmt.Errorf("invalid watch.max_delay: %s: %w", w.MaxDelay, err)
	}
	if maxDelay < quiet {
		return fmt.Errorf("watch.max_delay (%s) must be >= watch.quiet_period (%s)", w.MaxDelay, w.QuietPeriod)
	}
	return nil
}

// QuietPeriodDuration parses the quiet period, falling back to the default.
func (w *WatchConfig) QuietPeriodDuration() time.Duration {
	d, err := time.ParseDuration(w.QuietPeriod)
	if err != nil {
		d, _ = time.ParseDuration(DefaultWatchQuietPeriod)
	}
	return d
}

// MaxDelayDuration parses the max delay, falling back to the default.
func (w *WatchConfig) MaxDelayDuration() time.Duration {
	d, err := time.ParseDuration(w.MaxDelay)
	if err != nil {
		d, _ = time.ParseDuration(DefaultWatchMaxDelay)
	}
	return d
}
