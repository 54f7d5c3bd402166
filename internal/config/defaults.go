package config

// Defaults applied when the corresponding field is omitted.
const (
	DefaultOptimizeThreshold = 10
	DefaultHeapMB            = 384
	DefaultEncoding          = "UTF-8"
	DefaultJavaPath          = "java"
	DefaultJavacPath         = "javac"
	DefaultRunnerMainClass   = "info.luguber.groovybuild.runner.Main"
	DefaultStubRoot          = ".groovybuild/stubs"
	DefaultIndexPath         = ".groovybuild/index.db"
	DefaultIndexCacheSize    = 4096
	DefaultMetricsListen     = ":9311"
	DefaultMetricsPath       = "/metrics"
	DefaultNATSSubject       = "groovybuild.diagnostics"
	DefaultWatchQuietPeriod  = "400ms"
	DefaultWatchMaxDelay     = "5s"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// ApplyDefaults runs every domain applier in order.
func ApplyDefaults(cfg *Config) error {
	appliers := []DefaultApplier{
		&CompilerDefaultApplier{},
		&StubsDefaultApplier{},
		&IndexDefaultApplier{},
		&LoggingDefaultApplier{},
		&MetricsDefaultApplier{},
		&DiagnosticsDefaultApplier{},
		&WatchDefaultApplier{},
	}
	for _, a := range appliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

// CompilerDefaultApplier handles compiler configuration defaults.
type CompilerDefaultApplier struct{}

func (c *CompilerDefaultApplier) Domain() string { return "compiler" }

func (c *CompilerDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Compiler.JavaPath == "" {
		cfg.Compiler.JavaPath = DefaultJavaPath
	}
	if cfg.Compiler.JavacPath == "" {
		cfg.Compiler.JavacPath = DefaultJavacPath
	}
	if cfg.Compiler.MainClass == "" {
		cfg.Compiler.MainClass = DefaultRunnerMainClass
	}
	if cfg.Compiler.HeapMB <= 0 {
		cfg.Compiler.HeapMB = DefaultHeapMB
	}
	if cfg.Compiler.Encoding == "" {
		cfg.Compiler.Encoding = DefaultEncoding
	}

	// OptimizeThreshold:
	// - If omitted: default threshold.
	// - If explicitly set: respect the user value, including 0 to disable.
	// - Negative coerced to 0.
	if cfg.Compiler.OptimizeThreshold == nil {
		v := DefaultOptimizeThreshold
		cfg.Compiler.OptimizeThreshold = &v
	} else if *cfg.Compiler.OptimizeThreshold < 0 {
		*cfg.Compiler.OptimizeThreshold = 0
	}

	return nil
}

// StubsDefaultApplier handles stub generation defaults.
type StubsDefaultApplier struct{}

func (s *StubsDefaultApplier) Domain() string { return "stubs" }

func (s *StubsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Stubs.Root == "" {
		cfg.Stubs.Root = DefaultStubRoot
	}
	return nil
}

// IndexDefaultApplier handles output index defaults.
type IndexDefaultApplier struct{}

func (i *IndexDefaultApplier) Domain() string { return "index" }

func (i *IndexDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Index.Path == "" {
		cfg.Index.Path = DefaultIndexPath
	}
	if cfg.Index.CacheSize <= 0 {
		cfg.Index.CacheSize = DefaultIndexCacheSize
	}
	return nil
}

// LoggingDefaultApplier handles logging defaults.
type LoggingDefaultApplier struct{}

func (l *LoggingDefaultApplier) Domain() string { return "logging" }

func (l *LoggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	} else {
		cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	} else {
		cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	}
	return nil
}

// MetricsDefaultApplier handles metrics endpoint defaults.
type MetricsDefaultApplier struct{}

func (m *MetricsDefaultApplier) Domain() string { return "metrics" }

func (m *MetricsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Metrics == nil {
		return nil
	}
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = DefaultMetricsListen
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	return nil
}

// DiagnosticsDefaultApplier handles diagnostics publication defaults.
type DiagnosticsDefaultApplier struct{}

func (d *DiagnosticsDefaultApplier) Domain() string { return "diagnostics" }

func (d *DiagnosticsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Diagnostics == nil {
		return nil
	}
	if cfg.Diagnostics.NATSURL == "" {
		cfg.Diagnostics.NATSURL = "nats://localhost:4222"
	}
	if cfg.Diagnostics.Subject == "" {
		cfg.Diagnostics.Subject = DefaultNATSSubject
	}
	return nil
}

// WatchDefaultApplier handles watch daemon defaults.
type WatchDefaultApplier struct{}

func (w *WatchDefaultApplier) Domain() string { return "watch" }

func (w *WatchDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Watch == nil {
		return nil
	}
	if cfg.Watch.QuietPeriod == "" {
		cfg.Watch.QuietPeriod = DefaultWatchQuietPeriod
	}
	if cfg.Watch.MaxDelay == "" {
		cfg.Watch.MaxDelay = DefaultWatchMaxDelay
	}
	return nil
}
