package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *BuildError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigRequired(field string) *BuildError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("field", field)
}

func ValidationFailed(field, reason string) *BuildError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// MissingOutputDir reports a target without a configured output directory.
// The chunk build cannot proceed without knowing where classes go.
func MissingOutputDir(target string) *BuildError {
	return New(CategoryConfig, SeverityFatal, "target has no output directory").
		WithContext("target", target)
}

// Compilation pipeline errors

// StubRootError reports a stub generation directory that could not be
// cleaned or created.
func StubRootError(dir string, cause error) *BuildError {
	return Wrap(cause, CategoryStubs, SeverityFatal, "stub output root setup failed").
		WithContext("dir", dir)
}

// LaunchError reports a compiler process that could not be started or waited on.
func LaunchError(cause error) *BuildError {
	return Wrap(cause, CategoryLaunch, SeverityFatal, "compiler launch failed")
}

// ReconcileError reports an output file that could not be moved to its
// owning module's output root.
func ReconcileError(output string, cause error) *BuildError {
	return Wrap(cause, CategoryReconcile, SeverityWarning, "compiler output relocation failed").
		WithContext("output", output)
}

// DependencyError reports a compiled item whose dependency registration failed.
func DependencyError(source string, cause error) *BuildError {
	return Wrap(cause, CategoryDependencies, SeverityWarning, "dependency registration failed").
		WithContext("source", source)
}

// ChunkBuildError wraps any uncaught round failure so it aborts only this
// chunk's build.
func ChunkBuildError(chunk string, cause error) *BuildError {
	return Wrap(cause, CategoryCompile, SeverityFatal, "chunk build failed").
		WithContext("chunk", chunk)
}

// Storage errors

func IndexError(operation string, cause error) *BuildError {
	return Wrap(cause, CategoryIndex, SeverityError, "output index operation failed").
		WithContext("operation", operation)
}

// Internal errors

func InternalError(message string, cause error) *BuildError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
