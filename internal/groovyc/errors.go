package groovyc

import "errors"

// Sentinel domain errors used to classify compiler invocation failures.
// They should always be wrapped with contextual information at the call site.
var (
	ErrLaunch     = errors.New("groovybuild: compiler launch error")
	ErrParamFile  = errors.New("groovybuild: parameter file error")
	ErrNoBackend  = errors.New("groovybuild: no in-process compiler backend registered")
	ErrBadRequest = errors.New("groovybuild: invalid compiler request")
)
