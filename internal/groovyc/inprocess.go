package groovyc

import (
	"context"
	"sync"
)

// inProcessLock serializes in-process compilations across the whole
// process. The embedded compiler keeps global state, so two concurrent
// invocations would corrupt each other even across independent builds.
var inProcessLock sync.Mutex

// Backend compiles a request inside the current process, emitting the
// same line protocol a forked runner writes on its streams. It returns
// the equivalent of a process exit code.
type Backend interface {
	Compile(ctx context.Context, req *Request, emit func(line string)) (int, error)
}

// InProcessRunner executes compilations on an embedded Backend while
// holding the process-wide compilation lock.
type InProcessRunner struct {
	backend Backend
}

// NewInProcessRunner wraps the given backend. A nil backend yields
// ErrNoBackend from Run.
func NewInProcessRunner(backend Backend) *InProcessRunner {
	return &InProcessRunner{backend: backend}
}

// Run acquires the process-wide lock and feeds the backend's protocol
// lines through the same parser used for forked output.
func (r *InProcessRunner) Run(ctx context.Context, req *Request) (*Result, error) {
	if r.backend == nil {
		return nil, ErrNoBackend
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inProcessLock.Lock()
	defer inProcessLock.Unlock()

	parser := NewOutputParser()
	exitCode, err := r.backend.Compile(ctx, req, parser.ProcessLine)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	parser.NotifyFinished(exitCode)
	return parser.Result(), nil
}
