package groovyc

import (
	"context"
	"time"

	"git.home.luguber.info/inful/groovybuild/internal/config"
	"git.home.luguber.info/inful/groovybuild/internal/metrics"
	"git.home.luguber.info/inful/groovybuild/internal/workpool"
)

// Runner executes one compilation request to completion.
type Runner interface {
	Run(ctx context.Context, req *Request) (*Result, error)
}

// Invoker selects between forked and in-process execution and keeps the
// launch and throughput counters.
type Invoker struct {
	forked    Runner
	inProcess Runner
	useInProc bool
	recorder  metrics.Recorder
}

// NewInvoker builds an invoker from compiler configuration. The backend
// may be nil when in-process hosting is disabled.
func NewInvoker(cfg *config.CompilerConfig, pool *workpool.Group, backend Backend, rec metrics.Recorder) *Invoker {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Invoker{
		forked:    NewForkedRunner(cfg, pool),
		inProcess: NewInProcessRunner(backend),
		useInProc: cfg.InProcess,
		recorder:  rec,
	}
}

// InProcess reports whether compilations run inside this process.
func (inv *Invoker) InProcess() bool {
	return inv.useInProc
}

// Invoke runs the request on the configured hosting and records launch
// metrics alongside the number of produced outputs.
func (inv *Invoker) Invoke(ctx context.Context, req *Request) (*Result, error) {
	runner := inv.forked
	label := metrics.LaunchForked
	if inv.useInProc {
		runner = inv.inProcess
		label = metrics.LaunchInProcess
	}

	inv.recorder.IncCompilerLaunch(label)
	start := time.Now()
	res, err := runner.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	inv.recorder.ObserveRoundDuration(string(req.Mode), time.Since(start))
	inv.recorder.AddCompiledItems(string(req.Mode), len(res.Items))
	return res, nil
}
