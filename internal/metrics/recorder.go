package metrics

import "time"

// LaunchLabel enumerates how a compiler run was hosted.
type LaunchLabel string

const (
	LaunchForked    LaunchLabel = "forked"
	LaunchInProcess LaunchLabel = "in_process"
)

// Recorder defines observability hooks for compilation rounds. Implementations
// may forward to Prometheus, OpenTelemetry, etc. All methods must be safe on
// the zero value so injection stays optional.
type Recorder interface {
	ObserveRoundDuration(mode string, d time.Duration)
	ObserveChunkDuration(d time.Duration)
	IncChunkVerdict(verdict string)
	AddCompiledItems(mode string, n int)
	IncCompilerLaunch(label LaunchLabel)
	IncOutputRelocated()
	IncDependencyRegistrationFailure()
	AddStubsRescheduled(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRoundDuration(string, time.Duration) {}
func (NoopRecorder) ObserveChunkDuration(time.Duration)         {}
func (NoopRecorder) IncChunkVerdict(string)                     {}
func (NoopRecorder) AddCompiledItems(string, int)               {}
func (NoopRecorder) IncCompilerLaunch(LaunchLabel)              {}
func (NoopRecorder) IncOutputRelocated()                        {}
func (NoopRecorder) IncDependencyRegistrationFailure()          {}
func (NoopRecorder) AddStubsRescheduled(int)                    {}
