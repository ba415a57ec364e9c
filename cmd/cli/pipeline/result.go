package pipeline

import "fmt"

// Severity classifies a stage failure. The deploy driver alone decides what
// each severity means for control flow: Fatal aborts the pipeline, Advisory
// is logged and the pipeline continues, Ignored is swallowed at the call
// site (best-effort deletions and the like) and never surfaces here.
type Severity int

const (
	SeverityFatal Severity = iota
	SeverityAdvisory
	SeverityIgnored
)

func (s Severity) String() string {
	switch s {
	case SeverityFatal:
		return "fatal"
	case SeverityAdvisory:
		return "advisory"
	case SeverityIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// StageError is a classified failure from one pipeline stage.
type StageError struct {
	Stage    string
	Severity Severity
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Stage, e.Severity, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func fatal(stage string, err error) *StageError {
	return &StageError{Stage: stage, Severity: SeverityFatal, Err: err}
}

func fatalf(stage, format string, args ...any) *StageError {
	return fatal(stage, fmt.Errorf(format, args...))
}

func advisoryf(stage, format string, args ...any) *StageError {
	return &StageError{Stage: stage, Severity: SeverityAdvisory, Err: fmt.Errorf(format, args...)}
}
