package orchestrator

import (
	"time"

	"github.com/ajitpratap0/mcp-orchestrator/pkg/protocol"
)

// Status is the outcome of a run
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Result is the outcome of a run. A failed run still carries the transcript
// as it stood when the run stopped.
type Result struct {
	RunID      string
	Status     Status
	Transcript *protocol.Transcript
	// Err is the reason a failed run stopped; nil when completed
	Err        error
	Iterations int
	Duration   time.Duration
}

// Completed reports whether the model gave a final answer
func (r *Result) Completed() bool {
	return r != nil && r.Status == StatusCompleted
}

// Reason describes why the run failed, or is empty
func (r *Result) Reason() string {
	if r == nil || r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// FinalAnswer returns the content of the closing assistant entry of a
// completed run.
func (r *Result) FinalAnswer() string {
	if !r.Completed() || r.Transcript == nil {
		return ""
	}
	last, ok := r.Transcript.Last()
	if !ok || last.Role != protocol.RoleAssistant {
		return ""
	}
	return last.Content
}
