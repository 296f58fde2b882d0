package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RunState string

const (
	RunStateIdle          RunState = "IDLE"
	RunStateSampling      RunState = "SAMPLING"
	RunStateDeduplicating RunState = "DEDUPLICATING"
	RunStateAssembling    RunState = "ASSEMBLING"
	RunStatePublishing    RunState = "PUBLISHING"
	RunStateDone          RunState = "DONE"
	RunStateFailed        RunState = "FAILED"
)

// OutputMode selects which stages a run executes.
type OutputMode string

const (
	OutputDocument OutputMode = "document"
	OutputFrames   OutputMode = "frames"
)

func ParseOutputMode(s string) (OutputMode, error) {
	switch OutputMode(s) {
	case "", OutputDocument:
		return OutputDocument, nil
	case OutputFrames:
		return OutputFrames, nil
	default:
		return "", fmt.Errorf("unknown output mode %q (expected document|frames)", s)
	}
}

var transitions = map[RunState][]RunState{
	RunStateIdle:          {RunStateSampling},
	RunStateSampling:      {RunStateDeduplicating},
	RunStateDeduplicating: {RunStateAssembling, RunStatePublishing},
	RunStateAssembling:    {RunStatePublishing},
	RunStatePublishing:    {RunStateDone},
}

// Run is the per-run context handed to every pipeline stage. It owns the
// working directory for its lifetime.
type Run struct {
	ID              uuid.UUID
	UserID          string
	VideoKey        string
	OutputKey       string
	Mode            OutputMode
	Strategy        string
	State           RunState
	FailedStage     RunState
	SampledFrames   int
	KeptFrames      int
	DurationMinutes int
	ErrorMessage    string
	WorkDir         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

func NewRun(userID, videoKey string, mode OutputMode, strategy string) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:        uuid.New(),
		UserID:    userID,
		VideoKey:  videoKey,
		Mode:      mode,
		Strategy:  strategy,
		State:     RunStateIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Advance moves the run to next, rejecting transitions the state machine
// does not allow.
func (r *Run) Advance(next RunState) error {
	for _, allowed := range transitions[r.State] {
		if allowed == next {
			r.State = next
			r.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid run transition %s -> %s", r.State, next)
}

func (r *Run) MarkDone(outputKey string) error {
	if err := r.Advance(RunStateDone); err != nil {
		return err
	}
	completed := r.UpdatedAt
	r.OutputKey = outputKey
	r.CompletedAt = &completed
	return nil
}

// MarkFailed records the stage the run was in when it failed. A run that is
// already terminal keeps its first outcome.
func (r *Run) MarkFailed(errMsg string) {
	if r.IsTerminal() {
		return
	}
	now := time.Now().UTC()
	r.FailedStage = r.State
	r.State = RunStateFailed
	r.ErrorMessage = errMsg
	r.UpdatedAt = now
	r.CompletedAt = &now
}

func (r *Run) IsTerminal() bool {
	return r.State == RunStateDone || r.State == RunStateFailed
}
