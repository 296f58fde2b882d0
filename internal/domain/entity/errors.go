package entity

import (
	"errors"
	"fmt"
)

// DecodeError reports a decoder failure. Output holds the decoder's own
// diagnostic text.
type DecodeError struct {
	Video  string
	Output string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("decode %s: %v", e.Video, e.Err)
	}
	return fmt.Sprintf("decode %s: %v, output: %s", e.Video, e.Err, e.Output)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// FingerprintError is raised for a single unreadable or undecodable frame.
type FingerprintError struct {
	Path string
	Err  error
}

func (e *FingerprintError) Error() string {
	return fmt.Sprintf("fingerprint %s: %v", e.Path, e.Err)
}

func (e *FingerprintError) Unwrap() error { return e.Err }

type RenderError struct {
	Path string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Path, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// CleanupError is logged by the orchestrator and never returned in place of
// the run's own result.
type CleanupError struct {
	Dir string
	Err error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("cleanup %s: %v", e.Dir, e.Err)
}

func (e *CleanupError) Unwrap() error { return e.Err }

// StageError names the pipeline stage a run failed in.
type StageError struct {
	Stage RunState
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

var ErrRunNotFound = errors.New("run not found")
