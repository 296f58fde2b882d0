package entity

import "github.com/google/uuid"

// MaterialsRequestMessage is the inbound message from the materials.requests queue.
type MaterialsRequestMessage struct {
	RunID               uuid.UUID  `json:"run_id"`
	UserID              string     `json:"user_id"`
	VideoKey            string     `json:"video_key"`
	UserEmail           string     `json:"user_email"`
	Output              OutputMode `json:"output,omitempty"`
	Strategy            string     `json:"strategy,omitempty"`
	SamplingRateHz      float64    `json:"sampling_rate_hz,omitempty"`
	SimilarityThreshold float64    `json:"similarity_threshold,omitempty"`
}

// RunStatusMessage is the outbound message published to the materials.status queue.
type RunStatusMessage struct {
	RunID           uuid.UUID  `json:"run_id"`
	UserID          string     `json:"user_id"`
	Status          RunState   `json:"status"`
	Output          OutputMode `json:"output"`
	VideoKey        string     `json:"video_key"`
	OutputKey       string     `json:"output_key,omitempty"`
	SampledFrames   int        `json:"sampled_frames,omitempty"`
	KeptFrames      int        `json:"kept_frames,omitempty"`
	DurationMinutes int        `json:"duration_minutes,omitempty"`
	FailedStage     RunState   `json:"failed_stage,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
}

func NewRunStatusMessage(r *Run) RunStatusMessage {
	return RunStatusMessage{
		RunID:           r.ID,
		UserID:          r.UserID,
		Status:          r.State,
		Output:          r.Mode,
		VideoKey:        r.VideoKey,
		OutputKey:       r.OutputKey,
		SampledFrames:   r.SampledFrames,
		KeptFrames:      r.KeptFrames,
		DurationMinutes: r.DurationMinutes,
		FailedStage:     r.FailedStage,
		ErrorMessage:    r.ErrorMessage,
	}
}
