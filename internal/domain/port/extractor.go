package port

import (
	"context"

	"github.com/fiapx/fiapx-lesson-service/internal/domain/entity"
)

// ProgressFunc receives the decoded position, in seconds, while sampling.
type ProgressFunc func(seconds float64)

// FrameSampler decodes a video at a fixed sampling rate into ordered frame
// files under outputDir.
type FrameSampler interface {
	ExtractFrames(ctx context.Context, videoPath, outputDir string, samplingRateHz float64) (entity.FrameSet, error)
}

// VideoProber reports video metadata without sampling it.
type VideoProber interface {
	DurationMinutes(ctx context.Context, videoPath string) (int, error)
}
