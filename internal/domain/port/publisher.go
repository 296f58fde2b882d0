package port

import (
	"context"

	"github.com/fiapx/fiapx-lesson-service/internal/domain/entity"
)

// OutputPublisher relocates a run's output before the working directory is
// removed. outputPath is a document file or a frames directory depending on
// the run's mode. The returned location is the only name callers see.
type OutputPublisher interface {
	Publish(ctx context.Context, run *entity.Run, outputPath string) (string, error)
}

// PublisherFunc adapts a function to OutputPublisher.
type PublisherFunc func(ctx context.Context, run *entity.Run, outputPath string) (string, error)

func (f PublisherFunc) Publish(ctx context.Context, run *entity.Run, outputPath string) (string, error) {
	return f(ctx, run, outputPath)
}
