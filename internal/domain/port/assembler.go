package port

import (
	"context"

	"github.com/fiapx/fiapx-lesson-service/internal/domain/entity"
)

type DocumentAssembler interface {
	Assemble(ctx context.Context, frames entity.FrameSet, outputDir string) (string, error)
}
