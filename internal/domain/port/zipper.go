package port

import "context"

// FramePacker bundles the frames left in framesDir, in frame order, into a
// single archive for publishing.
type FramePacker interface {
	PackFrames(ctx context.Context, framesDir string, outputPath string) error
}
