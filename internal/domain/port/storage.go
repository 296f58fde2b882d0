package port

import (
	"context"
	"io"
)

// VideoStorage reads source videos from the uploads bucket and writes
// generated materials (PDF documents, frame archives) to the materials bucket.
type VideoStorage interface {
	// DownloadVideo copies the object to destPath on local disk.
	DownloadVideo(ctx context.Context, objectKey string, destPath string) error
	// UploadMaterial stores size bytes from reader under objectKey.
	UploadMaterial(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
}
