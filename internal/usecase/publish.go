package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fiapx/fiapx-lesson-service/internal/domain/entity"
	"github.com/fiapx/fiapx-lesson-service/internal/domain/port"
	"github.com/google/uuid"
)

const (
	documentPrefix = "materials"
	framesPrefix   = "frames"
)

// StoragePublisher uploads a run's output to blob storage under a fresh
// name: materials/<uuid>.pdf for documents, frames/<uuid>.zip for frames.
type StoragePublisher struct {
	storage port.VideoStorage
	packer  port.FramePacker
}

func NewStoragePublisher(storage port.VideoStorage, packer port.FramePacker) *StoragePublisher {
	return &StoragePublisher{storage: storage, packer: packer}
}

func (p *StoragePublisher) Publish(ctx context.Context, run *entity.Run, outputPath string) (string, error) {
	if run.Mode == entity.OutputFrames {
		zipPath := filepath.Join(run.WorkDir, "frames.zip")
		if err := p.packer.PackFrames(ctx, outputPath, zipPath); err != nil {
			return "", fmt.Errorf("pack frames: %w", err)
		}
		key := fmt.Sprintf("%s/%s.zip", framesPrefix, uuid.NewString())
		if err := p.upload(ctx, zipPath, key, "application/zip"); err != nil {
			return "", err
		}
		return key, nil
	}

	key := fmt.Sprintf("%s/%s.pdf", documentPrefix, uuid.NewString())
	if err := p.upload(ctx, outputPath, key, "application/pdf"); err != nil {
		return "", err
	}
	return key, nil
}

func (p *StoragePublisher) upload(ctx context.Context, path, key, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat output: %w", err)
	}

	return p.storage.UploadMaterial(ctx, key, f, info.Size(), contentType)
}
