package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fiapx/fiapx-lesson-service/internal/domain/entity"
)

// localPublisher copies a run's output into a user directory before the
// pipeline removes its working directory.
type localPublisher struct {
	dir string
}

func newLocalPublisher(dir string) *localPublisher {
	return &localPublisher{dir: dir}
}

func (p *localPublisher) Publish(ctx context.Context, run *entity.Run, outputPath string) (string, error) {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	if run.Mode == entity.OutputFrames {
		dest := filepath.Join(p.dir, run.ID.String()+"-frames")
		if err := copyDir(ctx, outputPath, dest); err != nil {
			return "", err
		}
		return dest, nil
	}

	dest := filepath.Join(p.dir, filepath.Base(outputPath))
	if err := copyFile(outputPath, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func copyDir(ctx context.Context, src, dest string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("read frames dir: %w", err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create frames dir: %w", err)
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.IsDir() {
			continue
		}
		if err := copyFile(filepath.Join(src, e.Name()), filepath.Join(dest, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dest string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", dest, cerr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy to %s: %w", dest, err)
	}
	return nil
}
