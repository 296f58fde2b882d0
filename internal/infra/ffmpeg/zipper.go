package ffmpeg

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fiapx/fiapx-lesson-service/internal/domain/entity"
)

// ZipPacker bundles surviving frames, in order, into a zip archive.
type ZipPacker struct {
	format string
}

func NewZipPacker(format string) *ZipPacker {
	if format == "" {
		format = "jpg"
	}
	return &ZipPacker{format: format}
}

func (z *ZipPacker) PackFrames(ctx context.Context, framesDir string, outputPath string) error {
	frames, err := ListFrames(framesDir, z.format)
	if err != nil {
		return fmt.Errorf("list frames: %w", err)
	}
	return z.pack(ctx, frames, outputPath)
}

func (z *ZipPacker) pack(ctx context.Context, frames entity.FrameSet, outputPath string) (err error) {
	zipFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create zip file: %w", err)
	}
	defer func() {
		if cerr := zipFile.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close zip file: %w", cerr)
		}
	}()

	zipWriter := zip.NewWriter(zipFile)
	for _, f := range frames.Frames {
		select {
		case <-ctx.Done():
			_ = zipWriter.Close()
			return ctx.Err()
		default:
		}

		if err := addFileToZip(zipWriter, f.Path); err != nil {
			_ = zipWriter.Close()
			return fmt.Errorf("add %s to zip: %w", f.Path, err)
		}
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("finalize zip: %w", err)
	}
	return nil
}

func addFileToZip(zw *zip.Writer, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	header.Name = filepath.Base(filename)
	// JPEG data does not compress further.
	header.Method = zip.Store

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(writer, file)
	return err
}
