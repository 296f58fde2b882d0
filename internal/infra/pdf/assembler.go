// Package pdf renders deduplicated frames into a landscape slide document.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/fiapx/fiapx-lesson-service/internal/domain/entity"
	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	orientation = "L"
	unit        = "pt"
	pageSize    = "A4"

	// Images no wider than the page are drawn at this share of the page height.
	heightShare = 0.8
)

var background = [3]int{0xF4, 0xF4, 0xF4}

var ErrNoPages = errors.New("no frames to render")

// Placement is where an image is drawn on a page, in points.
type Placement struct {
	X, Y, W, H float64
}

// FitImage scales an image of imgW x imgH into a page keeping its aspect
// ratio. Images wider than the page span the full width; all others span
// 80% of the page height. The result is centered on both axes.
func FitImage(imgW, imgH, pageW, pageH float64) Placement {
	imageRatio := imgW / imgH
	pageRatio := pageW / pageH

	var w, h float64
	if imageRatio > pageRatio {
		w = pageW
		h = w / imageRatio
	} else {
		h = pageH * heightShare
		w = h * imageRatio
	}
	return Placement{
		X: (pageW - w) / 2,
		Y: (pageH - h) / 2,
		W: w,
		H: h,
	}
}

type Assembler struct {
	logger *zap.Logger
}

func NewAssembler(logger *zap.Logger) *Assembler {
	return &Assembler{logger: logger}
}

type pageImage struct {
	path      string
	imageType string
	placement Placement
}

// Assemble writes one page per frame, in frame order, to a uniquely named
// document under outputDir and returns its path.
func (a *Assembler) Assemble(ctx context.Context, frames entity.FrameSet, outputDir string) (string, error) {
	if frames.Len() == 0 {
		return "", &entity.RenderError{Path: outputDir, Err: ErrNoPages}
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", &entity.RenderError{Path: outputDir, Err: err}
	}

	doc := fpdf.New(orientation, unit, pageSize, "")
	doc.SetAutoPageBreak(false, 0)
	pageW, pageH := doc.GetPageSize()

	pages, err := layout(ctx, frames, pageW, pageH)
	if err != nil {
		return "", err
	}

	for _, p := range pages {
		doc.AddPage()
		doc.SetFillColor(background[0], background[1], background[2])
		doc.Rect(0, 0, pageW, pageH, "F")
		doc.ImageOptions(p.path, p.placement.X, p.placement.Y, p.placement.W, p.placement.H,
			false, fpdf.ImageOptions{ImageType: p.imageType}, 0, "")
		if doc.Err() {
			return "", &entity.RenderError{Path: p.path, Err: doc.Error()}
		}
	}

	outFile := filepath.Join(outputDir, uuid.NewString()+".pdf")
	if err := doc.OutputFileAndClose(outFile); err != nil {
		return "", &entity.RenderError{Path: outFile, Err: err}
	}

	a.logger.Info("document assembled",
		zap.String("path", outFile),
		zap.Int("pages", len(pages)),
	)
	return outFile, nil
}

func layout(ctx context.Context, frames entity.FrameSet, pageW, pageH float64) ([]pageImage, error) {
	pages := make([]pageImage, 0, frames.Len())
	for _, f := range frames.Frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cfg, format, err := decodeConfig(f.Path)
		if err != nil {
			return nil, &entity.RenderError{Path: f.Path, Err: err}
		}

		imageType, err := fpdfType(format)
		if err != nil {
			return nil, &entity.RenderError{Path: f.Path, Err: err}
		}

		pages = append(pages, pageImage{
			path:      f.Path,
			imageType: imageType,
			placement: FitImage(float64(cfg.Width), float64(cfg.Height), pageW, pageH),
		})
	}
	return pages, nil
}

func decodeConfig(path string) (image.Config, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return image.Config{}, "", err
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return image.Config{}, "", fmt.Errorf("image has no pixels")
	}
	return cfg, format, nil
}

func fpdfType(format string) (string, error) {
	switch format {
	case "jpeg":
		return "JPG", nil
	case "png":
		return "PNG", nil
	default:
		return "", fmt.Errorf("unsupported image format %q", format)
	}
}
