package pdf

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fiapx/fiapx-lesson-service/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// A4 landscape in points.
const (
	a4W = 841.89
	a4H = 595.28
)

func writeFrames(t *testing.T, n, w, h int) entity.FrameSet {
	t.Helper()
	dir := t.TempDir()
	set := entity.FrameSet{Dir: dir}
	for i := 0; i < n; i++ {
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(i * 40), B: 128, A: 255})
			}
		}
		path := filepath.Join(dir, fmt.Sprintf("frame_%03d.jpg", i+1))
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, jpeg.Encode(f, img, nil))
		require.NoError(t, f.Close())
		set.Frames = append(set.Frames, entity.Frame{Index: i, Path: path})
	}
	return set
}

func countPages(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "%PDF-"))
	return strings.Count(string(data), "<</Type /Page\n")
}

func TestFitImage(t *testing.T) {
	tests := []struct {
		name         string
		imgW, imgH   float64
		wantW, wantH float64
		fullWidth    bool
	}{
		{name: "16:9 is wider than A4", imgW: 1280, imgH: 720, wantW: a4W, wantH: a4W * 720 / 1280, fullWidth: true},
		{name: "portrait", imgW: 720, imgH: 1280, wantW: a4H * 0.8 * 720 / 1280, wantH: a4H * 0.8},
		{name: "square", imgW: 500, imgH: 500, wantW: a4H * 0.8, wantH: a4H * 0.8},
		{name: "same ratio as page", imgW: a4W, imgH: a4H, wantW: a4W * 0.8, wantH: a4H * 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := FitImage(tt.imgW, tt.imgH, a4W, a4H)

			assert.InDelta(t, tt.wantW, p.W, 1e-6)
			assert.InDelta(t, tt.wantH, p.H, 1e-6)
			assert.InDelta(t, tt.imgW/tt.imgH, p.W/p.H, 1e-9)
			assert.InDelta(t, a4W, p.X*2+p.W, 1e-6)
			assert.InDelta(t, a4H, p.Y*2+p.H, 1e-6)
			if tt.fullWidth {
				assert.InDelta(t, 0, p.X, 1e-9)
			}
		})
	}
}

func TestAssemblePortraitFrames(t *testing.T) {
	frames := writeFrames(t, 5, 90, 160)
	out := filepath.Join(t.TempDir(), "materials")

	path, err := NewAssembler(zaptest.NewLogger(t)).Assemble(context.Background(), frames, out)
	require.NoError(t, err)

	assert.Equal(t, out, filepath.Dir(path))
	assert.Equal(t, ".pdf", filepath.Ext(path))
	assert.Equal(t, 5, countPages(t, path))

	pages, err := layout(context.Background(), frames, a4W, a4H)
	require.NoError(t, err)
	require.Len(t, pages, 5)
	for i, p := range pages {
		assert.Equal(t, frames.Frames[i].Path, p.path)
		assert.Greater(t, p.placement.X, 0.0, "portrait frames leave margins on the width axis")
		assert.InDelta(t, p.placement.X, a4W-p.placement.X-p.placement.W, 1e-6)
		assert.InDelta(t, p.placement.Y, a4H-p.placement.Y-p.placement.H, 1e-6)
		assert.InDelta(t, 90.0/160.0, p.placement.W/p.placement.H, 1e-9)
	}
}

func TestAssembleLandscapeFrames(t *testing.T) {
	frames := writeFrames(t, 3, 160, 90)

	path, err := NewAssembler(zaptest.NewLogger(t)).Assemble(context.Background(), frames, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 3, countPages(t, path))

	pages, err := layout(context.Background(), frames, a4W, a4H)
	require.NoError(t, err)
	for _, p := range pages {
		assert.InDelta(t, a4W, p.placement.W, 1e-6)
		assert.InDelta(t, 0, p.placement.X, 1e-9)
	}
}

func TestAssembleUniqueNames(t *testing.T) {
	frames := writeFrames(t, 1, 32, 18)
	out := t.TempDir()
	a := NewAssembler(zaptest.NewLogger(t))

	first, err := a.Assemble(context.Background(), frames, out)
	require.NoError(t, err)
	second, err := a.Assemble(context.Background(), frames, out)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestAssembleRenderErrors(t *testing.T) {
	t.Run("output dir cannot be created", func(t *testing.T) {
		frames := writeFrames(t, 1, 32, 18)
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

		_, err := NewAssembler(zaptest.NewLogger(t)).Assemble(context.Background(), frames, filepath.Join(blocker, "materials"))

		var renderErr *entity.RenderError
		require.ErrorAs(t, err, &renderErr)
	})

	t.Run("frame is not an image", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "frame_001.jpg")
		require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
		frames := entity.FrameSet{Dir: dir, Frames: []entity.Frame{{Index: 0, Path: path}}}

		_, err := NewAssembler(zaptest.NewLogger(t)).Assemble(context.Background(), frames, dir)

		var renderErr *entity.RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, path, renderErr.Path)
	})

	t.Run("no frames", func(t *testing.T) {
		_, err := NewAssembler(zaptest.NewLogger(t)).Assemble(context.Background(), entity.FrameSet{}, t.TempDir())
		assert.ErrorIs(t, err, ErrNoPages)
	})
}
