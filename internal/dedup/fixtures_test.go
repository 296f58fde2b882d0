package dedup

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/fiapx/fiapx-lesson-service/internal/domain/entity"
	"github.com/stretchr/testify/require"
)

const (
	fixtureW = 400
	fixtureH = 200
)

func gradientH() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, fixtureW, fixtureH))
	for y := 0; y < fixtureH; y++ {
		for x := 0; x < fixtureW; x++ {
			v := uint8(x * 255 / (fixtureW - 1))
			img.Set(x, y, color.RGBA{v, v / 2, 255 - v, 255})
		}
	}
	return img
}

func gradientV() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, fixtureW, fixtureH))
	for y := 0; y < fixtureH; y++ {
		v := uint8(y * 255 / (fixtureH - 1))
		for x := 0; x < fixtureW; x++ {
			img.Set(x, y, color.RGBA{255 - v, v, v / 3, 255})
		}
	}
	return img
}

func checker() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, fixtureW, fixtureH))
	for y := 0; y < fixtureH; y++ {
		for x := 0; x < fixtureW; x++ {
			c := color.RGBA{20, 20, 20, 255}
			if (x/25+y/25)%2 == 0 {
				c = color.RGBA{230, 230, 230, 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func flat(v uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, fixtureW, fixtureH))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
	}
	return img
}

func inverted(src image.Image) image.Image {
	b := src.Bounds()
	img := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := src.At(x, y).RGBA()
			img.Set(x, y, color.RGBA{255 - uint8(r>>8), 255 - uint8(g>>8), 255 - uint8(bl>>8), 255})
		}
	}
	return img
}

// withBlock paints a small square onto a copy of src.
func withBlock(src image.Image, x0, y0, size int) image.Image {
	b := src.Bounds()
	img := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Set(x, y, src.At(x, y))
		}
	}
	for y := y0; y < y0+size; y++ {
		for x := x0; x < x0+size; x++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	return img
}

func scaled(src image.Image, w, h int) image.Image {
	return toRGBA(src, w, h)
}

func writeJPEG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 100}))
}

// writeFrames lays imgs out the way the sampler does: frame_001.jpg ...
// with 0-based ordinals. A nil image produces a corrupt file.
func writeFrames(t *testing.T, imgs ...image.Image) entity.FrameSet {
	t.Helper()
	dir := t.TempDir()
	set := entity.FrameSet{Dir: dir}
	for i, img := range imgs {
		path := filepath.Join(dir, fmt.Sprintf("frame_%03d.jpg", i+1))
		if img == nil {
			require.NoError(t, os.WriteFile(path, []byte("not a jpeg at all"), 0o644))
		} else {
			writeJPEG(t, path, img)
		}
		set.Frames = append(set.Frames, entity.Frame{Index: i, Path: path})
	}
	return set
}

func mustStrategy(t *testing.T, kind Kind) Strategy {
	t.Helper()
	s, err := NewStrategy(kind, 0)
	require.NoError(t, err)
	return s
}

func mustFingerprint(t *testing.T, s Strategy, f entity.Frame) Fingerprint {
	t.Helper()
	fp, err := s.Fingerprint(f)
	require.NoError(t, err)
	return fp
}
