package dedup

import (
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
)

// Every resize goes through the same interpolator so two runs over the same
// frames always produce the same buffers.
var resampler = draw.BiLinear

type rgbaBuffer struct {
	img *image.RGBA
}

type grayBuffer struct {
	w, h int
	pix  []float64
}

func (g *grayBuffer) at(x, y int) float64 {
	return g.pix[y*g.w+x]
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.New("image has no pixels")
	}
	return img, nil
}

// toRGBA copies img into a w x h RGBA buffer, scaling only when the
// dimensions differ.
func toRGBA(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	resampler.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func toGray(img image.Image, w, h int) *grayBuffer {
	rgba := toRGBA(img, w, h)
	g := &grayBuffer{w: w, h: h, pix: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride:]
		for x := 0; x < w; x++ {
			p := row[x*4:]
			g.pix[y*w+x] = 0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])
		}
	}
	return g
}
