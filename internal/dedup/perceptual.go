package dedup

import (
	"fmt"

	"github.com/fiapx/fiapx-lesson-service/internal/domain/entity"
)

// defaultChannelTolerance is how far a single channel may drift, on the
// 0-255 scale, before the pixel counts as mismatched.
const defaultChannelTolerance = 16

// perceptualStrategy measures the percentage of mismatched pixels between
// two frames. 0 means identical, 100 means every pixel differs.
type perceptualStrategy struct {
	maxMismatch      float64
	channelTolerance uint8
}

func (s perceptualStrategy) Kind() Kind         { return KindPerceptual }
func (s perceptualStrategy) Threshold() float64 { return s.maxMismatch }

func (s perceptualStrategy) Fingerprint(frame entity.Frame) (Fingerprint, error) {
	img, err := decodeImage(frame.Path)
	if err != nil {
		return Fingerprint{}, &entity.FingerprintError{Path: frame.Path, Err: err}
	}
	b := img.Bounds()
	return Fingerprint{Kind: KindPerceptual, Pixels: &rgbaBuffer{img: toRGBA(img, b.Dx(), b.Dy())}}, nil
}

func (s perceptualStrategy) Compare(a, b Fingerprint) (Verdict, error) {
	if err := checkKinds(KindPerceptual, a, b); err != nil {
		return Verdict{}, err
	}
	if a.Pixels == nil || b.Pixels == nil {
		return Verdict{}, fmt.Errorf("perceptual fingerprint has no pixels")
	}

	mismatch := s.mismatchPercent(a.Pixels, b.Pixels)
	return Verdict{Score: mismatch, Duplicate: s.isDuplicate(mismatch)}, nil
}

func (s perceptualStrategy) isDuplicate(mismatch float64) bool {
	return mismatch <= s.maxMismatch
}

// mismatchPercent compares b against a, resizing b to a's dimensions first
// when they differ.
func (s perceptualStrategy) mismatchPercent(a, b *rgbaBuffer) float64 {
	ref := a.img
	w, h := ref.Bounds().Dx(), ref.Bounds().Dy()
	other := b.img
	if ob := other.Bounds(); ob.Dx() != w || ob.Dy() != h {
		other = toRGBA(other, w, h)
	}

	tol := int(s.channelTolerance)
	mismatched := 0
	for y := 0; y < h; y++ {
		ra := ref.Pix[y*ref.Stride:]
		rb := other.Pix[y*other.Stride:]
		for x := 0; x < w; x++ {
			pa, pb := ra[x*4:x*4+3], rb[x*4:x*4+3]
			for c := 0; c < 3; c++ {
				if absInt(int(pa[c])-int(pb[c])) > tol {
					mismatched++
					break
				}
			}
		}
	}
	return float64(mismatched) * 100 / float64(w*h)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
