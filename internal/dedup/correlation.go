package dedup

import (
	"fmt"
	"math"

	"github.com/fiapx/fiapx-lesson-service/internal/domain/entity"
)

// Frames are normalized to a fixed grid before correlating, so score does
// not depend on the sampler's output resolution.
const (
	correlationWidth  = 160
	correlationHeight = 90
	// correlationMargin is the shift, in grid cells, the template may slide
	// in each direction during the search.
	correlationMargin = 2
)

// correlationStrategy scores frames with zero-mean normalized
// cross-correlation (the TM_CCOEFF_NORMED family of template matching).
// The candidate, cropped by margin on each side, is slid over the reference
// and the best score wins.
type correlationStrategy struct {
	minScore float64
	margin   int
}

func (s correlationStrategy) Kind() Kind         { return KindCorrelation }
func (s correlationStrategy) Threshold() float64 { return s.minScore }

func (s correlationStrategy) Fingerprint(frame entity.Frame) (Fingerprint, error) {
	img, err := decodeImage(frame.Path)
	if err != nil {
		return Fingerprint{}, &entity.FingerprintError{Path: frame.Path, Err: err}
	}
	return Fingerprint{Kind: KindCorrelation, Gray: toGray(img, correlationWidth, correlationHeight)}, nil
}

// Compare treats negative scores as not computable and therefore never a
// duplicate; only scores strictly above the threshold match.
func (s correlationStrategy) Compare(a, b Fingerprint) (Verdict, error) {
	if err := checkKinds(KindCorrelation, a, b); err != nil {
		return Verdict{}, err
	}
	if a.Gray == nil || b.Gray == nil {
		return Verdict{}, fmt.Errorf("correlation fingerprint has no pixels")
	}
	if a.Gray.w != b.Gray.w || a.Gray.h != b.Gray.h {
		return Verdict{}, fmt.Errorf("correlation buffers differ in size: %dx%d vs %dx%d",
			a.Gray.w, a.Gray.h, b.Gray.w, b.Gray.h)
	}

	score := maxCorrelation(a.Gray, b.Gray, s.margin)
	return Verdict{Score: score, Duplicate: s.isDuplicate(score)}, nil
}

func (s correlationStrategy) isDuplicate(score float64) bool {
	if score < 0 {
		return false
	}
	return score > s.minScore && score <= 1
}

// maxCorrelation slides the margin-cropped candidate over ref and returns
// the highest normalized correlation in [-1, 1].
func maxCorrelation(ref, cand *grayBuffer, margin int) float64 {
	tw, th := cand.w-2*margin, cand.h-2*margin
	if tw <= 0 || th <= 0 {
		margin, tw, th = 0, cand.w, cand.h
	}
	n := float64(tw * th)

	tdev := make([]float64, 0, tw*th)
	var tmean float64
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			tmean += cand.at(x+margin, y+margin)
		}
	}
	tmean /= n
	var tvar float64
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			d := cand.at(x+margin, y+margin) - tmean
			tdev = append(tdev, d)
			tvar += d * d
		}
	}

	best := math.Inf(-1)
	for dy := 0; dy+th <= ref.h; dy++ {
		for dx := 0; dx+tw <= ref.w; dx++ {
			var wmean float64
			for y := 0; y < th; y++ {
				for x := 0; x < tw; x++ {
					wmean += ref.at(x+dx, y+dy)
				}
			}
			wmean /= n

			var cross, wvar float64
			i := 0
			for y := 0; y < th; y++ {
				for x := 0; x < tw; x++ {
					d := ref.at(x+dx, y+dy) - wmean
					cross += tdev[i] * d
					wvar += d * d
					i++
				}
			}

			if score := normalizedScore(cross, tvar, wvar, tmean, wmean); score > best {
				best = score
			}
		}
	}
	return best
}

// normalizedScore handles flat buffers, where the correlation is undefined:
// two flat buffers of the same brightness match, anything else scores 0.
func normalizedScore(cross, tvar, wvar, tmean, wmean float64) float64 {
	const eps = 1e-9
	if tvar < eps || wvar < eps {
		if tvar < eps && wvar < eps && math.Abs(tmean-wmean) < 1 {
			return 1
		}
		return 0
	}
	score := cross / math.Sqrt(tvar*wvar)
	return math.Max(-1, math.Min(1, score))
}
