// Package dedup decides which sampled frames carry new information and which
// are near-duplicates of frames already kept.
package dedup

import (
	"fmt"
	"strings"

	"github.com/fiapx/fiapx-lesson-service/internal/domain/entity"
)

// Kind tags the similarity strategy used for one run.
type Kind string

const (
	KindExact       Kind = "exact"
	KindPerceptual  Kind = "perceptual"
	KindCorrelation Kind = "correlation"
)

const (
	// DefaultMismatchPercent is the perceptual cutoff: pairs differing in at
	// most this share of pixels are duplicates.
	DefaultMismatchPercent = 1.0
	// DefaultCorrelation is the correlation cutoff: scores strictly above it
	// are duplicates.
	DefaultCorrelation = 0.9
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindExact, KindPerceptual, KindCorrelation:
		return k, nil
	default:
		return "", fmt.Errorf("unknown dedup strategy %q (expected exact|perceptual|correlation)", s)
	}
}

func DefaultThreshold(k Kind) float64 {
	switch k {
	case KindPerceptual:
		return DefaultMismatchPercent
	case KindCorrelation:
		return DefaultCorrelation
	default:
		return 0
	}
}

// Fingerprint is the comparable form of a frame. Exactly one of the payload
// fields is set, matching Kind.
type Fingerprint struct {
	Kind   Kind
	Digest []byte
	Pixels *rgbaBuffer
	Gray   *grayBuffer
}

// Verdict is the outcome of comparing two fingerprints.
type Verdict struct {
	Score     float64
	Duplicate bool
}

type Strategy interface {
	Kind() Kind
	Threshold() float64
	Fingerprint(frame entity.Frame) (Fingerprint, error)
	Compare(a, b Fingerprint) (Verdict, error)
}

// NewStrategy builds the strategy for kind. A zero threshold selects the
// strategy default; exact ignores the threshold.
func NewStrategy(kind Kind, threshold float64) (Strategy, error) {
	if threshold == 0 {
		threshold = DefaultThreshold(kind)
	}

	switch kind {
	case KindExact:
		return exactStrategy{}, nil
	case KindPerceptual:
		if threshold < 0 || threshold > 100 {
			return nil, fmt.Errorf("perceptual threshold %.2f out of range [0,100]", threshold)
		}
		return perceptualStrategy{maxMismatch: threshold, channelTolerance: defaultChannelTolerance}, nil
	case KindCorrelation:
		if threshold < 0 || threshold >= 1 {
			return nil, fmt.Errorf("correlation threshold %.2f out of range [0,1)", threshold)
		}
		return correlationStrategy{minScore: threshold, margin: correlationMargin}, nil
	default:
		return nil, fmt.Errorf("unknown dedup strategy %q", kind)
	}
}

func checkKinds(want Kind, a, b Fingerprint) error {
	if a.Kind != want || b.Kind != want {
		return fmt.Errorf("cannot compare %s and %s fingerprints with %s strategy", a.Kind, b.Kind, want)
	}
	return nil
}
