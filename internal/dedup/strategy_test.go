package dedup

import (
	"errors"
	"os"
	"testing"

	"github.com/fiapx/fiapx-lesson-service/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"exact":         KindExact,
		"Perceptual":    KindPerceptual,
		" correlation ": KindCorrelation,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseKind("phash")
	assert.Error(t, err)
}

func TestNewStrategyThresholds(t *testing.T) {
	s, err := NewStrategy(KindCorrelation, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultCorrelation, s.Threshold())

	s, err = NewStrategy(KindPerceptual, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultMismatchPercent, s.Threshold())

	s, err = NewStrategy(KindPerceptual, 2.5)
	require.NoError(t, err)
	assert.Equal(t, 2.5, s.Threshold())

	_, err = NewStrategy(KindPerceptual, 150)
	assert.Error(t, err)
	_, err = NewStrategy(KindCorrelation, 1)
	assert.Error(t, err)
	_, err = NewStrategy(Kind("nope"), 0)
	assert.Error(t, err)
}

func TestExactFingerprint(t *testing.T) {
	set := writeFrames(t, gradientH(), gradientH(), checker())
	s := mustStrategy(t, KindExact)

	a := mustFingerprint(t, s, set.Frames[0])
	b := mustFingerprint(t, s, set.Frames[1])
	c := mustFingerprint(t, s, set.Frames[2])
	assert.Len(t, a.Digest, 32)

	v, err := s.Compare(a, b)
	require.NoError(t, err)
	assert.True(t, v.Duplicate)

	v, err = s.Compare(a, c)
	require.NoError(t, err)
	assert.False(t, v.Duplicate)
}

func TestFingerprintErrorOnUnreadableFrame(t *testing.T) {
	set := writeFrames(t, nil)
	missing := entity.Frame{Index: 9, Path: set.Frames[0].Path + ".missing"}

	for _, kind := range []Kind{KindExact, KindPerceptual, KindCorrelation} {
		s := mustStrategy(t, kind)

		_, err := s.Fingerprint(missing)
		var fpErr *entity.FingerprintError
		require.True(t, errors.As(err, &fpErr), kind)
		assert.True(t, errors.Is(err, os.ErrNotExist), kind)

		if kind == KindExact {
			// raw bytes are all exact needs
			continue
		}
		_, err = s.Fingerprint(set.Frames[0])
		require.True(t, errors.As(err, &fpErr), kind)
		assert.Equal(t, set.Frames[0].Path, fpErr.Path)
	}
}

func TestCompareRejectsMixedKinds(t *testing.T) {
	set := writeFrames(t, gradientH())
	exact := mustFingerprint(t, mustStrategy(t, KindExact), set.Frames[0])
	corr := mustFingerprint(t, mustStrategy(t, KindCorrelation), set.Frames[0])

	_, err := mustStrategy(t, KindCorrelation).Compare(exact, corr)
	assert.Error(t, err)
	_, err = mustStrategy(t, KindPerceptual).Compare(corr, corr)
	assert.Error(t, err)
}

func TestPerceptualMismatch(t *testing.T) {
	set := writeFrames(t,
		gradientH(),
		gradientH(),
		withBlock(gradientH(), 100, 50, 6),
		gradientV(),
		scaled(gradientH(), fixtureW/2, fixtureH/2),
	)
	s := mustStrategy(t, KindPerceptual)
	ref := mustFingerprint(t, s, set.Frames[0])

	tests := []struct {
		name string
		idx  int
		dup  bool
	}{
		{"identical", 1, true},
		{"small local change", 2, true},
		{"different scene", 3, false},
		{"same scene at half resolution", 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := s.Compare(ref, mustFingerprint(t, s, set.Frames[tt.idx]))
			require.NoError(t, err)
			assert.Equal(t, tt.dup, v.Duplicate, "mismatch=%.3f%%", v.Score)
			assert.GreaterOrEqual(t, v.Score, 0.0)
			assert.LessOrEqual(t, v.Score, 100.0)
		})
	}

	v, err := s.Compare(ref, ref)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.Score)
}

func TestPerceptualCutoffIsInclusive(t *testing.T) {
	s := perceptualStrategy{maxMismatch: 1}
	assert.True(t, s.isDuplicate(0))
	assert.True(t, s.isDuplicate(1))
	assert.False(t, s.isDuplicate(1.0001))
}

func TestCorrelationScores(t *testing.T) {
	set := writeFrames(t,
		gradientH(),
		gradientH(),
		withBlock(gradientH(), 100, 50, 6),
		inverted(gradientH()),
		checker(),
	)
	s := mustStrategy(t, KindCorrelation)
	ref := mustFingerprint(t, s, set.Frames[0])

	v, err := s.Compare(ref, mustFingerprint(t, s, set.Frames[1]))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v.Score, 1e-6)
	assert.True(t, v.Duplicate)

	v, err = s.Compare(ref, mustFingerprint(t, s, set.Frames[2]))
	require.NoError(t, err)
	assert.Greater(t, v.Score, DefaultCorrelation)
	assert.True(t, v.Duplicate)

	v, err = s.Compare(ref, mustFingerprint(t, s, set.Frames[3]))
	require.NoError(t, err)
	assert.Less(t, v.Score, 0.0, "inverted frame correlates negatively")
	assert.False(t, v.Duplicate)

	v, err = s.Compare(ref, mustFingerprint(t, s, set.Frames[4]))
	require.NoError(t, err)
	assert.False(t, v.Duplicate, "score=%.3f", v.Score)
}

func TestCorrelationCutoffIsStrict(t *testing.T) {
	s := correlationStrategy{minScore: 0.9}
	assert.False(t, s.isDuplicate(0.9))
	assert.True(t, s.isDuplicate(0.9000001))
	assert.True(t, s.isDuplicate(1))
	assert.False(t, s.isDuplicate(-0.95))
}

func TestCorrelationFlatFrames(t *testing.T) {
	set := writeFrames(t, flat(0), flat(0), flat(200), gradientH())
	s := mustStrategy(t, KindCorrelation)
	black := mustFingerprint(t, s, set.Frames[0])

	v, err := s.Compare(black, mustFingerprint(t, s, set.Frames[1]))
	require.NoError(t, err)
	assert.True(t, v.Duplicate)

	v, err = s.Compare(black, mustFingerprint(t, s, set.Frames[2]))
	require.NoError(t, err)
	assert.False(t, v.Duplicate)

	v, err = s.Compare(black, mustFingerprint(t, s, set.Frames[3]))
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.Score)
}

func TestMaxCorrelationFindsShiftedMatch(t *testing.T) {
	ref := &grayBuffer{w: 12, h: 12, pix: make([]float64, 144)}
	cand := &grayBuffer{w: 12, h: 12, pix: make([]float64, 144)}
	for y := 0; y < 12; y++ {
		for x := 0; x < 12; x++ {
			ref.pix[y*12+x] = float64((x*7 + y*13) % 17)
			// cand is ref shifted one cell to the right
			cand.pix[y*12+x] = float64(((x-1)*7 + y*13 + 17*4) % 17)
		}
	}

	assert.InDelta(t, 1.0, maxCorrelation(ref, cand, 2), 1e-9)
	assert.Less(t, maxCorrelation(ref, cand, 0), 0.99)
}
