package dedup

import (
	"context"
	"errors"
	"os"

	"github.com/fiapx/fiapx-lesson-service/internal/domain/entity"
	"go.uber.org/zap"
)

// LeadingFramesSkipped is the number of sampled frames at the start of a
// video that are never representative (fade-in, black frames). Frames are
// matched by their sampler ordinal, so reducing an already reduced set does
// not drop anything further.
const LeadingFramesSkipped = 2

// Result is the reduced frame set plus what the reducer did to get there.
type Result struct {
	Frames              entity.FrameSet
	Discarded           []entity.Frame
	FingerprintFailures int
}

// Reducer walks an ordered frame set and removes redundant frames, deleting
// their files. Survivors keep their relative order.
type Reducer struct {
	strategy Strategy
	logger   *zap.Logger
}

func NewReducer(strategy Strategy, logger *zap.Logger) *Reducer {
	return &Reducer{strategy: strategy, logger: logger}
}

func (r *Reducer) Strategy() Strategy {
	return r.strategy
}

func (r *Reducer) Reduce(ctx context.Context, set entity.FrameSet) (*Result, error) {
	res := &Result{Frames: entity.FrameSet{Dir: set.Dir}}
	skipLeading := set.Len() >= LeadingFramesSkipped

	var (
		kept []entity.Frame
		err  error
	)
	switch r.strategy.Kind() {
	case KindExact:
		kept, err = r.reduceGlobal(ctx, set.Frames, res)
		if err == nil && skipLeading {
			kept = r.dropLeading(kept, res)
		}
	default:
		frames := set.Frames
		if skipLeading {
			frames = r.dropLeading(frames, res)
		}
		kept, err = r.reduceRuns(ctx, frames, res)
	}
	if err != nil {
		return nil, err
	}

	res.Frames.Frames = kept
	r.logger.Info("frames deduplicated",
		zap.String("strategy", string(r.strategy.Kind())),
		zap.Int("input", set.Len()),
		zap.Int("kept", len(kept)),
		zap.Int("discarded", len(res.Discarded)),
		zap.Int("fingerprint_failures", res.FingerprintFailures),
	)
	return res, nil
}

// reduceGlobal drops every frame whose digest was already seen anywhere
// earlier in the sequence.
func (r *Reducer) reduceGlobal(ctx context.Context, frames []entity.Frame, res *Result) ([]entity.Frame, error) {
	seen := make(map[string]int, len(frames))
	kept := make([]entity.Frame, 0, len(frames))

	for _, f := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fp, err := r.strategy.Fingerprint(f)
		if err != nil {
			r.failOpen(err, res)
			kept = append(kept, f)
			continue
		}

		key := string(fp.Digest)
		if first, dup := seen[key]; dup {
			r.logger.Debug("exact duplicate", zap.Int("frame", f.Index), zap.Int("first_seen", first))
			r.discard(f, res)
			continue
		}
		seen[key] = f.Index
		kept = append(kept, f)
	}
	return kept, nil
}

// reduceRuns keeps one representative per maximal run of consecutive frames
// similar to the run's first frame. Frames in different runs are never
// compared, so visually identical but non-adjacent scenes both survive.
func (r *Reducer) reduceRuns(ctx context.Context, frames []entity.Frame, res *Result) ([]entity.Frame, error) {
	kept := make([]entity.Frame, 0, len(frames))

	// next holds the fingerprint of the frame that ended the previous run,
	// so it is not decoded twice when it becomes the template.
	var next *fingerprintResult
	for i := 0; i < len(frames); {
		tmpl := frames[i]
		kept = append(kept, tmpl)

		var cur fingerprintResult
		if next != nil {
			cur, next = *next, nil
		} else {
			cur.fp, cur.err = r.strategy.Fingerprint(tmpl)
			if cur.err != nil {
				r.failOpen(cur.err, res)
			}
		}

		j := i + 1
		for ; j < len(frames); j++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if cur.err != nil {
				break
			}

			cand := frames[j]
			candFP, err := r.strategy.Fingerprint(cand)
			if err != nil {
				r.failOpen(err, res)
				next = &fingerprintResult{err: err}
				break
			}

			verdict, err := r.strategy.Compare(cur.fp, candFP)
			if err != nil {
				r.failOpen(&entity.FingerprintError{Path: cand.Path, Err: err}, res)
				next = &fingerprintResult{fp: candFP}
				break
			}
			if !verdict.Duplicate {
				next = &fingerprintResult{fp: candFP}
				break
			}

			r.logger.Debug("similar frame",
				zap.Int("frame", cand.Index),
				zap.Int("template", tmpl.Index),
				zap.Float64("score", verdict.Score),
			)
			r.discard(cand, res)
		}
		i = j
	}
	return kept, nil
}

type fingerprintResult struct {
	fp  Fingerprint
	err error
}

func (r *Reducer) dropLeading(frames []entity.Frame, res *Result) []entity.Frame {
	kept := make([]entity.Frame, 0, len(frames))
	for _, f := range frames {
		if f.Index < LeadingFramesSkipped {
			r.discard(f, res)
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// failOpen records a frame that could not be compared. The frame is kept.
func (r *Reducer) failOpen(err error, res *Result) {
	res.FingerprintFailures++
	r.logger.Warn("fingerprint failed, keeping frame", zap.Error(err))
}

func (r *Reducer) discard(f entity.Frame, res *Result) {
	res.Discarded = append(res.Discarded, f)
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.logger.Warn("could not remove discarded frame", zap.String("path", f.Path), zap.Error(err))
	}
}
