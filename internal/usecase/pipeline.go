package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fiapx/fiapx-lesson-service/internal/dedup"
	"github.com/fiapx/fiapx-lesson-service/internal/domain/entity"
	"github.com/fiapx/fiapx-lesson-service/internal/domain/port"
	"github.com/fiapx/fiapx-lesson-service/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	framesDirName    = "frames"
	materialsDirName = "materials"
)

var ErrNoPublisher = errors.New("no output publisher")

// Options configures a single run.
type Options struct {
	SamplingRateHz float64
	Strategy       dedup.Kind
	// Threshold is strategy specific; zero selects the strategy default.
	Threshold float64
	// KeepSource leaves the input video in place after the run.
	KeepSource bool
}

// Pipeline drives one video through sampling, deduplication and, in document
// mode, assembly. It owns the run's working directory and removes it exactly
// once on every exit path.
type Pipeline struct {
	sampler   port.FrameSampler
	prober    port.VideoProber
	assembler port.DocumentAssembler
	logger    *zap.Logger
	tempDir   string
}

// NewPipeline builds a pipeline rooted at tempDir. prober may be nil.
func NewPipeline(
	sampler port.FrameSampler,
	prober port.VideoProber,
	assembler port.DocumentAssembler,
	logger *zap.Logger,
	tempDir string,
) *Pipeline {
	return &Pipeline{
		sampler:   sampler,
		prober:    prober,
		assembler: assembler,
		logger:    logger,
		tempDir:   tempDir,
	}
}

// Run executes the run to completion and returns the location chosen by
// publisher. The working directory is gone by the time Run returns, so the
// publisher is the only way to keep the output.
func (p *Pipeline) Run(
	ctx context.Context,
	run *entity.Run,
	videoPath string,
	opts Options,
	publisher port.OutputPublisher,
) (location string, err error) {
	ctx, span := otel.Tracer("usecase").Start(ctx, "Pipeline.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", run.ID.String()),
		attribute.String("run.mode", string(run.Mode)),
		attribute.String("run.strategy", string(opts.Strategy)),
	)

	log := p.logger.With(zap.String("run_id", run.ID.String()))
	workDir := filepath.Join(p.tempDir, run.ID.String())
	run.WorkDir = workDir
	started := time.Now()

	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()

	defer func() {
		if r := recover(); r != nil {
			err = &entity.StageError{Stage: run.State, Err: fmt.Errorf("panic: %v", r)}
			log.Error("run panicked", zap.Any("panic", r), zap.String("stage", string(run.State)))
		}
		if err != nil {
			run.MarkFailed(err.Error())
			recordSpanError(span, err)
			metrics.RunsTotal.WithLabelValues("failed").Inc()
			log.Error("run failed", zap.String("stage", string(run.FailedStage)), zap.Error(err))
		} else {
			metrics.RunsTotal.WithLabelValues("done").Inc()
			log.Info("run completed",
				zap.String("location", location),
				zap.Int("sampled", run.SampledFrames),
				zap.Int("kept", run.KeptFrames),
				zap.Duration("elapsed", time.Since(started)),
			)
		}
		p.cleanup(workDir, videoPath, opts.KeepSource, log)
	}()

	return p.execute(ctx, run, videoPath, workDir, opts, publisher, log)
}

func (p *Pipeline) execute(
	ctx context.Context,
	run *entity.Run,
	videoPath, workDir string,
	opts Options,
	publisher port.OutputPublisher,
	log *zap.Logger,
) (string, error) {
	if publisher == nil {
		return "", &entity.StageError{Stage: run.State, Err: ErrNoPublisher}
	}
	strategy, err := dedup.NewStrategy(opts.Strategy, opts.Threshold)
	if err != nil {
		return "", &entity.StageError{Stage: run.State, Err: err}
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", &entity.StageError{Stage: run.State, Err: fmt.Errorf("create workdir: %w", err)}
	}

	var frames entity.FrameSet
	err = p.stage(ctx, run, entity.RunStateSampling, "sample_frames", func(ctx context.Context) error {
		var err error
		frames, err = p.sampler.ExtractFrames(ctx, videoPath, filepath.Join(workDir, framesDirName), opts.SamplingRateHz)
		if err != nil {
			return err
		}
		run.SampledFrames = frames.Len()
		metrics.FramesSampledTotal.Add(float64(frames.Len()))
		p.probe(ctx, run, videoPath, log)
		return nil
	})
	if err != nil {
		return "", err
	}

	err = p.stage(ctx, run, entity.RunStateDeduplicating, "deduplicate_frames", func(ctx context.Context) error {
		res, err := dedup.NewReducer(strategy, log).Reduce(ctx, frames)
		if err != nil {
			return err
		}
		frames = res.Frames
		run.KeptFrames = frames.Len()
		metrics.FramesDiscardedTotal.WithLabelValues(string(strategy.Kind())).Add(float64(len(res.Discarded)))
		metrics.FingerprintFailuresTotal.WithLabelValues(string(strategy.Kind())).Add(float64(res.FingerprintFailures))
		return nil
	})
	if err != nil {
		return "", err
	}

	output := frames.Dir
	if run.Mode != entity.OutputFrames {
		err = p.stage(ctx, run, entity.RunStateAssembling, "assemble_document", func(ctx context.Context) error {
			var err error
			output, err = p.assembler.Assemble(ctx, frames, filepath.Join(workDir, materialsDirName))
			return err
		})
		if err != nil {
			return "", err
		}
	}

	var location string
	err = p.stage(ctx, run, entity.RunStatePublishing, "publish_output", func(ctx context.Context) error {
		var err error
		location, err = publisher.Publish(ctx, run, output)
		return err
	})
	if err != nil {
		return "", err
	}

	if err := run.MarkDone(location); err != nil {
		return "", err
	}
	return location, nil
}

// stage moves the run into state and runs fn inside a span, recording its
// duration. Errors come back wrapped with the stage they happened in.
func (p *Pipeline) stage(
	ctx context.Context,
	run *entity.Run,
	state entity.RunState,
	spanName string,
	fn func(ctx context.Context) error,
) error {
	if err := run.Advance(state); err != nil {
		return &entity.StageError{Stage: run.State, Err: err}
	}

	ctx, span := otel.Tracer("usecase").Start(ctx, spanName)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	metrics.StageDuration.WithLabelValues(spanName).Observe(time.Since(start).Seconds())

	if err != nil {
		recordSpanError(span, err)
		return &entity.StageError{Stage: state, Err: err}
	}
	return nil
}

// probe records the video length on the run. Failure here never fails the run.
func (p *Pipeline) probe(ctx context.Context, run *entity.Run, videoPath string, log *zap.Logger) {
	if p.prober == nil {
		return
	}
	minutes, err := p.prober.DurationMinutes(ctx, videoPath)
	if err != nil {
		log.Warn("could not probe video duration", zap.Error(err))
		return
	}
	run.DurationMinutes = minutes
}

func (p *Pipeline) cleanup(workDir, videoPath string, keepSource bool, log *zap.Logger) {
	if err := os.RemoveAll(workDir); err != nil {
		log.Error("failed to remove working directory", zap.Error(&entity.CleanupError{Dir: workDir, Err: err}))
	}
	if keepSource || videoPath == "" {
		return
	}
	if err := os.Remove(videoPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Error("failed to remove source video", zap.Error(&entity.CleanupError{Dir: videoPath, Err: err}))
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
