package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fiapx/fiapx-lesson-service/internal/dedup"
	"github.com/fiapx/fiapx-lesson-service/internal/domain/entity"
	"github.com/fiapx/fiapx-lesson-service/internal/domain/port"
	"github.com/fiapx/fiapx-lesson-service/internal/infra/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// GenerateMaterialsUseCase handles one materials request from the queue:
// fetch the video, run the pipeline, publish the result and report status.
// Runs are never retried; failures go to the dead-letter queue.
type GenerateMaterialsUseCase struct {
	repo      port.RunRepository
	storage   port.VideoStorage
	pipeline  *Pipeline
	publisher port.OutputPublisher
	status    port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	tempDir   string
	defaults  Options
}

type GenerateMaterialsConfig struct {
	TempDir string
	// Defaults apply to every field a request leaves unset.
	Defaults Options
}

func NewGenerateMaterialsUseCase(
	repo port.RunRepository,
	storage port.VideoStorage,
	pipeline *Pipeline,
	publisher port.OutputPublisher,
	status port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg GenerateMaterialsConfig,
) *GenerateMaterialsUseCase {
	return &GenerateMaterialsUseCase{
		repo:      repo,
		storage:   storage,
		pipeline:  pipeline,
		publisher: publisher,
		status:    status,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		tempDir:   cfg.TempDir,
		defaults:  cfg.Defaults,
	}
}

func (uc *GenerateMaterialsUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	ctx, span := otel.Tracer("usecase").Start(ctx, "GenerateMaterialsUseCase.Execute")
	defer span.End()

	var msg entity.MaterialsRequestMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		uc.reject(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}

	mode, opts, err := uc.options(msg)
	if err != nil {
		uc.logger.Error("invalid materials request", zap.Error(err), zap.String("video_key", msg.VideoKey))
		uc.reject(ctx, rawMsg, "invalid_request: "+err.Error())
		return nil
	}

	if msg.RunID == uuid.Nil {
		msg.RunID = uuid.New()
	}

	span.SetAttributes(
		attribute.String("run.id", msg.RunID.String()),
		attribute.String("run.video_key", msg.VideoKey),
	)

	log := uc.logger.With(zap.String("run_id", msg.RunID.String()), zap.String("video_key", msg.VideoKey))

	run, err := uc.repo.FindByID(ctx, msg.RunID)
	switch {
	case errors.Is(err, entity.ErrRunNotFound):
		run = entity.NewRun(msg.UserID, msg.VideoKey, mode, string(opts.Strategy))
		run.ID = msg.RunID
		if err := uc.repo.Create(ctx, run); err != nil {
			log.Error("failed to create run record", zap.Error(err))
			return fmt.Errorf("create run: %w", err)
		}
	case err != nil:
		log.Error("failed to load run record", zap.Error(err))
		return fmt.Errorf("find run: %w", err)
	case run.IsTerminal():
		log.Info("run already finished, ignoring redelivery", zap.String("status", string(run.State)))
		return nil
	case run.State != entity.RunStateIdle:
		log.Warn("run was interrupted mid-flight", zap.String("status", string(run.State)))
		uc.handleFailure(ctx, run, msg, rawMsg, "run interrupted in stage "+string(run.State), log)
		return nil
	}

	workDir := filepath.Join(uc.tempDir, run.ID.String())
	videoPath, err := uc.download(ctx, msg.VideoKey, workDir)
	if err != nil {
		_ = os.RemoveAll(workDir)
		log.Error("failed to download video", zap.Error(err))
		uc.handleFailure(ctx, run, msg, rawMsg, "download_video: "+err.Error(), log)
		return nil
	}

	location, err := uc.pipeline.Run(ctx, run, videoPath, opts, uc.publisher)
	if err != nil {
		uc.handleFailure(ctx, run, msg, rawMsg, err.Error(), log)
		return nil
	}

	if err := uc.repo.Update(ctx, run); err != nil {
		log.Error("failed to update run to DONE", zap.Error(err))
		return fmt.Errorf("update run done: %w", err)
	}

	uc.publishStatus(ctx, run, log)

	log.Info("materials generated",
		zap.String("output_key", location),
		zap.Int("kept_frames", run.KeptFrames),
		zap.Int("duration_minutes", run.DurationMinutes),
	)
	return nil
}

// options merges the request with the configured defaults.
func (uc *GenerateMaterialsUseCase) options(msg entity.MaterialsRequestMessage) (entity.OutputMode, Options, error) {
	if msg.VideoKey == "" {
		return "", Options{}, errors.New("video_key is required")
	}

	mode, err := entity.ParseOutputMode(string(msg.Output))
	if err != nil {
		return "", Options{}, err
	}

	opts := uc.defaults
	if msg.Strategy != "" {
		kind, err := dedup.ParseKind(msg.Strategy)
		if err != nil {
			return "", Options{}, err
		}
		opts.Strategy = kind
		opts.Threshold = 0
	}
	if msg.SamplingRateHz != 0 {
		opts.SamplingRateHz = msg.SamplingRateHz
	}
	if msg.SimilarityThreshold != 0 {
		opts.Threshold = msg.SimilarityThreshold
	}

	if opts.SamplingRateHz <= 0 {
		return "", Options{}, fmt.Errorf("sampling_rate_hz must be positive, got %v", opts.SamplingRateHz)
	}
	if _, err := dedup.NewStrategy(opts.Strategy, opts.Threshold); err != nil {
		return "", Options{}, err
	}
	return mode, opts, nil
}

func (uc *GenerateMaterialsUseCase) download(ctx context.Context, videoKey, workDir string) (string, error) {
	ctx, span := otel.Tracer("usecase").Start(ctx, "download_video")
	defer span.End()

	start := time.Now()
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", fmt.Errorf("create workdir: %w", err)
	}

	videoPath := filepath.Join(workDir, "source"+filepath.Ext(videoKey))
	if err := uc.storage.DownloadVideo(ctx, videoKey, videoPath); err != nil {
		recordSpanError(span, err)
		return "", err
	}
	metrics.StageDuration.WithLabelValues("download_video").Observe(time.Since(start).Seconds())
	return videoPath, nil
}

func (uc *GenerateMaterialsUseCase) handleFailure(
	ctx context.Context,
	run *entity.Run,
	msg entity.MaterialsRequestMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) {
	run.MarkFailed(errMsg)
	if err := uc.repo.Update(ctx, run); err != nil {
		log.Error("failed to update run to FAILED", zap.Error(err))
	}

	if err := uc.dlq.PublishToDLQ(ctx, rawMsg, run.ErrorMessage); err != nil {
		log.Error("failed to publish to DLQ", zap.Error(err))
	}

	uc.publishStatus(ctx, run, log)
	metrics.RunsTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, run.ID.String(), msg.VideoKey, run.ErrorMessage)
	}
}

func (uc *GenerateMaterialsUseCase) reject(ctx context.Context, rawMsg []byte, reason string) {
	if err := uc.dlq.PublishToDLQ(ctx, rawMsg, reason); err != nil {
		uc.logger.Error("failed to publish to DLQ", zap.Error(err))
	}
	metrics.RunsTotal.WithLabelValues("rejected").Inc()
}

func (uc *GenerateMaterialsUseCase) publishStatus(ctx context.Context, run *entity.Run, log *zap.Logger) {
	if err := uc.status.PublishStatus(ctx, entity.NewRunStatusMessage(run)); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
