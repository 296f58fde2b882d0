package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fiapx/fiapx-lesson-service/internal/dedup"
	"github.com/fiapx/fiapx-lesson-service/internal/infra/config"
	"github.com/fiapx/fiapx-lesson-service/internal/infra/email"
	"github.com/fiapx/fiapx-lesson-service/internal/infra/ffmpeg"
	"github.com/fiapx/fiapx-lesson-service/internal/infra/metrics"
	miniostorage "github.com/fiapx/fiapx-lesson-service/internal/infra/minio"
	"github.com/fiapx/fiapx-lesson-service/internal/infra/pdf"
	"github.com/fiapx/fiapx-lesson-service/internal/infra/postgres"
	"github.com/fiapx/fiapx-lesson-service/internal/infra/rabbitmq"
	"github.com/fiapx/fiapx-lesson-service/internal/infra/tracing"
	"github.com/fiapx/fiapx-lesson-service/internal/usecase"
	"github.com/fiapx/fiapx-lesson-service/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting fiapx-lesson-service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if Jaeger unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint, tracing.ServiceName, cfg.TracingSampleRatio)
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(context.Background())
	}

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	fatalOnErr(err, "connect to postgres")
	defer pool.Close()

	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Warn("migration warning", zap.Error(err))
	}

	// MinIO
	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:        cfg.MinIOEndpoint,
		AccessKey:       cfg.MinIOAccessKey,
		SecretKey:       cfg.MinIOSecretKey,
		UseSSL:          cfg.MinIOUseSSL,
		UploadBucket:    cfg.MinIOUploadBucket,
		MaterialsBucket: cfg.MinIOMaterialsBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBuckets(ctx), "ensure minio buckets")

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")

	statusPub := rabbitmq.NewStatusPublisher(pub, cfg.RabbitMQStatusQueue)
	dlqPub := rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ)

	// Infra adapters
	repo := postgres.NewRunRepository(pool)
	extractor := ffmpeg.NewExtractor(ffmpeg.ExtractorConfig{
		FFmpegBin:  cfg.FFmpegBin,
		FFprobeBin: cfg.FFprobeBin,
		Format:     cfg.FFmpegFormat,
		Width:      cfg.FrameWidth,
		Height:     cfg.FrameHeight,
	}, log)
	packer := ffmpeg.NewZipPacker(cfg.FFmpegFormat)
	assembler := pdf.NewAssembler(log)
	notifier := email.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, log)

	strategy, err := dedup.ParseKind(cfg.DedupStrategy)
	fatalOnErr(err, "parse dedup strategy")

	// Use case
	pipeline := usecase.NewPipeline(extractor, extractor, assembler, log, cfg.TempDir)
	uc := usecase.NewGenerateMaterialsUseCase(
		repo, storage, pipeline,
		usecase.NewStoragePublisher(storage, packer),
		statusPub, dlqPub, notifier,
		log,
		usecase.GenerateMaterialsConfig{
			TempDir: cfg.TempDir,
			Defaults: usecase.Options{
				SamplingRateHz: cfg.SamplingRateHz,
				Strategy:       strategy,
				Threshold:      cfg.SimilarityThreshold,
				KeepSource:     cfg.KeepSourceVideo,
			},
		},
	)

	// Metrics server
	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL:         cfg.RabbitMQURL,
		Queue:       cfg.RabbitMQRequestsQueue,
		Exchange:    cfg.RabbitMQExchange,
		DLQ:         cfg.RabbitMQDLQ,
		StatusQueue: cfg.RabbitMQStatusQueue,
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("fiapx-lesson-service started, consuming messages",
		zap.String("strategy", string(strategy)),
		zap.Float64("sampling_rate_hz", cfg.SamplingRateHz),
	)

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	// Shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	consumer.Close()
	log.Info("fiapx-lesson-service stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
