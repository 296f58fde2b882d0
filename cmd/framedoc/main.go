package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fiapx/fiapx-lesson-service/internal/dedup"
	"github.com/fiapx/fiapx-lesson-service/internal/domain/entity"
	"github.com/fiapx/fiapx-lesson-service/internal/infra/config"
	"github.com/fiapx/fiapx-lesson-service/internal/infra/ffmpeg"
	"github.com/fiapx/fiapx-lesson-service/internal/infra/pdf"
	"github.com/fiapx/fiapx-lesson-service/internal/usecase"
	"github.com/fiapx/fiapx-lesson-service/pkg/logger"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "run":
		err = handleRun(ctx, os.Args[2:])
	case "probe":
		err = handleProbe(ctx, os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `framedoc turns a recorded lesson into slide material.

Usage:
  framedoc run [flags] <video>     sample, deduplicate and write a PDF (or the frames)
  framedoc probe [flags] <video>   print the duration and write a poster frame

Run "framedoc <command> -h" for the command's flags.`)
}

func handleRun(ctx context.Context, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fs := flag.NewFlagSet("run", flag.ExitOnError)
	outDir := fs.String("out", ".", "directory that receives the PDF or the frames folder")
	mode := fs.String("mode", string(entity.OutputDocument), "output: document|frames")
	strategy := fs.String("strategy", cfg.DedupStrategy, "dedup strategy: exact|perceptual|correlation")
	threshold := fs.Float64("threshold", cfg.SimilarityThreshold, "strategy cutoff, 0 for the strategy default")
	rate := fs.Float64("rate", cfg.SamplingRateHz, "frames sampled per second of video")
	keepVideo := fs.Bool("keep-video", true, "leave the input video in place")
	showProgress := fs.Bool("progress", true, "show a sampling progress bar")
	logLevel := fs.String("log-level", "warn", "debug|info|warn|error")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return errors.New("run needs exactly one video path")
	}
	videoPath := fs.Arg(0)

	outputMode, err := entity.ParseOutputMode(*mode)
	if err != nil {
		return err
	}
	kind, err := dedup.ParseKind(*strategy)
	if err != nil {
		return err
	}

	log, err := logger.NewDevelopment(*logLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	extractor := newExtractor(cfg, log)
	if *showProgress {
		extractor = withProgressBar(ctx, extractor, videoPath)
	}

	pipeline := usecase.NewPipeline(extractor, extractor, pdf.NewAssembler(log), log, cfg.TempDir)
	run := entity.NewRun(currentUser(), filepath.Base(videoPath), outputMode, string(kind))

	location, err := pipeline.Run(ctx, run, videoPath, usecase.Options{
		SamplingRateHz: *rate,
		Strategy:       kind,
		Threshold:      *threshold,
		KeepSource:     *keepVideo,
	}, newLocalPublisher(*outDir))
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n", location)
	fmt.Printf("frames: %d sampled, %d kept", run.SampledFrames, run.KeptFrames)
	if run.DurationMinutes > 0 {
		fmt.Printf(", video length %d min", run.DurationMinutes)
	}
	fmt.Println()
	return nil
}

func handleProbe(ctx context.Context, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fs := flag.NewFlagSet("probe", flag.ExitOnError)
	poster := fs.String("poster", "", "poster image path (default <video>-poster.jpg)")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return errors.New("probe needs exactly one video path")
	}
	videoPath := fs.Arg(0)

	log, err := logger.NewDevelopment("warn")
	if err != nil {
		return err
	}
	defer log.Sync()

	extractor := newExtractor(cfg, log)
	minutes, err := extractor.DurationMinutes(ctx, videoPath)
	if err != nil {
		return err
	}

	posterPath := *poster
	if posterPath == "" {
		posterPath = strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + "-poster.jpg"
	}
	if err := extractor.Poster(ctx, videoPath, posterPath); err != nil {
		return err
	}

	fmt.Printf("duration: %d min\nposter: %s\n", minutes, posterPath)
	return nil
}

func newExtractor(cfg *config.Config, log *zap.Logger) *ffmpeg.Extractor {
	return ffmpeg.NewExtractor(ffmpeg.ExtractorConfig{
		FFmpegBin:  cfg.FFmpegBin,
		FFprobeBin: cfg.FFprobeBin,
		Format:     cfg.FFmpegFormat,
		Width:      cfg.FrameWidth,
		Height:     cfg.FrameHeight,
	}, log)
}

// withProgressBar reports decoded seconds against the probed length, or
// falls back to a spinner when the length is unknown.
func withProgressBar(ctx context.Context, e *ffmpeg.Extractor, videoPath string) *ffmpeg.Extractor {
	total := int64(-1)
	if secs, err := e.DurationSeconds(ctx, videoPath); err == nil && secs >= 1 {
		total = int64(secs)
	}

	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetDescription("Sampling"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "▐",
			BarEnd:        "▌",
		}),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
	)

	return e.WithProgress(func(seconds float64) {
		pos := int64(seconds)
		if total > 0 && pos > total {
			pos = total
		}
		_ = bar.Set64(pos)
	})
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}
