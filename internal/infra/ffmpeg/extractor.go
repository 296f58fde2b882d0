package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/fiapx/fiapx-lesson-service/internal/domain/entity"
	"github.com/fiapx/fiapx-lesson-service/internal/domain/port"
	ffmpeggo "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"
)

const (
	framePrefix   = "frame_"
	maxDiagnostic = 16 * 1024
)

var (
	ErrEmptyInput = errors.New("input video is empty")
	ErrNoFrames   = errors.New("no frames extracted from video")
)

type ExtractorConfig struct {
	FFmpegBin  string
	FFprobeBin string
	Format     string
	// Width and Height downscale every frame; zero keeps the source size.
	Width   int
	Height  int
	Quality int
}

// Extractor samples frames with ffmpeg and probes metadata with ffprobe.
type Extractor struct {
	cfg      ExtractorConfig
	logger   *zap.Logger
	progress port.ProgressFunc
}

func NewExtractor(cfg ExtractorConfig, logger *zap.Logger) *Extractor {
	if cfg.FFmpegBin == "" {
		cfg.FFmpegBin = "ffmpeg"
	}
	if cfg.FFprobeBin == "" {
		cfg.FFprobeBin = "ffprobe"
	}
	if cfg.Format == "" {
		cfg.Format = "jpg"
	}
	if cfg.Quality <= 0 {
		cfg.Quality = 1
	}
	return &Extractor{cfg: cfg, logger: logger}
}

// WithProgress returns a copy of the extractor that reports decode progress.
func (e *Extractor) WithProgress(fn port.ProgressFunc) *Extractor {
	c := *e
	c.progress = fn
	return &c
}

func (e *Extractor) ExtractFrames(ctx context.Context, videoPath, outputDir string, samplingRateHz float64) (entity.FrameSet, error) {
	if samplingRateHz <= 0 || math.IsNaN(samplingRateHz) || math.IsInf(samplingRateHz, 0) {
		return entity.FrameSet{}, fmt.Errorf("sampling rate must be positive, got %v", samplingRateHz)
	}

	info, err := os.Stat(videoPath)
	if err != nil {
		return entity.FrameSet{}, &entity.DecodeError{Video: videoPath, Err: err}
	}
	if info.Size() == 0 {
		return entity.FrameSet{}, &entity.DecodeError{Video: videoPath, Err: ErrEmptyInput}
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return entity.FrameSet{}, fmt.Errorf("create frames dir: %w", err)
	}

	bin, err := exec.LookPath(e.cfg.FFmpegBin)
	if err != nil {
		return entity.FrameSet{}, &entity.DecodeError{Video: videoPath, Err: fmt.Errorf("ffmpeg binary not found: %w", err)}
	}

	args := e.sampleArgs(videoPath, filepath.Join(outputDir, framePrefix+"%03d."+e.cfg.Format), samplingRateHz)
	e.logger.Debug("running ffmpeg", zap.Strings("args", args))

	diag := &tailBuffer{limit: maxDiagnostic}
	if err := e.run(ctx, bin, args, diag); err != nil {
		return entity.FrameSet{}, &entity.DecodeError{Video: videoPath, Output: strings.TrimSpace(diag.String()), Err: err}
	}

	set, err := ListFrames(outputDir, e.cfg.Format)
	if err != nil {
		return entity.FrameSet{}, fmt.Errorf("list frames: %w", err)
	}
	if set.Len() == 0 {
		return entity.FrameSet{}, &entity.DecodeError{Video: videoPath, Output: strings.TrimSpace(diag.String()), Err: ErrNoFrames}
	}

	e.logger.Info("frames extracted",
		zap.Int("count", set.Len()),
		zap.Float64("sampling_rate_hz", samplingRateHz),
	)
	return set, nil
}

// sampleArgs builds the single ffmpeg invocation for a run: fps sampling,
// optional downscale, best JPEG quality, progress on stdout.
func (e *Extractor) sampleArgs(videoPath, pattern string, samplingRateHz float64) []string {
	stream := ffmpeggo.Input(videoPath).
		Filter("fps", ffmpeggo.Args{strconv.FormatFloat(samplingRateHz, 'f', -1, 64)})
	if e.cfg.Width > 0 && e.cfg.Height > 0 {
		stream = stream.Filter("scale", ffmpeggo.Args{strconv.Itoa(e.cfg.Width), strconv.Itoa(e.cfg.Height)})
	}
	return stream.
		Output(pattern, ffmpeggo.KwArgs{"qscale:v": e.cfg.Quality}).
		GlobalArgs("-progress", "pipe:1", "-nostats").
		OverWriteOutput().
		GetArgs()
}

// run executes ffmpeg, feeding its -progress stream to the progress callback
// and keeping the tail of stderr for diagnostics.
func (e *Extractor) run(ctx context.Context, bin string, args []string, diag io.Writer) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = diag

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if secs, ok := parseProgress(scanner.Text()); ok && e.progress != nil {
			e.progress(secs)
		}
	}
	// Drain whatever the scanner gave up on so ffmpeg never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, stdout)

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg interrupted: %w", ctxErr)
		}
		return fmt.Errorf("ffmpeg error: %w", err)
	}
	return nil
}

// parseProgress reads the decoded position from one -progress line.
func parseProgress(line string) (float64, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok || (key != "out_time_us" && key != "out_time_ms") {
		return 0, false
	}
	us, err := strconv.ParseInt(value, 10, 64)
	if err != nil || us < 0 {
		return 0, false
	}
	return float64(us) / 1e6, true
}

// ListFrames returns the sampler's frames in dir ordered by their numeric
// index. Ordinals are 0-based; file names are 1-based.
func ListFrames(dir, format string) (entity.FrameSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return entity.FrameSet{}, err
	}

	ext := "." + format
	set := entity.FrameSet{Dir: dir}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, framePrefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, framePrefix), ext))
		if err != nil || n < 1 {
			continue
		}
		set.Frames = append(set.Frames, entity.Frame{Index: n - 1, Path: filepath.Join(dir, name)})
	}

	sort.Slice(set.Frames, func(i, j int) bool {
		return set.Frames[i].Index < set.Frames[j].Index
	})
	return set, nil
}

// DurationMinutes reports the video length in whole minutes, rounded down.
func (e *Extractor) DurationMinutes(ctx context.Context, videoPath string) (int, error) {
	secs, err := e.DurationSeconds(ctx, videoPath)
	if err != nil {
		return 0, err
	}
	return int(math.Floor(secs / 60)), nil
}

func (e *Extractor) DurationSeconds(ctx context.Context, videoPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, e.cfg.FFprobeBin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	durationStr := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(durationStr, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return duration, nil
}

// Poster writes a single frame taken one second into the video.
func (e *Extractor) Poster(ctx context.Context, videoPath, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create poster dir: %w", err)
	}

	args := ffmpeggo.Input(videoPath, ffmpeggo.KwArgs{"ss": 1}).
		Output(outPath, ffmpeggo.KwArgs{"frames:v": 1, "qscale:v": e.cfg.Quality}).
		OverWriteOutput().
		GetArgs()

	output, err := exec.CommandContext(ctx, e.cfg.FFmpegBin, args...).CombinedOutput()
	if err != nil {
		return &entity.DecodeError{Video: videoPath, Output: string(output), Err: err}
	}
	return nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
