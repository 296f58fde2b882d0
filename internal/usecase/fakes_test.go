package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fiapx/fiapx-lesson-service/internal/domain/entity"
	"github.com/google/uuid"
)

// fakeSampler writes one file per payload, named the way ffmpeg names frames.
type fakeSampler struct {
	payloads [][]byte
	err      error
	called   bool
}

func (s *fakeSampler) ExtractFrames(_ context.Context, videoPath, outputDir string, _ float64) (entity.FrameSet, error) {
	s.called = true
	if s.err != nil {
		return entity.FrameSet{}, s.err
	}
	if _, err := os.Stat(videoPath); err != nil {
		return entity.FrameSet{}, &entity.DecodeError{Video: videoPath, Err: err}
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return entity.FrameSet{}, err
	}
	set := entity.FrameSet{Dir: outputDir}
	for i, p := range s.payloads {
		path := filepath.Join(outputDir, fmt.Sprintf("frame_%03d.jpg", i+1))
		if err := os.WriteFile(path, p, 0o644); err != nil {
			return entity.FrameSet{}, err
		}
		set.Frames = append(set.Frames, entity.Frame{Index: i, Path: path})
	}
	return set, nil
}

type fakeProber struct {
	minutes int
	err     error
}

func (p fakeProber) DurationMinutes(context.Context, string) (int, error) {
	return p.minutes, p.err
}

type fakeAssembler struct {
	got   []int
	err   error
	panic bool
}

func (a *fakeAssembler) Assemble(_ context.Context, frames entity.FrameSet, outputDir string) (string, error) {
	if a.panic {
		panic("renderer exploded")
	}
	a.got = frames.Indexes()
	if a.err != nil {
		return "", a.err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(outputDir, uuid.NewString()+".pdf")
	return path, os.WriteFile(path, []byte("%PDF-1.3 fake"), 0o644)
}

type upload struct {
	key         string
	contentType string
	body        []byte
}

type fakeStorage struct {
	mu          sync.Mutex
	video       []byte
	downloadErr error
	uploadErr   error
	uploads     []upload
}

func (s *fakeStorage) DownloadVideo(_ context.Context, _ string, destPath string) error {
	if s.downloadErr != nil {
		return s.downloadErr
	}
	return os.WriteFile(destPath, s.video, 0o644)
}

func (s *fakeStorage) UploadMaterial(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, upload{key: key, contentType: contentType, body: body})
	return nil
}

// fakePacker concatenates the frame files it finds so tests can see what was packed.
type fakePacker struct {
	dir string
}

func (p *fakePacker) PackFrames(_ context.Context, framesDir, outputPath string) error {
	p.dir = framesDir
	entries, err := os.ReadDir(framesDir)
	if err != nil {
		return err
	}
	var out []byte
	for _, e := range entries {
		out = append(out, []byte(e.Name()+";")...)
	}
	return os.WriteFile(outputPath, out, 0o644)
}

type fakeRepo struct {
	mu      sync.Mutex
	runs    map[uuid.UUID]entity.Run
	findErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{runs: map[uuid.UUID]entity.Run{}}
}

func (r *fakeRepo) Create(_ context.Context, run *entity.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = *run
	return nil
}

func (r *fakeRepo) Update(_ context.Context, run *entity.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[run.ID]; !ok {
		return entity.ErrRunNotFound
	}
	r.runs[run.ID] = *run
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	run, ok := r.runs[id]
	if !ok {
		return nil, entity.ErrRunNotFound
	}
	return &run, nil
}

type fakeStatus struct {
	msgs []entity.RunStatusMessage
}

func (s *fakeStatus) PublishStatus(_ context.Context, msg entity.RunStatusMessage) error {
	s.msgs = append(s.msgs, msg)
	return nil
}

type dlqEntry struct {
	body   []byte
	reason string
}

type fakeDLQ struct {
	entries []dlqEntry
}

func (d *fakeDLQ) PublishToDLQ(_ context.Context, body []byte, reason string) error {
	d.entries = append(d.entries, dlqEntry{body: body, reason: reason})
	return nil
}

type notification struct {
	to, runID, videoKey, errMsg string
}

type fakeNotifier struct {
	sent []notification
}

func (n *fakeNotifier) NotifyFailure(_ context.Context, to, runID, videoKey, errMsg string) error {
	n.sent = append(n.sent, notification{to: to, runID: runID, videoKey: videoKey, errMsg: errMsg})
	return nil
}
