package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// Sink delivers a finished Artifact and returns where it went.
type Sink interface {
	Deliver(ctx context.Context, a *Artifact) (string, error)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, a *Artifact) (string, error)

// Deliver calls f(ctx, a).
func (f SinkFunc) Deliver(ctx context.Context, a *Artifact) (string, error) {
	return f(ctx, a)
}

// FileSink writes artifacts into a directory. An existing file is never
// overwritten; the name gets a " (n)" suffix instead.
type FileSink struct {
	fs  afero.Fs
	dir string
	mu  sync.Mutex
}

// NewFileSink returns a FileSink writing into dir on fs.
func NewFileSink(fs afero.Fs, dir string) *FileSink {
	return &FileSink{fs: fs, dir: dir}
}

// Deliver writes a.Data and returns the file path.
func (s *FileSink) Deliver(ctx context.Context, a *Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("pipeline: create output dir: %w", err)
	}
	name, err := s.uniqueName(a.Filename)
	if err != nil {
		return "", err
	}
	if err := afero.WriteFile(s.fs, name, a.Data, 0o644); err != nil {
		return "", fmt.Errorf("pipeline: write %s: %w", name, err)
	}
	return name, nil
}

func (s *FileSink) uniqueName(filename string) (string, error) {
	if filename == "" {
		filename = "book.epub"
	}
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for n := 0; ; n++ {
		candidate := filename
		if n > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
		}
		p := filepath.Join(s.dir, candidate)
		exists, err := afero.Exists(s.fs, p)
		if err != nil {
			return "", fmt.Errorf("pipeline: stat %s: %w", p, err)
		}
		if !exists {
			return p, nil
		}
	}
}
