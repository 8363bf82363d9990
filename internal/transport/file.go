package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/vordr-io/vordr-go/internal/store"
)

// FileSource reads rulesets from a local JSON file. It suits air-gapped
// deployments and local development where specs are provisioned out of
// band.
type FileSource struct {
	path   string
	logger *slog.Logger
}

var _ Source = (*FileSource)(nil)

// NewFileSource creates a source backed by the given file.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{path: path, logger: logger}
}

// Fetch parses the file. The file's own time field drives the
// not-modified check so unchanged files are not re-applied.
func (s *FileSource) Fetch(_ context.Context, sinceTime int64) (*store.Ruleset, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}

	var rs store.Ruleset
	if err := json.Unmarshal(raw, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse spec file: %w", err)
	}

	if rs.Time > 0 && rs.Time <= sinceTime {
		return &store.Ruleset{HasUpdates: false}, nil
	}
	rs.HasUpdates = true
	return &rs, nil
}

// Watch invokes onChange whenever the file is written or recreated,
// until the context is cancelled. Watching the parent directory keeps
// notifications working across the rename-then-replace pattern editors
// and atomic writers use.
func (s *FileSource) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("failed to resolve spec file path: %w", err)
	}

	s.logger.Info("watching spec file", slog.String("path", target))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name, _ := filepath.Abs(event.Name)
			if name != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				s.logger.Debug("spec file changed", slog.String("op", event.Op.String()))
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("file watcher error", slog.String("error", err.Error()))
		}
	}
}
