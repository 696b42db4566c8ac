package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cnnpruning/mayo/internal/config"
	"github.com/cnnpruning/mayo/internal/fsutil"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	errW   io.Writer
	logger *slog.Logger
	config *Config
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger. Documents are
// loaded lazily by Run so load failures report through the normal error
// path.
func NewApp(outW, errW io.Writer, appConfig *Config) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, errW)
	logger.Debug("Logger configured successfully.")
	return &App{
		outW:   outW,
		errW:   errW,
		logger: logger,
		config: appConfig,
	}
}

// loadDocuments discovers every YAML document under the configured paths,
// merges them in order, and applies command-line overrides.
func (a *App) loadDocuments() (*config.Config, error) {
	files, err := a.findDocuments()
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Discovered YAML documents.", "count", len(files))

	cfg := config.New()
	for _, file := range files {
		if err := cfg.MergeFile(file); err != nil {
			return nil, fmt.Errorf("failed to load document %s: %w", file, err)
		}
		a.logger.Debug("Merged document.", "path", file)
	}
	for _, ov := range a.config.Overrides {
		if err := cfg.Override(ov.Key, ov.Value); err != nil {
			return nil, err
		}
		a.logger.Debug("Applied override.", "key", ov.Key)
	}
	return cfg, nil
}

// findDocuments flattens the configured paths into a list of YAML files,
// walking directories recursively and preserving the given order.
func (a *App) findDocuments() ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, path := range a.config.Paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if info.IsDir() {
			found, err := fsutil.FindFilesByExtensions(path, ".yaml", ".yml")
			if err != nil {
				return nil, err
			}
			for _, f := range found {
				add(f)
			}
			continue
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
			add(path)
		default:
			return nil, fmt.Errorf("%s is not a YAML document", path)
		}
	}
	return files, nil
}
