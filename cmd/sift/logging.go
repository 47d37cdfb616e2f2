package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jackzampolin/sift/internal/config"
	"github.com/jackzampolin/sift/internal/home"
)

// newLogger builds a text logger writing to console and, when path is
// set, to a size-rotated file. The returned close func flushes the file.
func newLogger(console io.Writer, path string) (*slog.Logger, func() error, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, nil, fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}

	closeFn := func() error { return nil }
	w := console
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    20, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
		}
		closeFn = rotator.Close
		if console != nil {
			w = io.MultiWriter(console, rotator)
		} else {
			w = rotator
		}
	}
	if w == nil {
		w = io.Discard
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, closeFn, nil
}

// loadEnv resolves the home directory and config manager shared by the
// commands that run sessions in-process. A config file in the home
// directory is used when --config is not given.
func loadEnv() (*home.Dir, *config.Manager, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, nil, err
	}

	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}
	cm, err := config.NewManager(path)
	if err != nil {
		return nil, nil, err
	}
	return h, cm, nil
}
