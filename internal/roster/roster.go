// Package roster keeps the watched station set in sync with an optional
// YAML file.
//
//	stations:
//	  - KTLX
//	  - KFWS
package roster

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/storm-radar-service/internal/domain"
)

type file struct {
	Stations []string `yaml:"stations"`
}

// Load reads and validates the roster at path. Stations are normalized,
// de-duplicated and sorted.
func Load(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse roster %s: %w", path, err)
	}

	seen := make(map[string]bool, len(f.Stations))
	out := make([]string, 0, len(f.Stations))
	for _, s := range f.Stations {
		s = domain.NormalizeStation(s)
		if !domain.ValidStation(s) {
			return nil, fmt.Errorf("roster %s: invalid station %q", path, s)
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

// Watch reloads the roster whenever path changes and calls onChange with the
// new station list. Invalid reloads are logged and skipped. The parent
// directory is watched so atomic saves that replace the file are seen. Watch
// blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func([]string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	logger.Info("watching station roster", "path", abs)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			stations, err := Load(abs)
			if err != nil {
				logger.Error("roster reload failed, keeping previous stations", "path", abs, "error", err)
				continue
			}
			logger.Info("roster reloaded", "path", abs, "stations", stations)
			onChange(stations)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("roster watcher error", "error", err)
		}
	}
}
