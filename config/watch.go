package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/swdee/go-posemon/logger"
)

// Watch monitors the config file at path and calls onChange with the newly
// loaded Config each time it is written.  It runs until ctx is cancelled.
//
// The directory holding path is watched rather than the file itself so saves
// that rename a temporary file over path keep being seen.
//
// A reload that fails to parse or validate is logged and the previous config
// remains active, onChange is not called.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {

	watcher, err := fsnotify.NewWatcher()

	if err != nil {
		return err
	}
	defer watcher.Close()

	path = filepath.Clean(path)

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	log := logger.Named("config")
	log.Info(ctx, "watching for changes", logger.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != path {
				continue
			}

			// a rename over path arrives as a create
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(ctx, path)

			if err != nil {
				log.Error(ctx, "reload failed, keeping previous config",
					logger.String("path", path), logger.Error(err))
				continue
			}

			log.Info(ctx, "reloaded", logger.String("path", path))
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error(ctx, "watcher error", logger.Error(err))
		}
	}
}
