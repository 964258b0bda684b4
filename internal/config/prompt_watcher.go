package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const promptReloadDebounce = 500 * time.Millisecond

// WatchPrompts reloads prompt files when they change on disk until ctx is done.
// A failed reload keeps the previously loaded prompts.
func (c *Config) WatchPrompts(ctx context.Context) error {
	files := c.promptFiles()
	if len(files) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create prompt file watcher: %w", err)
	}

	// Directories are watched so that editors replacing the file are noticed.
	watched := make(map[string]struct{}, len(files))
	dirs := make(map[string]struct{})
	for _, pf := range files {
		absPath, err := filepath.Abs(pf.Path)
		if err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to resolve prompt file %s: %w", pf.Path, err)
		}
		watched[absPath] = struct{}{}
		dir := filepath.Dir(absPath)
		if _, ok := dirs[dir]; ok {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch prompt directory %s: %w", dir, err)
		}
		dirs[dir] = struct{}{}
	}

	log.Printf("[CONFIG] Watching %d prompt file(s) for changes", len(watched))
	go c.runPromptWatcher(ctx, watcher, watched)
	return nil
}

func (c *Config) runPromptWatcher(ctx context.Context, watcher *fsnotify.Watcher, watched map[string]struct{}) {
	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		_ = watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !shouldReloadPrompt(event, watched) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(promptReloadDebounce, func() {
				if err := c.LoadPromptsFromFiles(); err != nil {
					log.Printf("[CONFIG] Prompt reload failed, keeping previous prompts: %v", err)
					return
				}
				log.Printf("[CONFIG] Prompts reloaded after change to %s", event.Name)
			})
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[CONFIG] Prompt watcher error: %v", err)
		}
	}
}

func shouldReloadPrompt(event fsnotify.Event, watched map[string]struct{}) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	absPath, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	_, ok := watched[absPath]
	return ok
}
