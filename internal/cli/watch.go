//
// Tencent is pleased to support the open source community by making trpc-dialogtest-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-dialogtest-go is licensed under the Apache License Version 2.0.
//
//

package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"trpc.group/trpc-go/trpc-dialogtest-go/log"
)

// watchDebounce is how long a suite file must stay quiet after a write
// before it is re-run. Editors fire bursts of events per save.
const watchDebounce = 500 * time.Millisecond

// runWatch performs one full pass over the suite files and then re-runs a
// suite whenever its file changes, until watchCtx is cancelled. Suite runs
// use runCtx so an interrupt drains them instead of cutting their backend
// calls. Failures of individual passes are logged, not fatal: a half-saved
// suite file must not end the session.
func runWatch(watchCtx, runCtx context.Context, sess *session, files []string) error {
	ordinals := make(map[string]int, len(files))
	for i, f := range files {
		ordinals[f] = i + 1
	}
	rerun := func(path string) {
		if _, err := sess.runSuite(runCtx, path, ordinals[path]); err != nil {
			log.Errorf("suite %s: %v", path, err)
		}
	}

	for _, f := range files {
		if watchCtx.Err() != nil {
			return nil
		}
		rerun(f)
	}

	log.Infof("watching %d suite files, interrupt to exit", len(files))
	return watchSuites(watchCtx, files, rerun)
}

// watchSuites blocks watching the parent directories of the suite files and
// invokes rerun for every settled write to one of them. Watches sit on
// directories rather than the files because editors often save through
// rename+create, which drops a watch placed on the file itself.
func watchSuites(ctx context.Context, files []string, rerun func(path string)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create suite watcher: %w", err)
	}
	defer fsw.Close()

	watched := make(map[string]string, len(files)) // absolute path -> path as given
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", f, err)
		}
		watched[abs] = f
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			abs := ev.Name
			if !filepath.IsAbs(abs) {
				if a, err := filepath.Abs(abs); err == nil {
					abs = a
				}
			}
			abs = filepath.Clean(abs)
			if _, ok := watched[abs]; !ok {
				continue
			}
			pending[abs] = time.Now()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Errorf("suite watcher: %v", err)

		case <-ticker.C:
			now := time.Now()
			for abs, at := range pending {
				if now.Sub(at) < watchDebounce {
					continue
				}
				delete(pending, abs)
				log.Infof("suite file changed: %s", watched[abs])
				rerun(watched[abs])
			}
		}
	}
}
