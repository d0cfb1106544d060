// Package watch re-applies learned factors when input files change.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pdxtools/guiscale/internal/pipeline"
)

// Watcher monitors an input tree and retransforms matching files on
// write. Editors fire bursts of events per save; a per-file rate
// limiter collapses them.
type Watcher struct {
	pipeline   *pipeline.Pipeline
	resolution string
	inputDir   string
	outputDir  string
	log        *logrus.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perFile  rate.Limit
	burst    int
}

// New creates a watcher. eventsPerSecond bounds how often one file is
// retransformed.
func New(p *pipeline.Pipeline, resolution, inputDir, outputDir string, eventsPerSecond float64, log *logrus.Logger) *Watcher {
	if eventsPerSecond <= 0 {
		eventsPerSecond = 1
	}
	return &Watcher{
		pipeline:   p,
		resolution: resolution,
		inputDir:   inputDir,
		outputDir:  outputDir,
		log:        log,
		limiters:   make(map[string]*rate.Limiter),
		perFile:    rate.Limit(eventsPerSecond),
		burst:      1,
	}
}

// Run blocks until ctx is cancelled, retransforming files as they
// change.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fsw.Close() }()

	if err := w.addTree(fsw); err != nil {
		return err
	}

	w.log.WithFields(logrus.Fields{
		"input":      w.inputDir,
		"resolution": w.resolution,
	}).Info("watching for changes")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, fsw, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.WithField("error", err).Warn("watch error")
		}
	}
}

// addTree registers the input directory and all subdirectories.
// fsnotify watches are not recursive.
func (w *Watcher) addTree(fsw *fsnotify.Watcher) error {
	return filepath.WalkDir(w.inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) handle(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	if event.Op.Has(fsnotify.Create) {
		// New subdirectories need their own watch.
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = fsw.Add(event.Name)
			return
		}
	}

	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
		return
	}
	if !strings.EqualFold(filepath.Ext(event.Name), w.pipeline.Extension()) {
		return
	}

	rel, err := filepath.Rel(w.inputDir, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if !w.limiter(rel).Allow() {
		return
	}

	changed, err := w.pipeline.ApplyOne(ctx, w.resolution, w.inputDir, w.outputDir, rel)
	if err != nil {
		w.log.WithFields(logrus.Fields{"file": rel, "error": err}).Warn("retransform failed")
		return
	}
	if changed {
		w.log.WithField("file", rel).Info("retransformed")
	}
}

func (w *Watcher) limiter(rel string) *rate.Limiter {
	w.mu.Lock()
	defer w.mu.Unlock()

	l, ok := w.limiters[rel]
	if !ok {
		l = rate.NewLimiter(w.perFile, w.burst)
		w.limiters[rel] = l
	}
	return l
}
