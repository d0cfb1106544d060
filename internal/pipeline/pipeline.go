// Package pipeline orchestrates learning and applying scaling factors
// across directory trees of layout files.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pdxtools/guiscale/internal/extract"
	"github.com/pdxtools/guiscale/internal/grammar"
	"github.com/pdxtools/guiscale/internal/infer"
	"github.com/pdxtools/guiscale/internal/model"
	"github.com/pdxtools/guiscale/internal/store"
	"github.com/pdxtools/guiscale/internal/transform"
	"github.com/pdxtools/guiscale/internal/worker"
)

// Pipeline wires the shared grammar into the extractor and transformer
// and runs file jobs on a worker pool. One Pipeline serves one run; the
// grammar instance is constructed once, which is what keeps extraction
// and substitution behaviorally identical.
type Pipeline struct {
	cfg         *model.Config
	grammar     *grammar.Grammar
	extractor   *extract.Extractor
	transformer *transform.Transformer
	store       *store.Store
	factors     *store.FactorCache
	pool        *worker.Pool
	log         *logrus.Logger
	runID       string
}

// New creates a pipeline. The store may be nil for fixed-factor runs,
// which never consult learned factors.
func New(cfg *model.Config, st *store.Store, log *logrus.Logger) (*Pipeline, error) {
	g, err := grammar.New(cfg.Grammar.Attributes)
	if err != nil {
		return nil, fmt.Errorf("build grammar: %w", err)
	}

	p := &Pipeline{
		cfg:         cfg,
		grammar:     g,
		extractor:   extract.New(g),
		transformer: transform.New(g),
		store:       st,
		pool:        worker.NewPool(cfg.Concurrency.Workers),
		log:         log,
		runID:       uuid.NewString(),
	}
	if st != nil {
		p.factors = store.NewFactorCache(st, cfg.Store.CacheTTL)
	}
	return p, nil
}

// RunID identifies this pipeline instance in logs and reports.
func (p *Pipeline) RunID() string {
	return p.runID
}

// isFatal classifies an error per the fault taxonomy: permission
// denials abort the run, everything else is recoverable. Grammar drift
// is also fatal because it means the shared-grammar invariant broke.
func isFatal(err error) bool {
	return errors.Is(err, fs.ErrPermission) || errors.Is(err, transform.ErrGrammarDrift)
}

// fileResult is the outcome of one file job.
type fileResult struct {
	rel          string
	err          error
	changed      bool
	skippedPairs int
	learnedPairs int
}

func (r *fileResult) Err() error { return r.err }

func (r *fileResult) Fatal() bool {
	return r.err != nil && isFatal(r.err)
}

// LearnSummary reports the outcome of a learn run.
type LearnSummary struct {
	Files        int // original files examined
	LearnedPairs int // (file, resolution) comparisons stored
	SkippedPairs int // missing or unreadable counterparts
	SkippedFiles int // originals skipped entirely
}

// Learn walks the original tree, pairs every file against each
// configured resolution tree by relative path, infers per-attribute
// statistics and persists them. Missing counterparts exclude the pair,
// never the run.
func (p *Pipeline) Learn(ctx context.Context) (*LearnSummary, error) {
	if p.store == nil {
		return nil, fmt.Errorf("learn requires a factor store")
	}

	files, err := MatchFiles(p.cfg.Corpus.OriginalDir, p.cfg.Corpus.Extension)
	if err != nil {
		return nil, fmt.Errorf("walk originals: %w", err)
	}

	p.log.WithFields(logrus.Fields{
		"run_id":      p.runID,
		"files":       len(files),
		"resolutions": len(p.cfg.Corpus.ResolutionDirs),
	}).Info("learning scaling factors")

	jobs := make([]worker.Job, len(files))
	for i, rel := range files {
		jobs[i] = &learnJob{pipeline: p, rel: rel}
	}

	summary := &LearnSummary{Files: len(files)}
	for _, result := range p.pool.Run(ctx, jobs) {
		r := result.(*fileResult)
		if r.err != nil {
			if r.Fatal() {
				return nil, fmt.Errorf("learn %s: %w", r.rel, r.err)
			}
			summary.SkippedFiles++
			continue
		}
		summary.LearnedPairs += r.learnedPairs
		summary.SkippedPairs += r.skippedPairs
	}
	return summary, nil
}

type learnJob struct {
	pipeline *Pipeline
	rel      string
}

func (j *learnJob) Execute(ctx context.Context) worker.Result {
	p := j.pipeline
	result := &fileResult{rel: j.rel}

	content, err := ReadFile(filepath.Join(p.cfg.Corpus.OriginalDir, j.rel))
	if err != nil {
		if !isFatal(err) {
			p.log.WithFields(logrus.Fields{"file": j.rel, "error": err}).Warn("skipping unreadable original")
		}
		result.err = err
		return result
	}
	original := p.extractor.Extract(content)

	stats := make(map[string]map[string]model.ScalingStatistic)
	for resolution, dir := range p.cfg.Corpus.ResolutionDirs {
		counterpart := filepath.Join(dir, filepath.FromSlash(j.rel))

		scaledContent, err := ReadFile(counterpart)
		if err != nil {
			if isFatal(err) {
				result.err = err
				return result
			}
			if errors.Is(err, fs.ErrNotExist) {
				p.log.WithFields(logrus.Fields{
					"file":       j.rel,
					"resolution": resolution,
				}).Warn("counterpart missing, pair excluded")
			} else {
				p.log.WithFields(logrus.Fields{
					"file":       j.rel,
					"resolution": resolution,
					"error":      err,
				}).Warn("counterpart unreadable, pair excluded")
			}
			result.skippedPairs++
			continue
		}

		scaled := p.extractor.Extract(scaledContent)
		stats[resolution] = infer.Infer(original, scaled)
		result.learnedPairs++
	}

	if err := p.store.SaveFile(ctx, j.rel, original, stats); err != nil {
		// Store faults are recoverable per-file.
		p.log.WithFields(logrus.Fields{"file": j.rel, "error": err}).Warn("store write failed")
		result.err = err
		return result
	}

	p.log.WithFields(logrus.Fields{
		"file":       j.rel,
		"attributes": len(original),
		"pairs":      result.learnedPairs,
	}).Debug("learned")
	return result
}

// ApplySummary reports the outcome of a transform run.
type ApplySummary struct {
	Files     int
	Changed   int
	Unchanged int
	Skipped   int
}

// Apply rewrites every matching file under inputDir with the learned
// per-attribute factors for resolution, writing changed files to the
// mirrored path under outputDir. Attributes without a stored factor
// keep their values.
func (p *Pipeline) Apply(ctx context.Context, resolution, inputDir, outputDir string) (*ApplySummary, error) {
	if p.factors == nil {
		return nil, fmt.Errorf("apply requires a factor store")
	}
	return p.runTransform(ctx, inputDir, func(j *transformJob) worker.Job {
		j.resolution = resolution
		j.outputDir = outputDir
		return j
	})
}

// Scale rewrites every matching file under inputDir with one fixed
// factor, writing changed files to the mirrored path under outputDir.
func (p *Pipeline) Scale(ctx context.Context, factor float64, inputDir, outputDir string) (*ApplySummary, error) {
	return p.runTransform(ctx, inputDir, func(j *transformJob) worker.Job {
		j.fixed = &factor
		j.outputDir = outputDir
		return j
	})
}

func (p *Pipeline) runTransform(ctx context.Context, inputDir string, build func(*transformJob) worker.Job) (*ApplySummary, error) {
	files, err := MatchFiles(inputDir, p.cfg.Corpus.Extension)
	if err != nil {
		return nil, fmt.Errorf("walk input: %w", err)
	}

	jobs := make([]worker.Job, len(files))
	for i, rel := range files {
		jobs[i] = build(&transformJob{pipeline: p, rel: rel, inputDir: inputDir})
	}

	summary := &ApplySummary{Files: len(files)}
	for _, result := range p.pool.Run(ctx, jobs) {
		r := result.(*fileResult)
		if r.err != nil {
			if r.Fatal() {
				return nil, fmt.Errorf("transform %s: %w", r.rel, r.err)
			}
			summary.Skipped++
			continue
		}
		if r.changed {
			summary.Changed++
		} else {
			summary.Unchanged++
		}
	}
	return summary, nil
}

type transformJob struct {
	pipeline   *Pipeline
	rel        string
	inputDir   string
	outputDir  string
	resolution string   // per-attribute mode
	fixed      *float64 // fixed-factor mode
}

func (j *transformJob) Execute(ctx context.Context) worker.Result {
	p := j.pipeline
	result := &fileResult{rel: j.rel}

	changed, err := p.transformFile(ctx, j)
	if err != nil {
		if !isFatal(err) {
			p.log.WithFields(logrus.Fields{"file": j.rel, "error": err}).Warn("file skipped")
		}
		result.err = err
		return result
	}
	result.changed = changed
	return result
}

func (p *Pipeline) transformFile(ctx context.Context, j *transformJob) (bool, error) {
	content, err := ReadFile(filepath.Join(j.inputDir, filepath.FromSlash(j.rel)))
	if err != nil {
		return false, err
	}

	var out string
	switch {
	case j.fixed != nil:
		out = p.transformer.ApplyFixed(content, *j.fixed)
	default:
		factors, err := p.factors.Factors(ctx, j.rel, j.resolution)
		if err != nil {
			return false, fmt.Errorf("look up factors: %w", err)
		}
		out, err = p.transformer.ApplyFactors(content, factors)
		if err != nil {
			return false, err
		}
	}

	if out == content {
		p.log.WithField("file", j.rel).Debug("unchanged")
		return false, nil
	}

	if err := WriteFile(filepath.Join(j.outputDir, filepath.FromSlash(j.rel)), out); err != nil {
		return false, err
	}
	p.log.WithField("file", j.rel).Debug("rewritten")
	return true, nil
}

// ApplyOne transforms a single file with learned factors, used by the
// watch loop. Returns whether the output changed.
func (p *Pipeline) ApplyOne(ctx context.Context, resolution, inputDir, outputDir, rel string) (bool, error) {
	if p.factors == nil {
		return false, fmt.Errorf("apply requires a factor store")
	}
	return p.transformFile(ctx, &transformJob{
		pipeline:   p,
		rel:        rel,
		inputDir:   inputDir,
		outputDir:  outputDir,
		resolution: resolution,
	})
}

// InvalidateFactors drops cached factor lookups, e.g. after re-learning.
func (p *Pipeline) InvalidateFactors() {
	if p.factors != nil {
		p.factors.Invalidate()
	}
}

// Extension returns the configured file extension.
func (p *Pipeline) Extension() string {
	return p.cfg.Corpus.Extension
}

// statDirExists is a small preflight used by commands to fail fast on
// a mistyped tree path before spinning up workers.
func statDirExists(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// CheckTrees verifies that every configured input tree exists.
func (p *Pipeline) CheckTrees() error {
	if p.cfg.Corpus.OriginalDir != "" {
		if err := statDirExists(p.cfg.Corpus.OriginalDir); err != nil {
			return fmt.Errorf("originals: %w", err)
		}
	}
	for resolution, dir := range p.cfg.Corpus.ResolutionDirs {
		if err := statDirExists(dir); err != nil {
			return fmt.Errorf("%s tree: %w", resolution, err)
		}
	}
	return nil
}
