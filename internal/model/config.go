package model

import (
	"runtime"
	"time"
)

// Config holds the complete runtime configuration.
// It is built once in the CLI layer and passed into component
// constructors; core packages never read ambient process state.
type Config struct {
	Corpus      CorpusConfig      `yaml:"corpus" mapstructure:"corpus"`
	Grammar     GrammarConfig     `yaml:"grammar" mapstructure:"grammar"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// CorpusConfig describes the input directory trees.
type CorpusConfig struct {
	// OriginalDir is the tree containing the original-resolution files.
	OriginalDir string `yaml:"original_dir" mapstructure:"original_dir"`

	// ResolutionDirs maps a resolution name (e.g. "2K") to the tree
	// containing the externally rescaled counterparts. Files are paired
	// by identical relative path.
	ResolutionDirs map[string]string `yaml:"resolution_dirs" mapstructure:"resolution_dirs"`

	// Extension selects which files are processed (including the dot).
	Extension string `yaml:"extension" mapstructure:"extension"`
}

// GrammarConfig controls attribute recognition.
type GrammarConfig struct {
	// Attributes is the recognized set of positional/size attribute
	// names. Matching is case-insensitive and word-bounded.
	Attributes []string `yaml:"attributes" mapstructure:"attributes"`
}

// StoreConfig configures the factor store.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`

	// CacheTTL bounds how long per-file factor lookups are cached
	// during apply/watch runs.
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// ConcurrencyConfig configures the worker pool.
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// OutputConfig configures output handling.
type OutputConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
	LogJSON bool   `yaml:"log_json" mapstructure:"log_json"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			ResolutionDirs: map[string]string{},
			Extension:      ".gui",
		},
		Grammar: GrammarConfig{
			Attributes: DefaultAttributes(),
		},
		Store: StoreConfig{
			Path:     "guiscale.db",
			CacheTTL: 5 * time.Minute,
		},
		Concurrency: ConcurrencyConfig{
			Workers: runtime.NumCPU(),
		},
		Output: OutputConfig{
			Dir: "./guiscale-out",
		},
	}
}

// DefaultAttributes returns the recognized positional/size attribute
// names. The list is a configuration detail, not a closed type: callers
// may extend or replace it via config.
func DefaultAttributes() []string {
	return []string{
		"size",
		"position",
		"x",
		"y",
		"width",
		"height",
		"maxwidth",
		"maxheight",
		"bordersize",
		"spacing",
		"slotsize",
	}
}
