package cli

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/pdxtools/guiscale/internal/logging"
	"github.com/pdxtools/guiscale/internal/model"
)

// buildConfig assembles the immutable run configuration: defaults,
// then config file / environment via viper. Command flags override
// individual fields afterwards.
func buildConfig() *model.Config {
	cfg := model.DefaultConfig()

	if attrs := viper.GetStringSlice("grammar.attributes"); len(attrs) > 0 {
		cfg.Grammar.Attributes = attrs
	}
	if ext := viper.GetString("corpus.extension"); ext != "" {
		cfg.Corpus.Extension = ext
	}
	if path := viper.GetString("store.path"); path != "" {
		cfg.Store.Path = path
	}
	if ttl := viper.GetDuration("store.cache_ttl"); ttl > 0 {
		cfg.Store.CacheTTL = ttl
	}
	if workers := viper.GetInt("concurrency.workers"); workers > 0 {
		cfg.Concurrency.Workers = workers
	}
	cfg.Output.Verbose = viper.GetBool("output.verbose") || verbose
	cfg.Output.LogJSON = viper.GetBool("output.log_json") || logJSON

	return cfg
}

// newLogger builds the run logger from config.
func newLogger(cfg *model.Config) *logrus.Logger {
	return logging.New(cfg.Output.Verbose, cfg.Output.LogJSON)
}

// parseTrees parses repeated NAME=path flags into a resolution map.
func parseTrees(specs []string) (map[string]string, error) {
	trees := make(map[string]string, len(specs))
	for _, spec := range specs {
		name, dir, ok := strings.Cut(spec, "=")
		if !ok || name == "" || dir == "" {
			return nil, fmt.Errorf("invalid tree %q, expected NAME=path", spec)
		}
		trees[name] = dir
	}
	return trees, nil
}

// normalizeExt ensures the extension carries a leading dot.
func normalizeExt(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		return "." + ext
	}
	return ext
}
