package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pdxtools/guiscale/internal/model"
)

func buildReport(runID, resolution string, files map[string]map[string]model.ScalingStatistic) model.Report {
	return model.Report{
		Resolution:  resolution,
		RunID:       runID,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Files:       files,
	}
}

// WriteReport serializes the per-resolution summary (filename →
// attribute → statistics) as indented JSON at path.
func (p *Pipeline) WriteReport(ctx context.Context, resolution, path string) error {
	if p.store == nil {
		return fmt.Errorf("report requires a factor store")
	}

	files, err := p.store.Summary(ctx, resolution)
	if err != nil {
		return fmt.Errorf("read summary: %w", err)
	}

	report := buildReport(p.runID, resolution, files)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if err := WriteFile(path, string(data)+"\n"); err != nil {
		return err
	}

	p.log.WithFields(logrus.Fields{
		"resolution": resolution,
		"files":      len(files),
		"path":       path,
	}).Info("report written")
	return nil
}
