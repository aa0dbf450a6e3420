// Package structanalysis is the struct analyzer shipped with coco: it turns a
// ctags tag file into raw class records. It is linked into plugin artifacts
// and can also be registered in-process.
package structanalysis

import (
	"fmt"
	"strings"

	"github.com/ritzau/coco/pkg/analysis/api"
	"github.com/ritzau/coco/pkg/ctags"
	"github.com/ritzau/coco/pkg/logging"
	"github.com/ritzau/coco/pkg/model"
)

const namePrefix = "coco_struct_analysis"

// Analyzer implements api.Analyzer on top of the ctags parser
type Analyzer struct {
	language string
}

// New creates an analyzer for a language key such as "java" or "workspace.source.java"
func New(language string) api.Analyzer {
	return &Analyzer{language: strings.TrimPrefix(language, "workspace.source.")}
}

func (a *Analyzer) Name() string {
	return namePrefix + "/" + a.language
}

// Analyze parses tagFile. Malformed lines are skipped; it fails only when
// there are malformed lines and no tag line parsed. Blank and metadata
// lines do not count as parsed.
func (a *Analyzer) Analyze(tagFile string) ([]model.RawClassRecord, error) {
	result, err := ctags.Parse(tagFile)
	if err != nil {
		return nil, err
	}

	logger := logging.New("analyzer." + a.language)
	for _, lineErr := range result.Malformed {
		logger.Debug("Skipping malformed tag line", "line", lineErr.Line, "error", lineErr.Err)
	}

	if len(result.Malformed) > 0 && result.Parsed == 0 {
		return nil, fmt.Errorf("%s: all %d lines malformed: %w", a.Name(), len(result.Malformed), ctags.ErrMalformedLine)
	}

	logger.Debug("Parsed tag file",
		"classes", len(result.Records),
		"malformed", len(result.Malformed),
		"skipped", result.Skipped,
		"orphans", result.Orphans)

	return result.Records, nil
}
