// Package splitter partitions a scanned multi-document PDF into individual
// files, using full-page green marker sheets as document delimiters. Each
// page is rendered at low resolution, classified by mean color, and the
// resulting marker sequence is walked into contiguous page ranges written
// out as output_1.pdf, output_2.pdf, ... in flush order.
package splitter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/Factiosi/qManager/kit"
	"github.com/Factiosi/qManager/ocr"
)

// Threshold bounds for the green marker heuristic.
const (
	DefaultThreshold = 2.3
	MinThreshold     = 0.1
	MaxThreshold     = 5.0
)

// classifyDPI is the rendering resolution for color classification. Pages
// are never rendered at full resolution here; the mean color does not need
// it.
const classifyDPI = 50

// Config configures a split run.
type Config struct {
	// Threshold is how much green must exceed red for a page to count as a
	// marker (default DefaultThreshold, clamped to [MinThreshold, MaxThreshold]).
	Threshold float64

	// Renderer rasterizes pages for classification.
	Renderer ocr.Renderer

	// Logger for debug messages.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Threshold == 0 {
		c.Threshold = DefaultThreshold
	}
	if c.Threshold < MinThreshold {
		c.Threshold = MinThreshold
	}
	if c.Threshold > MaxThreshold {
		c.Threshold = MaxThreshold
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Result summarizes a split run.
type Result struct {
	FilesWritten int
}

// Range is a contiguous 1-based inclusive page range forming one output
// document.
type Range struct {
	Start, End int
}

func (r Range) selection() string {
	if r.Start == r.End {
		return fmt.Sprintf("%d", r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// BuildPlan walks the per-page marker sequence into output documents. A new
// document begins at every marker page, which stays included in the document
// it opens. Non-marker pages before the first marker become the leading
// pages of the first document; no empty leading document is ever emitted.
func BuildPlan(markers []bool) []Range {
	var plan []Range
	start := -1 // 0-based first page of the open document, -1 = none
	for i, marker := range markers {
		switch {
		case marker:
			if start >= 0 {
				plan = append(plan, Range{Start: start + 1, End: i})
			}
			start = i
		case start < 0:
			start = i
		}
	}
	if start >= 0 {
		plan = append(plan, Range{Start: start + 1, End: len(markers)})
	}
	return plan
}

// Split classifies every page of inputPDF and writes one PDF per document
// range into outputDir. Progress is reported per classified page;
// cancellation is honored between pages and between flushes.
func Split(ctx context.Context, cfg Config, inputPDF, outputDir string, sinks kit.Sinks) (Result, error) {
	cfg.defaults()
	if cfg.Renderer == nil {
		return Result{}, fmt.Errorf("splitter: no renderer configured")
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("splitter: create %s: %w", outputDir, err)
	}

	total, err := api.PageCountFile(inputPDF)
	if err != nil {
		return Result{}, fmt.Errorf("splitter: page count %s: %w", inputPDF, err)
	}

	sinks.Logf("splitting %s (%d pages)", filepath.Base(inputPDF), total)
	sinks.Step(0, total)

	markers := make([]bool, total)
	for page := 1; page <= total; page++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		img, err := cfg.Renderer.RenderPage(ctx, inputPDF, page, classifyDPI)
		if err != nil {
			// A page that cannot be rendered is kept as content rather than
			// dropped, so the output always carries every input page.
			cfg.Logger.Warn("render failed, keeping page as content",
				"path", inputPDF, "page", page, "error", err)
			sinks.Logf("page %d/%d: render failed, kept as content", page, total)
			sinks.Step(page, total)
			continue
		}

		r, g, b := MeanRGB(img)
		markers[page-1] = IsMarker(r, g, b, cfg.Threshold)

		kind := "content"
		if markers[page-1] {
			kind = "marker"
		}
		cfg.Logger.Debug("page classified",
			"page", page, "r", r, "g", g, "b", b, "marker", markers[page-1])
		sinks.Logf("page %d/%d: %s", page, total, kind)
		sinks.Step(page, total)
	}

	var res Result
	for _, rg := range BuildPlan(markers) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		name := fmt.Sprintf("output_%d.pdf", res.FilesWritten+1)
		out := filepath.Join(outputDir, name)
		if err := api.CollectFile(inputPDF, out, []string{rg.selection()}, nil); err != nil {
			return res, fmt.Errorf("splitter: write %s: %w", out, err)
		}
		res.FilesWritten++
		sinks.Logf("saved %s (pages %s)", name, rg.selection())
	}

	sinks.Logf("split done: %d files", res.FilesWritten)
	return res, nil
}
