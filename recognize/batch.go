package recognize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Factiosi/qManager/fsutil"
	"github.com/Factiosi/qManager/kit"
)

// BatchResult summarizes one folder run.
type BatchResult struct {
	Processed  int
	Renamed    int
	NotRenamed []string // original names of files moved without renaming
}

// ProcessFolder recognizes every PDF in inputDir and moves it into
// outputDir: matched files are renamed to the comma-joined identifier list,
// unmatched or failing files keep their original name. Either way the name
// is made collision-safe, so no input is silently lost. A failure on one
// file never aborts the batch.
func ProcessFolder(ctx context.Context, cfg Config, inputDir, outputDir string, validIDs []string, sinks kit.Sinks) (BatchResult, error) {
	cfg.defaults()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return BatchResult{}, fmt.Errorf("recognize: create %s: %w", outputDir, err)
	}

	files, err := listPDFs(inputDir)
	if err != nil {
		return BatchResult{}, err
	}

	var res BatchResult
	total := len(files)
	for i, name := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		src := filepath.Join(inputDir, name)
		sinks.Logf("reading %s", strings.TrimSuffix(name, filepath.Ext(name)))

		ids, err := Recognize(ctx, cfg, src, validIDs)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			cfg.Logger.Error("recognition failed", "path", src, "error", err)
			sinks.Logf("error reading %s: %v", name, err)
		}

		newName := name
		renamed := false
		if len(ids) > 0 {
			newName = strings.Join(ids, ", ") + ".pdf"
			renamed = true
		}

		unique := fsutil.UniqueName(outputDir, newName)
		if err := fsutil.MoveFile(src, filepath.Join(outputDir, unique)); err != nil {
			cfg.Logger.Error("move failed", "path", src, "error", err)
			sinks.Logf("could not move %s: %v", name, err)
			res.NotRenamed = append(res.NotRenamed, name)
			sinks.Step(i+1, total)
			continue
		}

		res.Processed++
		if renamed {
			res.Renamed++
			sinks.Logf("renamed to %s", strings.TrimSuffix(unique, filepath.Ext(unique)))
		} else {
			res.NotRenamed = append(res.NotRenamed, name)
		}
		sinks.Step(i+1, total)
	}

	if len(res.NotRenamed) > 0 {
		sinks.Logf("%d file(s) kept their original name", len(res.NotRenamed))
	} else if total > 0 {
		sinks.Logf("all files renamed")
	}
	return res, nil
}

// listPDFs returns the PDF file names in dir, sorted.
func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("recognize: read %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			files = append(files, e.Name())
		}
	}
	return files, nil
}
