// Package organize groups recognized PDFs by shipment unit and merges each
// group into one combined document per destination folder. File names
// carry the container identifiers assigned during recognition; the
// reference store supplies the unit rule, the expected container set and
// the vessel/arrival fields the destination folder is derived from.
package organize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/Factiosi/qManager/fsutil"
	"github.com/Factiosi/qManager/kit"
	"github.com/Factiosi/qManager/refdata"
)

// maxListedContainers caps the container list embedded in a mismatch
// filename; the overflow count is appended instead.
const maxListedContainers = 6

// Config configures a merge run.
type Config struct {
	// Store holds the loaded reference data. Required.
	Store *refdata.Store

	// Merger appends one source PDF to outFile, creating it when absent.
	// The merge loop calls it once per source so cancellation is honored
	// between appends. Defaults to pdfcpu.
	Merger func(inFile, outFile string) error

	// Logger for debug messages.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Merger == nil {
		c.Merger = func(inFile, outFile string) error {
			return api.MergeAppendFile([]string{inFile}, outFile, false, nil)
		}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Result summarizes one merge run.
type Result struct {
	Groups  int
	Merged  int
	Skipped []string // file names that contributed to no group
}

// group is one (unit, folder) merge target. Files and container ids keep
// encounter order; ids are deduplicated on insert.
type group struct {
	unit   string
	folder string
	first  *refdata.Record
	files  []string
	ids    []string
	seen   map[string]bool
}

func (g *group) addIDs(ids []string) {
	for _, id := range ids {
		if !g.seen[id] {
			g.seen[id] = true
			g.ids = append(g.ids, id)
		}
	}
}

// collisionSuffix matches the " (N)" disambiguation tail recognition
// appends on name collisions.
var collisionSuffix = regexp.MustCompile(` \(\d+\)$`)

// ParseIDs extracts the container identifiers encoded in a recognized file
// name: the extension and any trailing " (N)" suffix are stripped, the
// rest splits on commas.
func ParseIDs(filename string) []string {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	name = collisionSuffix.ReplaceAllString(name, "")

	var ids []string
	for _, part := range strings.Split(name, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}

// FolderName derives the destination folder for a record. Spreadsheet
// sources use vessel plus the arrival date reformatted as dd.mm.yyyy,
// keeping the raw string when it does not parse. The web source uses
// vessel plus voyage, with voyage's "/" replaced by "-". The result is
// sanitized for use as a directory name.
func FolderName(mode refdata.Mode, r *refdata.Record) string {
	var name string
	if mode == refdata.ModeWeb {
		name = r.Vessel
		if r.Voyage != "" {
			name += " " + strings.ReplaceAll(r.Voyage, "/", "-")
		}
	} else {
		date := r.Arrival
		if t, ok := refdata.ParseDate(r.Arrival); ok {
			date = t.Format("02.01.2006")
		}
		name = strings.TrimSpace(r.Vessel + " " + date)
	}
	return fsutil.Sanitize(name)
}

// GroupName builds the merged document's file name. A group whose actual
// containers equal the expected set gets the plain "<display> <company>"
// name; any mismatch appends the actual containers in parentheses, capped
// at maxListedContainers with a "+N" overflow marker.
func GroupName(display, company string, actual, expected []string) string {
	base := strings.TrimSpace(display + " " + company)
	if sameSet(actual, expected) {
		return base + ".pdf"
	}

	listed := actual
	overflow := 0
	if len(listed) > maxListedContainers {
		overflow = len(listed) - maxListedContainers
		listed = listed[:maxListedContainers]
	}
	suffix := strings.Join(listed, ", ")
	if overflow > 0 {
		suffix += fmt.Sprintf(" +%d", overflow)
	}
	return base + " (" + suffix + ").pdf"
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		if !set[s] {
			return false
		}
	}
	return true
}

// Merge groups every recognized PDF in inputDir by shipment unit and
// destination folder, then merges each group into one document under
// outputRoot. A file whose first container identifier is unknown
// contributes to no group and is left in place. Merge failures are fatal
// to the run.
func Merge(ctx context.Context, cfg Config, inputDir, outputRoot string, sinks kit.Sinks) (Result, error) {
	cfg.defaults()
	if cfg.Store == nil {
		return Result{}, fmt.Errorf("organize: no reference store")
	}
	store := cfg.Store

	files, err := listPDFs(inputDir)
	if err != nil {
		return Result{}, err
	}

	var (
		res    Result
		order  []*group
		groups = make(map[string]*group)
	)
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		ids := ParseIDs(name)
		if len(ids) == 0 {
			res.Skipped = append(res.Skipped, name)
			continue
		}
		rec := store.Container(ids[0])
		if rec == nil {
			cfg.Logger.Debug("unknown container, file skipped", "file", name, "container", ids[0])
			sinks.Logf("skipping %s: unknown container %s", name, ids[0])
			res.Skipped = append(res.Skipped, name)
			continue
		}

		unit := store.UnitKey(rec)
		folder := FolderName(store.Mode(), rec)
		key := unit + "\x00" + folder
		g := groups[key]
		if g == nil {
			g = &group{unit: unit, folder: folder, first: rec, seen: make(map[string]bool)}
			groups[key] = g
			order = append(order, g)
		}
		g.files = append(g.files, filepath.Join(inputDir, name))
		g.addIDs(ids)
	}

	total := len(order)
	for i, g := range order {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if len(g.ids) == 0 {
			continue
		}
		res.Groups++

		actual := append([]string(nil), g.ids...)
		sort.Strings(actual)
		expected := store.ContainersByUnit(g.unit)

		first := store.Container(actual[0])
		if first == nil {
			first = g.first
		}
		display := first.Order
		if store.Mode() == refdata.ModeWeb || store.Merge() == refdata.MergeByBill {
			display = first.Bill
		}

		destDir := filepath.Join(outputRoot, g.folder)
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return res, fmt.Errorf("organize: create %s: %w", destDir, err)
		}

		name := fsutil.Sanitize(GroupName(display, first.Company, actual, expected))
		name = fsutil.ShrinkName(destDir, name, fsutil.PathLimit)
		name = fsutil.UniqueName(destDir, name)
		outPath := filepath.Join(destDir, name)

		sinks.Logf("merging %d file(s) into %s", len(g.files), name)
		for _, src := range g.files {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			if err := cfg.Merger(src, outPath); err != nil {
				return res, fmt.Errorf("organize: merge %s: %w", name, err)
			}
		}
		res.Merged++
		cfg.Logger.Info("group merged",
			"unit", g.unit, "folder", g.folder, "files", len(g.files), "out", name)
		sinks.Step(i+1, total)
	}

	if len(res.Skipped) > 0 {
		sinks.Logf("%d file(s) not assigned to any unit", len(res.Skipped))
	}
	return res, nil
}

func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("organize: read %s: %w", dir, err)
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
