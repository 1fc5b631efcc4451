// Package refdata loads container reference data from an Excel workbook or a
// tabular web sheet and indexes it two ways: by full container identifier
// (newest observation wins) and by shipment unit (order, order|vessel
// composite, or bill of lading, depending on mode).
//
// A Store is built fresh for every operation run:
//
//	store := refdata.New(refdata.Config{Mode: refdata.ModeLogos})
//	stats, err := store.LoadExcel(ctx, path, refdata.Filter{})
//	store.Process()
//	ids := store.ContainersByUnit("4500123|MSC AURA")
package refdata

import (
	"errors"
	"log/slog"
	"strings"
	"time"
)

// Mode selects the source schema.
type Mode string

const (
	// ModeLogos maps the logistics export column layout by header name.
	ModeLogos Mode = "logos"
	// ModeReport maps the condensed report column layout by header name.
	ModeReport Mode = "report"
	// ModeWeb consumes web-sheet rows with fields at fixed positions.
	ModeWeb Mode = "web"
)

// MergeMode selects how shipment units are keyed in spreadsheet modes.
// ModeWeb always groups by bill of lading regardless of MergeMode.
type MergeMode string

const (
	MergeByOrder MergeMode = "order"
	MergeByBill  MergeMode = "bl"
)

// MaxAgeDays is the hard stop for unlimited-recent filtering: the first row
// older than this, scanning newest to oldest, ends the load.
const MaxAgeDays = 60

// companyGrandTrade is the classification label assigned to every row of the
// spreadsheet sources; web-sheet rows carry their own company column.
const companyGrandTrade = "GRAND-TRADE"

// ErrColumnMissing is returned when no header matches a required field.
var ErrColumnMissing = errors.New("refdata: required column not found")

// Record is the latest observation of one container identifier.
type Record struct {
	Container string // full identifier, case preserved
	Company   string
	Order     string
	Vessel    string
	Voyage    string // web source only
	Arrival   string // raw date string as seen in the source
	Bill      string // whitespace-stripped
}

// LoadStats summarizes one load.
type LoadStats struct {
	TotalRows       int // data rows scanned (header excluded)
	FirstValidRow   int // 1-based; 0 when no valid rows
	LastValidRow    int
	ValidContainers int
}

// FilterMode selects the row filtering policy.
type FilterMode string

const (
	// FilterRecent processes rows newest to oldest and stops entirely at the
	// first row older than MaxAgeDays.
	FilterRecent FilterMode = "unlimited"
	// FilterPeriod keeps only rows within the inclusive [From, To] range.
	FilterPeriod FilterMode = "period"
)

// Filter configures row filtering for a load.
type Filter struct {
	Mode FilterMode // defaults to FilterRecent
	From time.Time  // period bound, zero = unbounded
	To   time.Time  // period bound, zero = unbounded
	Now  time.Time  // reference clock for FilterRecent, zero = time.Now()
}

func (f Filter) now() time.Time {
	if f.Now.IsZero() {
		return time.Now()
	}
	return f.Now
}

// accept reports whether a dated row passes the filter. stop means the scan
// must end entirely (unlimited-recent hard stop).
func (f Filter) accept(d time.Time) (ok, stop bool) {
	if f.Mode == FilterPeriod {
		day := truncateDay(d)
		if !f.From.IsZero() && day.Before(truncateDay(f.From)) {
			return false, false
		}
		if !f.To.IsZero() && day.After(truncateDay(f.To)) {
			return false, false
		}
		return true, false
	}
	daysAgo := int(f.now().Sub(d).Hours() / 24)
	if daysAgo > MaxAgeDays {
		return false, true
	}
	return true, false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Config configures a Store.
type Config struct {
	Mode  Mode
	Merge MergeMode

	// TailRows bounds unlimited-recent Excel scans to the trailing N data
	// rows. 0 means DefaultTailRows; negative disables the bound.
	TailRows int

	// Logger for debug messages.
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Mode == "" {
		c.Mode = ModeLogos
	}
	if c.Merge == "" {
		c.Merge = MergeByOrder
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Store holds the loaded reference data for one operation run.
type Store struct {
	cfg    Config
	logger *slog.Logger

	records map[string]*Record   // by full container id, newest wins
	ids     []string             // insertion order, newest first
	suffix  map[string][]*Record // trailing-7-digit suffix → every observation
	units   map[string][]string  // unit key → container ids, built by Process
}

// New creates an empty Store.
func New(cfg Config) *Store {
	cfg.defaults()
	return &Store{
		cfg:     cfg,
		logger:  cfg.Logger,
		records: make(map[string]*Record),
		suffix:  make(map[string][]*Record),
		units:   make(map[string][]string),
	}
}

// Mode returns the configured source schema.
func (s *Store) Mode() Mode { return s.cfg.Mode }

// Merge returns the configured unit grouping mode.
func (s *Store) Merge() MergeMode { return s.cfg.Merge }

// Len returns the number of distinct container identifiers loaded.
func (s *Store) Len() int { return len(s.records) }

// IDs returns every loaded container identifier, newest first.
func (s *Store) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Container returns the record for a full container identifier, or nil.
func (s *Store) Container(id string) *Record {
	return s.records[id]
}

// RecordsBySuffix returns every observation sharing a trailing-7-digit
// suffix. Different prefixes can collide on the same digits.
func (s *Store) RecordsBySuffix(suffix string) []*Record {
	return s.suffix[suffix]
}

// reset clears the loaded records. The unit index is left alone: it belongs
// to Process, and ContainersByUnit has a fallback for a stale index.
func (s *Store) reset() {
	s.records = make(map[string]*Record)
	s.ids = s.ids[:0]
	s.suffix = make(map[string][]*Record)
}

// add indexes one observation, newest first. Every observation feeds the
// suffix index; only the first one per exact identifier wins direct lookup.
func (s *Store) add(rec *Record) {
	if sfx, ok := DigitSuffix(rec.Container); ok {
		s.suffix[sfx] = append(s.suffix[sfx], rec)
	}
	if _, ok := s.records[rec.Container]; !ok {
		s.records[rec.Container] = rec
		s.ids = append(s.ids, rec.Container)
	}
}

// UnitKey derives the shipment unit key for a record per the active mode.
// Empty means the record belongs to no unit.
func (s *Store) UnitKey(r *Record) string {
	if s.cfg.Mode == ModeWeb {
		return r.Bill
	}
	if s.cfg.Merge == MergeByBill {
		return r.Bill
	}
	if r.Company == companyGrandTrade {
		if r.Order != "" && r.Vessel != "" {
			return r.Order + "|" + r.Vessel
		}
		return r.Order
	}
	return r.Bill
}

// Process rebuilds the unit index from the loaded records. Must be called
// after a load and before ContainersByUnit.
func (s *Store) Process() {
	s.units = make(map[string][]string)
	for _, id := range s.ids {
		rec := s.records[id]
		unit := s.UnitKey(rec)
		if unit == "" {
			continue
		}
		if !containsString(s.units[unit], id) {
			s.units[unit] = append(s.units[unit], id)
		}
	}
	s.logger.Debug("unit index built", "units", len(s.units), "containers", len(s.records))
}

// ContainersByUnit returns the container identifiers belonging to a unit.
// When the index has no entry — stale index, or a key synthesized from
// partial data — it falls back to a linear scan recomputing the unit rule,
// so folder naming never silently loses containers.
func (s *Store) ContainersByUnit(unit string) []string {
	if ids := s.units[unit]; len(ids) > 0 {
		return ids
	}

	// Both sides of every comparison are space-stripped: the key arrives
	// from UnitKey (or a filename) with the record's own spacing, so only
	// normalized forms can be compared.
	norm := stripSpace(unit)
	var ids []string
	switch {
	case s.cfg.Mode == ModeWeb || s.cfg.Merge == MergeByBill:
		for _, id := range s.ids {
			if stripSpace(s.records[id].Bill) == norm {
				ids = append(ids, id)
			}
		}
	case strings.Contains(norm, "|"):
		order, vessel, _ := strings.Cut(norm, "|")
		for _, id := range s.ids {
			r := s.records[id]
			if stripSpace(r.Order) == order && stripSpace(r.Vessel) == vessel {
				ids = append(ids, id)
			}
		}
	default:
		for _, id := range s.ids {
			if stripSpace(s.records[id].Order) == norm {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// DigitSuffix extracts the trailing 7 digits of a container identifier.
// Returns false when the identifier carries fewer than 7 digits.
func DigitSuffix(id string) (string, bool) {
	var digits []byte
	for i := 0; i < len(id); i++ {
		if id[i] >= '0' && id[i] <= '9' {
			digits = append(digits, id[i])
		}
	}
	if len(digits) < 7 {
		return "", false
	}
	return string(digits[len(digits)-7:]), true
}

// stripSpace removes every space from a bill/CMR reference.
func stripSpace(s string) string {
	return strings.ReplaceAll(s, " ", "")
}

func trimCell(s string) string {
	return strings.TrimSpace(s)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
