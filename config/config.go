// Package config holds the application settings the processing pipeline
// consumes: split sensitivity, reference schema and merge mode, row
// filtering bounds, OCR options and tool paths.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Factiosi/qManager/refdata"
	"github.com/Factiosi/qManager/splitter"
)

// Settings holds the full application configuration.
type Settings struct {
	// Threshold is the green-marker split sensitivity.
	Threshold float64 `yaml:"threshold"`

	// Mode selects the reference schema: logos, report or web.
	Mode string `yaml:"mode"`
	// MergeMode selects unit grouping: order or bl.
	MergeMode string `yaml:"merge_mode"`

	// FilterMode selects row filtering: unlimited or period.
	FilterMode string `yaml:"filter_mode"`
	// From and To bound the period filter, dd.mm.yyyy.
	From string `yaml:"from"`
	To   string `yaml:"to"`

	// OCRBinarization enables the two-pass threshold fallback.
	OCRBinarization bool `yaml:"ocr_binarization"`

	// ReferencePath points at the reference spreadsheet.
	ReferencePath string `yaml:"reference_path"`
	// WebSheetURL points at the web-source sheet endpoint.
	WebSheetURL string `yaml:"web_sheet_url"`

	// TesseractPath overrides the tesseract binary lookup.
	TesseractPath string `yaml:"tesseract_path"`

	// JournalPath is the operation journal database file. Empty disables
	// the journal.
	JournalPath string `yaml:"journal_path"`
}

// DefaultSettings returns sane defaults.
func DefaultSettings() *Settings {
	return &Settings{
		Threshold:   splitter.DefaultThreshold,
		Mode:        string(refdata.ModeLogos),
		MergeMode:   string(refdata.MergeByOrder),
		FilterMode:  string(refdata.FilterRecent),
		JournalPath: "qmanager.db",
	}
}

// LoadSettings reads and parses a YAML settings file. Returns
// DefaultSettings merged with the file.
func LoadSettings(path string) (*Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return s, s.Validate()
}

// Validate checks that values are sane.
func (s *Settings) Validate() error {
	if s.Threshold < splitter.MinThreshold || s.Threshold > splitter.MaxThreshold {
		return fmt.Errorf("threshold %v out of range [%v, %v]",
			s.Threshold, splitter.MinThreshold, splitter.MaxThreshold)
	}
	switch refdata.Mode(s.Mode) {
	case refdata.ModeLogos, refdata.ModeReport, refdata.ModeWeb:
	default:
		return fmt.Errorf("unsupported mode %q (use logos, report or web)", s.Mode)
	}
	switch refdata.MergeMode(s.MergeMode) {
	case refdata.MergeByOrder, refdata.MergeByBill:
	default:
		return fmt.Errorf("unsupported merge_mode %q (use order or bl)", s.MergeMode)
	}
	switch refdata.FilterMode(s.FilterMode) {
	case refdata.FilterRecent:
	case refdata.FilterPeriod:
		// Both bounds are optional; only a set bound must parse.
		if s.From != "" {
			if _, ok := refdata.ParseDate(s.From); !ok {
				return fmt.Errorf("period filter: cannot parse from date %q", s.From)
			}
		}
		if s.To != "" {
			if _, ok := refdata.ParseDate(s.To); !ok {
				return fmt.Errorf("period filter: cannot parse to date %q", s.To)
			}
		}
	default:
		return fmt.Errorf("unsupported filter_mode %q (use unlimited or period)", s.FilterMode)
	}
	return nil
}

// Filter builds the row filter the settings describe.
func (s *Settings) Filter() refdata.Filter {
	f := refdata.Filter{Mode: refdata.FilterMode(s.FilterMode)}
	if f.Mode == refdata.FilterPeriod {
		f.From, _ = refdata.ParseDate(s.From)
		f.To, _ = refdata.ParseDate(s.To)
	}
	return f
}

// StoreConfig builds the reference store configuration.
func (s *Settings) StoreConfig() refdata.Config {
	return refdata.Config{
		Mode:  refdata.Mode(s.Mode),
		Merge: refdata.MergeMode(s.MergeMode),
	}
}
