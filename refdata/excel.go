package refdata

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// DefaultTailRows bounds how many trailing data rows an unlimited-recent
// Excel load scans. The source grows append-only, so the tail holds the
// recent rows the 60-day window can ever accept.
const DefaultTailRows = 2000

// LoadExcel reads the first worksheet of an xlsx workbook and ingests its
// rows. Row 1 must be the header row; data rows are assumed oldest first,
// so the scan walks them bottom-up (newest to oldest).
//
// Under FilterRecent the scan is bounded to the trailing tailRows data rows
// (cfg.TailRows, DefaultTailRows when unset). Period filtering always scans
// the full sheet.
func (s *Store) LoadExcel(ctx context.Context, path string, f Filter) (LoadStats, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return LoadStats{}, fmt.Errorf("refdata: open excel %s: %w", path, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return LoadStats{}, fmt.Errorf("refdata: excel %s has no worksheets", path)
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return LoadStats{}, fmt.Errorf("refdata: read excel %s: %w", path, err)
	}
	if len(rows) == 0 {
		s.reset()
		return LoadStats{}, fmt.Errorf("refdata: excel %s is empty", path)
	}

	s.logger.Debug("excel read", "path", path, "rows", len(rows))
	return s.LoadRows(ctx, rows[0], rows[1:], f)
}

// tailBound returns the number of trailing rows an unlimited-recent load
// scans. Zero means unbounded.
func (s *Store) tailBound(f Filter) int {
	if f.Mode == FilterPeriod {
		return 0
	}
	if s.cfg.TailRows < 0 {
		return 0
	}
	if s.cfg.TailRows == 0 {
		return DefaultTailRows
	}
	return s.cfg.TailRows
}

// LoadRows ingests header-mapped data rows, assumed oldest first. This is
// the row-iterator surface behind LoadExcel; any tabular source with the
// same header schema can feed it.
func (s *Store) LoadRows(ctx context.Context, headers []string, rows [][]string, f Filter) (LoadStats, error) {
	cols, err := columnMap(s.cfg.Mode, headers)
	if err != nil {
		return LoadStats{}, err
	}

	s.reset()
	stats := LoadStats{TotalRows: len(rows)}

	base := 0
	if tail := s.tailBound(f); tail > 0 && len(rows) > tail {
		base = len(rows) - tail
		s.logger.Debug("excel tail bound applied", "scanning", tail, "of", len(rows))
	}
	scan := rows[base:]

	for i := len(scan) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		row := scan[i]

		d, ok := ParseDate(cell(row, cols[fieldDate]))
		if !ok {
			continue
		}
		ok, stop := f.accept(d)
		if stop {
			break
		}
		if !ok {
			continue
		}

		container := trimCell(cell(row, cols[fieldContainer]))
		if _, ok := DigitSuffix(container); !ok {
			continue
		}

		s.add(&Record{
			Container: container,
			Company:   companyGrandTrade,
			Order:     trimCell(cell(row, cols[fieldOrder])),
			Vessel:    trimCell(cell(row, cols[fieldVessel])),
			Arrival:   trimCell(cell(row, cols[fieldDate])),
			Bill:      stripSpace(trimCell(cell(row, cols[fieldBill]))),
		})
		stats.ValidContainers++

		rowNr := base + i + 1 // 1-based data row number
		if stats.LastValidRow == 0 {
			stats.LastValidRow = rowNr
		}
		stats.FirstValidRow = rowNr
	}

	s.logger.Debug("reference data loaded",
		"containers", len(s.records), "valid_rows", stats.ValidContainers)
	return stats, nil
}
