package refdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// WebSheet fetches reference rows from a tabular web endpoint. The endpoint
// returns the sheet body as JSON:
//
//	{"values": [["...", ...], ...]}
//
// Rows carry fields at fixed positions (webCol* constants), oldest first.
// Authorization is the caller's concern — the URL is expected to be already
// authorized (API key query parameter or a proxy).
type WebSheet struct {
	URL string

	// TailRows bounds the scan to the trailing N rows, mirroring the
	// chunked tail reads the sheet API allows. 0 means unbounded.
	TailRows int

	// Client defaults to a 60s-timeout client.
	Client *http.Client
}

func (w WebSheet) client() *http.Client {
	if w.Client != nil {
		return w.Client
	}
	return &http.Client{Timeout: 60 * time.Second}
}

type webSheetBody struct {
	Values [][]any `json:"values"`
}

// fetch retrieves and stringifies the sheet rows.
func (w WebSheet) fetch(ctx context.Context) ([][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("refdata: web sheet request: %w", err)
	}
	resp, err := w.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("refdata: fetch web sheet %s: %w", w.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("refdata: fetch web sheet %s: status %d", w.URL, resp.StatusCode)
	}

	var body webSheetBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("refdata: decode web sheet %s: %w", w.URL, err)
	}

	rows := make([][]string, len(body.Values))
	for i, raw := range body.Values {
		row := make([]string, len(raw))
		for j, v := range raw {
			row[j] = cellString(v)
		}
		rows[i] = row
	}
	return rows, nil
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		// Sheet numbers arrive as float64; order and bill references must
		// not grow a ".000000" tail.
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// LoadWebSheet fetches the web sheet and ingests its rows, newest to oldest.
// Unlike the header-mapped schemas, web rows need no parseable date to be
// accepted: the date only participates in filtering when present and
// parseable, and any non-empty container identifier is recorded.
func (s *Store) LoadWebSheet(ctx context.Context, src WebSheet, f Filter) (LoadStats, error) {
	rows, err := src.fetch(ctx)
	if err != nil {
		return LoadStats{}, err
	}
	s.logger.Debug("web sheet fetched", "rows", len(rows))

	// Period filtering must see the whole source; the tail bound only
	// applies to unlimited-recent scans.
	if f.Mode != FilterPeriod && src.TailRows > 0 && len(rows) > src.TailRows {
		rows = rows[len(rows)-src.TailRows:]
	}

	s.reset()
	stats := LoadStats{TotalRows: len(rows)}

	for i := len(rows) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		row := rows[i]
		if len(row) <= webColCompany {
			continue
		}

		container := trimCell(cell(row, webColContainer))
		if container == "" {
			continue
		}
		if _, seen := s.records[container]; seen {
			continue
		}

		date := trimCell(cell(row, webColDate))
		if d, ok := ParseDate(date); ok {
			ok, stop := f.accept(d)
			if stop {
				break
			}
			if !ok {
				continue
			}
		}

		company := trimCell(cell(row, webColCompany))
		if company == "" {
			company = "OTHER"
		}

		s.add(&Record{
			Container: container,
			Company:   company,
			Vessel:    trimCell(cell(row, webColVessel)),
			Voyage:    trimCell(cell(row, webColVoyage)),
			Arrival:   date,
			Bill:      stripSpace(trimCell(cell(row, webColBill))),
		})
		stats.ValidContainers++

		rowNr := i + 1
		if stats.LastValidRow == 0 {
			stats.LastValidRow = rowNr
		}
		stats.FirstValidRow = rowNr
	}

	s.logger.Debug("web sheet loaded", "containers", len(s.records))
	return stats, nil
}
